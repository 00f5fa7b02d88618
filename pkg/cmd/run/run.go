package run

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/cruisesim/log"
	"github.com/mpapenbr/cruisesim/pkg/config"
	"github.com/mpapenbr/cruisesim/pkg/output/console"
	"github.com/mpapenbr/cruisesim/pkg/output/natspub"
	"github.com/mpapenbr/cruisesim/pkg/output/web"
	"github.com/mpapenbr/cruisesim/pkg/runner"
	"github.com/mpapenbr/cruisesim/pkg/scenario"
	"github.com/mpapenbr/cruisesim/pkg/sim"
	"github.com/mpapenbr/cruisesim/pkg/utils"
	"github.com/mpapenbr/cruisesim/pkg/utils/broadcast"
)

//nolint:funlen // flag definitions
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "runs the simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startRun(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&config.ScenarioFile,
		"scenario",
		"",
		"scenario file (built-in scenario if empty)")
	cmd.Flags().StringVar(&config.ControlFile,
		"control-file",
		"",
		"file watched for on-demand commands (cruise, grade)")
	cmd.Flags().StringVar(&config.TickPeriod,
		"tick",
		"10ms",
		"simulated duration of a tick")
	cmd.Flags().Float64Var(&config.Speed,
		"speed",
		1,
		"pacing factor (1 real time, 0 as fast as possible)")
	cmd.Flags().StringVar(&config.Duration,
		"duration",
		"",
		"simulated duration limit (overrides the scenario duration, 0 runs until interrupted)")
	cmd.Flags().IntVar(&config.RenderEvery,
		"render-every",
		10,
		"render every n-th frame on the console")
	cmd.Flags().BoolVar(&config.ClearScreen,
		"clear",
		true,
		"clear the terminal before each rendered frame")
	cmd.Flags().BoolVar(&config.Quiet,
		"quiet",
		false,
		"no console rendering, just the summary")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"publish telemetry to this nats server (disabled if empty)")
	cmd.Flags().StringVar(&config.NatsSubject,
		"nats-subject",
		natspub.DefaultPrefix,
		"subject prefix for telemetry and control messages")
	cmd.Flags().StringVar(&config.HTTPAddr,
		"http-addr",
		"",
		"listen address of the live view (disabled if empty)")

	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format (json, text)")
	cmd.Flags().StringVar(&config.LogConfig,
		"log-config",
		"",
		"log config file (filter rules, graylog)")
	cmd.Flags().StringVar(&config.GraylogAddr,
		"graylog-addr",
		"",
		"additionally send log entries to this graylog (gelf udp) address")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (stdout prints to stderr)")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupLogger() (*log.Logger, error) {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	cfg := &log.Config{}
	if config.LogConfig != "" {
		var err error
		if cfg, err = log.LoadConfig(config.LogConfig); err != nil {
			return nil, err
		}
	}
	if config.GraylogAddr != "" {
		cfg.Graylog = config.GraylogAddr
	}
	return logger.Apply(cfg)
}

//nolint:funlen,cyclop // by design
func startRun(ctx context.Context) error {
	logger, err := setupLogger()
	if err != nil {
		return err
	}
	log.ResetDefault(logger)
	defer log.Sync() //nolint:errcheck // by design

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		if telemetry, tErr := config.SetupTelemetry(ctx); tErr == nil {
			defer telemetry.Shutdown()
		} else {
			log.Warn("Could not setup telemetry", log.ErrorField(tErr))
		}
		if rErr := otlpruntime.Start(
			otlpruntime.WithMinimumReadMemStatsInterval(time.Second)); rErr != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(rErr))
		}
	}

	params, err := config.CarParams(viper.GetViper())
	if err != nil {
		return err
	}
	s := scenario.Default()
	if config.ScenarioFile != "" {
		if s, err = scenario.Load(config.ScenarioFile); err != nil {
			log.Error("invalid scenario", log.ErrorField(err))
			return err
		}
	}
	car, err := sim.NewCar(params)
	if err != nil {
		log.Error("invalid car parameters", log.ErrorField(err))
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.New().String()
	// all command sources feed this channel, applied by the runner between ticks
	commands := make(chan scenario.Command, 16)
	r := runner.New(car, scenario.NewDriver(s),
		runner.WithRunID(runID),
		runner.WithCommands(commands),
		runner.WithTickPeriod(config.ParseDuration(config.TickPeriod, runner.DefaultTickPeriod)),
		runner.WithSpeed(config.Speed),
		runner.WithDuration(config.ParseDuration(config.Duration, s.Duration)),
	)
	log.Debug("Config:",
		log.String("runId", r.RunID()),
		log.String("scenario", s.Name),
		log.String("tick", config.TickPeriod),
		log.Float64("speed", config.Speed),
		log.String("natsUrl", config.NatsURL),
		log.String("httpAddr", config.HTTPAddr),
	)

	frames := broadcast.NewBroadcastServer("frames", r.Frames())
	// sinks drain the remaining frames even if the run was interrupted
	sinkCtx, stopSinks := context.WithCancel(context.Background())
	defer stopSinks()
	wg := sync.WaitGroup{}

	if !config.Quiet {
		renderer := console.NewRenderer(os.Stdout,
			console.WithEvery(config.RenderEvery),
			console.WithClearScreen(config.ClearScreen))
		ch := frames.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := renderer.Run(sinkCtx, ch); err != nil {
				log.Error("console output stopped", log.ErrorField(err))
			}
		}()
	}

	var publisher *natspub.Publisher
	if config.NatsURL != "" {
		waitForRequiredServices(ctx)
		conn, err := natspub.Connect(config.NatsURL)
		if err != nil {
			log.Error("nats not available", log.ErrorField(err))
			return err
		}
		defer conn.Close()
		publisher = natspub.NewPublisher(conn, runID,
			natspub.WithPrefix(config.NatsSubject))
		cmds, err := publisher.Commands(ctx)
		if err != nil {
			return err
		}
		forward(ctx, cmds, commands)
		ch := frames.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := publisher.Run(sinkCtx, ch); err != nil {
				log.Error("nats output stopped", log.ErrorField(err))
			}
		}()
	}

	if config.HTTPAddr != "" {
		srv := web.NewServer(frames)
		forward(ctx, srv.Commands(), commands)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(sinkCtx, config.HTTPAddr); err != nil {
				log.Error("live view stopped", log.ErrorField(err))
			}
		}()
	}

	if config.ControlFile != "" {
		cmds, err := scenario.WatchControlFile(ctx, config.ControlFile)
		if err != nil {
			log.Error("could not watch control file", log.ErrorField(err))
			return err
		}
		forward(ctx, cmds, commands)
	}

	sum, err := r.Run(ctx)
	if err != nil {
		return err
	}
	<-frames.Done()
	stopSinks()
	wg.Wait()

	fmt.Fprint(os.Stdout, console.FormatSummary(sum))
	if publisher != nil {
		if err := publisher.PublishSummary(sum); err != nil {
			log.Warn("could not publish summary", log.ErrorField(err))
		}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		log.Info("Run interrupted")
	}
	return nil
}

//nolint:whitespace // can't make both editor and linter happy
func forward(
	ctx context.Context, src <-chan scenario.Command, dst chan<- scenario.Command,
) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-src:
				if !ok {
					return
				}
				select {
				case dst <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

func waitForRequiredServices(ctx context.Context) {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	if natsAddr := utils.ExtractFromNatsURL(config.NatsURL); natsAddr != "" {
		if err = utils.WaitForTCP(ctx, natsAddr, timeout); err != nil {
			log.Fatal("required services not ready", log.ErrorField(err))
		}
	}
	log.Debug("Required services are available")
}
