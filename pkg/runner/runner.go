// Package runner drives a sim.Car in real time: it applies scenario events and
// on-demand commands between ticks, paces the ticks against the wall clock and
// hands every frame to the output sinks.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/cruisesim/log"
	"github.com/mpapenbr/cruisesim/pkg/scenario"
	"github.com/mpapenbr/cruisesim/pkg/sim"
)

const DefaultTickPeriod = 10 * time.Millisecond

var ErrAlreadyStarted = errors.New("runner already started")

// StopReason tells why a run ended.
type StopReason string

const (
	StopDuration StopReason = "duration"
	StopCanceled StopReason = "canceled"
)

type Summary struct {
	RunID      string        `json:"runId"`
	Reason     StopReason    `json:"reason"`
	Ticks      int64         `json:"ticks"`
	SimTime    time.Duration `json:"simTime"`
	WallTime   time.Duration `json:"wallTime"`
	SpeedKmh   float64       `json:"speedKmh"`
	Gear       int           `json:"gear"`
	To100      float64       `json:"to100"` // 0 if not reached
	To200      float64       `json:"to200"` // 0 if not reached
	Upshifts   int           `json:"upshifts"`
	Downshifts int           `json:"downshifts"`
	Limited    int64         `json:"tractionLimited"`
	Overruns   int64         `json:"overruns"`
}

type Runner struct {
	car      *sim.Car
	driver   *scenario.Driver
	commands <-chan scenario.Command
	frames   chan sim.Frame
	tick     time.Duration
	speed    float64
	duration time.Duration
	runID    string
	log      *log.Logger
	started  bool
}

type Option func(*Runner)

// WithTickPeriod sets the simulated duration of a tick.
func WithTickPeriod(d time.Duration) Option {
	return func(r *Runner) {
		r.tick = d
	}
}

// WithSpeed sets the pacing factor. 1 is real time, 2 twice as fast, 0 runs
// without any sleeping.
func WithSpeed(speed float64) Option {
	return func(r *Runner) {
		r.speed = speed
	}
}

// WithDuration stops the run after d of simulated time. 0 runs until canceled.
func WithDuration(d time.Duration) Option {
	return func(r *Runner) {
		r.duration = d
	}
}

// WithCommands sets the channel delivering on-demand commands.
func WithCommands(ch <-chan scenario.Command) Option {
	return func(r *Runner) {
		r.commands = ch
	}
}

func WithRunID(id string) Option {
	return func(r *Runner) {
		r.runID = id
	}
}

func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// WithFrameBuffer sets the buffer size of the frame channel.
func WithFrameBuffer(n int) Option {
	return func(r *Runner) {
		r.frames = make(chan sim.Frame, n)
	}
}

func New(car *sim.Car, driver *scenario.Driver, opts ...Option) *Runner {
	r := &Runner{
		car:    car,
		driver: driver,
		frames: make(chan sim.Frame, 64),
		tick:   DefaultTickPeriod,
		speed:  1,
		runID:  uuid.New().String(),
		log:    log.Default().Named("runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) RunID() string {
	return r.runID
}

// Frames delivers every computed frame. The channel is closed when Run returns.
// Someone has to consume it, the runner blocks otherwise.
func (r *Runner) Frames() <-chan sim.Frame {
	return r.frames
}

// Period returns the wall time of a tick, 0 if unpaced.
func (r *Runner) Period() time.Duration {
	if r.speed <= 0 {
		return 0
	}
	return time.Duration(float64(r.tick) / r.speed)
}

// Run executes ticks until ctx is done or the duration limit is reached.
//
//nolint:funlen,cyclop // main loop
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if r.started {
		return nil, ErrAlreadyStarted
	}
	r.started = true
	defer close(r.frames)

	ctx, span := otel.Tracer("cruisesim.runner").Start(ctx, "run",
		trace.WithAttributes(
			attribute.String("run.id", r.runID),
			attribute.String("tick", r.tick.String()),
			attribute.Float64("speed", r.speed),
		))
	defer span.End()

	metrics := newRunMetrics(r.runID, r.log)
	sum := &Summary{RunID: r.runID}
	dtMs := float64(r.tick) / float64(time.Millisecond)
	period := r.Period()
	wallStart := time.Now()
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	r.log.Info("run started",
		log.String("runId", r.runID),
		log.Duration("tick", r.tick),
		log.Float64("speed", r.speed),
		log.Duration("duration", r.duration))

	commands := r.commands
	for {
		simTime := time.Duration(r.car.Ticks()) * r.tick
		if r.duration > 0 && simTime >= r.duration {
			sum.Reason = StopDuration
			break
		}
		if ctx.Err() != nil {
			sum.Reason = StopCanceled
			break
		}
		commands = r.drainCommands(ctx, commands)
		for _, e := range r.driver.Apply(simTime, r.car) {
			span.AddEvent("scenario event", trace.WithAttributes(
				attribute.String("at", e.At.String()),
				attribute.String("note", e.Note),
				attribute.String("command", e.Command.String())))
		}

		tickStart := time.Now()
		frame := r.car.Step(dtMs, r.driver.Grade())
		spent := time.Since(tickStart)
		metrics.record(ctx, &frame, float64(spent)/float64(time.Millisecond))
		r.count(sum, &frame)

		select {
		case r.frames <- frame:
		case <-ctx.Done():
			continue
		}

		if period == 0 {
			continue
		}
		// sleep the rest of the period, no catch-up for slow ticks
		if spent = time.Since(tickStart); spent >= period {
			sum.Overruns++
			metrics.overruns.Add(ctx, 1, metrics.attrs)
			continue
		}
		timer.Reset(period - spent)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	sum.Ticks = r.car.Ticks()
	sum.SimTime = time.Duration(sum.Ticks) * r.tick
	sum.WallTime = time.Since(wallStart)
	sum.SpeedKmh = r.car.SpeedKmh()
	sum.Gear = r.car.Gear()
	m := r.car.Measurement()
	sum.To100, _ = m.To100()
	sum.To200, _ = m.To200()

	span.SetAttributes(
		attribute.String("reason", string(sum.Reason)),
		attribute.Int64("ticks", sum.Ticks),
		attribute.Float64("speed.final", sum.SpeedKmh))
	r.log.Info("run finished",
		log.String("runId", r.runID),
		log.String("reason", string(sum.Reason)),
		log.Int64("ticks", sum.Ticks),
		log.Duration("simTime", sum.SimTime),
		log.Duration("wallTime", sum.WallTime),
		log.Int64("overruns", sum.Overruns))
	return sum, nil
}

// drainCommands applies all pending commands. Returns nil once ch is closed.
//
//nolint:whitespace // can't make both editor and linter happy
func (r *Runner) drainCommands(
	ctx context.Context, ch <-chan scenario.Command,
) <-chan scenario.Command {
	for ch != nil {
		select {
		case c, ok := <-ch:
			if !ok {
				r.log.Debug("command channel closed")
				return nil
			}
			r.log.Info("executing command", log.String("command", c.String()))
			trace.SpanFromContext(ctx).AddEvent("command",
				trace.WithAttributes(attribute.String("command", c.String())))
			r.driver.Execute(c, r.car)
		default:
			return ch
		}
	}
	return nil
}

func (r *Runner) count(sum *Summary, f *sim.Frame) {
	switch f.Shift {
	case 1:
		sum.Upshifts++
	case -1:
		sum.Downshifts++
	}
	if f.TractionLimited {
		sum.Limited++
	}
}
