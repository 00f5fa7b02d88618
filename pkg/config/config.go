package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/mpapenbr/cruisesim/pkg/sim"
)

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	WaitForServices   string  // duration to wait for other services to be ready
	LogLevel          string  // sets the log level (zap log level values)
	LogFormat         string  // text vs json
	LogConfig         string  // path to log config file
	GraylogAddr       string  // optional graylog (gelf udp) address
	EnableTelemetry   bool    // enable telemetry
	TelemetryEndpoint string  // endpoint for telemetry ("stdout" prints to stderr)
	ProfilingPort     int     // port for profiling
	ScenarioFile      string  // path to scenario file (built-in scenario if empty)
	ControlFile       string  // path to a watched control file
	NatsURL           string  // nats server url (disabled if empty)
	NatsSubject       string  // subject prefix for telemetry and control
	HTTPAddr          string  // listen addr for the live view (disabled if empty)
	TickPeriod        string  // simulated duration of a tick
	Speed             float64 // pacing factor, 0 runs as fast as possible
	Duration          string  // simulated duration limit (overrides scenario)
	RenderEvery       int     // render every n-th frame on the console
	ClearScreen       bool    // clear the terminal before each rendered frame
	Quiet             bool    // no console rendering at all
)

// CarKey is the config file section holding the car parameters.
const CarKey = "car"

// CarParams returns the default car parameters overlaid with the values of the
// "car" section of the config.
func CarParams(v *viper.Viper) (sim.Params, error) {
	p := sim.DefaultParams()
	if !v.IsSet(CarKey) {
		return p, nil
	}
	// lists replace the defaults, entries are not merged
	if v.IsSet(CarKey + ".torque") {
		p.Torque = nil
	}
	if v.IsSet(CarKey + ".gearRatios") {
		p.GearRatios = nil
	}
	if err := v.UnmarshalKey(CarKey, &p); err != nil {
		return p, fmt.Errorf("could not read %s section: %w", CarKey, err)
	}
	return p, nil
}

// ParseDuration parses s and returns defaultVal if s is empty or invalid.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
