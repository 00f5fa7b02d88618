package sim

import (
	"errors"
	"fmt"

	"github.com/mpapenbr/cruisesim/pkg/control"
	"github.com/mpapenbr/cruisesim/pkg/physics"
)

// Params are the fixed constants a Car is built from.
// They are read from the "car" section of the config file on top of DefaultParams.
//
//nolint:lll // readability
type Params struct {
	Weight       float64 `mapstructure:"weight"`       // kg
	WheelRadius  float64 `mapstructure:"wheelRadius"`  // m
	Efficiency   float64 `mapstructure:"efficiency"`   // powertrain efficiency (0,1]
	IdleRPM      float64 `mapstructure:"idleRpm"`      // engine speed never drops below this
	UpshiftRPM   float64 `mapstructure:"upshiftRpm"`   // shift up above this while accelerating
	DownshiftRPM float64 `mapstructure:"downshiftRpm"` // shift down below this while decelerating
	CutoutRPM    float64 `mapstructure:"cutoutRpm"`    // no engine force above this
	TireFriction float64 `mapstructure:"tireFriction"` // traction bound = front load * friction

	Environment physics.Environment   `mapstructure:"environment"`
	Chassis     physics.Chassis       `mapstructure:"chassis"`
	PID         control.Gains         `mapstructure:"pid"`
	Torque      []physics.TorquePoint `mapstructure:"torque"`
	GearRatios  []float64             `mapstructure:"gearRatios"`
	FinalDrive  float64               `mapstructure:"finalDrive"`
}

var ErrInvalidParams = errors.New("invalid car parameters")

func DefaultParams() Params {
	return Params{
		Weight:       1300,
		WheelRadius:  0.31115,
		Efficiency:   0.75,
		IdleRPM:      850,
		UpshiftRPM:   6300,
		DownshiftRPM: 1500,
		CutoutRPM:    6800,
		TireFriction: 1.0,
		Environment:  physics.DefaultEnvironment(),
		Chassis:      physics.DefaultChassis(),
		PID:          control.DefaultGains(),
		Torque:       append([]physics.TorquePoint(nil), physics.FiestaST...),
		GearRatios:   append([]float64(nil), physics.FiestaSTRatios...),
		FinalDrive:   physics.FiestaSTFinalDrive,
	}
}

// Validate checks the scalar parameters. Torque curve and gear table are checked
// when they are built.
//
//nolint:cyclop // a list of checks
func (p Params) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(p.Weight > 0, "weight must be > 0, got %v", p.Weight)
	check(p.WheelRadius > 0, "wheel radius must be > 0, got %v", p.WheelRadius)
	check(p.Efficiency > 0 && p.Efficiency <= 1,
		"efficiency must be in (0,1], got %v", p.Efficiency)
	check(p.IdleRPM >= 0, "idle rpm must be >= 0, got %v", p.IdleRPM)
	check(p.IdleRPM < p.DownshiftRPM,
		"idle rpm %v must be below downshift rpm %v", p.IdleRPM, p.DownshiftRPM)
	// equal or overlapping thresholds would make the gearbox oscillate
	check(p.DownshiftRPM < p.UpshiftRPM,
		"downshift rpm %v must be below upshift rpm %v", p.DownshiftRPM, p.UpshiftRPM)
	check(p.UpshiftRPM <= p.CutoutRPM,
		"upshift rpm %v must not exceed cutout rpm %v", p.UpshiftRPM, p.CutoutRPM)
	check(p.TireFriction > 0, "tire friction must be > 0, got %v", p.TireFriction)
	check(p.Chassis.Wheelbase() > 0, "wheelbase must be > 0, got %v", p.Chassis.Wheelbase())
	check(p.Environment.Gravity > 0, "gravity must be > 0, got %v", p.Environment.Gravity)
	if err := p.PID.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidParams, errors.Join(errs...))
	}
	return nil
}
