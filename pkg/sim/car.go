// Package sim advances the longitudinal state of a single car in fixed ticks.
//
// Each tick computes the resistive forces, asks the throttle controller for a
// command, limits the resulting wheel force by the front axle load (front wheel
// drive), integrates the velocity (explicit Euler) and finally decides about a
// gear change.
package sim

import (
	"fmt"

	"github.com/mpapenbr/cruisesim/log"
	"github.com/mpapenbr/cruisesim/pkg/control"
	"github.com/mpapenbr/cruisesim/pkg/physics"
)

type Car struct {
	params  Params
	env     physics.Environment
	chassis physics.Chassis
	torque  *physics.TorqueCurve
	gears   *physics.GearTable
	pid     *control.Controller
	log     *log.Logger

	gear       int
	velocity   float64 // m/s
	desiredKmh float64
	elapsed    float64 // s
	tick       int64
	// split of the last tick, bounds the wheel force of the next one
	frontLoad float64
	rearLoad  float64

	measurement Measurement
}

type Option func(*Car)

func WithLogger(l *log.Logger) Option {
	return func(c *Car) {
		c.log = l
	}
}

// WithVelocity sets the initial speed (km/h).
func WithVelocity(kmh float64) Option {
	return func(c *Car) {
		c.velocity = physics.KmhToMs(kmh)
	}
}

// WithGear sets the initial gear. Values outside the gear table are rejected by NewCar.
func WithGear(gear int) Option {
	return func(c *Car) {
		c.gear = gear
	}
}

func WithDesiredSpeed(kmh float64) Option {
	return func(c *Car) {
		c.desiredKmh = kmh
	}
}

func NewCar(p Params, opts ...Option) (*Car, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	torque, err := physics.NewTorqueCurve(p.Torque)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	gears, err := physics.NewGearTable(p.GearRatios, p.FinalDrive)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	c := &Car{
		params:  p,
		env:     p.Environment,
		chassis: p.Chassis,
		torque:  torque,
		gears:   gears,
		pid:     control.NewController(p.PID),
		log:     log.Default().Named("sim.car"),
		gear:    1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gear < 1 || c.gear > gears.NumGears() {
		return nil, fmt.Errorf("%w: initial gear %d not in [1,%d]",
			ErrInvalidParams, c.gear, gears.NumGears())
	}
	c.frontLoad, c.rearLoad = c.chassis.Distribute(p.Weight, 0, c.env.Gravity)
	return c, nil
}

// SetDesiredSpeed changes the cruise setpoint (km/h). The controller state is
// cleared on every change.
func (c *Car) SetDesiredSpeed(kmh float64) {
	if kmh == c.desiredKmh {
		return
	}
	c.log.Debug("cruise setpoint changed",
		log.Float64("from", c.desiredKmh), log.Float64("to", kmh))
	c.desiredKmh = kmh
	c.pid.Clear()
}

func (c *Car) DesiredSpeed() float64 { return c.desiredKmh }

// Velocity returns the current speed in m/s.
func (c *Car) Velocity() float64 { return c.velocity }
func (c *Car) SpeedKmh() float64 { return physics.MsToKmh(c.velocity) }
func (c *Car) Gear() int { return c.gear }
func (c *Car) Elapsed() float64 { return c.elapsed }
func (c *Car) Ticks() int64 { return c.tick }
func (c *Car) Measurement() Measurement { return c.measurement }
func (c *Car) Params() Params { return c.params }
func (c *Car) Gears() *physics.GearTable { return c.gears }
func (c *Car) TorqueCurve() *physics.TorqueCurve { return c.torque }

// Loads returns the front and rear axle load of the last tick.
func (c *Car) Loads() (front, rear float64) {
	return c.frontLoad, c.rearLoad
}

// RPM returns the engine speed for the current velocity and gear.
func (c *Car) RPM() float64 {
	return physics.EngineRPM(c.velocity, c.params.WheelRadius,
		c.gears.FinalRatio(c.gear), c.params.IdleRPM)
}

// MaxWheelForce returns the engine rpm and the force at the wheels at full
// throttle for the current velocity and gear.
func (c *Car) MaxWheelForce() (rpm, force float64) {
	ratio := c.gears.FinalRatio(c.gear)
	rpm = physics.EngineRPM(c.velocity, c.params.WheelRadius, ratio, c.params.IdleRPM)
	if rpm > c.params.CutoutRPM {
		return rpm, 0
	}
	return rpm, physics.WheelForce(
		c.torque.Torque(rpm), ratio, c.params.Efficiency, c.params.WheelRadius)
}

// Step advances the simulation by dtMs milliseconds on a road with the given
// grade (degrees, positive uphill). dtMs must be > 0.
func (c *Car) Step(dtMs, gradeDeg float64) Frame {
	if !(dtMs > 0) {
		panic(fmt.Sprintf("step with non-positive dt %v ms", dtMs))
	}
	dt := dtMs / 1000
	p := &c.params

	drag := c.env.Drag(c.velocity)
	gradeForce := c.env.GradeForce(p.Weight, gradeDeg)
	rolling := c.env.RollingResistance(p.Weight, c.velocity)

	raw := c.pid.Step(dt, c.velocity, physics.KmhToMs(c.desiredKmh))
	throttle := c.pid.ClampAndNormalize(raw)

	rpm, maxForce := c.MaxWheelForce()
	forward := throttle * maxForce
	limited := false
	if bound := c.frontLoad * p.TireFriction; forward > bound {
		forward = bound
		limited = true
	}

	net := forward - drag - gradeForce - rolling
	acc := net / p.Weight
	c.velocity += acc * dt

	c.frontLoad, c.rearLoad = c.chassis.Distribute(p.Weight, acc, c.env.Gravity)
	shift := c.shift(acc)

	c.measurement.Check(c.elapsed, c.velocity)
	c.elapsed += dt
	c.tick++

	to100, _ := c.measurement.To100()
	to200, _ := c.measurement.To200()
	return Frame{
		Tick:            c.tick,
		Time:            c.elapsed,
		SpeedKmh:        physics.MsToKmh(c.velocity),
		RPM:             rpm,
		Gear:            c.gear,
		Shift:           shift,
		CruiseKmh:       c.desiredKmh,
		GradeDeg:        gradeDeg,
		Throttle:        throttle,
		MaxWheelForce:   maxForce,
		WheelForce:      forward,
		TractionLimited: limited,
		Drag:            drag,
		GradeForce:      gradeForce,
		Rolling:         rolling,
		NetForce:        net,
		Acceleration:    acc,
		FrontLoad:       c.frontLoad,
		RearLoad:        c.rearLoad,
		To100:           to100,
		To200:           to200,
	}
}

// shift applies at most one gear change based on the rpm of the new velocity.
func (c *Car) shift(acc float64) int {
	rpm := c.RPM()
	switch {
	case acc > 0 && rpm > c.params.UpshiftRPM && c.gear < c.gears.NumGears():
		c.gear++
		c.log.Debug("upshift", log.Int("gear", c.gear), log.Float64("rpm", rpm),
			log.Float64("time", c.elapsed))
		return 1
	case acc < 0 && rpm < c.params.DownshiftRPM && c.gear > 1:
		c.gear--
		c.log.Debug("downshift", log.Int("gear", c.gear), log.Float64("rpm", rpm),
			log.Float64("time", c.elapsed))
		return -1
	}
	return 0
}
