// Package control contains the throttle controller used to track the cruise speed.
package control

import (
	"fmt"
	"math"
)

// the integral term is kept within [-integralLimit, integralLimit]
const integralLimit = 1.0

type Gains struct {
	Kp   float64 `mapstructure:"kp"`
	Ki   float64 `mapstructure:"ki"`
	Kd   float64 `mapstructure:"kd"`
	Bias float64 `mapstructure:"bias"`
	// OutputBound is the raw output that maps to full throttle.
	OutputBound float64 `mapstructure:"outputBound"`
}

func DefaultGains() Gains {
	return Gains{Kp: 1.0, Ki: 1.0, Kd: 0.1, Bias: 0, OutputBound: 3.0}
}

func (g Gains) Validate() error {
	if !(g.OutputBound > 0) {
		return fmt.Errorf("pid output bound must be > 0, got %v", g.OutputBound)
	}
	return nil
}

// Controller is a discrete PID controller with anti-windup on the integral term.
type Controller struct {
	gains     Gains
	integral  float64
	prevError float64
}

// State is a snapshot of the accumulated controller state.
type State struct {
	Integral  float64
	PrevError float64
}

func NewController(gains Gains) *Controller {
	return &Controller{gains: gains}
}

func (c *Controller) Gains() Gains {
	return c.gains
}

// Step feeds one sample into the controller and returns the raw output.
// dt is in seconds and must be > 0.
func (c *Controller) Step(dt, actual, desired float64) float64 {
	if !(dt > 0) {
		panic(fmt.Sprintf("pid step with non-positive dt %v", dt))
	}
	e := desired - actual
	c.integral += e * dt
	derivative := (e - c.prevError) / dt
	out := c.gains.Kp*e + c.gains.Ki*c.integral + c.gains.Kd*derivative + c.gains.Bias
	c.prevError = e
	c.integral = math.Max(-integralLimit, math.Min(integralLimit, c.integral))
	return out
}

// ClampAndNormalize maps a raw output to a throttle command in [0, 1].
// Negative outputs (the controller wants to brake) result in 0.
func (c *Controller) ClampAndNormalize(raw float64) float64 {
	if math.IsNaN(raw) {
		return 0
	}
	v := math.Min(raw, c.gains.OutputBound) / c.gains.OutputBound
	return math.Max(0, v)
}

// Clear resets the accumulated state. Call it whenever the setpoint jumps.
func (c *Controller) Clear() {
	c.integral = 0
	c.prevError = 0
}

func (c *Controller) State() State {
	return State{Integral: c.integral, PrevError: c.prevError}
}
