package physics

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

var (
	ErrTooFewPoints     = errors.New("torque curve needs at least 2 points")
	ErrRPMNotIncreasing = errors.New("torque curve rpm values must be strictly increasing")
)

type TorquePoint struct {
	RPM    float64 `mapstructure:"rpm" yaml:"rpm"`
	Torque float64 `mapstructure:"torque" yaml:"torque"` // Nm
}

// TorqueCurve maps engine rpm to torque by linear interpolation between measured
// samples. Outside the sampled range the nearest sample is used.
type TorqueCurve struct {
	points []TorquePoint
	pl     interp.PiecewiseLinear
}

// FiestaST is the full load torque curve of a 2018 Ford Fiesta ST (1.5 EcoBoost).
// source: automobile-catalog.com
var FiestaST = []TorquePoint{
	{1000, 185.6}, {1100, 210.9}, {1200, 232.0}, {1300, 249.8}, {1400, 265.1},
	{1500, 278.4}, {1600, 290.0}, {1700, 290.0}, {1800, 290.0}, {1900, 290.0},
	{2000, 290.0}, {2100, 290.0}, {2200, 290.0}, {2300, 290.0}, {2400, 290.0},
	{2500, 290.0}, {2600, 290.0}, {2700, 290.0}, {2800, 290.0}, {2900, 290.0},
	{3000, 290.0}, {3100, 290.0}, {3200, 290.0}, {3300, 290.0}, {3400, 290.0},
	{3500, 290.0}, {3600, 290.0}, {3700, 290.0}, {3800, 290.0}, {3900, 290.0},
	{4000, 290.0}, {4100, 289.9}, {4200, 289.4}, {4300, 288.7}, {4400, 287.8},
	{4500, 286.5}, {4600, 285.0}, {4700, 283.1}, {4800, 281.0}, {4900, 278.6},
	{5000, 276.0}, {5100, 273.0}, {5200, 269.8}, {5300, 264.9}, {5400, 259.9},
	{5500, 255.2}, {5600, 250.7}, {5700, 246.3}, {5800, 242.0}, {5900, 237.9},
	{6000, 234.0}, {6100, 229.2}, {6200, 222.8}, {6300, 214.8}, {6400, 205.3},
	{6500, 194.4},
}

func NewTorqueCurve(points []TorquePoint) (*TorqueCurve, error) {
	if len(points) < 2 {
		return nil, ErrTooFewPoints
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		if i > 0 && p.RPM <= points[i-1].RPM {
			return nil, fmt.Errorf("%w: %v after %v", ErrRPMNotIncreasing,
				p.RPM, points[i-1].RPM)
		}
		xs[i], ys[i] = p.RPM, p.Torque
	}
	c := &TorqueCurve{points: append([]TorquePoint(nil), points...)}
	if err := c.pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fit torque curve: %w", err)
	}
	return c, nil
}

// MustTorqueCurve is like NewTorqueCurve but panics on invalid input.
func MustTorqueCurve(points []TorquePoint) *TorqueCurve {
	c, err := NewTorqueCurve(points)
	if err != nil {
		panic(err)
	}
	return c
}

func DefaultTorqueCurve() *TorqueCurve {
	return MustTorqueCurve(FiestaST)
}

// Torque returns the engine torque (Nm) at rpm.
func (c *TorqueCurve) Torque(rpm float64) float64 {
	return c.pl.Predict(rpm)
}

func (c *TorqueCurve) Points() []TorquePoint {
	return append([]TorquePoint(nil), c.points...)
}

func (c *TorqueCurve) MinRPM() float64 { return c.points[0].RPM }
func (c *TorqueCurve) MaxRPM() float64 { return c.points[len(c.points)-1].RPM }

// Peak returns the first sample with maximum torque.
func (c *TorqueCurve) Peak() TorquePoint {
	ys := make([]float64, len(c.points))
	for i := range c.points {
		ys[i] = c.points[i].Torque
	}
	return c.points[floats.MaxIdx(ys)]
}
