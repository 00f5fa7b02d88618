package physics

import "math"

// Environment holds the physical constants used by the force model.
type Environment struct {
	Gravity            float64 `mapstructure:"gravity"`            // m/s²
	AirDensity         float64 `mapstructure:"airDensity"`         // kg/m³
	DragCoefficient    float64 `mapstructure:"dragCoefficient"`    // Cd
	FrontalArea        float64 `mapstructure:"frontalArea"`        // m²
	RollingCoefficient float64 `mapstructure:"rollingCoefficient"` // Crr
}

func DefaultEnvironment() Environment {
	return Environment{
		Gravity:            9.81,
		AirDensity:         1.225,
		DragCoefficient:    0.208,
		FrontalArea:        2.5,
		RollingCoefficient: 0.01,
	}
}

// Drag returns the aerodynamic drag force (N). The result is never negative.
func (e Environment) Drag(velocity float64) float64 {
	return 0.5 * e.AirDensity * e.DragCoefficient * e.FrontalArea * velocity * velocity
}

// GradeForce is the downhill component of the weight force (N).
// Negative values push the car forward.
func (e Environment) GradeForce(weight, gradeDeg float64) float64 {
	return weight * e.Gravity * math.Sin(gradeDeg*math.Pi/180)
}

// RollingResistance is zero while the car stands still.
func (e Environment) RollingResistance(weight, velocity float64) float64 {
	if velocity <= 0 {
		return 0
	}
	return e.RollingCoefficient * weight * e.Gravity
}
