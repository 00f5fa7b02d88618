package physics

import "math"

func KmhToMs(v float64) float64 { return v / 3.6 }
func MsToKmh(v float64) float64 { return v * 3.6 }

// EngineRPM converts the vehicle speed (m/s) into engine rpm for the given final
// ratio. The result never drops below idle.
func EngineRPM(velocity, wheelRadius, finalRatio, idle float64) float64 {
	rpm := velocity / wheelRadius * finalRatio * 60 / (2 * math.Pi)
	return math.Max(idle, rpm)
}

// WheelForce converts engine torque (Nm) into the tractive force at the wheels (N).
func WheelForce(torque, finalRatio, efficiency, wheelRadius float64) float64 {
	return torque * finalRatio * efficiency / wheelRadius
}
