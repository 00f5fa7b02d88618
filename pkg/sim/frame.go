package sim

// Frame is the telemetry of a single tick. Forces in N, loads in N.
//
//nolint:lll // readability
type Frame struct {
	Tick            int64   `json:"tick"`
	Time            float64 `json:"time"`     // simulated seconds at the end of the tick
	SpeedKmh        float64 `json:"speedKmh"` // after integration
	RPM             float64 `json:"rpm"`      // engine speed used for the torque lookup
	Gear            int     `json:"gear"`     // gear after the shift decision
	Shift           int     `json:"shift"`    // +1 upshift, -1 downshift, 0 none
	CruiseKmh       float64 `json:"cruiseKmh"`
	GradeDeg        float64 `json:"gradeDeg"`
	Throttle        float64 `json:"throttle"` // [0,1]
	MaxWheelForce   float64 `json:"maxWheelForce"`
	WheelForce      float64 `json:"wheelForce"` // forward force after traction control
	TractionLimited bool    `json:"tractionLimited"`
	Drag            float64 `json:"drag"`
	GradeForce      float64 `json:"gradeForce"`
	Rolling         float64 `json:"rolling"`
	NetForce        float64 `json:"netForce"`
	Acceleration    float64 `json:"acceleration"` // m/s²
	FrontLoad       float64 `json:"frontLoad"`
	RearLoad        float64 `json:"rearLoad"`
	To100           float64 `json:"to100"` // 0 until reached
	To200           float64 `json:"to200"` // 0 until reached
}
