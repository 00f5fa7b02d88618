package physics

// Chassis describes the longitudinal geometry relevant for weight transfer.
type Chassis struct {
	FrontToCoM float64 `mapstructure:"frontToCoM"` // b: front axle to center of mass (m)
	RearToCoM  float64 `mapstructure:"rearToCoM"`  // c: rear axle to center of mass (m)
	CoMHeight  float64 `mapstructure:"comHeight"`  // h (m)
}

func DefaultChassis() Chassis {
	return Chassis{FrontToCoM: 1.00, RearToCoM: 1.49, CoMHeight: 0.55}
}

func (c Chassis) Wheelbase() float64 {
	return c.FrontToCoM + c.RearToCoM
}

// Distribute returns the normal loads (N) on the front and rear axle for a car of
// weight (kg) accelerating with acc (m/s²). Forward acceleration moves load to
// the rear axle.
func (c Chassis) Distribute(weight, acc, gravity float64) (front, rear float64) {
	l := c.Wheelbase()
	front = c.RearToCoM/l*weight*gravity - c.CoMHeight/l*weight*acc
	rear = c.FrontToCoM/l*weight*gravity + c.CoMHeight/l*weight*acc
	return front, rear
}
