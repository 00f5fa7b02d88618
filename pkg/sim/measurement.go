package sim

import "github.com/mpapenbr/cruisesim/pkg/physics"

var (
	hundredKmh    = physics.KmhToMs(100)
	twoHundredKmh = physics.KmhToMs(200)
)

// Measurement records the time needed to reach 100 and 200 km/h.
// Each milestone is written once.
type Measurement struct {
	to100  float64
	to200  float64
	has100 bool
	has200 bool
}

func (m *Measurement) Check(timeS, velocity float64) {
	if !m.has100 && velocity >= hundredKmh {
		m.to100, m.has100 = timeS, true
	}
	if !m.has200 && velocity >= twoHundredKmh {
		m.to200, m.has200 = timeS, true
	}
}

func (m Measurement) To100() (float64, bool) { return m.to100, m.has100 }
func (m Measurement) To200() (float64, bool) { return m.to200, m.has200 }
