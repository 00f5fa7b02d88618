//nolint:funlen,lll // ok for tests
package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-6

func TestTorqueCurve_Torque(t *testing.T) {
	c := DefaultTorqueCurve()
	tests := []struct {
		name string
		rpm  float64
		want float64
	}{
		{"below curve", 0, 185.6},
		{"half idle", 500, 185.6},
		{"first sample", 1000, 185.6},
		{"interpolated low", 1010, 188.13},
		{"interpolated mid", 1050, 198.25},
		{"sample", 1100, 210.9},
		{"tail sample", 6400, 205.3},
		{"last sample", 6500, 194.4},
		{"above curve", 6600, 194.4},
		{"far above", 1e6, 194.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, c.Torque(tt.rpm), eps)
		})
	}
}

func TestTorqueCurve_exactAtSamples(t *testing.T) {
	c := DefaultTorqueCurve()
	for _, p := range FiestaST {
		assert.Equal(t, p.Torque, c.Torque(p.RPM), "rpm %v", p.RPM)
	}
}

func TestTorqueCurve_monotonicRegions(t *testing.T) {
	c := DefaultTorqueCurve()
	peak := c.Peak()
	assert.Equal(t, 1600.0, peak.RPM)
	assert.Equal(t, 290.0, peak.Torque)

	prev := c.Torque(c.MinRPM())
	for rpm := c.MinRPM(); rpm <= peak.RPM; rpm += 7 {
		cur := c.Torque(rpm)
		assert.GreaterOrEqual(t, cur, prev, "rpm %v", rpm)
		prev = cur
	}
	prev = c.Torque(4000)
	for rpm := 4000.0; rpm <= c.MaxRPM()+500; rpm += 7 {
		cur := c.Torque(rpm)
		assert.LessOrEqual(t, cur, prev, "rpm %v", rpm)
		prev = cur
	}
}

func TestNewTorqueCurve_invalid(t *testing.T) {
	_, err := NewTorqueCurve([]TorquePoint{{1000, 100}})
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = NewTorqueCurve([]TorquePoint{{1000, 100}, {1000, 120}})
	assert.ErrorIs(t, err, ErrRPMNotIncreasing)

	_, err = NewTorqueCurve([]TorquePoint{{2000, 100}, {1000, 120}})
	assert.ErrorIs(t, err, ErrRPMNotIncreasing)

	assert.Panics(t, func() { MustTorqueCurve(nil) })
}

func TestTorqueCurve_pointsAreCopied(t *testing.T) {
	src := []TorquePoint{{1000, 100}, {2000, 200}}
	c := MustTorqueCurve(src)
	src[0].Torque = 999
	assert.Equal(t, 100.0, c.Torque(1000))
	pts := c.Points()
	pts[1].Torque = 0
	assert.Equal(t, 200.0, c.Torque(2000))
}

func TestGearTable_FinalRatio(t *testing.T) {
	g := DefaultGearTable()
	assert.InDelta(t, 15.453479, g.FinalRatio(1), eps)
	assert.InDelta(t, 2.807763, g.FinalRatio(6), eps)
	for gear := 2; gear <= g.NumGears(); gear++ {
		assert.Less(t, g.FinalRatio(gear), g.FinalRatio(gear-1))
	}
	assert.Panics(t, func() { g.FinalRatio(0) })
	assert.Panics(t, func() { g.FinalRatio(7) })
}

func TestNewGearTable_invalid(t *testing.T) {
	tests := []struct {
		name       string
		ratios     []float64
		finalDrive float64
	}{
		{"empty", nil, 4},
		{"zero final drive", []float64{3, 2}, 0},
		{"negative ratio", []float64{3, -1}, 4},
		{"not decreasing", []float64{3, 2, 2}, 4},
		{"increasing", []float64{1, 2}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGearTable(tt.ratios, tt.finalDrive)
			assert.ErrorIs(t, err, ErrInvalidGearTable)
		})
	}
}

func TestEnvironment_forces(t *testing.T) {
	e := DefaultEnvironment()
	assert.Equal(t, 0.0, e.Drag(0))
	assert.Equal(t, e.Drag(12), e.Drag(-12))
	prev := 0.0
	for v := 0.5; v < 80; v += 0.5 {
		d := e.Drag(v)
		assert.Greater(t, d, prev)
		prev = d
	}
	// 0.5*1.225*0.208*2.5*10^2
	assert.InDelta(t, 31.85, e.Drag(10), eps)

	assert.InDelta(t, 0.0, e.GradeForce(1300, 0), eps)
	assert.Greater(t, e.GradeForce(1300, 4), 0.0)
	assert.InDelta(t, -e.GradeForce(1300, 4), e.GradeForce(1300, -4), eps)
	assert.InDelta(t, 1300*9.81, e.GradeForce(1300, 90), eps)

	assert.Equal(t, 0.0, e.RollingResistance(1300, 0))
	assert.InDelta(t, 0.01*1300*9.81, e.RollingResistance(1300, 0.1), eps)
}

func TestChassis_Distribute(t *testing.T) {
	c := DefaultChassis()
	g := 9.81
	front, rear := c.Distribute(1300, 0, g)
	assert.InDelta(t, 1300*g, front+rear, eps)
	assert.InDelta(t, 1.49/2.49*1300*g, front, eps)

	frontAcc, rearAcc := c.Distribute(1300, 3, g)
	assert.Less(t, frontAcc, front)
	assert.Greater(t, rearAcc, rear)
	assert.InDelta(t, 1300*g, frontAcc+rearAcc, eps)

	frontDec, _ := c.Distribute(1300, -3, g)
	assert.Greater(t, frontDec, front)
}

func TestEngineRPM(t *testing.T) {
	g := DefaultGearTable()
	const radius = 0.31115
	tests := []struct {
		name  string
		kmh   float64
		gear  int
		want  float64
		force float64
	}{
		{"standing", 0, 1, 850, 6913.46},
		{"10 km/h", 10, 1, 1317.42, 9404.16},
		{"30 km/h", 30, 1, 3952.27, 10802.29},
		{"30 km/h 2nd", 30, 2, 2153.18, 5885.03},
	}
	c := DefaultTorqueCurve()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio := g.FinalRatio(tt.gear)
			rpm := EngineRPM(KmhToMs(tt.kmh), radius, ratio, 850)
			require.InDelta(t, tt.want, rpm, 0.01)
			assert.InDelta(t, tt.force, WheelForce(c.Torque(rpm), ratio, 0.75, radius), 0.01)
		})
	}
	assert.False(t, math.IsNaN(EngineRPM(-3, radius, g.FinalRatio(1), 850)))
	assert.Equal(t, 850.0, EngineRPM(-3, radius, g.FinalRatio(1), 850))
}
