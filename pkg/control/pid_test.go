//nolint:funlen // ok for tests
package control

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
)

func TestController_Step(t *testing.T) {
	type step struct {
		dt, actual, desired float64
	}
	tests := []struct {
		name      string
		gains     Gains
		steps     []step
		wantOut   float64
		wantState State
	}{
		{
			name:      "zero error yields bias",
			gains:     Gains{Kp: 2, Ki: 3, Kd: 4, Bias: 0.25, OutputBound: 1},
			steps:     []step{{0.01, 10, 10}, {0.01, 10, 10}, {0.01, 10, 10}},
			wantOut:   0.25,
			wantState: State{},
		},
		{
			name:      "proportional only",
			gains:     Gains{Kp: 2, OutputBound: 1},
			steps:     []step{{0.1, 4, 5}},
			wantOut:   2,
			wantState: State{Integral: 0.1, PrevError: 1},
		},
		{
			name:  "pid single step",
			gains: Gains{Kp: 1, Ki: 1, Kd: 1, OutputBound: 1},
			steps: []step{{0.5, 0, 1}},
			// 1*1 + 1*0.5 + 1*(1-0)/0.5
			wantOut:   3.5,
			wantState: State{Integral: 0.5, PrevError: 1},
		},
		{
			name:  "output uses unclamped integral of the current step",
			gains: Gains{Ki: 1, OutputBound: 1},
			steps: []step{{1, 0, 0.8}, {1, 0, 0.8}},
			// integral 0.8 -> 1.6 used for output, then clamped to 1
			wantOut:   1.6,
			wantState: State{Integral: 1, PrevError: 0.8},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(tt.gains)
			var out float64
			for _, s := range tt.steps {
				out = c.Step(s.dt, s.actual, s.desired)
			}
			assert.Assert(t, math.Abs(out-tt.wantOut) < 1e-9, "out=%v want=%v", out, tt.wantOut)
			if diff := cmp.Diff(tt.wantState, c.State(),
				cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-9 })); diff != "" {
				t.Errorf("State mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestController_antiWindup(t *testing.T) {
	c := NewController(DefaultGains())
	for i := 0; i < 10000; i++ {
		c.Step(0.01, 0, 1e6)
		assert.Assert(t, c.State().Integral <= 1)
	}
	assert.Equal(t, 1.0, c.State().Integral)
	for i := 0; i < 10000; i++ {
		c.Step(0.01, 1e6, 0)
		assert.Assert(t, c.State().Integral >= -1)
	}
	assert.Equal(t, -1.0, c.State().Integral)
}

func TestController_ClampAndNormalize(t *testing.T) {
	c := NewController(Gains{OutputBound: 4})
	tests := []struct {
		raw  float64
		want float64
	}{
		{-100, 0},
		{-0.1, 0},
		{0, 0},
		{1, 0.25},
		{4, 1},
		{1e12, 1},
		{math.Inf(1), 1},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		got := c.ClampAndNormalize(tt.raw)
		assert.Equal(t, tt.want, got, "raw=%v", tt.raw)
	}
}

func TestController_Clear(t *testing.T) {
	c := NewController(DefaultGains())
	c.Step(0.01, 0, 10)
	assert.Assert(t, c.State() != State{})
	c.Clear()
	assert.Equal(t, State{}, c.State())
}

func TestController_Step_invalidDt(t *testing.T) {
	c := NewController(DefaultGains())
	for _, dt := range []float64{0, -0.01, math.NaN()} {
		func() {
			defer func() {
				assert.Assert(t, recover() != nil, "dt=%v should panic", dt)
			}()
			c.Step(dt, 0, 1)
		}()
	}
}

func TestGains_Validate(t *testing.T) {
	assert.NilError(t, DefaultGains().Validate())
	assert.ErrorContains(t, Gains{}.Validate(), "output bound")
}
