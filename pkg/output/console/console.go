// Package console renders frames as a small text dashboard.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpapenbr/cruisesim/pkg/runner"
	"github.com/mpapenbr/cruisesim/pkg/sim"
)

const clearScreen = "\x1B[2J\x1B[1;1H"

type Renderer struct {
	w     io.Writer
	every int64
	clear bool
}

type Option func(*Renderer)

// WithEvery renders only every n-th frame (default 10).
func WithEvery(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.every = int64(n)
		}
	}
}

// WithClearScreen moves the cursor home and clears the terminal before each frame.
func WithClearScreen(clear bool) Option {
	return func(r *Renderer) {
		r.clear = clear
	}
}

func NewRenderer(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{w: w, every: 10}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run renders frames until the channel is closed or ctx is done.
func (r *Renderer) Run(ctx context.Context, frames <-chan sim.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if err := r.Render(&f); err != nil {
				return err
			}
		}
	}
}

// Render writes f if it is due according to the render cadence.
func (r *Renderer) Render(f *sim.Frame) error {
	if f.Tick%r.every != 0 {
		return nil
	}
	var sb strings.Builder
	if r.clear {
		sb.WriteString(clearScreen)
	}
	sb.WriteString(Format(f))
	_, err := io.WriteString(r.w, sb.String())
	return err
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Format returns the dashboard text of a frame.
func Format(f *sim.Frame) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "time     %s s\n", fixed(f.Time, 2))
	fmt.Fprintf(&sb, "speed    %s km/h (cruise %s)\n",
		fixed(f.SpeedKmh, 1), fixed(f.CruiseKmh, 1))
	fmt.Fprintf(&sb, "rpm      %s\n", fixed(f.RPM, 0))
	fmt.Fprintf(&sb, "gear     %d\n", f.Gear)
	fmt.Fprintf(&sb, "grade    %s°\n", fixed(f.GradeDeg, 1))
	fmt.Fprintf(&sb, "throttle %s\n", fixed(f.Throttle, 3))
	limited := ""
	if f.TractionLimited {
		limited = " (traction limited)"
	}
	fmt.Fprintf(&sb, "force    %s N%s\n", fixed(f.WheelForce, 1), limited)
	fmt.Fprintf(&sb, "drag     %s N  grade %s N  rolling %s N\n",
		fixed(f.Drag, 1), fixed(f.GradeForce, 1), fixed(f.Rolling, 1))
	fmt.Fprintf(&sb, "net      %s N  acc %s m/s²\n",
		fixed(f.NetForce, 1), fixed(f.Acceleration, 3))
	fmt.Fprintf(&sb, "load     front %s N  rear %s N\n",
		fixed(f.FrontLoad, 0), fixed(f.RearLoad, 0))
	fmt.Fprintf(&sb, "0-100    %s s\n", fixed(f.To100, 1))
	fmt.Fprintf(&sb, "0-200    %s s\n", fixed(f.To200, 1))
	return sb.String()
}

// FormatSummary returns the text printed at the end of a run.
func FormatSummary(s *runner.Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s finished (%s)\n", s.RunID, s.Reason)
	fmt.Fprintf(&sb, "ticks    %d (sim %s, wall %s, overruns %d)\n",
		s.Ticks, s.SimTime, s.WallTime.Round(time.Millisecond), s.Overruns)
	fmt.Fprintf(&sb, "speed    %s km/h in gear %d\n", fixed(s.SpeedKmh, 1), s.Gear)
	fmt.Fprintf(&sb, "shifts   %d up, %d down\n", s.Upshifts, s.Downshifts)
	fmt.Fprintf(&sb, "0-100    %s s\n", fixed(s.To100, 1))
	fmt.Fprintf(&sb, "0-200    %s s\n", fixed(s.To200, 1))
	return sb.String()
}
