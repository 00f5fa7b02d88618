package runner

import (
	"context"
	"math"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/cruisesim/log"
	"github.com/mpapenbr/cruisesim/pkg/sim"
)

type runMetrics struct {
	ticks        metric.Int64Counter
	tickDuration metric.Float64Histogram
	overruns     metric.Int64Counter
	shifts       metric.Int64Counter
	traction     metric.Int64Counter
	attrs        metric.MeasurementOption

	// last frame values for the observable gauges
	speed atomic.Uint64
	rpm   atomic.Uint64
	gear  atomic.Int64
}

//nolint:funlen // registering instruments
func newRunMetrics(runID string, l *log.Logger) *runMetrics {
	meter := otel.GetMeterProvider().Meter("cruisesim.runner")
	m := &runMetrics{attrs: metric.WithAttributes(attribute.String("run.id", runID))}
	warn := func(name string, err error) {
		if err != nil {
			l.Warn("failed to register metric", log.String("metric", name), log.ErrorField(err))
		}
	}
	var err error
	m.ticks, err = meter.Int64Counter("cruisesim.runner.ticks",
		metric.WithDescription("Number of simulated ticks"),
		metric.WithUnit("{tick}"))
	warn("ticks", err)
	m.tickDuration, err = meter.Float64Histogram("cruisesim.runner.tick.duration",
		metric.WithDescription("Wall time needed to compute a tick"),
		metric.WithUnit("ms"))
	warn("tick.duration", err)
	m.overruns, err = meter.Int64Counter("cruisesim.runner.overruns",
		metric.WithDescription("Ticks that took longer than the paced period"),
		metric.WithUnit("{tick}"))
	warn("overruns", err)
	m.shifts, err = meter.Int64Counter("cruisesim.runner.shifts",
		metric.WithDescription("Number of gear changes"),
		metric.WithUnit("{shift}"))
	warn("shifts", err)
	m.traction, err = meter.Int64Counter("cruisesim.runner.traction_limited",
		metric.WithDescription("Ticks where the wheel force was limited by traction"),
		metric.WithUnit("{tick}"))
	warn("traction_limited", err)

	_, err = meter.Float64ObservableGauge("cruisesim.car.speed",
		metric.WithDescription("Current speed"),
		metric.WithUnit("km/h"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(math.Float64frombits(m.speed.Load()), m.attrs)
			return nil
		}))
	warn("speed", err)
	_, err = meter.Float64ObservableGauge("cruisesim.car.rpm",
		metric.WithDescription("Current engine speed"),
		metric.WithUnit("{rpm}"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(math.Float64frombits(m.rpm.Load()), m.attrs)
			return nil
		}))
	warn("rpm", err)
	_, err = meter.Int64ObservableGauge("cruisesim.car.gear",
		metric.WithDescription("Current gear"),
		metric.WithUnit("{gear}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.gear.Load(), m.attrs)
			return nil
		}))
	warn("gear", err)
	return m
}

func (m *runMetrics) record(ctx context.Context, f *sim.Frame, computeMs float64) {
	m.ticks.Add(ctx, 1, m.attrs)
	m.tickDuration.Record(ctx, computeMs, m.attrs)
	switch f.Shift {
	case 1:
		m.shifts.Add(ctx, 1, m.attrs, metric.WithAttributes(attribute.String("direction", "up")))
	case -1:
		m.shifts.Add(ctx, 1, m.attrs, metric.WithAttributes(attribute.String("direction", "down")))
	}
	if f.TractionLimited {
		m.traction.Add(ctx, 1, m.attrs)
	}
	m.speed.Store(math.Float64bits(f.SpeedKmh))
	m.rpm.Store(math.Float64bits(f.RPM))
	m.gear.Store(int64(f.Gear))
}
