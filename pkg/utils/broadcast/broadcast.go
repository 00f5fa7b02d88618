// Package broadcast fans out the values of a source channel to any number of
// subscribers. Slow subscribers are skipped after a timeout so the producer is
// never held up by a consumer.
package broadcast

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/cruisesim/log"
)

type BroadcastServer[T any] interface {
	Subscribe() <-chan T
	CancelSubscription(<-chan T)
	// Done is closed after the source channel was closed and all listeners are gone.
	Done() <-chan struct{}
	Close()
}

type broadcastServer[T any] struct {
	name           string
	source         <-chan T
	listeners      []chan T
	addListener    chan chan T
	removeListener chan (<-chan T)
	ctx            context.Context
	cancel         context.CancelFunc
	done           chan struct{}
	sendTimeout    time.Duration
	bufferSize     int
	log            *log.Logger
	numRcv         atomic.Int64
	numSnd         atomic.Int64
	numSkip        atomic.Int64
	numListeners   atomic.Int64
}

type Option[T any] func(*broadcastServer[T])

// WithSendTimeout sets how long a listener may block before the value is skipped
// for this listener (default 50ms).
func WithSendTimeout[T any](d time.Duration) Option[T] {
	return func(b *broadcastServer[T]) {
		b.sendTimeout = d
	}
}

// WithBufferSize sets the buffer of each subscriber channel.
func WithBufferSize[T any](n int) Option[T] {
	return func(b *broadcastServer[T]) {
		b.bufferSize = n
	}
}

//nolint:whitespace // can't make both editor and linter happy
func NewBroadcastServer[T any](
	name string, source <-chan T, opts ...Option[T],
) BroadcastServer[T] {
	ctx, cancel := context.WithCancel(context.Background())
	b := &broadcastServer[T]{
		name:           name,
		source:         source,
		addListener:    make(chan chan T),
		removeListener: make(chan (<-chan T)),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
		sendTimeout:    50 * time.Millisecond,
		log:            log.Default().Named("broadcast").Named(name),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.setupMetrics()
	go b.serve()
	return b
}

func (b *broadcastServer[T]) Subscribe() <-chan T {
	ch := make(chan T, b.bufferSize)
	select {
	case b.addListener <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

func (b *broadcastServer[T]) CancelSubscription(ch <-chan T) {
	select {
	case b.removeListener <- ch:
	case <-b.done:
	}
}

func (b *broadcastServer[T]) Done() <-chan struct{} {
	return b.done
}

func (b *broadcastServer[T]) Close() {
	b.cancel()
	<-b.done
}

func (b *broadcastServer[T]) setupMetrics() {
	meter := otel.GetMeterProvider().Meter(fmt.Sprintf("cruisesim.broadcast.%s", b.name))
	attrs := metric.WithAttributes(attribute.String("name", b.name))
	register := func(metricName, desc string, value *atomic.Int64) {
		if _, err := meter.Int64ObservableGauge(
			metricName,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(value.Load(), attrs)
				return nil
			})); err != nil {
			b.log.Error("failed to register metric",
				log.String("metric", metricName), log.ErrorField(err))
		}
	}
	register("cruisesim.broadcast.rcv", "Number of received values", &b.numRcv)
	register("cruisesim.broadcast.snd", "Number of sent values", &b.numSnd)
	register("cruisesim.broadcast.skip", "Number of skipped values", &b.numSkip)
	register("cruisesim.broadcast.listener", "Number of listeners", &b.numListeners)
}

func (b *broadcastServer[T]) serve() {
	defer func() {
		for _, listener := range b.listeners {
			close(listener)
		}
		b.listeners = nil
		b.log.Debug("broadcast server closed",
			log.Int64("rcv", b.numRcv.Load()),
			log.Int64("snd", b.numSnd.Load()),
			log.Int64("skip", b.numSkip.Load()))
		close(b.done)
	}()
	for {
		select {
		case <-b.ctx.Done():
			return
		case ch := <-b.addListener:
			b.listeners = append(b.listeners, ch)
			b.numListeners.Store(int64(len(b.listeners)))
		case ch := <-b.removeListener:
			for i, listener := range b.listeners {
				if listener == ch {
					b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
					close(listener)
					break
				}
			}
			b.numListeners.Store(int64(len(b.listeners)))
		case msg, ok := <-b.source:
			if !ok {
				b.log.Debug("source closed")
				return
			}
			b.numRcv.Add(1)
			b.send(msg)
		}
	}
}

func (b *broadcastServer[T]) send(msg T) {
	for _, listener := range b.listeners {
		select {
		case listener <- msg:
			b.numSnd.Add(1)
		default:
			timer := time.NewTimer(b.sendTimeout)
			select {
			case listener <- msg:
				b.numSnd.Add(1)
			case <-timer.C:
				b.numSkip.Add(1)
			}
			timer.Stop()
		}
	}
}
