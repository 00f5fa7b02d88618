// Package natspub publishes frames of a run to NATS and receives control
// commands from it.
//
// Subjects (prefix defaults to "cruisesim"):
//
//	<prefix>.<runID>.telemetry  every frame as JSON
//	<prefix>.<runID>.summary    the run summary as JSON
//	<prefix>.<runID>.control    commands for this run
//	<prefix>.control            commands for all runs
package natspub

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/ohler55/ojg/oj"

	"github.com/mpapenbr/cruisesim/log"
	"github.com/mpapenbr/cruisesim/pkg/runner"
	"github.com/mpapenbr/cruisesim/pkg/scenario"
	"github.com/mpapenbr/cruisesim/pkg/sim"
)

const DefaultPrefix = "cruisesim"

type (
	Publisher struct {
		conn   *nats.Conn
		prefix string
		runID  string
		l      *log.Logger
	}
	Option func(*Publisher)
)

func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) {
		p.l = l
	}
}

// Connect opens a connection to the NATS server(s) at url.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("cruisesim"),
		nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("could not connect to nats: %w", err)
	}
	return conn, nil
}

func NewPublisher(conn *nats.Conn, runID string, opts ...Option) *Publisher {
	p := &Publisher{
		conn:   conn,
		prefix: DefaultPrefix,
		runID:  runID,
		l:      log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) TelemetrySubject() string {
	return fmt.Sprintf("%s.%s.telemetry", p.prefix, p.runID)
}

func (p *Publisher) SummarySubject() string {
	return fmt.Sprintf("%s.%s.summary", p.prefix, p.runID)
}

func (p *Publisher) ControlSubjects() []string {
	return []string{
		fmt.Sprintf("%s.%s.control", p.prefix, p.runID),
		fmt.Sprintf("%s.control", p.prefix),
	}
}

// Run publishes frames until the channel is closed or ctx is done.
func (p *Publisher) Run(ctx context.Context, frames <-chan sim.Frame) error {
	subject := p.TelemetrySubject()
	p.l.Info("publishing telemetry", log.String("subject", subject))
	for {
		select {
		case <-ctx.Done():
			return p.conn.Flush()
		case f, ok := <-frames:
			if !ok {
				return p.conn.Flush()
			}
			if err := p.publish(subject, &f); err != nil {
				return err
			}
		}
	}
}

func (p *Publisher) PublishSummary(s *runner.Summary) error {
	if err := p.publish(p.SummarySubject(), s); err != nil {
		return err
	}
	return p.conn.Flush()
}

func (p *Publisher) publish(subject string, v any) error {
	data, err := oj.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not encode %T: %w", v, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("could not publish to %s: %w", subject, err)
	}
	return nil
}

// Commands subscribes to the control subjects. Invalid messages are logged and
// dropped. The channel is closed when ctx is done.
func (p *Publisher) Commands(ctx context.Context) (<-chan scenario.Command, error) {
	msgs := make(chan *nats.Msg, 16)
	subs := make([]*nats.Subscription, 0, 2)
	for _, subject := range p.ControlSubjects() {
		sub, err := p.conn.ChanSubscribe(subject, msgs)
		if err != nil {
			for _, s := range subs {
				//nolint:errcheck // already failing
				s.Unsubscribe()
			}
			return nil, fmt.Errorf("could not subscribe to %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}
	if err := p.conn.Flush(); err != nil {
		return nil, err
	}
	out := make(chan scenario.Command)
	go func() {
		defer close(out)
		defer func() {
			for _, s := range subs {
				if err := s.Unsubscribe(); err != nil {
					p.l.Debug("unsubscribe", log.ErrorField(err))
				}
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				cmd, err := scenario.ParseCommand(msg.Data)
				if err != nil {
					p.l.Warn("invalid control message",
						log.String("subject", msg.Subject), log.ErrorField(err))
					continue
				}
				p.l.Debug("control message", log.String("command", cmd.String()))
				select {
				case out <- cmd:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
