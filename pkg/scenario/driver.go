package scenario

import (
	"time"

	"github.com/mpapenbr/cruisesim/log"
)

// Target receives setpoint changes. Implemented by *sim.Car.
type Target interface {
	SetDesiredSpeed(kmh float64)
}

// Driver replays the events of a scenario against the simulated time and keeps
// track of the current road grade.
type Driver struct {
	events []Event
	next   int
	grade  float64
	log    *log.Logger
}

type DriverOption func(*Driver)

func WithDriverLogger(l *log.Logger) DriverOption {
	return func(d *Driver) {
		d.log = l
	}
}

func NewDriver(s *Scenario, opts ...DriverOption) *Driver {
	d := &Driver{
		events: append([]Event(nil), s.Events...),
		log:    log.Default().Named("scenario"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Apply executes all events due at elapsed and returns them.
func (d *Driver) Apply(elapsed time.Duration, target Target) []Event {
	start := d.next
	for d.next < len(d.events) && d.events[d.next].At <= elapsed {
		e := d.events[d.next]
		d.log.Info("scenario event",
			log.Duration("at", e.At),
			log.Duration("elapsed", elapsed),
			log.String("note", e.Note),
			log.String("command", e.Command.String()))
		d.Execute(e.Command, target)
		d.next++
	}
	return d.events[start:d.next]
}

// Execute applies a single command immediately.
func (d *Driver) Execute(c Command, target Target) {
	if c.Cruise != nil {
		target.SetDesiredSpeed(*c.Cruise)
	}
	if c.Grade != nil {
		d.grade = *c.Grade
	}
}

func (d *Driver) Grade() float64 {
	return d.grade
}

// Pending returns the number of events not yet executed.
func (d *Driver) Pending() int {
	return len(d.events) - d.next
}
