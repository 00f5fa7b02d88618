// Package scenario describes how cruise setpoint and road grade change over the
// simulated time of a run.
package scenario

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the major version of the scenario file format.
const SupportedVersion = "v1"

var ErrInvalidScenario = errors.New("invalid scenario")

// Command changes the inputs of the simulation. Unset fields are left alone.
type Command struct {
	Cruise *float64 `yaml:"cruise,omitempty" json:"cruise,omitempty"` // km/h
	Grade  *float64 `yaml:"grade,omitempty" json:"grade,omitempty"`   // degrees
}

type Event struct {
	At      time.Duration `yaml:"at"`
	Note    string        `yaml:"note,omitempty"`
	Command `yaml:",inline"`
}

type Scenario struct {
	Version string `yaml:"version"`
	Name    string `yaml:"name"`
	// Duration ends the run after this simulated time (0: run until stopped)
	Duration time.Duration `yaml:"duration"`
	Events   []Event       `yaml:"events"`
}

func Float(v float64) *float64 { return &v }

// Default is used when no scenario file is given.
func Default() *Scenario {
	return &Scenario{
		Version:  "v1.0.0",
		Name:     "default",
		Duration: 2 * time.Minute,
		Events: []Event{
			{
				At: 0, Note: "full acceleration",
				Command: Command{Cruise: Float(230), Grade: Float(0)},
			},
			{At: 40 * time.Second, Command: Command{Cruise: Float(100)}},
			{At: 60 * time.Second, Note: "uphill", Command: Command{Grade: Float(4)}},
			{At: 80 * time.Second, Note: "downhill", Command: Command{Grade: Float(-3)}},
			{At: 100 * time.Second, Command: Command{Cruise: Float(75)}},
		},
	}
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scenario. Events are sorted by time.
func Parse(data []byte) (*Scenario, error) {
	s := &Scenario{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the scenario and sorts the events (stable) by time.
func (s *Scenario) Validate() error {
	if s.Version == "" {
		s.Version = SupportedVersion + ".0.0"
	}
	v := s.Version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: version %q is not a semantic version",
			ErrInvalidScenario, s.Version)
	}
	if semver.Major(v) != SupportedVersion {
		return fmt.Errorf("%w: version %s not supported (want %s.x)",
			ErrInvalidScenario, s.Version, SupportedVersion)
	}
	if s.Duration < 0 {
		return fmt.Errorf("%w: negative duration %v", ErrInvalidScenario, s.Duration)
	}
	empty := lo.Filter(s.Events, func(e Event, _ int) bool {
		return e.Cruise == nil && e.Grade == nil
	})
	if len(empty) > 0 {
		return fmt.Errorf("%w: event at %v changes nothing", ErrInvalidScenario, empty[0].At)
	}
	for _, e := range s.Events {
		if e.At < 0 {
			return fmt.Errorf("%w: event at negative time %v", ErrInvalidScenario, e.At)
		}
		if err := e.Command.Validate(); err != nil {
			return fmt.Errorf("%w: event at %v: %w", ErrInvalidScenario, e.At, err)
		}
	}
	slices.SortStableFunc(s.Events, func(a, b Event) int {
		return cmp.Compare(a.At, b.At)
	})
	return nil
}

func (c Command) Validate() error {
	if c.Cruise != nil && *c.Cruise < 0 {
		return fmt.Errorf("cruise speed must be >= 0, got %v", *c.Cruise)
	}
	if c.Grade != nil && (*c.Grade <= -90 || *c.Grade >= 90) {
		return fmt.Errorf("grade must be in (-90,90) degrees, got %v", *c.Grade)
	}
	return nil
}

func (c Command) String() string {
	parts := []string{}
	if c.Cruise != nil {
		parts = append(parts, fmt.Sprintf("cruise=%g", *c.Cruise))
	}
	if c.Grade != nil {
		parts = append(parts, fmt.Sprintf("grade=%g", *c.Grade))
	}
	return strings.Join(parts, " ")
}
