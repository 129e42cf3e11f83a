package lifecycle

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

// DefaultMaxConflictRetries bounds how often a machine re-reads the ledger
// after a precondition failure.
const DefaultMaxConflictRetries = 3

// Policy tunes the machines without changing the rule tables.
type Policy struct {
	// SeedOn lists negotiation states whose entry seeds resource sub-machines.
	SeedOn []negotiation.State `yaml:"seedOn" json:"seedOn"`
	// ResourceActiveStates lists negotiation states in which resource events
	// are accepted.
	ResourceActiveStates []negotiation.State `yaml:"resourceActiveStates" json:"resourceActiveStates"`
	MaxConflictRetries   int                 `yaml:"maxConflictRetries" json:"maxConflictRetries"`
	// Guards maps negotiation events to boolean expressions that must hold
	// for the event to fire.
	Guards map[negotiation.Event]string `yaml:"guards" json:"guards,omitempty"`
}

// DefaultPolicy seeds resources when the negotiation enters IN_PROGRESS and
// only accepts resource events while it stays there.
func DefaultPolicy() Policy {
	return Policy{
		SeedOn:               []negotiation.State{negotiation.StateInProgress},
		ResourceActiveStates: []negotiation.State{negotiation.StateInProgress},
		MaxConflictRetries:   DefaultMaxConflictRetries,
	}
}

// LoadPolicy reads a YAML policy file. Fields missing from the file keep
// their defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read lifecycle policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy document over the defaults.
func ParsePolicy(data []byte) (Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse lifecycle policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate rejects unknown states and negative retry counts.
func (p Policy) Validate() error {
	for _, s := range append(append([]negotiation.State{}, p.SeedOn...), p.ResourceActiveStates...) {
		if !isNegotiationState(s) {
			return fmt.Errorf("lifecycle policy: unknown negotiation state %q", s)
		}
	}
	if p.MaxConflictRetries < 0 {
		return fmt.Errorf("lifecycle policy: maxConflictRetries must not be negative")
	}
	if _, err := compileGuards(p.Guards); err != nil {
		return err
	}
	return nil
}

// Seeds reports whether entering s seeds resource sub-machines.
func (p Policy) Seeds(s negotiation.State) bool {
	return containsState(p.SeedOn, s)
}

// ResourcesActive reports whether resource events are accepted in s.
func (p Policy) ResourcesActive(s negotiation.State) bool {
	return containsState(p.ResourceActiveStates, s)
}

func containsState(states []negotiation.State, s negotiation.State) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}

func isNegotiationState(s negotiation.State) bool {
	switch s {
	case negotiation.StateSubmitted, negotiation.StateInProgress, negotiation.StatePaused,
		negotiation.StateConcluded, negotiation.StateAbandoned, negotiation.StateDeclined:
		return true
	}
	return false
}
