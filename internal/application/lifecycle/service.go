// Package lifecycle runs the negotiation and resource state machines on top
// of the lifecycle ledger.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

// Service is the entry point for lifecycle operations.
type Service struct {
	negotiations *NegotiationMachine
	resources    *ResourceMachine
	ledger       negotiation.Ledger
	negRules     *negotiation.NegotiationRules
	resRules     *negotiation.ResourceRules
	policy       Policy
	logger       zerolog.Logger
}

// Option customizes a Service.
type Option func(*options)

type options struct {
	negRules *negotiation.NegotiationRules
	resRules *negotiation.ResourceRules
}

// WithRules replaces the default rule tables.
func WithRules(neg *negotiation.NegotiationRules, res *negotiation.ResourceRules) Option {
	return func(o *options) {
		if neg != nil {
			o.negRules = neg
		}
		if res != nil {
			o.resRules = res
		}
	}
}

// NewService wires both machines. The pipeline may be nil when no listener is
// needed.
func NewService(
	repo negotiation.Repository,
	ledger negotiation.Ledger,
	pipeline *Pipeline,
	policy Policy,
	logger zerolog.Logger,
	opts ...Option,
) (*Service, error) {
	o := options{
		negRules: negotiation.DefaultNegotiationRules(),
		resRules: negotiation.DefaultResourceRules(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	guards, err := compileGuards(policy.Guards)
	if err != nil {
		return nil, err
	}
	if pipeline == nil {
		pipeline = NewPipeline(logger)
	}

	logger = logger.With().Str("service", "lifecycle").Logger()
	locks := newLockTable()
	resources := &ResourceMachine{
		rules:    o.resRules,
		repo:     repo,
		ledger:   ledger,
		locks:    locks,
		pipeline: pipeline,
		policy:   policy,
		logger:   logger,
	}
	return &Service{
		negotiations: &NegotiationMachine{
			rules:     o.negRules,
			repo:      repo,
			ledger:    ledger,
			resources: resources,
			locks:     locks,
			pipeline:  pipeline,
			policy:    policy,
			guards:    guards,
			logger:    logger,
		},
		resources: resources,
		ledger:    ledger,
		negRules:  o.negRules,
		resRules:  o.resRules,
		policy:    policy,
		logger:    logger,
	}, nil
}

// SubmitOption refines a single event submission.
type SubmitOption func(*submitOptions)

type submitOptions struct {
	expect string
}

// FromState makes the submission fail with negotiation.ErrConflict unless the
// negotiation (or resource) is still in state when the event is evaluated.
// Callers acting on a state they have read pass it here so that concurrent
// events from that state cannot both be accepted.
func FromState[S ~string](state S) SubmitOption {
	return func(o *submitOptions) { o.expect = string(state) }
}

func applySubmitOptions(opts []SubmitOption) submitOptions {
	var o submitOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SubmitNegotiationEvent applies a negotiation-level event.
func (s *Service) SubmitNegotiationEvent(ctx context.Context, negotiationID string, event negotiation.Event, actor Actor, message string, opts ...SubmitOption) (negotiation.State, error) {
	o := applySubmitOptions(opts)
	return s.negotiations.Submit(ctx, Command{
		NegotiationID: negotiationID,
		Event:         event,
		Actor:         actor,
		Message:       message,
		ExpectState:   negotiation.State(o.expect),
	})
}

// SubmitResourceEvent applies a resource-level event.
func (s *Service) SubmitResourceEvent(ctx context.Context, negotiationID, resourceID string, event negotiation.ResourceEvent, actor Actor, message string, opts ...SubmitOption) (negotiation.ResourceState, error) {
	o := applySubmitOptions(opts)
	return s.resources.Submit(ctx, ResourceCommand{
		NegotiationID: negotiationID,
		ResourceID:    resourceID,
		Event:         event,
		Actor:         actor,
		Message:       message,
		ExpectState:   negotiation.ResourceState(o.expect),
	})
}

func (s *Service) CurrentState(ctx context.Context, negotiationID string) (negotiation.State, error) {
	latest, err := latestNegotiationEntry(ctx, s.ledger, negotiationID)
	if err != nil {
		return "", err
	}
	return latest.State(), nil
}

func (s *Service) CurrentResourceState(ctx context.Context, negotiationID, resourceID string) (negotiation.ResourceState, error) {
	latest, err := s.ledger.Latest(ctx, negotiationID, negotiation.StringPtr(resourceID))
	if err != nil {
		return "", fmt.Errorf("read resource state: %w", err)
	}
	if latest == nil {
		return "", negotiation.NotFoundf("lifecycle of resource %s in negotiation %s", resourceID, negotiationID)
	}
	return latest.ResourceState(), nil
}

// CurrentStatePerResource returns the sub-state of every seeded resource.
// Attached resources that were never seeded are absent.
func (s *Service) CurrentStatePerResource(ctx context.Context, negotiationID string) (map[string]negotiation.ResourceState, error) {
	if _, err := latestNegotiationEntry(ctx, s.ledger, negotiationID); err != nil {
		return nil, err
	}
	latest, err := s.ledger.LatestPerResource(ctx, negotiationID)
	if err != nil {
		return nil, fmt.Errorf("read resource states: %w", err)
	}
	out := make(map[string]negotiation.ResourceState, len(latest))
	for id, e := range latest {
		out[id] = e.ResourceState()
	}
	return out, nil
}

// PossibleEvents lists every event defined from the current state.
func (s *Service) PossibleEvents(ctx context.Context, negotiationID string) ([]negotiation.Event, error) {
	state, err := s.CurrentState(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	return s.negRules.Events(state), nil
}

// PossibleEventsForRole narrows PossibleEvents to what role may trigger.
func (s *Service) PossibleEventsForRole(ctx context.Context, negotiationID string, role user.Role) ([]negotiation.Event, error) {
	state, err := s.CurrentState(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	return s.negRules.EventsForRole(state, role), nil
}

// PossibleResourceEvents is empty while the negotiation does not accept
// resource events.
func (s *Service) PossibleResourceEvents(ctx context.Context, negotiationID, resourceID string) ([]negotiation.ResourceEvent, error) {
	state, active, err := s.resourceState(ctx, negotiationID, resourceID)
	if err != nil {
		return nil, err
	}
	if !active {
		return []negotiation.ResourceEvent{}, nil
	}
	return s.resRules.Events(state), nil
}

func (s *Service) PossibleResourceEventsForRole(ctx context.Context, negotiationID, resourceID string, role user.Role) ([]negotiation.ResourceEvent, error) {
	state, active, err := s.resourceState(ctx, negotiationID, resourceID)
	if err != nil {
		return nil, err
	}
	if !active {
		return []negotiation.ResourceEvent{}, nil
	}
	return s.resRules.EventsForRole(state, role), nil
}

// InitializeNegotiation records the initial SUBMITTED entry.
func (s *Service) InitializeNegotiation(ctx context.Context, negotiationID string) (negotiation.State, error) {
	return s.negotiations.Initialize(ctx, negotiationID)
}

// InitializeResource records the initial entry of an attached resource.
func (s *Service) InitializeResource(ctx context.Context, negotiationID, resourceID string) (negotiation.ResourceState, error) {
	return s.resources.Initialize(ctx, negotiationID, resourceID)
}

// SeedResources seeds newly attached resources when the negotiation is in a
// seeding state.
func (s *Service) SeedResources(ctx context.Context, negotiationID string) ([]string, error) {
	return s.negotiations.SeedResources(ctx, negotiationID)
}

// History returns every ledger entry of the negotiation in sequence order.
func (s *Service) History(ctx context.Context, negotiationID string) ([]*negotiation.LedgerEntry, error) {
	entries, err := s.ledger.History(ctx, negotiationID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(entries) == 0 {
		return nil, negotiation.NotFoundf("lifecycle of negotiation %s", negotiationID)
	}
	return entries, nil
}

// NegotiationRules exposes the negotiation rule table.
func (s *Service) NegotiationRules() *negotiation.NegotiationRules {
	return s.negRules
}

// ResourceRules exposes the resource rule table.
func (s *Service) ResourceRules() *negotiation.ResourceRules {
	return s.resRules
}

// Policy returns the active policy.
func (s *Service) Policy() Policy {
	return s.policy
}

func (s *Service) resourceState(ctx context.Context, negotiationID, resourceID string) (negotiation.ResourceState, bool, error) {
	parent, err := s.CurrentState(ctx, negotiationID)
	if err != nil {
		return "", false, err
	}
	state, err := s.CurrentResourceState(ctx, negotiationID, resourceID)
	if err != nil {
		return "", false, err
	}
	return state, s.policy.ResourcesActive(parent), nil
}
