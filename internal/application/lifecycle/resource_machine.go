package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

// ResourceCommand requests a resource-level event. ExpectState works as in
// Command, scoped to the resource.
type ResourceCommand struct {
	NegotiationID string
	ResourceID    string
	Event         negotiation.ResourceEvent
	Actor         Actor
	Message       string
	ExpectState   negotiation.ResourceState
}

// ResourceMachine drives the per-resource sub-lifecycles of a negotiation.
type ResourceMachine struct {
	rules    *negotiation.ResourceRules
	repo     negotiation.Repository
	ledger   negotiation.Ledger
	locks    *lockTable
	pipeline *Pipeline
	policy   Policy
	logger   zerolog.Logger
}

// Submit applies cmd to one (negotiation, resource) pair. Events are only
// applicable while the parent negotiation is in a resource-active state.
func (m *ResourceMachine) Submit(ctx context.Context, cmd ResourceCommand) (negotiation.ResourceState, error) {
	unlock := m.locks.lockPair(cmd.NegotiationID, cmd.ResourceID)
	defer unlock()

	resourceID := negotiation.StringPtr(cmd.ResourceID)
	var (
		n         *negotiation.Negotiation
		from, to  negotiation.ResourceState
		committed []*negotiation.LedgerEntry
	)
	for attempt := 0; ; attempt++ {
		var err error
		n, err = m.repo.GetByID(ctx, cmd.NegotiationID)
		if err != nil {
			return "", fmt.Errorf("load negotiation: %w", err)
		}
		if n == nil {
			return "", negotiation.NotFoundf("negotiation %s", cmd.NegotiationID)
		}
		parent, err := latestNegotiationEntry(ctx, m.ledger, cmd.NegotiationID)
		if err != nil {
			return "", err
		}
		latest, err := m.ledger.Latest(ctx, cmd.NegotiationID, resourceID)
		if err != nil {
			return "", fmt.Errorf("read resource state: %w", err)
		}
		if latest == nil {
			return "", negotiation.NotFoundf("lifecycle of resource %s in negotiation %s", cmd.ResourceID, cmd.NegotiationID)
		}
		from = latest.ResourceState()
		if cmd.ExpectState != "" && from != cmd.ExpectState {
			return "", staleSource("resource "+cmd.ResourceID+" in negotiation "+cmd.NegotiationID, string(from), string(cmd.ExpectState))
		}

		if !m.policy.ResourcesActive(parent.State()) {
			return "", &negotiation.TransitionError{
				Scope:  m.rules.Scope(),
				From:   string(from),
				Event:  string(cmd.Event),
				Role:   cmd.Actor.Role,
				Kind:   negotiation.ErrNoSuchEvent,
				Detail: "negotiation is " + string(parent.State()),
			}
		}
		to, err = m.rules.Next(from, cmd.Event, cmd.Actor.Role)
		if err != nil {
			return "", err
		}

		committed, err = m.ledger.Append(ctx, negotiation.Batch{
			NegotiationID: cmd.NegotiationID,
			Entries: []negotiation.AppendEntry{{
				ResourceID:     resourceID,
				ToState:        string(to),
				ExpectSequence: negotiation.ExpectSequence(latest.Sequence),
			}},
		})
		if err == nil {
			break
		}
		if !errors.Is(err, negotiation.ErrConflict) || attempt >= m.policy.MaxConflictRetries {
			return "", err
		}
		m.logger.Debug().Err(err).
			Str("negotiationId", cmd.NegotiationID).
			Str("resourceId", cmd.ResourceID).
			Str("event", string(cmd.Event)).
			Int("attempt", attempt+1).
			Msg("ledger conflict, retrying")
	}

	entry := committed[0]
	m.logger.Info().
		Str("negotiationId", cmd.NegotiationID).
		Str("resourceId", cmd.ResourceID).
		Str("event", string(cmd.Event)).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("actor", cmd.Actor.ID).
		Int64("sequence", entry.Sequence).
		Msg("resource transition committed")

	err := m.pipeline.Run(ctx, Transition{
		TransitionOccurred: negotiation.TransitionOccurred{
			NegotiationID: cmd.NegotiationID,
			ResourceID:    resourceID,
			FromState:     string(from),
			ToState:       string(to),
			Event:         string(cmd.Event),
			Actor:         cmd.Actor.ID,
			ActorRole:     cmd.Actor.Role,
			Message:       cmd.Message,
			Sequence:      entry.Sequence,
			Timestamp:     entry.RecordedAt,
		},
		Negotiation: n,
	})
	return to, err
}

// Initialize writes the initial entry of an attached resource. Unlike
// seeding, it fails when the pair already has a sub-state.
func (m *ResourceMachine) Initialize(ctx context.Context, negotiationID, resourceID string) (negotiation.ResourceState, error) {
	unlock := m.locks.lockPair(negotiationID, resourceID)
	defer unlock()

	n, err := m.repo.GetByID(ctx, negotiationID)
	if err != nil {
		return "", fmt.Errorf("load negotiation: %w", err)
	}
	if n == nil {
		return "", negotiation.NotFoundf("negotiation %s", negotiationID)
	}
	if !n.HasResource(resourceID) {
		return "", negotiation.NotFoundf("resource %s is not attached to negotiation %s", resourceID, negotiationID)
	}
	rid := negotiation.StringPtr(resourceID)
	latest, err := m.ledger.Latest(ctx, negotiationID, rid)
	if err != nil {
		return "", fmt.Errorf("read resource state: %w", err)
	}
	if latest != nil {
		return "", fmt.Errorf("resource %s in negotiation %s: %w", resourceID, negotiationID, negotiation.ErrAlreadyInitialized)
	}
	_, err = m.ledger.Append(ctx, negotiation.Batch{
		NegotiationID: negotiationID,
		Entries: []negotiation.AppendEntry{{
			ResourceID:     rid,
			ToState:        string(negotiation.InitialResourceState),
			ExpectSequence: negotiation.ExpectEmpty(),
		}},
	})
	if errors.Is(err, negotiation.ErrConflict) {
		return "", fmt.Errorf("resource %s in negotiation %s: %w", resourceID, negotiationID, negotiation.ErrAlreadyInitialized)
	}
	if err != nil {
		return "", err
	}
	return negotiation.InitialResourceState, nil
}

// seedEntries builds initial entries for attached resources that have no
// sub-state yet, in attachment order.
func (m *ResourceMachine) seedEntries(ctx context.Context, n *negotiation.Negotiation) ([]negotiation.AppendEntry, []string, error) {
	existing, err := m.ledger.LatestPerResource(ctx, n.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("read resource states: %w", err)
	}
	var (
		entries []negotiation.AppendEntry
		ids     []string
	)
	for _, resourceID := range n.ResourceIDs {
		if _, ok := existing[resourceID]; ok {
			continue
		}
		entries = append(entries, negotiation.AppendEntry{
			ResourceID:     negotiation.StringPtr(resourceID),
			ToState:        string(negotiation.InitialResourceState),
			ExpectSequence: negotiation.ExpectEmpty(),
		})
		ids = append(ids, resourceID)
	}
	return entries, ids, nil
}
