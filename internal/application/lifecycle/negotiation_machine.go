package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

// Actor is the caller of a lifecycle operation with the role it acts in.
type Actor struct {
	ID   string
	Role user.Role
}

// Command requests a negotiation-level event. When ExpectState is set the
// event only applies while the negotiation is still in that state; otherwise
// the command fails with negotiation.ErrConflict and is not retried.
type Command struct {
	NegotiationID string
	Event         negotiation.Event
	Actor         Actor
	Message       string
	ExpectState   negotiation.State
}

// NegotiationMachine drives the top-level negotiation lifecycle and seeds
// resource sub-machines when the negotiation enters a seeding state.
type NegotiationMachine struct {
	rules     *negotiation.NegotiationRules
	repo      negotiation.Repository
	ledger    negotiation.Ledger
	resources *ResourceMachine
	locks     *lockTable
	pipeline  *Pipeline
	policy    Policy
	guards    guardSet
	logger    zerolog.Logger
}

// Submit applies cmd and returns the new state. When listeners fail after the
// ledger append, the new state is returned together with a
// *negotiation.ListenerError.
func (m *NegotiationMachine) Submit(ctx context.Context, cmd Command) (negotiation.State, error) {
	unlock := m.locks.lock(cmd.NegotiationID)
	defer unlock()

	var (
		n         *negotiation.Negotiation
		from, to  negotiation.State
		committed []*negotiation.LedgerEntry
		seeded    []string
	)
	for attempt := 0; ; attempt++ {
		var err error
		n, err = m.load(ctx, cmd.NegotiationID)
		if err != nil {
			return "", err
		}
		latest, err := m.latest(ctx, cmd.NegotiationID)
		if err != nil {
			return "", err
		}
		from = latest.State()
		if cmd.ExpectState != "" && from != cmd.ExpectState {
			return "", staleSource("negotiation "+cmd.NegotiationID, string(from), string(cmd.ExpectState))
		}

		to, err = m.rules.Next(from, cmd.Event, cmd.Actor.Role)
		if err != nil {
			return "", err
		}
		if err := m.guards.check(cmd.Event, from, n, cmd.Actor); err != nil {
			return "", err
		}

		batch := negotiation.Batch{
			NegotiationID: cmd.NegotiationID,
			Entries: []negotiation.AppendEntry{{
				ToState:        string(to),
				ExpectSequence: negotiation.ExpectSequence(latest.Sequence),
			}},
		}
		seeded = nil
		if m.policy.Seeds(to) {
			seeds, ids, err := m.resources.seedEntries(ctx, n)
			if err != nil {
				return "", err
			}
			batch.Entries = append(batch.Entries, seeds...)
			seeded = ids
		}

		committed, err = m.ledger.Append(ctx, batch)
		if err == nil {
			break
		}
		if !errors.Is(err, negotiation.ErrConflict) || attempt >= m.policy.MaxConflictRetries {
			return "", err
		}
		m.logger.Debug().Err(err).
			Str("negotiationId", cmd.NegotiationID).
			Str("event", string(cmd.Event)).
			Int("attempt", attempt+1).
			Msg("ledger conflict, retrying")
	}

	head := committed[0]
	m.logger.Info().
		Str("negotiationId", cmd.NegotiationID).
		Str("event", string(cmd.Event)).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("actor", cmd.Actor.ID).
		Int64("sequence", head.Sequence).
		Int("seeded", len(seeded)).
		Msg("negotiation transition committed")

	err := m.pipeline.Run(ctx, Transition{
		TransitionOccurred: negotiation.TransitionOccurred{
			NegotiationID:   cmd.NegotiationID,
			FromState:       string(from),
			ToState:         string(to),
			Event:           string(cmd.Event),
			Actor:           cmd.Actor.ID,
			ActorRole:       cmd.Actor.Role,
			Message:         cmd.Message,
			Sequence:        head.Sequence,
			SeededResources: seeded,
			Timestamp:       head.RecordedAt,
		},
		Negotiation: n,
	})
	return to, err
}

// Initialize writes the SUBMITTED entry of a negotiation that has none.
func (m *NegotiationMachine) Initialize(ctx context.Context, negotiationID string) (negotiation.State, error) {
	unlock := m.locks.lock(negotiationID)
	defer unlock()

	if _, err := m.load(ctx, negotiationID); err != nil {
		return "", err
	}
	latest, err := m.ledger.Latest(ctx, negotiationID, nil)
	if err != nil {
		return "", fmt.Errorf("read negotiation state: %w", err)
	}
	if latest != nil {
		return "", fmt.Errorf("negotiation %s: %w", negotiationID, negotiation.ErrAlreadyInitialized)
	}
	_, err = m.ledger.Append(ctx, negotiation.Batch{
		NegotiationID: negotiationID,
		Entries: []negotiation.AppendEntry{{
			ToState:        string(negotiation.InitialState),
			ExpectSequence: negotiation.ExpectEmpty(),
		}},
	})
	if errors.Is(err, negotiation.ErrConflict) {
		return "", fmt.Errorf("negotiation %s: %w", negotiationID, negotiation.ErrAlreadyInitialized)
	}
	if err != nil {
		return "", err
	}
	return negotiation.InitialState, nil
}

// SeedResources gives every attached resource without a sub-state its
// initial entry, provided the negotiation currently sits in a seeding state.
// It returns the seeded resource ids.
func (m *NegotiationMachine) SeedResources(ctx context.Context, negotiationID string) ([]string, error) {
	unlock := m.locks.lock(negotiationID)
	defer unlock()

	for attempt := 0; ; attempt++ {
		n, err := m.load(ctx, negotiationID)
		if err != nil {
			return nil, err
		}
		latest, err := m.latest(ctx, negotiationID)
		if err != nil {
			return nil, err
		}
		if !m.policy.Seeds(latest.State()) {
			return []string{}, nil
		}
		seeds, ids, err := m.resources.seedEntries(ctx, n)
		if err != nil {
			return nil, err
		}
		if len(seeds) == 0 {
			return []string{}, nil
		}
		_, err = m.ledger.Append(ctx, negotiation.Batch{NegotiationID: negotiationID, Entries: seeds})
		if err == nil {
			m.logger.Info().
				Str("negotiationId", negotiationID).
				Strs("resources", ids).
				Msg("resources seeded")
			return ids, nil
		}
		if !errors.Is(err, negotiation.ErrConflict) || attempt >= m.policy.MaxConflictRetries {
			return nil, err
		}
	}
}

func (m *NegotiationMachine) load(ctx context.Context, negotiationID string) (*negotiation.Negotiation, error) {
	n, err := m.repo.GetByID(ctx, negotiationID)
	if err != nil {
		return nil, fmt.Errorf("load negotiation: %w", err)
	}
	if n == nil {
		return nil, negotiation.NotFoundf("negotiation %s", negotiationID)
	}
	return n, nil
}

func (m *NegotiationMachine) latest(ctx context.Context, negotiationID string) (*negotiation.LedgerEntry, error) {
	return latestNegotiationEntry(ctx, m.ledger, negotiationID)
}

// staleSource reports a caller that evaluated an event against a state the
// scope has since left.
func staleSource(scope, current, expected string) error {
	return fmt.Errorf("%s is %s, expected %s: %w", scope, current, expected, negotiation.ErrConflict)
}

func latestNegotiationEntry(ctx context.Context, ledger negotiation.Ledger, negotiationID string) (*negotiation.LedgerEntry, error) {
	latest, err := ledger.Latest(ctx, negotiationID, nil)
	if err != nil {
		return nil, fmt.Errorf("read negotiation state: %w", err)
	}
	if latest == nil {
		return nil, negotiation.NotFoundf("lifecycle of negotiation %s", negotiationID)
	}
	return latest, nil
}
