// Package memory holds in-process stores used for single-node development
// runs and for tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

// Ledger is an append-only lifecycle log held in memory.
type Ledger struct {
	mu      sync.RWMutex
	seq     int64
	entries map[string][]*negotiation.LedgerEntry
	latest  map[string]map[string]*negotiation.LedgerEntry
	clock   func() time.Time
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string][]*negotiation.LedgerEntry),
		latest:  make(map[string]map[string]*negotiation.LedgerEntry),
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock for testing.
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

func (l *Ledger) Append(ctx context.Context, batch negotiation.Batch) ([]*negotiation.LedgerEntry, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	scopes := l.latest[batch.NegotiationID]
	for _, e := range batch.Entries {
		if e.ExpectSequence == nil {
			continue
		}
		var current int64
		if last := scopes[negotiation.ScopeKey(e.ResourceID)]; last != nil {
			current = last.Sequence
		}
		if current != *e.ExpectSequence {
			return nil, fmt.Errorf("scope %q at sequence %d, expected %d: %w",
				negotiation.ScopeKey(e.ResourceID), current, *e.ExpectSequence, negotiation.ErrConflict)
		}
	}

	if scopes == nil {
		scopes = make(map[string]*negotiation.LedgerEntry)
		l.latest[batch.NegotiationID] = scopes
	}
	now := l.clock()
	out := make([]*negotiation.LedgerEntry, 0, len(batch.Entries))
	for _, e := range batch.Entries {
		l.seq++
		entry := &negotiation.LedgerEntry{
			ID:            uuid.New(),
			Sequence:      l.seq,
			NegotiationID: batch.NegotiationID,
			ResourceID:    copyString(e.ResourceID),
			ToState:       e.ToState,
			RecordedAt:    now,
		}
		l.entries[batch.NegotiationID] = append(l.entries[batch.NegotiationID], entry)
		scopes[negotiation.ScopeKey(e.ResourceID)] = entry
		out = append(out, copyEntry(entry))
	}
	return out, nil
}

func (l *Ledger) Latest(ctx context.Context, negotiationID string, resourceID *string) (*negotiation.LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if e := l.latest[negotiationID][negotiation.ScopeKey(resourceID)]; e != nil {
		return copyEntry(e), nil
	}
	return nil, nil
}

func (l *Ledger) History(ctx context.Context, negotiationID string) ([]*negotiation.LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := l.entries[negotiationID]
	out := make([]*negotiation.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, copyEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (l *Ledger) LatestPerResource(ctx context.Context, negotiationID string) (map[string]*negotiation.LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]*negotiation.LedgerEntry)
	for _, e := range l.latest[negotiationID] {
		if e.ResourceID != nil {
			out[*e.ResourceID] = copyEntry(e)
		}
	}
	return out, nil
}

// Len returns the number of entries across all negotiations.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, entries := range l.entries {
		n += len(entries)
	}
	return n
}

func copyEntry(e *negotiation.LedgerEntry) *negotiation.LedgerEntry {
	c := *e
	c.ResourceID = copyString(e.ResourceID)
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
