package negotiation

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_ledger.go -package=mocks . Ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LedgerEntry is one immutable lifecycle record. A nil ResourceID marks a
// negotiation-level entry.
type LedgerEntry struct {
	ID            uuid.UUID `json:"id"`
	Sequence      int64     `json:"sequence"`
	NegotiationID string    `json:"negotiationId"`
	ResourceID    *string   `json:"resourceId,omitempty"`
	ToState       string    `json:"toState"`
	RecordedAt    time.Time `json:"recordedAt"`
}

// IsResourceScoped reports whether the entry belongs to a resource sub-machine.
func (e *LedgerEntry) IsResourceScoped() bool {
	return e.ResourceID != nil
}

// State returns the entry state as a negotiation state.
func (e *LedgerEntry) State() State {
	return State(e.ToState)
}

// ResourceState returns the entry state as a resource state.
func (e *LedgerEntry) ResourceState() ResourceState {
	return ResourceState(e.ToState)
}

// AppendEntry is a record to be appended. When ExpectSequence is set, the
// latest sequence of the entry's scope must equal it (0 = scope is empty) or
// the whole batch fails with ErrConflict.
type AppendEntry struct {
	ResourceID     *string
	ToState        string
	ExpectSequence *int64
}

// Batch is a set of entries for one negotiation appended atomically.
type Batch struct {
	NegotiationID string
	Entries       []AppendEntry
}

// Ledger is the append-only lifecycle log. Implementations assign sequence
// numbers from a single monotonic counter shared by all negotiations.
type Ledger interface {
	Append(ctx context.Context, batch Batch) ([]*LedgerEntry, error)
	// Latest returns nil, nil when the scope has no entries.
	Latest(ctx context.Context, negotiationID string, resourceID *string) (*LedgerEntry, error)
	History(ctx context.Context, negotiationID string) ([]*LedgerEntry, error)
	LatestPerResource(ctx context.Context, negotiationID string) (map[string]*LedgerEntry, error)
}

// ExpectEmpty requires the scope to have no entries yet.
func ExpectEmpty() *int64 {
	var zero int64
	return &zero
}

// ExpectSequence requires the scope's latest entry to carry seq.
func ExpectSequence(seq int64) *int64 {
	return &seq
}

// Validate checks the batch shape: at most one entry per scope.
func (b Batch) Validate() error {
	if b.NegotiationID == "" {
		return fmt.Errorf("ledger batch: negotiation id is required")
	}
	if len(b.Entries) == 0 {
		return fmt.Errorf("ledger batch: no entries")
	}
	seen := make(map[string]struct{}, len(b.Entries))
	for _, e := range b.Entries {
		if e.ToState == "" {
			return fmt.Errorf("ledger batch: empty state")
		}
		k := ScopeKey(e.ResourceID)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("ledger batch: scope %q appears twice", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// ScopeKey returns a map key for a ledger scope; "" is the negotiation itself.
func ScopeKey(resourceID *string) string {
	if resourceID == nil {
		return ""
	}
	return "resource:" + *resourceID
}

// StringPtr is a helper for optional resource ids.
func StringPtr(s string) *string {
	return &s
}
