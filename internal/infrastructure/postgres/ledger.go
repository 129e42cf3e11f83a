package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

const ledgerColumns = `sequence, entry_id, negotiation_id, resource_id, to_state, recorded_at`

// Ledger implements negotiation.Ledger on the lifecycle_entries table. The
// BIGSERIAL sequence is the shared counter; appends for one negotiation are
// serialised by a transaction-scoped advisory lock.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) Append(ctx context.Context, batch negotiation.Batch) ([]*negotiation.LedgerEntry, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	var out []*negotiation.LedgerEntry
	err := withTx(ctx, l.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, batch.NegotiationID); err != nil {
			return fmt.Errorf("lock negotiation %s: %w", batch.NegotiationID, err)
		}
		for _, e := range batch.Entries {
			if e.ExpectSequence == nil {
				continue
			}
			current, err := latestSequence(ctx, tx, batch.NegotiationID, e.ResourceID)
			if err != nil {
				return err
			}
			if current != *e.ExpectSequence {
				return fmt.Errorf("scope %q at sequence %d, expected %d: %w",
					negotiation.ScopeKey(e.ResourceID), current, *e.ExpectSequence, negotiation.ErrConflict)
			}
		}
		out = make([]*negotiation.LedgerEntry, 0, len(batch.Entries))
		for _, e := range batch.Entries {
			row := tx.QueryRow(ctx, `
				INSERT INTO lifecycle_entries (entry_id, negotiation_id, resource_id, to_state)
				VALUES ($1,$2,$3,$4)
				RETURNING `+ledgerColumns,
				uuid.New(), batch.NegotiationID, e.ResourceID, e.ToState)
			entry, err := scanLedgerEntry(row)
			if err != nil {
				return fmt.Errorf("insert ledger entry: %w", err)
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Ledger) Latest(ctx context.Context, negotiationID string, resourceID *string) (*negotiation.LedgerEntry, error) {
	var row pgx.Row
	if resourceID == nil {
		row = l.pool.QueryRow(ctx, `
			SELECT `+ledgerColumns+` FROM lifecycle_entries
			WHERE negotiation_id=$1 AND resource_id IS NULL
			ORDER BY sequence DESC LIMIT 1
		`, negotiationID)
	} else {
		row = l.pool.QueryRow(ctx, `
			SELECT `+ledgerColumns+` FROM lifecycle_entries
			WHERE negotiation_id=$1 AND resource_id=$2
			ORDER BY sequence DESC LIMIT 1
		`, negotiationID, *resourceID)
	}
	entry, err := scanLedgerEntry(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

func (l *Ledger) History(ctx context.Context, negotiationID string) ([]*negotiation.LedgerEntry, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT `+ledgerColumns+` FROM lifecycle_entries
		WHERE negotiation_id=$1 ORDER BY sequence ASC
	`, negotiationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*negotiation.LedgerEntry{}
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (l *Ledger) LatestPerResource(ctx context.Context, negotiationID string) (map[string]*negotiation.LedgerEntry, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT DISTINCT ON (resource_id) `+ledgerColumns+` FROM lifecycle_entries
		WHERE negotiation_id=$1 AND resource_id IS NOT NULL
		ORDER BY resource_id, sequence DESC
	`, negotiationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]*negotiation.LedgerEntry)
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		out[*entry.ResourceID] = entry
	}
	return out, rows.Err()
}

func latestSequence(ctx context.Context, tx pgx.Tx, negotiationID string, resourceID *string) (int64, error) {
	var seq int64
	var err error
	if resourceID == nil {
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(sequence), 0) FROM lifecycle_entries
			WHERE negotiation_id=$1 AND resource_id IS NULL
		`, negotiationID).Scan(&seq)
	} else {
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(sequence), 0) FROM lifecycle_entries
			WHERE negotiation_id=$1 AND resource_id=$2
		`, negotiationID, *resourceID).Scan(&seq)
	}
	return seq, err
}

func scanLedgerEntry(row pgx.Row) (*negotiation.LedgerEntry, error) {
	var e negotiation.LedgerEntry
	if err := row.Scan(&e.Sequence, &e.ID, &e.NegotiationID, &e.ResourceID, &e.ToState, &e.RecordedAt); err != nil {
		return nil, err
	}
	e.RecordedAt = e.RecordedAt.UTC()
	return &e, nil
}
