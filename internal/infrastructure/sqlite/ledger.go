// Package sqlite stores the lifecycle ledger in a single SQLite file for
// single-node deployments and the admin CLI.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

//go:embed sql/*.sql
var migrations embed.FS

const entryColumns = `sequence, entry_id, negotiation_id, resource_id, to_state, recorded_at`

// Open opens (creating if needed) the SQLite database at path. Write
// transactions take the database lock up front so concurrent processes
// serialise on BEGIN instead of failing at commit.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Ledger implements negotiation.Ledger on database/sql. The AUTOINCREMENT
// sequence column is the shared counter.
type Ledger struct {
	db    *sql.DB
	clock func() time.Time
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db, clock: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the clock for testing.
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

// Migrate applies the embedded schema.
func (l *Ledger) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "sql/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := l.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

func (l *Ledger) Append(ctx context.Context, batch negotiation.Batch) ([]*negotiation.LedgerEntry, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range batch.Entries {
		if e.ExpectSequence == nil {
			continue
		}
		var current int64
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(sequence), 0) FROM lifecycle_entries
			WHERE negotiation_id = ? AND resource_id IS ?
		`, batch.NegotiationID, nullable(e.ResourceID)).Scan(&current)
		if err != nil {
			return nil, err
		}
		if current != *e.ExpectSequence {
			return nil, fmt.Errorf("scope %q at sequence %d, expected %d: %w",
				negotiation.ScopeKey(e.ResourceID), current, *e.ExpectSequence, negotiation.ErrConflict)
		}
	}

	now := l.clock()
	out := make([]*negotiation.LedgerEntry, 0, len(batch.Entries))
	for _, e := range batch.Entries {
		entry := &negotiation.LedgerEntry{
			ID:            uuid.New(),
			NegotiationID: batch.NegotiationID,
			ResourceID:    copyString(e.ResourceID),
			ToState:       e.ToState,
			RecordedAt:    now,
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO lifecycle_entries (entry_id, negotiation_id, resource_id, to_state, recorded_at)
			VALUES (?, ?, ?, ?, ?)
		`, entry.ID.String(), batch.NegotiationID, nullable(e.ResourceID), e.ToState, now.UnixNano())
		if err != nil {
			return nil, fmt.Errorf("insert ledger entry: %w", err)
		}
		if entry.Sequence, err = res.LastInsertId(); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Ledger) Latest(ctx context.Context, negotiationID string, resourceID *string) (*negotiation.LedgerEntry, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM lifecycle_entries
		WHERE negotiation_id = ? AND resource_id IS ?
		ORDER BY sequence DESC LIMIT 1
	`, negotiationID, nullable(resourceID))
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

func (l *Ledger) History(ctx context.Context, negotiationID string) ([]*negotiation.LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM lifecycle_entries
		WHERE negotiation_id = ? ORDER BY sequence ASC
	`, negotiationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []*negotiation.LedgerEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (l *Ledger) LatestPerResource(ctx context.Context, negotiationID string) (map[string]*negotiation.LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM lifecycle_entries e
		WHERE e.negotiation_id = ? AND e.resource_id IS NOT NULL
		  AND e.sequence = (
			SELECT MAX(x.sequence) FROM lifecycle_entries x
			WHERE x.negotiation_id = e.negotiation_id AND x.resource_id = e.resource_id
		  )
	`, negotiationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]*negotiation.LedgerEntry)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out[*entry.ResourceID] = entry
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*negotiation.LedgerEntry, error) {
	var (
		e          negotiation.LedgerEntry
		entryID    string
		resourceID sql.NullString
		recordedAt int64
	)
	if err := row.Scan(&e.Sequence, &entryID, &e.NegotiationID, &resourceID, &e.ToState, &recordedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(entryID)
	if err != nil {
		return nil, fmt.Errorf("ledger entry %d: %w", e.Sequence, err)
	}
	e.ID = id
	if resourceID.Valid {
		e.ResourceID = negotiation.StringPtr(resourceID.String)
	}
	e.RecordedAt = time.Unix(0, recordedAt).UTC()
	return &e, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// copyString keeps returned entries from sharing the caller's batch.
func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
