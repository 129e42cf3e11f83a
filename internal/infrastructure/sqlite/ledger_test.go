package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

var fixedNow = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

func newMockLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewLedger(db).WithClock(func() time.Time { return fixedNow }), mock
}

func TestAppend_InsertsBatchInOneTransaction(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("neg-1", nil).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(4)))
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("neg-1", "R1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(0)))
	mock.ExpectExec("INSERT INTO lifecycle_entries").
		WithArgs(sqlmock.AnyArg(), "neg-1", nil, "IN_PROGRESS", fixedNow.UnixNano()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO lifecycle_entries").
		WithArgs(sqlmock.AnyArg(), "neg-1", "R1", "SUBMITTED", fixedNow.UnixNano()).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectCommit()

	entries, err := ledger.Append(context.Background(), negotiation.Batch{
		NegotiationID: "neg-1",
		Entries: []negotiation.AppendEntry{
			{ToState: "IN_PROGRESS", ExpectSequence: negotiation.ExpectSequence(4)},
			{ResourceID: negotiation.StringPtr("R1"), ToState: "SUBMITTED", ExpectSequence: negotiation.ExpectEmpty()},
		},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(7), entries[0].Sequence)
	assert.Nil(t, entries[0].ResourceID)
	assert.Equal(t, int64(8), entries[1].Sequence)
	assert.Equal(t, fixedNow, entries[1].RecordedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_EntriesDoNotAliasBatch(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lifecycle_entries").
		WithArgs(sqlmock.AnyArg(), "neg-1", "R1", "SUBMITTED", fixedNow.UnixNano()).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	resourceID := negotiation.StringPtr("R1")
	entries, err := ledger.Append(context.Background(), negotiation.Batch{
		NegotiationID: "neg-1",
		Entries:       []negotiation.AppendEntry{{ResourceID: resourceID, ToState: "SUBMITTED"}},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].ResourceID)
	assert.NotSame(t, resourceID, entries[0].ResourceID)

	*resourceID = "R2"
	assert.Equal(t, "R1", *entries[0].ResourceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_ConflictRollsBack(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("neg-1", nil).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(9)))
	mock.ExpectRollback()

	_, err := ledger.Append(context.Background(), negotiation.Batch{
		NegotiationID: "neg-1",
		Entries:       []negotiation.AppendEntry{{ToState: "PAUSED", ExpectSequence: negotiation.ExpectSequence(4)}},
	})
	assert.ErrorIs(t, err, negotiation.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_InsertFailureRollsBack(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lifecycle_entries").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := ledger.Append(context.Background(), negotiation.Batch{
		NegotiationID: "neg-1",
		Entries:       []negotiation.AppendEntry{{ToState: "SUBMITTED"}},
	})
	assert.ErrorContains(t, err, "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatest_NoRows(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectQuery("SELECT sequence").
		WithArgs("neg-1", "R9").
		WillReturnRows(sqlmock.NewRows([]string{"sequence", "entry_id", "negotiation_id", "resource_id", "to_state", "recorded_at"}))

	entry, err := ledger.Latest(context.Background(), "neg-1", negotiation.StringPtr("R9"))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestHistory_ScansEntries(t *testing.T) {
	ledger, mock := newMockLedger(t)
	cols := []string{"sequence", "entry_id", "negotiation_id", "resource_id", "to_state", "recorded_at"}

	mock.ExpectQuery("SELECT sequence").
		WithArgs("neg-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), "6f1c6a36-1a0e-4a57-9d0c-5d3f1f2a9b10", "neg-1", nil, "SUBMITTED", fixedNow.UnixNano()).
			AddRow(int64(2), "0b3f7b0e-2c51-4f0a-a4b3-2f8f0e1f6c22", "neg-1", "R1", "SUBMITTED", fixedNow.UnixNano()))

	history, err := ledger.History(context.Background(), "neg-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Nil(t, history[0].ResourceID)
	require.NotNil(t, history[1].ResourceID)
	assert.Equal(t, "R1", *history[1].ResourceID)
	assert.Equal(t, fixedNow, history[1].RecordedAt)
}

func openFileLedger(t *testing.T) *Ledger {
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ledger := NewLedger(db)
	require.NoError(t, ledger.Migrate(context.Background()))
	return ledger
}

func TestFileLedger_Scopes(t *testing.T) {
	ctx := context.Background()
	ledger := openFileLedger(t)

	_, err := ledger.Append(ctx, negotiation.Batch{
		NegotiationID: "neg-1",
		Entries:       []negotiation.AppendEntry{{ToState: "SUBMITTED", ExpectSequence: negotiation.ExpectEmpty()}},
	})
	require.NoError(t, err)
	_, err = ledger.Append(ctx, negotiation.Batch{
		NegotiationID: "neg-1",
		Entries: []negotiation.AppendEntry{
			{ToState: "IN_PROGRESS", ExpectSequence: negotiation.ExpectSequence(1)},
			{ResourceID: negotiation.StringPtr("R1"), ToState: "SUBMITTED", ExpectSequence: negotiation.ExpectEmpty()},
			{ResourceID: negotiation.StringPtr("R2"), ToState: "SUBMITTED", ExpectSequence: negotiation.ExpectEmpty()},
		},
	})
	require.NoError(t, err)
	_, err = ledger.Append(ctx, negotiation.Batch{
		NegotiationID: "neg-1",
		Entries:       []negotiation.AppendEntry{{ResourceID: negotiation.StringPtr("R1"), ToState: "REPRESENTATIVE_CONTACTED", ExpectSequence: negotiation.ExpectSequence(3)}},
	})
	require.NoError(t, err)

	latest, err := ledger.Latest(ctx, "neg-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", latest.ToState)
	assert.Equal(t, int64(2), latest.Sequence)

	perResource, err := ledger.LatestPerResource(ctx, "neg-1")
	require.NoError(t, err)
	require.Len(t, perResource, 2)
	assert.Equal(t, "REPRESENTATIVE_CONTACTED", perResource["R1"].ToState)
	assert.Equal(t, "SUBMITTED", perResource["R2"].ToState)

	history, err := ledger.History(ctx, "neg-1")
	require.NoError(t, err)
	require.Len(t, history, 5)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i].Sequence, history[i-1].Sequence)
	}
}

func TestFileLedger_ConcurrentAppendsOneWins(t *testing.T) {
	ctx := context.Background()
	ledger := openFileLedger(t)
	_, err := ledger.Append(ctx, negotiation.Batch{
		NegotiationID: "neg-1",
		Entries:       []negotiation.AppendEntry{{ToState: "SUBMITTED"}},
	})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Append(ctx, negotiation.Batch{
				NegotiationID: "neg-1",
				Entries:       []negotiation.AppendEntry{{ToState: "IN_PROGRESS", ExpectSequence: negotiation.ExpectSequence(1)}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, negotiation.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 7, conflicts)
}
