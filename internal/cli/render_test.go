package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negotiation-hub/negotiation-hub/internal/application/lifecycle"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func fixtureEntries() []*negotiation.LedgerEntry {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entry := func(seq int64, resource string, state string, at time.Time) *negotiation.LedgerEntry {
		e := &negotiation.LedgerEntry{
			ID:            uuid.New(),
			Sequence:      seq,
			NegotiationID: "neg-1",
			ToState:       state,
			RecordedAt:    at,
		}
		if resource != "" {
			e.ResourceID = negotiation.StringPtr(resource)
		}
		return e
	}
	return []*negotiation.LedgerEntry{
		entry(1, "", "SUBMITTED", start),
		entry(2, "", "IN_PROGRESS", start.Add(5*time.Minute)),
		entry(3, "R1", "SUBMITTED", start.Add(5*time.Minute)),
		entry(4, "R2", "SUBMITTED", start.Add(5*time.Minute)),
		entry(7, "R1", "REPRESENTATIVE_CONTACTED", start.Add(90*time.Minute)),
	}
}

func TestRenderHistory(t *testing.T) {
	rows := BuildHistory(fixtureEntries())
	g := newGolden(t)

	var table bytes.Buffer
	require.NoError(t, RenderHistory(&table, rows, false))
	g.Assert(t, "history", table.Bytes())

	var js bytes.Buffer
	require.NoError(t, RenderHistory(&js, rows, true))
	g.Assert(t, "history_json", js.Bytes())
}

func TestRenderResources(t *testing.T) {
	entries := fixtureEntries()
	latest := map[string]*negotiation.LedgerEntry{
		"R2": entries[3],
		"R1": entries[4],
	}
	rows := BuildResources(latest)
	require.Len(t, rows, 2)
	assert.Equal(t, "R1", rows[0].ResourceID)

	var buf bytes.Buffer
	require.NoError(t, RenderResources(&buf, rows, false))
	newGolden(t).Assert(t, "resources", buf.Bytes())
}

func TestRenderRules(t *testing.T) {
	t.Run("default tables as json", func(t *testing.T) {
		report := BuildRulesReport(negotiation.DefaultNegotiationRules(), negotiation.DefaultResourceRules(), lifecycle.DefaultPolicy())
		var buf bytes.Buffer
		require.NoError(t, RenderRules(&buf, report, true))
		newGolden(t).Assert(t, "rules_json", buf.Bytes())
	})

	t.Run("custom policy as table", func(t *testing.T) {
		policy := lifecycle.Policy{
			SeedOn:               []negotiation.State{negotiation.StateInProgress, negotiation.StatePaused},
			ResourceActiveStates: []negotiation.State{negotiation.StateInProgress},
			MaxConflictRetries:   5,
			Guards:               map[negotiation.Event]string{negotiation.EventConclude: "resource_count > 0"},
		}
		report := BuildRulesReport(negotiation.DefaultNegotiationRules(), negotiation.DefaultResourceRules(), policy)
		var buf bytes.Buffer
		require.NoError(t, RenderRules(&buf, report, false))
		newGolden(t).Assert(t, "rules", buf.Bytes())
	})
}

func TestBuildHistoryScopes(t *testing.T) {
	rows := BuildHistory(fixtureEntries())
	require.Len(t, rows, 5)
	assert.Equal(t, NegotiationScope, rows[0].Scope)
	assert.Equal(t, "R1", rows[2].Scope)
	assert.Equal(t, int64(7), rows[4].Sequence)
}
