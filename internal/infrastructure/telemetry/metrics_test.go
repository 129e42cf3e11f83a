package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

func TestMetrics_CountsTransitionsAndDrops(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	committed := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return committed.Add(250 * time.Millisecond) }

	ctx := context.Background()
	approve := negotiation.TransitionOccurred{NegotiationID: "n1", Event: "APPROVE", ToState: "IN_PROGRESS", Timestamp: committed}
	contact := negotiation.TransitionOccurred{NegotiationID: "n1", ResourceID: negotiation.StringPtr("R1"), Event: "CONTACT", ToState: "REPRESENTATIVE_CONTACTED", Timestamp: committed}
	require.NoError(t, m.Handle(ctx, approve))
	require.NoError(t, m.Handle(ctx, approve))
	require.NoError(t, m.Handle(ctx, contact))
	m.RecordDrop("audit")
	m.RecordDrop("")

	points, err := m.Snapshot(ctx)
	require.NoError(t, err)

	byKey := map[string]Point{}
	for _, p := range points {
		byKey[p.Name+"|"+p.Attributes["event"]+p.Attributes["subscriber"]+p.Attributes["level"]] = p
	}

	assert.Equal(t, float64(2), byKey[MetricTransitions+"|APPROVE"+"NEGOTIATION"].Value)
	assert.Equal(t, float64(1), byKey[MetricTransitions+"|CONTACT"+"RESOURCE"].Value)
	assert.Equal(t, float64(1), byKey[MetricDropped+"|audit"].Value)
	assert.Equal(t, float64(1), byKey[MetricDropped+"|queue"].Value)

	lag := byKey[MetricLag+"|NEGOTIATION"]
	assert.Equal(t, uint64(2), lag.Count)
	assert.InDelta(t, 0.5, lag.Value, 1e-9)
}
