package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineRiskLevel(t *testing.T) {
	tests := []struct {
		name     string
		entity   EntityType
		action   Action
		terminal bool
		want     RiskLevel
	}{
		{"user created", EntityTypeUser, ActionCreate, false, RiskLevelHigh},
		{"login", EntityTypeUser, ActionLogin, false, RiskLevelMedium},
		{"negotiation concluded", EntityTypeNegotiation, ActionTransition, true, RiskLevelHigh},
		{"negotiation approved", EntityTypeNegotiation, ActionTransition, false, RiskLevelMedium},
		{"resource made available", EntityTypeResource, ActionTransition, true, RiskLevelMedium},
		{"resource contacted", EntityTypeResource, ActionTransition, false, RiskLevelLow},
		{"negotiation created", EntityTypeNegotiation, ActionCreate, false, RiskLevelLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineRiskLevel(tt.entity, tt.action, tt.terminal))
		})
	}
}

func TestNewAuditLog(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log, err := NewAuditLog(&AuditEntry{
		EntityType: EntityTypeNegotiation,
		EntityID:   "neg-1",
		Action:     ActionTransition,
		Actor:      "admin-1",
		ActorRole:  "ADMIN",
		OldValues:  map[string]string{"state": "SUBMITTED"},
		NewValues:  map[string]string{"state": "IN_PROGRESS"},
		CreatedAt:  at,
	})
	require.NoError(t, err)
	assert.Equal(t, at, log.CreatedAt)
	assert.Equal(t, RiskLevelMedium, log.RiskLevel)
	assert.JSONEq(t, `{"state":"SUBMITTED"}`, string(log.OldValues))
	assert.JSONEq(t, `{"state":"IN_PROGRESS"}`, string(log.NewValues))

	_, err = NewAuditLog(&AuditEntry{NewValues: make(chan int)})
	assert.Error(t, err)
}

func TestSignature(t *testing.T) {
	key := []byte("audit-signing-key")
	log, err := NewAuditLog(&AuditEntry{
		EntityType: EntityTypeResource,
		EntityID:   ResourceEntityID("neg-1", "R1"),
		Action:     ActionTransition,
		Actor:      "rep-1",
		NewValues:  json.RawMessage(`{"state":"REPRESENTATIVE_CONTACTED"}`),
	})
	require.NoError(t, err)

	ok, err := VerifyAuditLogSignature(log, key)
	require.NoError(t, err)
	assert.False(t, ok, "unsigned log must not verify")

	log.Signature, err = SignAuditLog(log, key)
	require.NoError(t, err)

	ok, err = VerifyAuditLogSignature(log, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = VerifyAuditLogSignature(log, []byte("other-key"))
	assert.False(t, ok)

	log.NewValues = json.RawMessage(`{"state":"RESOURCE_MADE_AVAILABLE"}`)
	ok, _ = VerifyAuditLogSignature(log, key)
	assert.False(t, ok, "tampered log must not verify")
}
