package audit

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntityType represents the type of entity being audited
type EntityType string

const (
	EntityTypeNegotiation EntityType = "NEGOTIATION"
	EntityTypeResource    EntityType = "RESOURCE"
	EntityTypeUser        EntityType = "USER"
	EntityTypeSession     EntityType = "SESSION"
)

// Action represents the type of action being audited
type Action string

const (
	ActionCreate     Action = "CREATE"
	ActionUpdate     Action = "UPDATE"
	ActionTransition Action = "TRANSITION"
	ActionAttach     Action = "ATTACH"
	ActionLogin      Action = "LOGIN"
	ActionLogout     Action = "LOGOUT"
)

// RiskLevel represents the risk classification of an operation
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// AuditLog represents an audit log entry
type AuditLog struct {
	ID         int64           `json:"id"`
	AuditID    uuid.UUID       `json:"auditId"`
	EntityType EntityType      `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Action     Action          `json:"action"`
	Actor      string          `json:"actor"`
	ActorRole  string          `json:"actorRole,omitempty"`
	OldValues  json.RawMessage `json:"oldValues,omitempty"`
	NewValues  json.RawMessage `json:"newValues,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	RiskLevel  RiskLevel       `json:"riskLevel"`
	Tags       []string        `json:"tags,omitempty"`
	Signature  []byte          `json:"signature,omitempty"`
	TraceID    string          `json:"traceId,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// AuditEntry is the input for creating an audit log.
type AuditEntry struct {
	EntityType EntityType
	EntityID   string
	Action     Action
	Actor      string
	ActorRole  string
	OldValues  interface{}
	NewValues  interface{}
	Reason     string
	Tags       []string
	TraceID    string
	// Terminal marks transitions into a state nothing leaves.
	Terminal  bool
	CreatedAt time.Time
}

// QueryFilter represents filters for querying audit logs
type QueryFilter struct {
	EntityType *EntityType
	EntityID   *string
	Action     *Action
	Actor      *string
	RiskLevel  *RiskLevel
	StartTime  *time.Time
	EndTime    *time.Time
	Tags       []string
}

// Cursor represents a pagination cursor for audit logs
type Cursor struct {
	CreatedAt time.Time `json:"ts"`
	ID        int64     `json:"id"`
}

// Repository defines the interface for audit log persistence
type Repository interface {
	Create(ctx context.Context, entry *AuditLog) error
	// GetByID returns nil, nil when auditID is unknown.
	GetByID(ctx context.Context, auditID uuid.UUID) (*AuditLog, error)
	// Query returns logs newest first and the cursor of the next page, if any.
	Query(ctx context.Context, filter QueryFilter, cursor *Cursor, limit int) ([]*AuditLog, *Cursor, error)
	GetByEntityID(ctx context.Context, entityType EntityType, entityID string) ([]*AuditLog, error)
}

// DetermineRiskLevel classifies an operation.
func DetermineRiskLevel(entityType EntityType, action Action, terminal bool) RiskLevel {
	if entityType == EntityTypeUser {
		if action == ActionCreate || action == ActionUpdate {
			return RiskLevelHigh
		}
		return RiskLevelMedium
	}
	if action == ActionTransition && terminal {
		if entityType == EntityTypeNegotiation {
			return RiskLevelHigh
		}
		return RiskLevelMedium
	}
	if entityType == EntityTypeNegotiation && action != ActionCreate {
		return RiskLevelMedium
	}
	return RiskLevelLow
}

// NewAuditLog creates a new AuditLog from an AuditEntry
func NewAuditLog(entry *AuditEntry) (*AuditLog, error) {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	log := &AuditLog{
		AuditID:    uuid.New(),
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		Actor:      entry.Actor,
		ActorRole:  entry.ActorRole,
		Reason:     entry.Reason,
		Tags:       entry.Tags,
		TraceID:    entry.TraceID,
		RiskLevel:  DetermineRiskLevel(entry.EntityType, entry.Action, entry.Terminal),
		CreatedAt:  createdAt.UTC().Truncate(time.Microsecond),
	}

	if entry.OldValues != nil {
		data, err := json.Marshal(entry.OldValues)
		if err != nil {
			return nil, err
		}
		log.OldValues = data
	}
	if entry.NewValues != nil {
		data, err := json.Marshal(entry.NewValues)
		if err != nil {
			return nil, err
		}
		log.NewValues = data
	}
	return log, nil
}

// ResourceEntityID names a resource within a negotiation.
func ResourceEntityID(negotiationID, resourceID string) string {
	return negotiationID + "/" + resourceID
}
