package negotiation

import (
	"time"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

// Level distinguishes negotiation-level from resource-level transitions.
type Level string

const (
	LevelNegotiation Level = "NEGOTIATION"
	LevelResource    Level = "RESOURCE"
)

// TransitionOccurred is published after a transition is durably recorded.
type TransitionOccurred struct {
	NegotiationID   string    `json:"negotiationId"`
	ResourceID      *string   `json:"resourceId,omitempty"`
	FromState       string    `json:"fromState"`
	ToState         string    `json:"toState"`
	Event           string    `json:"event"`
	Actor           string    `json:"actor"`
	ActorRole       user.Role `json:"actorRole"`
	Message         string    `json:"message,omitempty"`
	Sequence        int64     `json:"sequence"`
	SeededResources []string  `json:"seededResources,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Level reports which machine produced the transition.
func (e TransitionOccurred) Level() Level {
	if e.ResourceID != nil {
		return LevelResource
	}
	return LevelNegotiation
}
