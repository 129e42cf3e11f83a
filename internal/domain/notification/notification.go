package notification

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the delivery status of a notification
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusRead    Status = "READ"
	StatusFailed  Status = "FAILED"
)

// Channel represents the notification delivery channel
type Channel string

const (
	ChannelSSE   Channel = "SSE"
	ChannelEmail Channel = "EMAIL"
)

// Kind tells clients what a notification is about.
type Kind string

const (
	KindNegotiationCreated Kind = "NEGOTIATION_CREATED"
	KindNegotiationStatus  Kind = "NEGOTIATION_STATUS_CHANGED"
	KindResourceStatus     Kind = "RESOURCE_STATUS_CHANGED"
)

const (
	// AdminGroup is the SSE group every admin connection joins.
	AdminGroup = "role:ADMIN"

	SSEEventNotification = "notification"
	SSEEventLifecycle    = "lifecycle"
)

// NegotiationGroup is the SSE group of connections following one negotiation.
func NegotiationGroup(negotiationID string) string {
	return "negotiation:" + negotiationID
}

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrClientNotFound    = errors.New("SSE client not found")
	ErrChannelFull       = errors.New("SSE message channel full")
)

// Notification is a message for one user or a group of users about a
// negotiation.
type Notification struct {
	ID             int64           `json:"id"`
	NotificationID uuid.UUID       `json:"notificationId"`
	NegotiationID  string          `json:"negotiationId"`
	Kind           Kind            `json:"kind"`
	DedupeKey      *string         `json:"dedupeKey,omitempty"`
	Channel        Channel         `json:"channel"`
	Title          string          `json:"title"`
	Body           string          `json:"body"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Status         Status          `json:"status"`
	RecipientID    *string         `json:"recipientId,omitempty"`
	RecipientGroup *string         `json:"recipientGroup,omitempty"`
	LastError      *string         `json:"lastError,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	SentAt         *time.Time      `json:"sentAt,omitempty"`
	ReadAt         *time.Time      `json:"readAt,omitempty"`
}

// NewNotification creates a pending notification.
func NewNotification(negotiationID string, kind Kind, title, body string, payload json.RawMessage) *Notification {
	return &Notification{
		NotificationID: uuid.New(),
		NegotiationID:  negotiationID,
		Kind:           kind,
		Channel:        ChannelSSE,
		Title:          title,
		Body:           body,
		Payload:        payload,
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
}

// ForUser targets a single user.
func (n *Notification) ForUser(userID string) *Notification {
	n.RecipientID = &userID
	n.RecipientGroup = nil
	return n
}

// ForGroup targets every member of a group.
func (n *Notification) ForGroup(group string) *Notification {
	n.RecipientGroup = &group
	n.RecipientID = nil
	return n
}

// WithDedupeKey marks the notification as unique for key.
func (n *Notification) WithDedupeKey(key string) *Notification {
	n.DedupeKey = &key
	return n
}

// CanTransitionTo checks if a transition to the target status is valid
func (n *Notification) CanTransitionTo(target Status) bool {
	switch n.Status {
	case StatusPending:
		return target == StatusSent || target == StatusFailed
	case StatusSent:
		return target == StatusRead
	case StatusFailed:
		return target == StatusSent
	}
	return false
}

// MarkSent marks the notification as sent
func (n *Notification) MarkSent(at time.Time) error {
	if !n.CanTransitionTo(StatusSent) {
		return ErrInvalidTransition
	}
	n.Status = StatusSent
	n.SentAt = &at
	n.LastError = nil
	return nil
}

// MarkRead marks the notification as read by its recipient
func (n *Notification) MarkRead(at time.Time) error {
	if !n.CanTransitionTo(StatusRead) {
		return ErrInvalidTransition
	}
	n.Status = StatusRead
	n.ReadAt = &at
	return nil
}

// MarkFailed marks the notification as failed
func (n *Notification) MarkFailed(errMsg string) error {
	if !n.CanTransitionTo(StatusFailed) {
		return ErrInvalidTransition
	}
	n.Status = StatusFailed
	n.LastError = &errMsg
	return nil
}

// SSEClient represents an active SSE connection
type SSEClient struct {
	ClientID    string
	UserID      *string
	Groups      []string
	ConnectedAt time.Time
	LastEventAt *time.Time
	MessageChan chan *SSEMessage
}

// NewSSEClient creates a new SSE client
func NewSSEClient(clientID string, userID *string, groups []string) *SSEClient {
	return &SSEClient{
		ClientID:    clientID,
		UserID:      userID,
		Groups:      groups,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *SSEMessage, 100),
	}
}

// Close closes the client's message channel
func (c *SSEClient) Close() {
	close(c.MessageChan)
}

// SSEMessage represents a message to be sent via SSE
type SSEMessage struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Retry     *int            `json:"retry,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSSEMessage creates a new SSE message
func NewSSEMessage(event string, data json.RawMessage) *SSEMessage {
	return &SSEMessage{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Filter selects notifications. RecipientID and Groups are alternatives: a
// notification matches when it targets the user or any of the groups.
type Filter struct {
	NegotiationID *string
	RecipientID   *string
	Groups        []string
	Status        *Status
}
