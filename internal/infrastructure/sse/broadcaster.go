package sse

import (
	"context"
	"encoding/json"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/notification"
)

// LifecycleBroadcaster pushes every transition to the connections following
// its negotiation. It serves both as a publisher subscriber and as the sink
// for transitions relayed from other processes.
type LifecycleBroadcaster struct {
	hub notification.SSEHub
}

func NewLifecycleBroadcaster(hub notification.SSEHub) *LifecycleBroadcaster {
	return &LifecycleBroadcaster{hub: hub}
}

func (b *LifecycleBroadcaster) Name() string { return "sse-lifecycle" }

func (b *LifecycleBroadcaster) Handle(ctx context.Context, event negotiation.TransitionOccurred) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	b.hub.BroadcastToGroup(notification.NegotiationGroup(event.NegotiationID), notification.NewSSEMessage(notification.SSEEventLifecycle, data))
	return nil
}
