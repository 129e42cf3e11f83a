// Package sse fans notifications out to connected server-sent-event clients.
package sse

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/notification"
)

// HeartbeatEvent is sent periodically so proxies keep idle streams open.
const HeartbeatEvent = "heartbeat"

// Hub manages SSE clients. Sends never block: a client whose buffer is full
// misses the message.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*notification.SSEClient

	heartbeat time.Duration
	dropped   atomic.Int64
	logger    zerolog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewHub(logger zerolog.Logger, heartbeat time.Duration) *Hub {
	return &Hub{
		clients:   make(map[string]*notification.SSEClient),
		heartbeat: heartbeat,
		logger:    logger.With().Str("service", "sse-hub").Logger(),
	}
}

func (h *Hub) Register(client *notification.SSEClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
	h.logger.Debug().Str("clientId", client.ClientID).Int("clients", len(h.clients)).Msg("sse client registered")
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
	}
}

func (h *Hub) GetClient(clientID string) *notification.SSEClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[clientID]
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) BroadcastToAll(message *notification.SSEMessage) {
	h.each(func(*notification.SSEClient) bool { return true }, message)
}

func (h *Hub) BroadcastToUser(userID string, message *notification.SSEMessage) {
	h.each(func(c *notification.SSEClient) bool {
		return c.UserID != nil && *c.UserID == userID
	}, message)
}

func (h *Hub) BroadcastToGroup(group string, message *notification.SSEMessage) {
	h.each(func(c *notification.SSEClient) bool {
		for _, g := range c.Groups {
			if g == group {
				return true
			}
		}
		return false
	}, message)
}

func (h *Hub) SendToClient(clientID string, message *notification.SSEMessage) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c := h.clients[clientID]
	if c == nil {
		return notification.ErrClientNotFound
	}
	if !h.trySend(c, message) {
		return notification.ErrChannelFull
	}
	return nil
}

// Start sends heartbeats until ctx is done or Stop is called. A zero
// heartbeat interval disables them.
func (h *Hub) Start(ctx context.Context) {
	if h.heartbeat <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	if h.cancel != nil {
		h.mu.Unlock()
		cancel()
		return
	}
	h.cancel = cancel
	h.done = make(chan struct{})
	h.mu.Unlock()

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.BroadcastToAll(notification.NewSSEMessage(HeartbeatEvent, []byte(`{}`)))
			}
		}
	}()
}

// Stop ends heartbeats and disconnects every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel = nil
	h.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

// Dropped counts messages lost to full client buffers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

func (h *Hub) each(match func(*notification.SSEClient) bool, message *notification.SSEMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if match(c) {
			h.trySend(c, message)
		}
	}
}

func (h *Hub) trySend(c *notification.SSEClient, msg *notification.SSEMessage) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		h.dropped.Add(1)
		h.logger.Warn().Str("clientId", c.ClientID).Str("event", msg.Event).Msg("sse client buffer full, message dropped")
		return false
	}
}
