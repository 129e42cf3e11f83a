package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/notification"
)

// NotificationRepository implements notification.Repository.
type NotificationRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[uuid.UUID]*notification.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{items: make(map[uuid.UUID]*notification.Notification)}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.DedupeKey != nil {
		for _, existing := range r.items {
			if existing.DedupeKey != nil && *existing.DedupeKey == *n.DedupeKey {
				return fmt.Errorf("notification with dedupe key %q already exists", *n.DedupeKey)
			}
		}
	}
	r.nextID++
	n.ID = r.nextID
	c := *n
	r.items[n.NotificationID] = &c
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, notificationID uuid.UUID) (*notification.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.items[notificationID]
	if !ok {
		return nil, nil
	}
	c := *n
	return &c, nil
}

func (r *NotificationRepository) FindByDedupeKey(ctx context.Context, dedupeKey string) (*notification.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.items {
		if n.DedupeKey != nil && *n.DedupeKey == dedupeKey {
			c := *n
			return &c, nil
		}
	}
	return nil, nil
}

func (r *NotificationRepository) List(ctx context.Context, filter notification.Filter, limit, offset int) ([]*notification.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*notification.Notification{}
	for _, n := range r.items {
		if filter.NegotiationID != nil && n.NegotiationID != *filter.NegotiationID {
			continue
		}
		if filter.Status != nil && n.Status != *filter.Status {
			continue
		}
		if !matchesRecipient(n, filter) {
			continue
		}
		c := *n
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return []*notification.Notification{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *NotificationRepository) UpdateStatus(ctx context.Context, notificationID uuid.UUID, status notification.Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[notificationID]
	if !ok {
		return fmt.Errorf("notification %s not found", notificationID)
	}
	n.Status = status
	switch status {
	case notification.StatusSent:
		n.SentAt = &at
	case notification.StatusRead:
		n.ReadAt = &at
	}
	return nil
}

func matchesRecipient(n *notification.Notification, filter notification.Filter) bool {
	if filter.RecipientID == nil && len(filter.Groups) == 0 {
		return true
	}
	if filter.RecipientID != nil && n.RecipientID != nil && *n.RecipientID == *filter.RecipientID {
		return true
	}
	if n.RecipientGroup != nil {
		for _, g := range filter.Groups {
			if g == *n.RecipientGroup {
				return true
			}
		}
	}
	return false
}
