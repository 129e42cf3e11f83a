// Package notification turns lifecycle transitions into user notifications
// and pushes them to connected clients.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainNegotiation "github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
	domain "github.com/negotiation-hub/negotiation-hub/internal/domain/notification"
	domainUser "github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

// ErrNotFound is returned for notifications the caller cannot see.
var ErrNotFound = errors.New("notification not found")

var negotiationMessages = map[domainNegotiation.Event]string{
	domainNegotiation.EventApprove:  "Your negotiation was approved.",
	domainNegotiation.EventDecline:  "Your negotiation was declined.",
	domainNegotiation.EventPause:    "Your negotiation was paused.",
	domainNegotiation.EventUnpause:  "Your negotiation was resumed.",
	domainNegotiation.EventAbandon:  "Your negotiation was abandoned.",
	domainNegotiation.EventConclude: "Your negotiation was concluded.",
}

// Service records notifications and delivers them over SSE.
type Service struct {
	repo         domain.Repository
	hub          domain.SSEHub
	negotiations domainNegotiation.Repository
	users        domainUser.Repository
	logger       zerolog.Logger
}

func NewService(repo domain.Repository, hub domain.SSEHub, negotiations domainNegotiation.Repository, users domainUser.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		hub:          hub,
		negotiations: negotiations,
		users:        users,
		logger:       logger.With().Str("service", "notification").Logger(),
	}
}

func (s *Service) Name() string { return "notification" }

// Handle notifies the people a transition concerns. Negotiation-level
// transitions go to the creator. Resource-level transitions go to the
// creator, or to the resource's representatives when the researcher
// triggered them.
func (s *Service) Handle(ctx context.Context, event domainNegotiation.TransitionOccurred) error {
	n, err := s.negotiations.GetByID(ctx, event.NegotiationID)
	if err != nil {
		return err
	}
	if n == nil {
		return domainNegotiation.NotFoundf("negotiation %s", event.NegotiationID)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal transition: %w", err)
	}

	if event.Level() == domainNegotiation.LevelNegotiation {
		body, ok := negotiationMessages[domainNegotiation.Event(event.Event)]
		if !ok {
			body = fmt.Sprintf("Your negotiation is now %s.", event.ToState)
		}
		return s.deliver(ctx, domain.NewNotification(n.ID, domain.KindNegotiationStatus, titleOf(n), body, payload).
			ForUser(n.CreatorID).
			WithDedupeKey(dedupeKey(event, n.CreatorID)))
	}

	resourceID := *event.ResourceID
	body := fmt.Sprintf("The status of resource %s changed to %s.", resourceID, event.ToState)
	recipients := []string{n.CreatorID}
	if event.ActorRole == domainUser.RoleResearcher {
		recipients, err = s.representatives(ctx, resourceID)
		if err != nil {
			return err
		}
	}
	var errs []error
	for _, recipient := range recipients {
		if recipient == event.Actor {
			continue
		}
		note := domain.NewNotification(n.ID, domain.KindResourceStatus, titleOf(n), body, payload).
			ForUser(recipient).
			WithDedupeKey(dedupeKey(event, recipient))
		if err := s.deliver(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotifyAdmins announces a new negotiation to every administrator.
func (s *Service) NotifyAdmins(ctx context.Context, n *domainNegotiation.Negotiation) error {
	body := fmt.Sprintf("New negotiation %q is awaiting review.", titleOf(n))
	payload, err := json.Marshal(map[string]interface{}{
		"negotiationId": n.ID,
		"resourceIds":   n.ResourceIDs,
	})
	if err != nil {
		return err
	}
	return s.deliver(ctx, domain.NewNotification(n.ID, domain.KindNegotiationCreated, titleOf(n), body, payload).
		ForGroup(domain.AdminGroup).
		WithDedupeKey("created:"+n.ID))
}

// ListForUser returns notifications addressed to u directly or to one of
// its groups, newest first.
func (s *Service) ListForUser(ctx context.Context, u *domainUser.User, limit, offset int) ([]*domain.Notification, error) {
	id := u.UserID.String()
	return s.repo.List(ctx, domain.Filter{RecipientID: &id, Groups: GroupsFor(u)}, limit, offset)
}

// MarkRead marks a notification addressed to u as read.
func (s *Service) MarkRead(ctx context.Context, u *domainUser.User, notificationID uuid.UUID) (*domain.Notification, error) {
	note, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if note == nil || !addressedTo(note, u) {
		return nil, ErrNotFound
	}
	if note.Status == domain.StatusRead {
		return note, nil
	}
	now := time.Now().UTC()
	if err := note.MarkRead(now); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, note.NotificationID, note.Status, now); err != nil {
		return nil, err
	}
	return note, nil
}

// GroupsFor lists the SSE and notification groups u belongs to.
func GroupsFor(u *domainUser.User) []string {
	if u != nil && u.Role == domainUser.RoleAdmin {
		return []string{domain.AdminGroup}
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, note *domain.Notification) error {
	if note.DedupeKey != nil {
		existing, err := s.repo.FindByDedupeKey(ctx, *note.DedupeKey)
		if err != nil {
			return err
		}
		if existing != nil {
			s.logger.Debug().Str("dedupeKey", *note.DedupeKey).Msg("notification already recorded")
			return nil
		}
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}

	data, err := json.Marshal(note)
	if err != nil {
		return err
	}
	msg := domain.NewSSEMessage(domain.SSEEventNotification, data)
	switch {
	case note.RecipientID != nil:
		s.hub.BroadcastToUser(*note.RecipientID, msg)
	case note.RecipientGroup != nil:
		s.hub.BroadcastToGroup(*note.RecipientGroup, msg)
	}

	now := time.Now().UTC()
	if err := note.MarkSent(now); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, note.NotificationID, note.Status, now); err != nil {
		return err
	}
	s.logger.Debug().
		Str("notificationId", note.NotificationID.String()).
		Str("negotiationId", note.NegotiationID).
		Str("kind", string(note.Kind)).
		Msg("notification sent")
	return nil
}

func (s *Service) representatives(ctx context.Context, resourceID string) ([]string, error) {
	role := domainUser.RoleRepresentative
	status := domainUser.StatusActive
	reps, err := s.users.List(ctx, domainUser.Filter{Role: &role, Status: &status, Resource: &resourceID}, 100, 0)
	if err != nil {
		return nil, fmt.Errorf("list representatives: %w", err)
	}
	ids := make([]string, 0, len(reps))
	for _, r := range reps {
		ids = append(ids, r.UserID.String())
	}
	return ids, nil
}

func addressedTo(note *domain.Notification, u *domainUser.User) bool {
	if note.RecipientID != nil {
		return *note.RecipientID == u.UserID.String()
	}
	if note.RecipientGroup != nil {
		for _, g := range GroupsFor(u) {
			if g == *note.RecipientGroup {
				return true
			}
		}
	}
	return false
}

func titleOf(n *domainNegotiation.Negotiation) string {
	if t := n.Title(); t != "" {
		return t
	}
	return "Negotiation " + n.ID
}

func dedupeKey(event domainNegotiation.TransitionOccurred, recipient string) string {
	return fmt.Sprintf("transition:%d:%s", event.Sequence, recipient)
}
