// Package negotiation manages negotiation aggregates: creation, listing,
// resource attachment and access decisions.
package negotiation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	domain "github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

var (
	// ErrForbidden is returned when a user has no access to a negotiation.
	ErrForbidden = errors.New("not authorized for negotiation")
	// ErrInvalidInput is returned for malformed create input.
	ErrInvalidInput = errors.New("invalid negotiation input")
)

// Lifecycle is the part of the lifecycle service this package drives.
type Lifecycle interface {
	InitializeNegotiation(ctx context.Context, negotiationID string) (domain.State, error)
	SeedResources(ctx context.Context, negotiationID string) ([]string, error)
}

// AdminNotifier tells administrators about new negotiations.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, n *domain.Negotiation) error
}

// Service handles negotiation aggregates.
type Service struct {
	repo      domain.Repository
	posts     domain.PostRepository
	lifecycle Lifecycle
	notifier  AdminNotifier
	logger    zerolog.Logger
}

// NewService creates a negotiation service. notifier may be nil.
func NewService(repo domain.Repository, posts domain.PostRepository, lifecycle Lifecycle, notifier AdminNotifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		posts:     posts,
		lifecycle: lifecycle,
		notifier:  notifier,
		logger:    logger.With().Str("service", "negotiation").Logger(),
	}
}

// CreateInput defines negotiation creation input.
type CreateInput struct {
	Payload      json.RawMessage
	ResourceIDs  []string
	PostsEnabled bool
}

// Create persists a negotiation and records its initial lifecycle entry. If
// the entry cannot be written the negotiation is deleted again, so no
// negotiation exists without a lifecycle.
func (s *Service) Create(ctx context.Context, creator *user.User, input CreateInput) (*domain.Negotiation, error) {
	if creator == nil {
		return nil, ErrForbidden
	}
	if creator.Role != user.RoleResearcher && creator.Role != user.RoleAdmin {
		return nil, fmt.Errorf("%w: only researchers and admins create negotiations", ErrForbidden)
	}
	if len(input.Payload) > 0 {
		var obj map[string]interface{}
		if err := json.Unmarshal(input.Payload, &obj); err != nil {
			return nil, fmt.Errorf("%w: payload must be a JSON object: %v", ErrInvalidInput, err)
		}
	}

	n := domain.New(creator.UserID.String(), input.Payload, input.ResourceIDs)
	n.PostsEnabled = input.PostsEnabled
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create negotiation: %w", err)
	}
	if _, err := s.lifecycle.InitializeNegotiation(ctx, n.ID); err != nil {
		if derr := s.repo.Delete(context.WithoutCancel(ctx), n.ID); derr != nil {
			s.logger.Error().Err(derr).Str("negotiationId", n.ID).Msg("failed to remove negotiation without lifecycle")
		}
		return nil, fmt.Errorf("initialize lifecycle: %w", err)
	}

	s.logger.Info().
		Str("negotiationId", n.ID).
		Str("creator", n.CreatorID).
		Int("resources", len(n.ResourceIDs)).
		Msg("negotiation created")

	if s.notifier != nil {
		if err := s.notifier.NotifyAdmins(ctx, n); err != nil {
			s.logger.Warn().Err(err).Str("negotiationId", n.ID).Msg("failed to notify admins")
		}
	}
	return n, nil
}

// Get returns the negotiation or an error wrapping domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*domain.Negotiation, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, domain.NotFoundf("negotiation %s", id)
	}
	return n, nil
}

// GetFor is Get restricted to negotiations the viewer may see.
func (s *Service) GetFor(ctx context.Context, viewer *user.User, id string) (*domain.Negotiation, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !IsAuthorized(n, viewer) {
		return nil, ErrForbidden
	}
	return n, nil
}

// List narrows the filter to what the viewer may see: researchers see
// their own negotiations, representatives those involving their resources.
func (s *Service) List(ctx context.Context, viewer *user.User, filter domain.Filter, limit, offset int) ([]*domain.Negotiation, error) {
	if viewer == nil {
		return nil, ErrForbidden
	}
	switch viewer.Role {
	case user.RoleAdmin:
	case user.RoleResearcher:
		id := viewer.UserID.String()
		filter.CreatorID = &id
	case user.RoleRepresentative:
		if len(viewer.Resources) == 0 {
			return []*domain.Negotiation{}, nil
		}
		filter.ResourceIDs = intersect(filter.ResourceIDs, viewer.Resources)
		if len(filter.ResourceIDs) == 0 {
			return []*domain.Negotiation{}, nil
		}
	default:
		return nil, ErrForbidden
	}
	return s.repo.List(ctx, filter, limit, offset)
}

// AttachResources adds resources to a negotiation and seeds the new ones
// when the negotiation already accepts resource events. It returns the
// updated negotiation and the seeded resource ids.
func (s *Service) AttachResources(ctx context.Context, id string, resourceIDs []string) (*domain.Negotiation, []string, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if n.State.IsTerminal() {
		return nil, nil, fmt.Errorf("%w: negotiation is %s", domain.ErrInvalidTransition, n.State)
	}
	added := n.AddResources(resourceIDs)
	if len(added) == 0 {
		return n, []string{}, nil
	}
	if err := s.repo.AttachResources(ctx, id, added, time.Now().UTC()); err != nil {
		return nil, nil, fmt.Errorf("attach resources: %w", err)
	}
	seeded, err := s.lifecycle.SeedResources(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("seed resources: %w", err)
	}
	s.logger.Info().
		Str("negotiationId", id).
		Strs("added", added).
		Strs("seeded", seeded).
		Msg("resources attached")
	return n, seeded, nil
}

func (s *Service) SetPostsEnabled(ctx context.Context, id string, enabled bool) (*domain.Negotiation, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetPostsEnabled(ctx, id, enabled, time.Now().UTC()); err != nil {
		return nil, err
	}
	n.PostsEnabled = enabled
	return n, nil
}

// ListPosts returns the posts of a negotiation visible to the viewer.
// Representatives only see posts that are negotiation-wide or about a
// resource they represent.
func (s *Service) ListPosts(ctx context.Context, viewer *user.User, id string) ([]*domain.Post, error) {
	n, err := s.GetFor(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByNegotiation(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	if viewer.Role != user.RoleRepresentative {
		return posts, nil
	}
	out := make([]*domain.Post, 0, len(posts))
	for _, p := range posts {
		if p.ResourceID == nil || viewer.Represents(*p.ResourceID) {
			out = append(out, p)
		}
	}
	return out, nil
}

// IsAuthorized reports whether u may see n: admins, the creator, and
// representatives of any attached resource.
func IsAuthorized(n *domain.Negotiation, u *user.User) bool {
	if n == nil || u == nil || !u.IsActive() {
		return false
	}
	switch {
	case u.Role == user.RoleAdmin:
		return true
	case n.CreatorID == u.UserID.String():
		return true
	case u.Role == user.RoleRepresentative:
		return u.RepresentsAny(n.ResourceIDs)
	}
	return false
}

// IsAuthorized is the method form used by handlers.
func (s *Service) IsAuthorized(n *domain.Negotiation, u *user.User) bool {
	return IsAuthorized(n, u)
}

// ResolveRole decides which role u acts in on the negotiation, or on one of
// its resources when resourceID is set. Admin wins over creator, creator
// over representative.
func (s *Service) ResolveRole(ctx context.Context, u *user.User, negotiationID, resourceID string) (user.Role, error) {
	n, err := s.Get(ctx, negotiationID)
	if err != nil {
		return "", err
	}
	return ResolveRole(n, u, resourceID)
}

// ResolveRole is the pure form of Service.ResolveRole.
func ResolveRole(n *domain.Negotiation, u *user.User, resourceID string) (user.Role, error) {
	if !IsAuthorized(n, u) {
		return "", ErrForbidden
	}
	if resourceID != "" && !n.HasResource(resourceID) {
		return "", domain.NotFoundf("resource %s in negotiation %s", resourceID, n.ID)
	}
	switch {
	case u.Role == user.RoleAdmin:
		return user.RoleAdmin, nil
	case n.CreatorID == u.UserID.String():
		return user.RoleResearcher, nil
	case resourceID == "" && u.RepresentsAny(n.ResourceIDs):
		return user.RoleRepresentative, nil
	case resourceID != "" && u.Represents(resourceID):
		return user.RoleRepresentative, nil
	}
	return "", ErrForbidden
}

func intersect(requested, allowed []string) []string {
	if len(requested) == 0 {
		return append([]string{}, allowed...)
	}
	set := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	out := []string{}
	for _, id := range requested {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
