package negotiation

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository,PostRepository

import (
	"context"
	"time"
)

// Filter controls negotiation listing.
type Filter struct {
	State     *State
	CreatorID *string
	// ResourceIDs matches negotiations with at least one of the resources.
	ResourceIDs []string
}

// Repository defines persistence for negotiations. GetByID returns nil, nil
// for unknown ids.
type Repository interface {
	Create(ctx context.Context, n *Negotiation) error
	GetByID(ctx context.Context, id string) (*Negotiation, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Negotiation, error)
	UpdateState(ctx context.Context, id string, state State, at time.Time) error
	AttachResources(ctx context.Context, id string, resourceIDs []string, at time.Time) error
	SetPostsEnabled(ctx context.Context, id string, enabled bool, at time.Time) error
	// Delete removes a negotiation that never got a ledger entry. Unknown ids
	// are not an error.
	Delete(ctx context.Context, id string) error
}

// PostRepository defines persistence for posts.
type PostRepository interface {
	Create(ctx context.Context, post *Post) error
	ListByNegotiation(ctx context.Context, negotiationID string) ([]*Post, error)
}
