package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

// NegotiationRepository implements negotiation.Repository.
type NegotiationRepository struct {
	mu    sync.RWMutex
	items map[string]*negotiation.Negotiation
}

func NewNegotiationRepository() *NegotiationRepository {
	return &NegotiationRepository{items: make(map[string]*negotiation.Negotiation)}
}

func (r *NegotiationRepository) Create(ctx context.Context, n *negotiation.Negotiation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[n.ID]; exists {
		return fmt.Errorf("negotiation %s already exists", n.ID)
	}
	r.items[n.ID] = cloneNegotiation(n)
	return nil
}

func (r *NegotiationRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *NegotiationRepository) GetByID(ctx context.Context, id string) (*negotiation.Negotiation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return cloneNegotiation(n), nil
}

func (r *NegotiationRepository) List(ctx context.Context, filter negotiation.Filter, limit, offset int) ([]*negotiation.Negotiation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*negotiation.Negotiation
	for _, n := range r.items {
		if filter.State != nil && n.State != *filter.State {
			continue
		}
		if filter.CreatorID != nil && n.CreatorID != *filter.CreatorID {
			continue
		}
		if len(filter.ResourceIDs) > 0 && !hasAny(n, filter.ResourceIDs) {
			continue
		}
		out = append(out, cloneNegotiation(n))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []*negotiation.Negotiation{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *NegotiationRepository) UpdateState(ctx context.Context, id string, state negotiation.State, at time.Time) error {
	return r.mutate(id, func(n *negotiation.Negotiation) {
		n.State = state
		n.UpdatedAt = at
	})
}

func (r *NegotiationRepository) AttachResources(ctx context.Context, id string, resourceIDs []string, at time.Time) error {
	return r.mutate(id, func(n *negotiation.Negotiation) {
		if len(n.AddResources(resourceIDs)) > 0 {
			n.UpdatedAt = at
		}
	})
}

func (r *NegotiationRepository) SetPostsEnabled(ctx context.Context, id string, enabled bool, at time.Time) error {
	return r.mutate(id, func(n *negotiation.Negotiation) {
		n.PostsEnabled = enabled
		n.UpdatedAt = at
	})
}

func (r *NegotiationRepository) mutate(id string, fn func(n *negotiation.Negotiation)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return negotiation.NotFoundf("negotiation %s", id)
	}
	fn(n)
	return nil
}

func hasAny(n *negotiation.Negotiation, resourceIDs []string) bool {
	for _, id := range resourceIDs {
		if n.HasResource(id) {
			return true
		}
	}
	return false
}

func cloneNegotiation(n *negotiation.Negotiation) *negotiation.Negotiation {
	c := *n
	c.ResourceIDs = append([]string{}, n.ResourceIDs...)
	if n.Payload != nil {
		c.Payload = append([]byte{}, n.Payload...)
	}
	return &c
}

// PostRepository implements negotiation.PostRepository.
type PostRepository struct {
	mu    sync.RWMutex
	posts []*negotiation.Post
}

func NewPostRepository() *PostRepository {
	return &PostRepository{}
}

func (r *PostRepository) Create(ctx context.Context, post *negotiation.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *post
	r.posts = append(r.posts, &c)
	return nil
}

func (r *PostRepository) ListByNegotiation(ctx context.Context, negotiationID string) ([]*negotiation.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*negotiation.Post{}
	for _, p := range r.posts {
		if p.NegotiationID == negotiationID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}
