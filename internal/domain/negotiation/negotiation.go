package negotiation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Negotiation is the aggregate connecting a requester to resources. State is
// a cache of the latest negotiation-level ledger entry.
type Negotiation struct {
	ID           string          `json:"id"`
	CreatorID    string          `json:"creatorId"`
	State        State           `json:"state"`
	ResourceIDs  []string        `json:"resourceIds"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	PostsEnabled bool            `json:"postsEnabled"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// New creates a negotiation in the initial state.
func New(creatorID string, payload json.RawMessage, resourceIDs []string) *Negotiation {
	now := time.Now().UTC()
	n := &Negotiation{
		ID:          uuid.New().String(),
		CreatorID:   creatorID,
		State:       InitialState,
		ResourceIDs: []string{},
		Payload:     payload,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	n.AddResources(resourceIDs)
	return n
}

// HasResource reports whether resourceID is attached.
func (n *Negotiation) HasResource(resourceID string) bool {
	for _, r := range n.ResourceIDs {
		if r == resourceID {
			return true
		}
	}
	return false
}

// AddResources attaches resources and returns the ones that were not attached yet.
func (n *Negotiation) AddResources(resourceIDs []string) []string {
	added := []string{}
	for _, id := range resourceIDs {
		if id == "" || n.HasResource(id) {
			continue
		}
		n.ResourceIDs = append(n.ResourceIDs, id)
		added = append(added, id)
	}
	return added
}

// Title reads project.title from the payload, if present.
func (n *Negotiation) Title() string {
	if len(n.Payload) == 0 {
		return ""
	}
	var p struct {
		Project struct {
			Title string `json:"title"`
		} `json:"project"`
	}
	if err := json.Unmarshal(n.Payload, &p); err != nil {
		return ""
	}
	return p.Project.Title
}

// Visibility controls who can read a post.
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

// Post is a message attached to a negotiation, optionally about one resource.
type Post struct {
	ID            uuid.UUID  `json:"id"`
	NegotiationID string     `json:"negotiationId"`
	ResourceID    *string    `json:"resourceId,omitempty"`
	AuthorID      string     `json:"authorId"`
	Body          string     `json:"body"`
	Visibility    Visibility `json:"visibility"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// NewPost creates a public post.
func NewPost(negotiationID string, resourceID *string, authorID, body string) *Post {
	return &Post{
		ID:            uuid.New(),
		NegotiationID: negotiationID,
		ResourceID:    resourceID,
		AuthorID:      authorID,
		Body:          body,
		Visibility:    VisibilityPublic,
		CreatedAt:     time.Now().UTC(),
	}
}
