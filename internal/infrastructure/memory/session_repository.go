package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/session"
)

// SessionRepository implements session.Repository, indexed by token hash
// and by user.
type SessionRepository struct {
	mu      sync.Mutex
	nextID  int64
	byToken map[string]*session.Session
	byUser  map[uuid.UUID]map[string]struct{}
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		byToken: make(map[string]*session.Session),
		byUser:  make(map[uuid.UUID]map[string]struct{}),
	}
}

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	r.byToken[s.TokenHash] = cloneSession(s)
	tokens, ok := r.byUser[s.UserID]
	if !ok {
		tokens = make(map[string]struct{})
		r.byUser[s.UserID] = tokens
	}
	tokens[s.TokenHash] = struct{}{}
	return nil
}

func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byToken[tokenHash]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (r *SessionRepository) Touch(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.find(sessionID); s != nil {
		s.LastSeenAt = &at
	}
	return nil
}

func (r *SessionRepository) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.find(sessionID); s != nil {
		r.drop(s)
	}
	return nil
}

func (r *SessionRepository) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byToken[tokenHash]; ok {
		r.drop(s)
	}
	return nil
}

func (r *SessionRepository) RevokeUser(ctx context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tokens := r.byUser[userID]
	for hash := range tokens {
		delete(r.byToken, hash)
	}
	delete(r.byUser, userID)
	return len(tokens), nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for _, s := range r.byToken {
		if s.IsExpired(now) {
			r.drop(s)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live sessions.
func (r *SessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byToken)
}

func (r *SessionRepository) find(sessionID uuid.UUID) *session.Session {
	for _, s := range r.byToken {
		if s.SessionID == sessionID {
			return s
		}
	}
	return nil
}

// drop must be called with mu held.
func (r *SessionRepository) drop(s *session.Session) {
	delete(r.byToken, s.TokenHash)
	if tokens, ok := r.byUser[s.UserID]; ok {
		delete(tokens, s.TokenHash)
		if len(tokens) == 0 {
			delete(r.byUser, s.UserID)
		}
	}
}

func cloneSession(s *session.Session) *session.Session {
	c := *s
	c.Grant.Resources = slices.Clone(s.Grant.Resources)
	if s.LastSeenAt != nil {
		t := *s.LastSeenAt
		c.LastSeenAt = &t
	}
	return &c
}
