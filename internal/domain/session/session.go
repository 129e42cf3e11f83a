// Package session holds sign-in sessions and the access each was granted.
package session

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

// Grant is the access a user had when the session was opened. Lifecycle
// roles derive from it, so a session is only valid while the user still
// holds the same grant.
type Grant struct {
	Role      user.Role `json:"role"`
	Resources []string  `json:"resources,omitempty"`
}

// GrantOf snapshots the role and represented resources of u.
func GrantOf(u *user.User) Grant {
	g := Grant{Role: u.Role}
	if len(u.Resources) > 0 {
		g.Resources = slices.Clone(u.Resources)
		slices.Sort(g.Resources)
		g.Resources = slices.Compact(g.Resources)
	}
	return g
}

// Covers reports whether u still holds exactly this grant.
func (g Grant) Covers(u *user.User) bool {
	cur := GrantOf(u)
	return g.Role == cur.Role && slices.Equal(g.Resources, cur.Resources)
}

// Session is one signed-in client. Only the token hash is stored.
type Session struct {
	ID         int64      `json:"id"`
	SessionID  uuid.UUID  `json:"sessionId"`
	TokenHash  string     `json:"-"`
	UserID     uuid.UUID  `json:"userId"`
	Grant      Grant      `json:"grant"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
	UserAgent  *string    `json:"userAgent,omitempty"`
	IPAddress  *string    `json:"ipAddress,omitempty"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
