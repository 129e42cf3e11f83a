package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

type authContextKey string

const (
	authUserKey authContextKey = "authUser"
)

// AuthUser represents the authenticated user in context.
type AuthUser struct {
	UserID    uuid.UUID
	Username  string
	Role      user.Role
	Resources []string
	SessionID uuid.UUID
}

func (u AuthUser) ActorString() string {
	return "user:" + u.Username
}

// ActorID is the identity recorded on lifecycle entries and posts.
func (u AuthUser) ActorID() string {
	return u.UserID.String()
}

// Account rebuilds the domain user the negotiation service decides on.
// Sessions only exist for active users.
func (u AuthUser) Account() *user.User {
	return &user.User{
		UserID:    u.UserID,
		Username:  u.Username,
		Role:      u.Role,
		Resources: append([]string{}, u.Resources...),
		Status:    user.StatusActive,
	}
}

func withAuthUser(ctx context.Context, u *AuthUser) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, authUserKey, u)
}

func authUserFromContext(ctx context.Context) *AuthUser {
	val := ctx.Value(authUserKey)
	if v, ok := val.(*AuthUser); ok {
		return v
	}
	return nil
}
