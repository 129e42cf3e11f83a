package session

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository stores sessions by token hash.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	Touch(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	Revoke(ctx context.Context, sessionID uuid.UUID) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	// RevokeUser ends every session of userID and returns how many there were.
	RevokeUser(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
