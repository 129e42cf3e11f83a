package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/session"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

// SessionRepository implements session.Repository. The grant is stored in
// the role and resources columns.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, session_id, token_hash, user_id, role, resources, created_at, expires_at, last_seen_at, user_agent, ip_address::text`

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	resources := s.Grant.Resources
	if resources == nil {
		resources = []string{}
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO sessions
		(session_id, token_hash, user_id, role, resources, created_at, expires_at, last_seen_at, user_agent, ip_address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, s.SessionID, s.TokenHash, s.UserID, string(s.Grant.Role), resources,
		s.CreatedAt, s.ExpiresAt, s.LastSeenAt, s.UserAgent, s.IPAddress).Scan(&s.ID)
}

func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*session.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token_hash=$1`, tokenHash)
	return scanSession(row)
}

func (r *SessionRepository) Touch(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET last_seen_at=$1 WHERE session_id=$2`, at, sessionID)
	return err
}

func (r *SessionRepository) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id=$1`, sessionID)
	return err
}

func (r *SessionRepository) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash=$1`, tokenHash)
	return err
}

func (r *SessionRepository) RevokeUser(ctx context.Context, userID uuid.UUID) (int, error) {
	res, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return int(res.RowsAffected()), nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return int(res.RowsAffected()), nil
}

func scanSession(row pgx.Row) (*session.Session, error) {
	var (
		s         session.Session
		role      string
		resources []string
	)
	err := row.Scan(&s.ID, &s.SessionID, &s.TokenHash, &s.UserID, &role, &resources,
		&s.CreatedAt, &s.ExpiresAt, &s.LastSeenAt, &s.UserAgent, &s.IPAddress)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	s.Grant = session.Grant{Role: user.Role(role)}
	if len(resources) > 0 {
		s.Grant.Resources = resources
	}
	return &s, nil
}
