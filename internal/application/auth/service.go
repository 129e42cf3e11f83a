package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainSession "github.com/negotiation-hub/negotiation-hub/internal/domain/session"
	domainUser "github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

var (
	ErrBadCredentials = errors.New("invalid username or password")
	ErrUserDisabled   = errors.New("user is disabled")
	ErrMissingToken   = errors.New("missing token")
	ErrUnknownSession = errors.New("session not found")
	ErrSessionExpired = errors.New("session expired")
	ErrUserInactive   = errors.New("user not active")
	// ErrGrantChanged means the user's role or represented resources changed
	// after sign-in. The session is revoked and the user must sign in again.
	ErrGrantChanged = errors.New("access changed, sign in again")
)

// Service signs users in and resolves session tokens. Each session carries
// the role and resources the user had at sign-in; a token stops working as
// soon as they change.
type Service struct {
	users    domainUser.Repository
	sessions domainSession.Repository
	ttl      time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

func NewService(users domainUser.Repository, sessions domainSession.Repository, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("service", "auth").Logger(),
	}
}

// LoginResult holds the plain token, which is never stored.
type LoginResult struct {
	User    *domainUser.User
	Session *domainSession.Session
	Token   string
}

func (s *Service) Login(ctx context.Context, username, password string, userAgent, ipAddress *string) (*LoginResult, error) {
	u, err := s.users.GetByUsername(ctx, domainUser.NormalizeUsername(username))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrBadCredentials
	}
	if !u.IsActive() {
		return nil, ErrUserDisabled
	}
	if !domainUser.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &domainSession.Session{
		SessionID:  uuid.New(),
		TokenHash:  hashToken(token),
		UserID:     u.UserID,
		Grant:      domainSession.GrantOf(u),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
		LastSeenAt: &now,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", u.UserID.String()).
		Str("role", string(sess.Grant.Role)).
		Strs("resources", sess.Grant.Resources).
		Msg("signed in")
	return &LoginResult{User: u, Session: sess, Token: token}, nil
}

// Authenticate resolves token to its user and session.
func (s *Service) Authenticate(ctx context.Context, token string) (*domainUser.User, *domainSession.Session, error) {
	if token == "" {
		return nil, nil, ErrMissingToken
	}
	sess, err := s.sessions.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, ErrUnknownSession
	}
	now := s.now()
	if sess.IsExpired(now) {
		_ = s.sessions.Revoke(ctx, sess.SessionID)
		return nil, nil, ErrSessionExpired
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, nil, err
	}
	if u == nil || !u.IsActive() {
		return nil, nil, ErrUserInactive
	}
	if !sess.Grant.Covers(u) {
		_ = s.sessions.Revoke(ctx, sess.SessionID)
		s.logger.Info().
			Str("user_id", u.UserID.String()).
			Str("session_id", sess.SessionID.String()).
			Msg("session revoked after access change")
		return nil, nil, ErrGrantChanged
	}
	_ = s.sessions.Touch(ctx, sess.SessionID, now)
	return u, sess, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.RevokeByTokenHash(ctx, hashToken(token))
}

// RevokeUser signs userID out everywhere. Admin handlers call it after
// changing a user's role, status or represented resources.
func (s *Service) RevokeUser(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.sessions.RevokeUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Str("user_id", userID.String()).Int("sessions", n).Msg("sessions revoked")
	}
	return n, nil
}

// PurgeExpired drops sessions past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}

// RunPurge calls PurgeExpired every interval until ctx is done. A
// non-positive interval disables it.
func (s *Service) RunPurge(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.logger.Warn().Err(err).Msg("session purge failed")
				continue
			}
			if n > 0 {
				s.logger.Debug().Int("sessions", n).Msg("expired sessions purged")
			}
		}
	}
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
