package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/audit"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/notification"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/session"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

func TestUserRepository_ListByResource(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	rep := &user.User{UserID: uuid.New(), Username: "rep", Role: user.RoleRepresentative, Status: user.StatusActive}
	other := &user.User{UserID: uuid.New(), Username: "other", Role: user.RoleRepresentative, Status: user.StatusActive}
	require.NoError(t, repo.Create(ctx, rep))
	require.NoError(t, repo.Create(ctx, other))
	require.NoError(t, repo.SetResources(ctx, rep.UserID, []string{"R1", "R2"}))
	require.NoError(t, repo.SetResources(ctx, other.UserID, []string{"R3"}))
	assert.Error(t, repo.Create(ctx, &user.User{UserID: uuid.New(), Username: "rep"}))

	r1 := "R1"
	got, err := repo.List(ctx, user.Filter{Resource: &r1}, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rep.UserID, got[0].UserID)

	rep.Email = "rep@example.org"
	require.NoError(t, repo.Update(ctx, rep))
	loaded, err := repo.GetByUsername(ctx, "rep")
	require.NoError(t, err)
	assert.Equal(t, "rep@example.org", loaded.Email)
	assert.Equal(t, []string{"R1", "R2"}, loaded.Resources, "update keeps resources")

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	now := time.Now().UTC()

	live := &session.Session{SessionID: uuid.New(), UserID: uuid.New(), TokenHash: "live", ExpiresAt: now.Add(time.Hour)}
	stale := &session.Session{SessionID: uuid.New(), UserID: live.UserID, TokenHash: "stale", ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, stale))

	removed, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, err := repo.GetByTokenHash(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NoError(t, repo.Touch(ctx, live.SessionID, now))
	got, _ = repo.GetByTokenHash(ctx, "live")
	require.NotNil(t, got.LastSeenAt)
	assert.True(t, now.Equal(*got.LastSeenAt))

	require.NoError(t, repo.Revoke(ctx, live.SessionID))
	got, _ = repo.GetByTokenHash(ctx, "live")
	assert.Nil(t, got)
	assert.Zero(t, repo.Len())
}

func TestSessionRepository_RevokeUser(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	exp := time.Now().Add(time.Hour)
	rep, other := uuid.New(), uuid.New()

	grant := session.Grant{Role: user.RoleRepresentative, Resources: []string{"R1"}}
	for _, hash := range []string{"phone", "laptop"} {
		require.NoError(t, repo.Create(ctx, &session.Session{SessionID: uuid.New(), UserID: rep, TokenHash: hash, Grant: grant, ExpiresAt: exp}))
	}
	require.NoError(t, repo.Create(ctx, &session.Session{SessionID: uuid.New(), UserID: other, TokenHash: "other", ExpiresAt: exp}))

	got, err := repo.GetByTokenHash(ctx, "phone")
	require.NoError(t, err)
	got.Grant.Resources[0] = "R9"
	again, _ := repo.GetByTokenHash(ctx, "phone")
	assert.Equal(t, []string{"R1"}, again.Grant.Resources, "stored grant is not shared")

	n, err := repo.RevokeUser(ctx, rep)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	gone, _ := repo.GetByTokenHash(ctx, "laptop")
	assert.Nil(t, gone)
	kept, _ := repo.GetByTokenHash(ctx, "other")
	assert.NotNil(t, kept)

	n, err = repo.RevokeUser(ctx, rep)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotificationRepository_RecipientOrGroup(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository()

	direct := notification.NewNotification("neg-1", notification.KindNegotiationStatus, "t", "b", nil).ForUser("u1").WithDedupeKey("k1")
	admins := notification.NewNotification("neg-2", notification.KindNegotiationCreated, "t", "b", nil).ForGroup(notification.AdminGroup)
	foreign := notification.NewNotification("neg-3", notification.KindNegotiationStatus, "t", "b", nil).ForUser("u2")
	for _, n := range []*notification.Notification{direct, admins, foreign} {
		require.NoError(t, repo.Create(ctx, n))
	}
	assert.Error(t, repo.Create(ctx, notification.NewNotification("neg-1", notification.KindNegotiationStatus, "t", "b", nil).WithDedupeKey("k1")))

	u1 := "u1"
	got, err := repo.List(ctx, notification.Filter{RecipientID: &u1, Groups: []string{notification.AdminGroup}}, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, admins.NotificationID, got[0].NotificationID, "newest first")
	assert.Equal(t, direct.NotificationID, got[1].NotificationID)

	found, err := repo.FindByDedupeKey(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, direct.NotificationID, found.NotificationID)

	at := time.Now().UTC()
	require.NoError(t, repo.UpdateStatus(ctx, direct.NotificationID, notification.StatusRead, at))
	found, _ = repo.GetByID(ctx, direct.NotificationID)
	assert.Equal(t, notification.StatusRead, found.Status)
	assert.Equal(t, at, *found.ReadAt)
}

func TestAuditRepository_QueryPages(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepository()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		l, err := audit.NewAuditLog(&audit.AuditEntry{
			EntityType: audit.EntityTypeNegotiation,
			EntityID:   "neg-1",
			Action:     audit.ActionTransition,
			Tags:       []string{"lifecycle"},
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, l))
	}

	page, next, err := repo.Query(ctx, audit.QueryFilter{Tags: []string{"lifecycle"}}, nil, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.NotNil(t, next)
	assert.Equal(t, int64(5), page[0].ID)

	page, next, err = repo.Query(ctx, audit.QueryFilter{}, next, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Nil(t, next)
	assert.Equal(t, int64(2), page[0].ID)

	history, err := repo.GetByEntityID(ctx, audit.EntityTypeNegotiation, "neg-1")
	require.NoError(t, err)
	assert.Len(t, history, 5)
}
