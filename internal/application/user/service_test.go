package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domain "github.com/negotiation-hub/negotiation-hub/internal/domain/user"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/user/mocks"
)

func TestCreateRepresentativeStoresResources(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	var created *domain.User
	repo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, u *domain.User) error {
		created = u
		return nil
	})
	repo.EXPECT().SetResources(ctx, gomock.Any(), []string{"biobank:1", "biobank:2"}).Return(nil)

	u, err := svc.CreateUser(ctx, CreateInput{
		Username:  " Rep.One ",
		Password:  "Correct-Horse-42",
		Role:      domain.RoleRepresentative,
		Resources: []string{"biobank:1", "biobank:2", "biobank:1", ""},
	})
	require.NoError(t, err)
	assert.Same(t, created, u)
	assert.Equal(t, "rep.one", u.Username)
	assert.Equal(t, domain.StatusActive, u.Status)
	assert.True(t, u.Represents("biobank:2"))
	assert.True(t, domain.VerifyPassword(u.PasswordHash, "Correct-Horse-42"))
}

func TestCreateUserValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	cases := map[string]CreateInput{
		"bad username":              {Username: "x", Password: "Correct-Horse-42", Role: domain.RoleAdmin},
		"weak password":             {Username: "alice", Password: "short", Role: domain.RoleAdmin},
		"unknown role":              {Username: "alice", Password: "Correct-Horse-42", Role: "OWNER"},
		"researcher with resources": {Username: "alice", Password: "Correct-Horse-42", Role: domain.RoleResearcher, Resources: []string{"r1"}},
		"unknown status":            {Username: "alice", Password: "Correct-Horse-42", Role: domain.RoleAdmin, Status: "GONE"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, input)
			assert.Error(t, err)
		})
	}
}

func TestSetResources(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	repID := uuid.New()
	researcherID := uuid.New()
	repo.EXPECT().GetByID(ctx, repID).Return(&domain.User{UserID: repID, Role: domain.RoleRepresentative}, nil)
	repo.EXPECT().SetResources(ctx, repID, []string{"r1"}).Return(nil)
	repo.EXPECT().GetByID(ctx, researcherID).Return(&domain.User{UserID: researcherID, Role: domain.RoleResearcher}, nil)

	u, err := svc.SetResources(ctx, repID, []string{"r1", "r1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, u.Resources)

	_, err = svc.SetResources(ctx, researcherID, []string{"r1"})
	assert.Error(t, err)
}

func TestUpdateUnknownUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	id := uuid.New()
	repo.EXPECT().GetByID(ctx, id).Return(nil, nil)
	status := domain.StatusDisabled
	_, err := svc.UpdateUser(ctx, id, UpdateInput{Status: &status})
	assert.ErrorContains(t, err, "user not found")
}
