package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appNegotiation "github.com/negotiation-hub/negotiation-hub/internal/application/negotiation"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", negotiation.NotFoundf("negotiation %s", "n1"), http.StatusNotFound, "NOT_FOUND"},
		{"no such event", &negotiation.TransitionError{Scope: "negotiation", Kind: negotiation.ErrNoSuchEvent}, http.StatusConflict, "NOT_APPLICABLE"},
		{"role", &negotiation.TransitionError{Scope: "negotiation", Role: user.RoleResearcher, Kind: negotiation.ErrRoleNotAllowed}, http.StatusForbidden, "NOT_ALLOWED"},
		{"guard", &negotiation.TransitionError{Scope: "negotiation", Kind: negotiation.ErrGuardRejected}, http.StatusUnprocessableEntity, "PRECONDITION_FAILED"},
		{"conflict", fmt.Errorf("append: %w", negotiation.ErrConflict), http.StatusConflict, "CONFLICT"},
		{"initialized", negotiation.ErrAlreadyInitialized, http.StatusConflict, "ALREADY_INITIALIZED"},
		{"forbidden", appNegotiation.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"invalid input", fmt.Errorf("%w: bad payload", appNegotiation.ErrInvalidInput), http.StatusBadRequest, "INVALID_PARAM"},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondServiceError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestListenerWarnings(t *testing.T) {
	warnings, ok := listenerWarnings(nil)
	assert.False(t, ok)
	assert.Nil(t, warnings)

	_, ok = listenerWarnings(negotiation.ErrConflict)
	assert.False(t, ok)

	err := &negotiation.ListenerError{Failures: []negotiation.ListenerFailure{
		{Listener: "post", Err: errors.New("posts table locked")},
		{Listener: "state-cache", Err: errors.New("timeout")},
	}}
	warnings, ok = listenerWarnings(fmt.Errorf("submit: %w", err))
	require.True(t, ok)
	assert.Equal(t, []string{"post: posts table locked", "state-cache: timeout"}, warnings)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u2"), "keys have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("u1"), "a token refills after a second")

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.Allow("u1"))
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, rl.Sweep(), "only u2 has been idle past the window")
	assert.Equal(t, 0, rl.Sweep())
}
