package notification

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotification(t *testing.T) {
	payload := json.RawMessage(`{"toState":"IN_PROGRESS"}`)

	n := NewNotification("neg-1", KindNegotiationStatus, "Negotiation approved", "Your negotiation was approved.", payload)

	require.NotNil(t, n)
	assert.NotEqual(t, uuid.Nil, n.NotificationID)
	assert.Equal(t, "neg-1", n.NegotiationID)
	assert.Equal(t, KindNegotiationStatus, n.Kind)
	assert.Equal(t, ChannelSSE, n.Channel)
	assert.Equal(t, StatusPending, n.Status)
	assert.Equal(t, payload, n.Payload)
	assert.False(t, n.CreatedAt.IsZero())
	assert.Nil(t, n.RecipientID)
	assert.Nil(t, n.RecipientGroup)
}

func TestNotification_Targets(t *testing.T) {
	t.Run("user", func(t *testing.T) {
		n := NewNotification("neg-1", KindNegotiationStatus, "t", "b", nil).ForUser("u1")
		require.NotNil(t, n.RecipientID)
		assert.Equal(t, "u1", *n.RecipientID)
		assert.Nil(t, n.RecipientGroup)
	})

	t.Run("group replaces user", func(t *testing.T) {
		n := NewNotification("neg-1", KindNegotiationCreated, "t", "b", nil).ForUser("u1").ForGroup(AdminGroup)
		require.NotNil(t, n.RecipientGroup)
		assert.Equal(t, AdminGroup, *n.RecipientGroup)
		assert.Nil(t, n.RecipientID)
	})

	t.Run("dedupe key", func(t *testing.T) {
		n := NewNotification("neg-1", KindNegotiationStatus, "t", "b", nil).WithDedupeKey("transition:7")
		require.NotNil(t, n.DedupeKey)
		assert.Equal(t, "transition:7", *n.DedupeKey)
	})
}

func TestNotification_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusSent, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusRead, false},
		{StatusSent, StatusRead, true},
		{StatusSent, StatusFailed, false},
		{StatusFailed, StatusSent, true},
		{StatusRead, StatusSent, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			n := &Notification{Status: tt.from}
			assert.Equal(t, tt.want, n.CanTransitionTo(tt.to))
		})
	}
}

func TestNotification_Lifecycle(t *testing.T) {
	n := NewNotification("neg-1", KindResourceStatus, "t", "b", nil)
	now := time.Now().UTC()

	assert.ErrorIs(t, n.MarkRead(now), ErrInvalidTransition)

	require.NoError(t, n.MarkFailed("no subscriber"))
	assert.Equal(t, StatusFailed, n.Status)
	require.NotNil(t, n.LastError)

	require.NoError(t, n.MarkSent(now))
	assert.Equal(t, StatusSent, n.Status)
	assert.Nil(t, n.LastError)
	assert.Equal(t, now, *n.SentAt)

	require.NoError(t, n.MarkRead(now.Add(time.Minute)))
	assert.Equal(t, StatusRead, n.Status)
	assert.ErrorIs(t, n.MarkSent(now), ErrInvalidTransition)
}

func TestSSEClient(t *testing.T) {
	userID := "u1"
	client := NewSSEClient("client-1", &userID, []string{AdminGroup})
	assert.Equal(t, "client-1", client.ClientID)
	assert.Equal(t, 100, cap(client.MessageChan))

	client.Close()
	_, ok := <-client.MessageChan
	assert.False(t, ok)
}

func TestNewSSEMessage(t *testing.T) {
	data := json.RawMessage(`{"ok":true}`)
	msg := NewSSEMessage(SSEEventNotification, data)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, SSEEventNotification, msg.Event)
	assert.Equal(t, data, msg.Data)
}
