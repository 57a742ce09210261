package historybackend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/core/pkg/models"
)

func TestMemoryBackendRoundTrip(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	require.NoError(t, b.SaveMessage(ctx, "sess-1", models.ChatMessage{Sender: models.RoleUser, Content: "hi"}))
	require.NoError(t, b.SaveMessage(ctx, "sess-1", models.ChatMessage{Sender: models.RoleAssistant, Content: "hello"}))
	require.NoError(t, b.SaveTitle(ctx, "sess-1", "Greeting", false))

	hist, err := b.LoadHistory(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "Greeting", hist.Session.Title)
	assert.False(t, hist.Session.UserTitled)
}

func TestMemoryBackendRejectsStreamingMessage(t *testing.T) {
	b := NewMemoryBackend()
	err := b.SaveMessage(context.Background(), "sess-1", models.ChatMessage{Streaming: true})
	require.Error(t, err)
}

func TestMemoryBackendTrimsOldMessages(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	for i := 0; i < maxMessagesPerSession+10; i++ {
		require.NoError(t, b.SaveMessage(ctx, "sess-1", models.ChatMessage{Sender: models.RoleUser, Content: "x"}))
	}
	hist, err := b.LoadHistory(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, hist.Messages, maxMessagesPerSession)
}

func TestNopBackendIsNoop(t *testing.T) {
	var b NopBackend
	ctx := context.Background()

	hist, err := b.LoadHistory(ctx, "anything")
	require.NoError(t, err)
	assert.Empty(t, hist.Messages)

	require.NoError(t, b.SaveMessage(ctx, "sess-1", models.ChatMessage{Content: "x"}))
	require.NoError(t, b.SaveTitle(ctx, "sess-1", "t", true))
}
