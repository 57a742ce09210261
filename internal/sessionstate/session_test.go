package sessionstate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/core/internal/completion"
	"github.com/agentcore/core/internal/llmprovider"
	"github.com/agentcore/core/internal/tools"
	"github.com/agentcore/core/pkg/models"
)

// scriptedProvider replays a fixed sequence of chunks regardless of the
// request, mirroring internal/completion's test double.
type scriptedProvider struct {
	chunks []llmprovider.CompletionChunk
}

func (p *scriptedProvider) Name() string               { return "scripted" }
func (p *scriptedProvider) Models() []llmprovider.Model { return nil }
func (p *scriptedProvider) SupportsTools() bool         { return true }
func (p *scriptedProvider) Complete(ctx context.Context, req llmprovider.CompletionRequest) (<-chan llmprovider.CompletionChunk, error) {
	ch := make(chan llmprovider.CompletionChunk, len(p.chunks))
	for _, c := range p.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func newSession(t *testing.T, chunks []llmprovider.CompletionChunk) *Session {
	t.Helper()
	reg := tools.New()
	runner := completion.New(&scriptedProvider{chunks: chunks}, completion.DefaultConfig())
	return New("sess-1", models.NamespaceDefault, runner, reg, nil, nil, nil, DefaultConfig())
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met before timeout")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestSendUserInputMarksProcessingAndAppendsHistory(t *testing.T) {
	s := newSession(t, []llmprovider.CompletionChunk{
		{Text: "hi there"},
		{Done: true},
	})

	require.NoError(t, s.SendUserInput("hello"))

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, models.RoleUser, history[0].Sender)
	assert.Equal(t, "hello", history[0].Content)
}

func TestStartProcessingStreamsIntoHistoryViaSyncState(t *testing.T) {
	s := newSession(t, []llmprovider.CompletionChunk{
		{Text: "hi "},
		{Text: "there"},
		{Done: true},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.StartProcessing(ctx, nil)
	require.NoError(t, s.SendUserInput("hello"))

	waitUntil(t, time.Second, func() bool {
		st := s.SyncState()
		return !st.IsProcessing
	})

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, "hi there", history[1].Content)
	assert.False(t, history[1].Streaming)
}

func TestInterruptTransitionsToIdle(t *testing.T) {
	s := newSession(t, []llmprovider.CompletionChunk{{Text: "hi"}, {Done: true}})
	s.mu.Lock()
	s.isProcessing = true
	s.setState(StateStreaming)
	s.mu.Unlock()

	s.Interrupt()

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.False(t, s.isProcessing)
	assert.Equal(t, StateIdle, s.state)
}

func TestSendUIEventIsStagedForFrontendOnly(t *testing.T) {
	s := newSession(t, nil)
	s.SendUIEvent(models.EventSystemNotice, func(ev *models.SystemEvent) {
		ev.Notice = &models.TextPayload{Text: "hi"}
	})

	st := s.SyncState()
	require.Len(t, st.SystemEvents, 1)
	assert.Equal(t, models.EventSystemNotice, st.SystemEvents[0].Kind)

	assert.Empty(t, s.SyncState().SystemEvents, "second sync must not re-stage the same event")
}

func TestStartProcessingReconcilesToolCallAndResult(t *testing.T) {
	reg := tools.New()
	require.NoError(t, reg.Register(models.ToolDescriptor{Name: "echo"}, tools.Invocation{
		Single: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			return args, nil
		},
	}))
	runner := completion.New(&scriptedProvider{chunks: []llmprovider.CompletionChunk{
		{ToolCall: &models.ToolCall{ID: "c1", Name: "echo", Input: json.RawMessage(`{"x":1}`)}},
		{Done: true},
	}}, completion.DefaultConfig())
	s := New("sess-1", models.NamespaceDefault, runner, reg, nil, nil, nil, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartProcessing(ctx, nil)
	require.NoError(t, s.SendUserInput("run echo"))

	waitUntil(t, time.Second, func() bool {
		return !s.SyncState().IsProcessing
	})

	history := s.History()
	var sawCallPlaceholder, sawResult bool
	for _, m := range history {
		if m.Sender == models.RoleAssistant && m.ToolCallID == "c1" {
			sawCallPlaceholder = true
		}
		if m.Sender == models.RoleTool && m.ToolCallID == "c1" {
			sawResult = true
			assert.Equal(t, `{"x":1}`, m.Content)
		}
	}
	assert.True(t, sawCallPlaceholder)
	assert.True(t, sawResult)
}

func TestLoadHistoryRepairsDanglingToolCall(t *testing.T) {
	s := newSession(t, nil)
	s.LoadHistory([]models.ChatMessage{
		{Sender: models.RoleAssistant, ToolCallID: "c1", ToolName: "search"},
	})

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleTool, history[1].Sender)
}
