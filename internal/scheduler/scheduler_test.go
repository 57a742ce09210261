package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/core/internal/tools"
	"github.com/agentcore/core/pkg/models"
)

func newTestHandler(t *testing.T) (*Handler, *tools.Registry) {
	t.Helper()
	reg := tools.New()
	return NewHandler(reg, DefaultConfig()), reg
}

func TestSingleStepToolSyncCompletion(t *testing.T) {
	h, reg := newTestHandler(t)
	require.NoError(t, reg.Register(models.ToolDescriptor{Name: "echo"}, tools.Invocation{
		Single: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			return args, nil
		},
	}))

	h.Request(context.Background(), "c1", "echo", json.RawMessage(`{"text":"hi"}`))
	ui, ok := h.ResolveLastCall()
	require.True(t, ok)

	r := <-ui
	assert.JSONEq(t, `{"text":"hi"}`, string(r.Value))

	// Let the background stream also observe it.
	require.Eventually(t, func() bool {
		h.PollStreamsOnce()
		return len(h.TakeCompletedCalls()) >= 0
	}, time.Second, 5*time.Millisecond)
}

func TestUnknownToolYieldsSyncError(t *testing.T) {
	h, _ := newTestHandler(t)
	h.Request(context.Background(), "c1", "nonexistent", json.RawMessage(`{}`))
	ui, ok := h.ResolveLastCall()
	require.True(t, ok)

	r := <-ui
	assert.Equal(t, "unknown tool: nonexistent", r.Err)
}

func TestMultiStepProgressExactlyOneSyncRestAsync(t *testing.T) {
	h, reg := newTestHandler(t)
	require.NoError(t, reg.Register(models.ToolDescriptor{Name: "process_job", MultiStep: true}, tools.Invocation{
		MultiStep: func(ctx context.Context, args json.RawMessage, out chan<- json.RawMessage) error {
			out <- json.RawMessage(`{"step":1}`)
			out <- json.RawMessage(`{"step":2}`)
			out <- json.RawMessage(`{"step":3,"finished":true}`)
			return nil
		},
	}))

	h.Request(context.Background(), "c1", "process_job", json.RawMessage(`{}`))
	ui, ok := h.ResolveLastCall()
	require.True(t, ok)

	first := <-ui
	assert.JSONEq(t, `{"step":1}`, string(first.Value))
	_, open := <-ui
	assert.False(t, open, "UI stream must be length 1 for a multi-step call")

	var completions []models.ToolCompletion
	require.Eventually(t, func() bool {
		h.PollStreamsOnce()
		completions = append(completions, h.TakeCompletedCalls()...)
		return len(completions) >= 3
	}, time.Second, 5*time.Millisecond)

	require.Len(t, completions, 3)
	assert.True(t, completions[0].Sync)
	assert.False(t, completions[1].Sync)
	assert.False(t, completions[2].Sync)
}

func TestMultiStepEmptyResultYieldsErr(t *testing.T) {
	h, reg := newTestHandler(t)
	require.NoError(t, reg.Register(models.ToolDescriptor{Name: "noop", MultiStep: true}, tools.Invocation{
		MultiStep: func(ctx context.Context, args json.RawMessage, out chan<- json.RawMessage) error {
			return nil
		},
	}))

	h.Request(context.Background(), "c1", "noop", json.RawMessage(`{}`))
	ui, ok := h.ResolveLastCall()
	require.True(t, ok)

	r := <-ui
	assert.Equal(t, "empty result", r.Err)
}

func TestFanOutFirstChunkEquality(t *testing.T) {
	src := make(chan Result, 4)
	src <- Result{Value: json.RawMessage(`{"step":1}`)}
	src <- Result{Value: json.RawMessage(`{"step":2}`)}
	close(src)

	ui, bg := Split(true, src)
	uiFirst := <-ui
	bgFirst := <-bg
	assert.Equal(t, string(uiFirst.Value), string(bgFirst.Value))

	_, open := <-ui
	assert.False(t, open)

	bgSecond := <-bg
	assert.JSONEq(t, `{"step":2}`, string(bgSecond.Value))
}
