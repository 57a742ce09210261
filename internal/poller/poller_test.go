package poller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/core/internal/eventqueue"
	"github.com/agentcore/core/internal/scheduler"
	"github.com/agentcore/core/internal/tools"
	"github.com/agentcore/core/pkg/models"
)

func TestPollerDrainsMultiStepCompletionsOntoQueue(t *testing.T) {
	reg := tools.New()
	require.NoError(t, reg.Register(models.ToolDescriptor{Name: "job", MultiStep: true}, tools.Invocation{
		MultiStep: func(ctx context.Context, args json.RawMessage, out chan<- json.RawMessage) error {
			out <- json.RawMessage(`{"step":1}`)
			time.Sleep(5 * time.Millisecond)
			out <- json.RawMessage(`{"step":2}`)
			return nil
		},
	}))

	handler := scheduler.NewHandler(reg, scheduler.DefaultConfig())
	queue := eventqueue.New(nil)

	handler.Request(context.Background(), "c1", "job", json.RawMessage(`{}`))
	// Drain (discard) the UI half so the fan-out goroutine's first write
	// doesn't block forever, mirroring what the Completion Runner does.
	ui, ok := handler.ResolveLastCall()
	require.True(t, ok)
	go func() { <-ui }()

	cfg := Config{IdleInterval: 5 * time.Millisecond, ActiveInterval: time.Millisecond}
	p := Start(context.Background(), handler, queue, cfg)
	defer p.Stop()

	deadline := time.After(time.Second)
	for {
		if queue.Len() >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for completions on the queue")
		case <-time.After(5 * time.Millisecond):
		}
	}

	events := queue.AdvanceFrontendEvents()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventSyncUpdate, events[0].Kind)
	assert.Equal(t, models.EventAsyncUpdate, events[1].Kind)
}

func TestPollerStopEndsLoop(t *testing.T) {
	reg := tools.New()
	handler := scheduler.NewHandler(reg, scheduler.DefaultConfig())
	queue := eventqueue.New(nil)

	p := Start(context.Background(), handler, queue, Config{IdleInterval: time.Millisecond, ActiveInterval: time.Millisecond})
	p.Stop()

	select {
	case <-p.done:
	default:
		t.Fatal("expected poller loop to have exited after Stop")
	}
}
