package completion

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/core/internal/llmprovider"
	"github.com/agentcore/core/internal/tools"
	"github.com/agentcore/core/pkg/models"
)

func TestSteeringQueueDrainsOnce(t *testing.T) {
	q := NewSteeringQueue()
	q.Steer(SteeringMessage{Content: "stop that"})
	q.Steer(SteeringMessage{Content: "and do this instead", SkipRemainingTools: true})

	assert.True(t, q.HasPending())

	msgs := q.TakeSteering()
	require.Len(t, msgs, 2)
	assert.Equal(t, "stop that", msgs[0].Content)
	assert.True(t, msgs[1].SkipRemainingTools)

	assert.Empty(t, q.TakeSteering(), "second drain must be empty")
}

func TestSteeringQueueFollowUps(t *testing.T) {
	q := NewSteeringQueue()
	assert.False(t, q.HasFollowUps())

	q.FollowUp(FollowUpMessage{Content: "one more thing"})
	assert.True(t, q.HasFollowUps())

	out := q.TakeFollowUps()
	require.Len(t, out, 1)
	assert.Equal(t, "one more thing", out[0].Content)
	assert.False(t, q.HasFollowUps())
}

func TestRunSteeringSkipsRemainingToolsInBatch(t *testing.T) {
	turn, reg := newTurn(t)

	var secondCalled bool
	require.NoError(t, reg.Register(models.ToolDescriptor{Name: "first"}, tools.Invocation{
		Single: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{}`), nil
		},
	}))
	require.NoError(t, reg.Register(models.ToolDescriptor{Name: "second"}, tools.Invocation{
		Single: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			secondCalled = true
			return json.RawMessage(`{}`), nil
		},
	}))

	queue := NewSteeringQueue()
	turn.Steering = queue

	provider := &scriptedProvider{chunks: []llmprovider.CompletionChunk{
		{ToolCall: &models.ToolCall{ID: "c1", Name: "first", Input: json.RawMessage(`{}`)}},
		// Steering arrives between the two tool calls from the runner's
		// perspective: queued before Run starts, consumed right after
		// the first call is dispatched.
		{ToolCall: &models.ToolCall{ID: "c2", Name: "second", Input: json.RawMessage(`{}`)}},
		{Done: true},
	}}
	queue.Steer(SteeringMessage{Content: "change of plans", SkipRemainingTools: true})

	r := New(provider, DefaultConfig())
	ch, err := r.Run(context.Background(), turn)
	require.NoError(t, err)

	cmds := drain(t, ch, time.Second)

	var sawSteeringText, sawSecondCall bool
	for _, c := range cmds {
		if c.StreamingText == "change of plans" {
			sawSteeringText = true
		}
		if c.ToolCallID == "c2" {
			sawSecondCall = true
		}
	}
	assert.True(t, sawSteeringText)
	assert.False(t, sawSecondCall, "steering with SkipRemainingTools must stop the batch before the second call")
	assert.False(t, secondCalled)
}
