package eventqueue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/core/internal/observability"
	"github.com/agentcore/core/pkg/models"
)

func TestExactlyOnceDeliveryFrontend(t *testing.T) {
	q := New(nil)
	q.PushNotice("A")
	q.PushNotice("B")
	q.PushNotice("C")

	first := q.AdvanceFrontendEvents()
	require.Len(t, first, 3)

	q.PushNotice("D")
	second := q.AdvanceFrontendEvents()
	require.Len(t, second, 1)
	assert.Equal(t, "D", second[0].Notice.Text)

	third := q.AdvanceFrontendEvents()
	assert.Empty(t, third)
}

func TestLLMFilterAdvancesPastFilteredEvents(t *testing.T) {
	q := New(nil)
	q.PushNotice("ui only")
	q.PushToolUpdate(models.ToolCompletion{CallID: "c1", ToolName: "echo", Sync: true, Value: json.RawMessage(`{"ok":true}`)})
	q.PushInlineDisplay("confirm", nil)
	q.PushError("boom")

	llmEvents := q.AdvanceLLMEvents()
	require.Len(t, llmEvents, 2)
	assert.Equal(t, models.EventSyncUpdate, llmEvents[0].Kind)
	assert.Equal(t, models.EventSystemError, llmEvents[1].Kind)

	assert.False(t, q.HasLLMEvents())
	assert.True(t, q.HasFrontendEvents())
}

func TestCountersNeverExceedLength(t *testing.T) {
	q := New(nil)
	for i := 0; i < 5; i++ {
		q.PushNotice("x")
	}
	q.AdvanceFrontendEvents()
	q.AdvanceLLMEvents()
	assert.LessOrEqual(t, q.frontCnt, q.Len())
	assert.LessOrEqual(t, q.llmCnt, q.Len())
}

func TestSyncVsAsyncUpdateKind(t *testing.T) {
	q := New(nil)
	q.PushToolUpdate(models.ToolCompletion{CallID: "c1", Sync: true})
	q.PushToolUpdate(models.ToolCompletion{CallID: "c1", Sync: false})

	events := q.AdvanceFrontendEvents()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventSyncUpdate, events[0].Kind)
	assert.Equal(t, models.EventAsyncUpdate, events[1].Kind)
}

func TestNewWithRecorderMirrorsPushesToEventStore(t *testing.T) {
	store := observability.NewMemoryEventStore(0)
	q := NewWithRecorder(nil, "sess-1", store)

	q.PushNotice("hello")
	q.PushError("boom")

	events, err := store.GetBySessionID("sess-1")
	require.NoError(t, err)
	require.Len(t, events, 2)

	var names []string
	for _, e := range events {
		assert.Equal(t, "sess-1", e.SessionID)
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{string(models.EventSystemNotice), string(models.EventSystemError)}, names)
}
