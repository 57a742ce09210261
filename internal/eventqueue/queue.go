// Package eventqueue implements the System Event Queue (C4): a
// per-session append-only log of models.SystemEvent with two
// independent monotonic consumer cursors.
package eventqueue

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentcore/core/internal/observability"
	"github.com/agentcore/core/pkg/models"
)

// Queue is a session's event log. All state is guarded by one mutex;
// the mutex is never held across a channel send or I/O call.
type Queue struct {
	mu       sync.Mutex
	events   []models.SystemEvent
	frontCnt int
	llmCnt   int

	metrics   *observability.Metrics
	store     observability.EventStore
	sessionID string
}

// New returns an empty Queue. metrics may be nil to disable
// instrumentation (e.g. in unit tests).
func New(metrics *observability.Metrics) *Queue {
	return &Queue{metrics: metrics}
}

// NewWithRecorder returns an empty Queue that also mirrors every pushed
// event into store under sessionID, for post-hoc debugging and replay
// of a session's run. store may be nil to disable recording.
func NewWithRecorder(metrics *observability.Metrics, sessionID string, store observability.EventStore) *Queue {
	return &Queue{metrics: metrics, store: store, sessionID: sessionID}
}

// Push appends event, assigning it the next index, and returns that
// index. O(1).
func (q *Queue) Push(kind models.SystemEventKind, build func(*models.SystemEvent)) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	ev := models.SystemEvent{Index: len(q.events), Kind: kind, Time: time.Now()}
	if build != nil {
		build(&ev)
	}
	q.events = append(q.events, ev)

	if q.metrics != nil {
		frontLag := len(q.events) - q.frontCnt
		llmLag := len(q.events) - q.llmCnt
		q.metrics.RecordEventPushed(string(kind), frontLag, llmLag)
	}
	if q.store != nil {
		_ = q.store.Record(&observability.Event{
			ID:        uuid.NewString(),
			Type:      observability.EventTypeCustom,
			Timestamp: ev.Time,
			SessionID: q.sessionID,
			Name:      string(kind),
			Data:      map[string]interface{}{"index": ev.Index},
		})
	}
	return ev.Index
}

// PushToolUpdate wraps completion as a SyncUpdate (completion.Sync) or
// AsyncUpdate event, per the Scheduler's sync-flag semantics.
func (q *Queue) PushToolUpdate(completion models.ToolCompletion) int {
	kind := models.EventAsyncUpdate
	if completion.Sync {
		kind = models.EventSyncUpdate
	}
	return q.Push(kind, func(ev *models.SystemEvent) {
		ev.Tool = &models.ToolUpdatePayload{
			CallID:   completion.CallID,
			ToolName: completion.ToolName,
			Result:   completion.AsJSON(),
			IsError:  completion.IsError(),
		}
	})
}

// PushInlineDisplay appends a frontend-only confirmation/prompt event.
func (q *Queue) PushInlineDisplay(kind string, payload map[string]any) int {
	return q.Push(models.EventInlineDisplay, func(ev *models.SystemEvent) {
		ev.Display = &models.InlineDisplayPayload{Kind: kind, Payload: payload}
	})
}

// PushNotice appends a frontend-only informational banner.
func (q *Queue) PushNotice(text string) int {
	return q.Push(models.EventSystemNotice, func(ev *models.SystemEvent) {
		ev.Notice = &models.TextPayload{Text: text}
	})
}

// PushError appends a hard error, visible to both consumers.
func (q *Queue) PushError(text string) int {
	return q.Push(models.EventSystemError, func(ev *models.SystemEvent) {
		ev.Error = &models.TextPayload{Text: text}
	})
}

// AdvanceFrontendEvents returns every event since the last call and
// advances the frontend cursor past all of them. The frontend sees the
// full log, unfiltered.
func (q *Queue) AdvanceFrontendEvents() []models.SystemEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.frontCnt >= len(q.events) {
		return nil
	}
	out := append([]models.SystemEvent(nil), q.events[q.frontCnt:]...)
	q.frontCnt = len(q.events)
	return out
}

// AdvanceLLMEvents returns the events since the last call filtered to
// {SyncUpdate, AsyncUpdate, SystemError}, advancing the LLM cursor past
// every inspected element regardless of whether it passed the filter
// (invariant 7).
func (q *Queue) AdvanceLLMEvents() []models.SystemEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.llmCnt >= len(q.events) {
		return nil
	}
	var out []models.SystemEvent
	for _, ev := range q.events[q.llmCnt:] {
		if models.LLMVisibleKinds[ev.Kind] {
			out = append(out, ev)
		}
	}
	q.llmCnt = len(q.events)
	return out
}

// HasFrontendEvents reports whether AdvanceFrontendEvents would return
// at least one event right now.
func (q *Queue) HasFrontendEvents() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.frontCnt < len(q.events)
}

// HasLLMEvents reports whether any unread event (regardless of filter
// outcome) remains for the LLM cursor.
func (q *Queue) HasLLMEvents() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.llmCnt < len(q.events)
}

// Len returns the total number of events ever pushed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
