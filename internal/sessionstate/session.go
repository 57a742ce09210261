// Package sessionstate implements the Session State (C6): a per-session
// bundle holding chat history, the session's Event Queue and Scheduler
// Handler, and the channels that bridge user input, the Completion
// Runner's command stream, and frontend synchronization.
package sessionstate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/agentcore/core/internal/completion"
	"github.com/agentcore/core/internal/eventqueue"
	"github.com/agentcore/core/internal/observability"
	"github.com/agentcore/core/internal/poller"
	"github.com/agentcore/core/internal/scheduler"
	"github.com/agentcore/core/internal/tools"
	"github.com/agentcore/core/pkg/models"
)

// State is the high-level lifecycle position of a Session, independent
// of the Completion Runner's internal Phase.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateStreaming  State = "streaming"
	StateToolCall   State = "tool_call"
	StateComplete   State = "complete"
	StateError      State = "error"
)

// Config bounds a Session's channel capacities, mirroring the option
// table in spec.md §6.
type Config struct {
	InputChannelCapacity   int
	CommandChannelCapacity int
	InterruptBuffer        int
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		InputChannelCapacity:   8,
		CommandChannelCapacity: 100,
		InterruptBuffer:        1,
	}
}

// ChatState is the non-mutating snapshot SyncState returns: the history
// so far, whether a turn is currently in flight, and the system events
// staged for the frontend since the previous call.
type ChatState struct {
	Messages     []models.ChatMessage
	IsProcessing bool
	SystemEvents []models.SystemEvent
}

// Session is the live, in-memory bundle a Session Manager owns one of
// per conversation. All mutation of history/state goes through its
// methods; mu guards everything except the Handler and Queue, which are
// independently thread-safe and must never be touched while mu is held
// across a blocking call.
type Session struct {
	ID        models.SessionID
	Namespace models.Namespace

	cfg Config

	runner   *completion.Runner
	registry *tools.Registry
	handler  *scheduler.Handler
	queue    *eventqueue.Queue
	metrics  *observability.Metrics

	mu           sync.Mutex
	history      []models.ChatMessage
	state        State
	isProcessing bool
	lastErr      error

	inputCh     chan string
	commandCh   chan completion.Command
	interruptCh chan struct{}
	steering    *completion.SteeringQueue

	cancelProcessing context.CancelFunc
	done             chan struct{}
}

// New constructs a Session bound to runner and registry, using handler
// and queue as its per-session Scheduler Handler and Event Queue
// (typically built from a backend.Backend's NewHandler/NewEventQueue so
// every session's wiring, including any instrumentation a backend
// attaches, goes through the same path). If cfg is the zero value,
// DefaultConfig is used. The returned Session owns no goroutines until
// StartProcessing is called.
func New(id models.SessionID, ns models.Namespace, runner *completion.Runner, registry *tools.Registry, handler *scheduler.Handler, queue *eventqueue.Queue, metrics *observability.Metrics, cfg Config) *Session {
	if cfg.InputChannelCapacity <= 0 && cfg.CommandChannelCapacity <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.InterruptBuffer <= 0 {
		cfg.InterruptBuffer = 1
	}
	if handler == nil {
		handler = scheduler.NewHandler(registry, scheduler.DefaultConfig())
	}
	if queue == nil {
		queue = eventqueue.New(metrics)
	}

	return &Session{
		ID:          id,
		Namespace:   ns,
		cfg:         cfg,
		runner:      runner,
		registry:    registry,
		handler:     handler,
		queue:       queue,
		metrics:     metrics,
		state:       StateIdle,
		inputCh:     make(chan string, max(cfg.InputChannelCapacity, 1)),
		commandCh:   make(chan completion.Command, max(cfg.CommandChannelCapacity, 1)),
		interruptCh: make(chan struct{}, cfg.InterruptBuffer),
		steering:    completion.NewSteeringQueue(),
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// History returns a defensive copy of the session's current history.
func (s *Session) History() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Handler exposes the session's scheduler handler for a Background
// Poller to drain between turns.
func (s *Session) Handler() *scheduler.Handler { return s.handler }

// Queue exposes the session's event queue.
func (s *Session) Queue() *eventqueue.Queue { return s.queue }

// SendUserInput appends a user message to history, enqueues text for
// the Completion Runner, and marks the session processing. Non-blocking
// up to the configured input channel capacity; returns an error if the
// channel is full (the caller should surface backpressure rather than
// silently drop a user's message).
func (s *Session) SendUserInput(text string) error {
	s.mu.Lock()
	s.appendHistory(models.ChatMessage{
		SessionID: s.ID,
		Sender:    models.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})
	s.isProcessing = true
	s.setState(StateProcessing)
	s.mu.Unlock()

	select {
	case s.inputCh <- text:
		return nil
	default:
		return errors.New("sessionstate: input channel full")
	}
}

// SendUIEvent pushes a frontend-triggered notice directly onto the
// event queue, bypassing the LLM-visible filter entirely (it is never
// observed by AdvanceLLMEvents unless its kind is LLM-visible).
func (s *Session) SendUIEvent(kind models.SystemEventKind, build func(*models.SystemEvent)) int {
	return s.queue.Push(kind, build)
}

// SendSystemPrompt appends a system message to history without waking
// the Completion Runner.
func (s *Session) SendSystemPrompt(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendHistory(models.ChatMessage{
		SessionID: s.ID,
		Sender:    models.RoleSystem,
		Content:   text,
		Timestamp: time.Now(),
	})
}

// Steer injects a mid-turn steering message for the running Completion
// Runner, if any, to observe at its next tool-dispatch boundary.
func (s *Session) Steer(msg completion.SteeringMessage) {
	s.steering.Steer(msg)
}

// FollowUp queues a message to run as the session's next turn once the
// current one completes.
func (s *Session) FollowUp(msg completion.FollowUpMessage) {
	s.steering.FollowUp(msg)
}

// Interrupt fires the one-shot interrupt signal observed by the running
// Completion Runner and transitions the session directly to Idle.
func (s *Session) Interrupt() {
	select {
	case s.interruptCh <- struct{}{}:
	default:
	}
	if s.cancelProcessing != nil {
		s.cancelProcessing()
	}
	s.mu.Lock()
	s.isProcessing = false
	s.setState(StateIdle)
	s.mu.Unlock()
}

// StartProcessing spawns the Completion Runner loop bound to the
// session's input channel, handler, and event queue. Its output feeds
// commandCh, drained by SyncState. Safe to call once per session
// lifetime; a second call is a no-op.
func (s *Session) StartProcessing(ctx context.Context, toolDescriptors []models.ToolDescriptor) {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return
	}
	s.done = make(chan struct{})
	procCtx, cancel := context.WithCancel(ctx)
	s.cancelProcessing = cancel
	s.mu.Unlock()

	go s.processLoop(procCtx, toolDescriptors)
}

func (s *Session) processLoop(ctx context.Context, toolDescriptors []models.ToolDescriptor) {
	defer close(s.done)

	for {
		var input string
		select {
		case <-ctx.Done():
			return
		case input = <-s.inputCh:
		}

		s.mu.Lock()
		history := append([]models.ChatMessage(nil), s.history...)
		s.setState(StateStreaming)
		s.mu.Unlock()

		turn := completion.Turn{
			History:   history,
			Input:     input,
			Tools:     toolDescriptors,
			Handler:   s.handler,
			Queue:     s.queue,
			Interrupt: s.interruptCh,
			Steering:  s.steering,
		}

		cmds, err := s.runner.Run(ctx, turn)
		if err != nil {
			s.mu.Lock()
			s.lastErr = err
			s.isProcessing = false
			s.setState(StateError)
			s.mu.Unlock()
			continue
		}

		for cmd := range cmds {
			select {
			case s.commandCh <- cmd:
			case <-ctx.Done():
				return
			}
			if cmd.ToolCallID != "" {
				s.mu.Lock()
				s.setState(StateToolCall)
				s.mu.Unlock()
			}
		}

		s.mu.Lock()
		s.isProcessing = false
		s.setState(StateIdle)
		s.mu.Unlock()

		if follow := s.steering.TakeFollowUps(); len(follow) > 0 {
			for _, f := range follow {
				_ = s.SendUserInput(f.Content)
			}
		}
	}
}

// setState must be called with mu held.
func (s *Session) setState(st State) { s.state = st }

// SyncState drains pending Completion Runner commands, reconciles them
// into history, stages the frontend-visible system events accumulated
// since the previous call, and returns a snapshot. Non-mutating apart
// from advancing the event queue's frontend cursor and history
// reconciliation.
func (s *Session) SyncState() ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()

	drain := true
	for drain {
		select {
		case cmd := <-s.commandCh:
			s.reconcile(cmd)
		default:
			drain = false
		}
	}

	return ChatState{
		Messages:     append([]models.ChatMessage(nil), s.history...),
		IsProcessing: s.isProcessing,
		SystemEvents: s.queue.AdvanceFrontendEvents(),
	}
}

// reconcile applies one Command to history. Must be called with mu
// held.
func (s *Session) reconcile(cmd completion.Command) {
	switch {
	case cmd.Err != nil:
		s.lastErr = cmd.Err
		s.appendHistory(models.ChatMessage{
			SessionID: s.ID,
			Sender:    models.RoleSystem,
			Content:   cmd.Err.Error(),
			Timestamp: time.Now(),
		})
	case cmd.HasResult:
		s.appendHistory(models.ChatMessage{
			SessionID:  s.ID,
			Sender:     models.RoleTool,
			ToolCallID: cmd.ToolCallID,
			ToolName:   cmd.ToolName,
			Content:    cmd.ResultValue,
			Timestamp:  time.Now(),
		})
	case cmd.ToolCallID != "":
		s.appendHistory(models.ChatMessage{
			SessionID:  s.ID,
			Sender:     models.RoleAssistant,
			ToolCallID: cmd.ToolCallID,
			ToolName:   cmd.ToolName,
			Timestamp:  time.Now(),
		})
	case cmd.StreamingText != "":
		s.appendStreamingText(cmd.StreamingText)
	case cmd.Interrupted:
		s.isProcessing = false
		s.setState(StateIdle)
	case cmd.Complete:
		s.finalizeStreaming()
		s.isProcessing = false
		s.setState(StateComplete)
	}
}

// appendHistory appends msg, stamping Timestamp if unset. Must be
// called with mu held.
func (s *Session) appendHistory(msg models.ChatMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.history = append(s.history, msg)
}

// appendStreamingText accumulates chunk into the last assistant
// message if one is mid-stream, or starts a new streaming assistant
// message otherwise. Must be called with mu held.
func (s *Session) appendStreamingText(chunk string) {
	if n := len(s.history); n > 0 {
		last := &s.history[n-1]
		if last.Sender == models.RoleAssistant && last.Streaming {
			last.Content += chunk
			return
		}
	}
	s.appendHistory(models.ChatMessage{
		SessionID: s.ID,
		Sender:    models.RoleAssistant,
		Content:   chunk,
		Streaming: true,
	})
}

// finalizeStreaming clears the Streaming flag on the last assistant
// message, if any, so it becomes eligible for persistence. Must be
// called with mu held.
func (s *Session) finalizeStreaming() {
	if n := len(s.history); n > 0 && s.history[n-1].Streaming {
		s.history[n-1].Streaming = false
	}
}

// StartPollingTools spawns the Background Poller (internal/poller)
// bound to this session's Handler and Queue. A Session Manager calls it
// once at session creation, alongside StartProcessing. The poller
// outlives any single turn: it keeps draining a multi-step tool's
// ongoing stream even between turns, since the Completion Runner only
// polls while a turn is actively running.
func (s *Session) StartPollingTools(ctx context.Context, cfg poller.Config) *poller.Poller {
	return poller.Start(ctx, s.handler, s.queue, cfg)
}

// LoadHistory seeds history from a HistoryBackend load, repairing any
// unpaired tool calls left by a crash mid-turn before accepting it.
func (s *Session) LoadHistory(messages []models.ChatMessage) {
	repaired, _ := RepairHistory(messages)
	s.mu.Lock()
	s.history = repaired
	s.mu.Unlock()
}
