// Package completion implements the Completion Runner (C5): the
// turn-driving state machine that streams one LLM turn, dispatches tool
// calls through the Scheduler, reconciles tool completions observed on
// the Event Queue back into chat history, and emits the command stream a
// Session State consumes.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentcore/core/internal/eventqueue"
	"github.com/agentcore/core/internal/llmprovider"
	retry "github.com/agentcore/core/internal/retrypolicy"
	"github.com/agentcore/core/internal/scheduler"
	"github.com/agentcore/core/pkg/models"
)

// Phase identifies the Completion Runner's current state within one
// turn, mirroring loop.go's AgenticLoop state machine.
type Phase string

const (
	PhaseInit         Phase = "init"
	PhaseStream       Phase = "stream"
	PhaseExecuteTools Phase = "execute_tools"
	PhaseFinalize     Phase = "finalize"
	PhaseComplete     Phase = "complete"
	PhaseInterrupted  Phase = "interrupted"
)

// ErrNoProvider indicates no LLM provider is configured.
var ErrNoProvider = errors.New("no provider configured")

// RunError wraps a turn failure with the phase it occurred in.
type RunError struct {
	Phase Phase
	Cause error
}

func (e *RunError) Error() string { return fmt.Sprintf("completion runner: %s: %v", e.Phase, e.Cause) }
func (e *RunError) Unwrap() error { return e.Cause }

// MaxResponseTextSize bounds the accumulated assistant text of a single
// turn (1MB).
const MaxResponseTextSize = 1 << 20

// MaxToolCallsPerTurn bounds the number of tool calls the LLM may issue
// in a single turn.
const MaxToolCallsPerTurn = 100

// commandBufferSize is the default buffer depth for a turn's command
// channel.
const commandBufferSize = 10

// Config bounds a Runner's resource usage and retry behavior.
type Config struct {
	MaxTokens int
	// LLMRetry governs retries of the provider's Complete call for
	// transient transport failures, independent of any failover the
	// provider itself performs (internal/llmprovider.Orchestrator).
	LLMRetry retry.Config
	// Pruning controls how much of History is trimmed before it is
	// composed into the provider request. The zero value disables
	// pruning (every call is a no-op against an empty PruningSettings,
	// since KeepLastAssistants <= 0 and the char-window check below
	// never fires for a zero CharWindow).
	Pruning PruningSettings
	// CharWindow bounds composeMessages' character budget for pruning
	// purposes. Zero disables pruning regardless of Pruning.
	CharWindow int
}

// charsPerToken is the rough estimate used to derive a character budget
// from MaxTokens when a caller configures pruning without setting
// CharWindow explicitly.
const charsPerToken = 4

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	maxTokens := 4096
	return Config{
		MaxTokens:  maxTokens,
		LLMRetry:   retry.Exponential(3, time.Second, 30*time.Second),
		Pruning:    DefaultPruningSettings(),
		CharWindow: maxTokens * charsPerToken,
	}
}

// Command is one unit the Completion Runner streams out; a Session
// State consumes these to update ChatState and forward chunks to the
// front end.
type Command struct {
	StreamingText string
	ToolCallID    models.CallID
	ToolName      string
	// HasResult distinguishes a tool-dispatch announcement (ToolCallID
	// set, HasResult false — the call was just observed) from a sync
	// completion (HasResult true — ResultValue/ResultIsError carry the
	// tool's first observed result, to be rendered as a tool-role
	// message in history).
	HasResult     bool
	ResultValue   string
	ResultIsError bool
	Complete      bool
	// HasFollowUp is set alongside Complete when the session queued a
	// follow-up message (internal/completion.SteeringQueue.FollowUp)
	// while this turn was running; the caller is expected to start a
	// new turn to consume it.
	HasFollowUp bool
	Interrupted bool
	Err         error
}

// Runner drives one turn of the agentic conversation: compose input,
// stream the LLM, dispatch tool calls, and reconcile completions.
type Runner struct {
	provider llmprovider.Provider
	cfg      Config

	defaultModel  string
	defaultSystem string
}

// New constructs a Runner bound to provider. If cfg is the zero value,
// DefaultConfig is used.
func New(provider llmprovider.Provider, cfg Config) *Runner {
	if cfg.MaxTokens <= 0 {
		cfg = DefaultConfig()
	}
	return &Runner{provider: provider, cfg: cfg}
}

// SetDefaultModel sets the model used when a turn does not override it.
func (r *Runner) SetDefaultModel(model string) { r.defaultModel = model }

// SetDefaultSystem sets the system prompt used when a turn does not
// override it.
func (r *Runner) SetDefaultSystem(system string) { r.defaultSystem = system }

// Turn holds everything one call to Run needs: the chat history seen so
// far, the new input, the session's scheduler handler and event queue,
// and an interrupt signal checked at every suspension point.
type Turn struct {
	History   []models.ChatMessage
	Input     string
	Tools     []models.ToolDescriptor
	Handler   *scheduler.Handler
	Queue     *eventqueue.Queue
	Interrupt <-chan struct{}
	// Steering, when set, lets a session inject mid-turn steering
	// messages or queue follow-up turns. Nil disables both.
	Steering *SteeringQueue
}

// Run executes one turn and streams Commands through the returned
// channel, which is closed once the turn reaches PhaseComplete or
// PhaseInterrupted. The 7-step algorithm:
//
//  1. compose LLM input from history + new input
//  2. stream text deltas from the provider, collecting tool calls
//  3. dispatch each observed tool call via Handler.Request +
//     Handler.ResolveLastCall as soon as it is fully observed, so a
//     multi-step tool's first (sync) chunk lands before the LLM stream
//     ends
//  4. poll ongoing streams and push completions onto the event queue
//  5. once the LLM stream ends, resolve any calls the stream loop did
//     not reach (defensive; ResolveLastCall already drains per-call)
//  6. run the finalization loop: repeatedly call AdvanceLLMEvents and
//     reconcile SyncUpdate/AsyncUpdate/SystemError into history until no
//     unresolved tool call remains outstanding
//  7. emit Complete, Interrupted, or Error
func (r *Runner) Run(ctx context.Context, turn Turn) (<-chan Command, error) {
	if r.provider == nil {
		return nil, ErrNoProvider
	}
	if turn.Handler == nil || turn.Queue == nil {
		return nil, errors.New("turn requires a scheduler handler and event queue")
	}

	out := make(chan Command, commandBufferSize)

	go func() {
		defer close(out)
		r.run(ctx, turn, out)
	}()

	return out, nil
}

func (r *Runner) run(ctx context.Context, turn Turn, out chan<- Command) {
	phase := PhaseInit
	if interrupted(turn.Interrupt) {
		out <- Command{Interrupted: true}
		return
	}

	history := turn.History
	if r.cfg.CharWindow > 0 {
		history = PruneHistory(history, r.cfg.Pruning, r.cfg.CharWindow)
	}
	messages := composeMessages(history, turn.Input)

	phase = PhaseStream
	if err := r.streamPhase(ctx, turn, messages, out); err != nil {
		out <- Command{Err: &RunError{Phase: phase, Cause: err}}
		return
	}

	if interrupted(turn.Interrupt) {
		out <- Command{Interrupted: true}
		return
	}

	phase = PhaseExecuteTools
	// Drain any call the stream loop observed but did not resolve
	// (defensive: streamPhase resolves each call as soon as it sees the
	// next content block begin, so this normally no-ops).
	for range turn.Handler.ResolveCalls() {
	}

	phase = PhaseFinalize
	r.finalize(ctx, turn, out)

	if interrupted(turn.Interrupt) {
		out <- Command{Interrupted: true}
		return
	}

	phase = PhaseComplete
	hasFollowUp := turn.Steering != nil && turn.Steering.HasFollowUps()
	out <- Command{Complete: true, HasFollowUp: hasFollowUp}
}

func interrupted(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// composeMessages builds the provider-facing message list from history
// plus the new user input. A blank Input (e.g. a turn resumed purely to
// drain async tool output) contributes no additional message.
func composeMessages(history []models.ChatMessage, input string) []llmprovider.CompletionMessage {
	out := make([]llmprovider.CompletionMessage, 0, len(history)+1)
	for _, m := range history {
		out = append(out, llmprovider.CompletionMessage{Role: m.Sender, Content: m.Content})
	}
	if input != "" {
		out = append(out, llmprovider.CompletionMessage{Role: models.RoleUser, Content: input})
	}
	return out
}

// streamPhase calls the provider, forwarding text chunks to out and
// dispatching each tool call through the scheduler as soon as it is
// fully observed (its input is only complete once the stream moves past
// it, mirroring the teacher's accumulate-then-dispatch ordering but
// advancing dispatch to call boundaries so a fast multi-step tool's
// first sync chunk can land before the turn's LLM stream finishes).
func (r *Runner) streamPhase(ctx context.Context, turn Turn, messages []llmprovider.CompletionMessage, out chan<- Command) error {
	req := llmprovider.CompletionRequest{
		Model:     r.defaultModel,
		System:    r.defaultSystem,
		Messages:  messages,
		Tools:     turn.Tools,
		MaxTokens: r.cfg.MaxTokens,
	}

	stream, result := retry.DoWithValue(ctx, r.cfg.LLMRetry, func() (<-chan llmprovider.CompletionChunk, error) {
		return r.provider.Complete(ctx, req)
	})
	if result.Err != nil {
		return fmt.Errorf("llm completion failed: %w", result.Err)
	}

	var textSize, toolCalls int

	for chunk := range stream {
		if chunk.Err != nil {
			return chunk.Err
		}
		if chunk.Text != "" {
			textSize += len(chunk.Text)
			if textSize > MaxResponseTextSize {
				return fmt.Errorf("response text exceeds maximum size of %d bytes", MaxResponseTextSize)
			}
			out <- Command{StreamingText: chunk.Text}
		}
		if chunk.ToolCall != nil {
			if toolCalls >= MaxToolCallsPerTurn {
				return fmt.Errorf("tool calls exceed maximum of %d per turn", MaxToolCallsPerTurn)
			}
			toolCalls++
			tc := chunk.ToolCall
			turn.Handler.Request(ctx, tc.ID, tc.Name, tc.Input)
			if ui, ok := turn.Handler.ResolveLastCall(); ok {
				r.drainUIStream(tc.ID, tc.Name, ui, out)
			}

			if turn.Steering != nil {
				if skip := deliverSteering(turn.Steering, out); skip {
					return nil
				}
			}
		}

		turn.Handler.PollStreamsOnce()
		for _, c := range turn.Handler.TakeCompletedCalls() {
			turn.Queue.PushToolUpdate(c)
		}
	}

	return nil
}

// deliverSteering renders any queued steering messages as turn output
// and reports whether the batch should skip dispatching further tool
// calls this turn.
func deliverSteering(queue *SteeringQueue, out chan<- Command) bool {
	skip := false
	for _, s := range queue.TakeSteering() {
		out <- Command{StreamingText: s.Content}
		if s.SkipRemainingTools {
			skip = true
		}
	}
	return skip
}

// drainUIStream consumes the UI half of one call's fan-out: it exists
// solely so the fan-out goroutine's write does not block forever, and so
// the turn can announce the call as dispatched. It must never itself
// push a ToolCompletion — PollStreamsOnce/TakeCompletedCalls on the
// background half is the sole producer of queue completions (invariant
// 2: exactly one sync:true completion per call), and the UI and BG
// halves observe the same first chunk independently.
func (r *Runner) drainUIStream(callID models.CallID, toolName string, ui <-chan scheduler.Result, out chan<- Command) {
	out <- Command{ToolCallID: callID, ToolName: toolName}
	<-ui
}

// finalize runs the reconciliation loop: drain whatever the event queue
// has accumulated for the LLM cursor, translate each SyncUpdate,
// AsyncUpdate, and SystemError into a Command, and keep polling ongoing
// background streams until none remain and the queue is dry.
func (r *Runner) finalize(ctx context.Context, turn Turn, out chan<- Command) {
	for {
		for _, ev := range turn.Queue.AdvanceLLMEvents() {
			r.emitReconciled(ev, out)
		}

		if !turn.Handler.HasOngoingStreams() {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-turn.Interrupt:
			return
		case <-time.After(10 * time.Millisecond):
		}

		turn.Handler.PollStreamsOnce()
		for _, c := range turn.Handler.TakeCompletedCalls() {
			turn.Queue.PushToolUpdate(c)
		}
	}
}

func (r *Runner) emitReconciled(ev models.SystemEvent, out chan<- Command) {
	switch ev.Kind {
	case models.EventSyncUpdate:
		if ev.Tool != nil {
			out <- Command{
				ToolCallID:    ev.Tool.CallID,
				ToolName:      ev.Tool.ToolName,
				HasResult:     true,
				ResultValue:   string(ev.Tool.Result),
				ResultIsError: ev.Tool.IsError,
			}
		}
	case models.EventAsyncUpdate:
		if ev.Tool != nil {
			out <- Command{StreamingText: renderAsyncUpdate(*ev.Tool)}
		}
	case models.EventSystemError:
		if ev.Error != nil {
			out <- Command{Err: errors.New(ev.Error.Text)}
		}
	}
}

// renderAsyncUpdate renders a multi-step tool's later completion as the
// LLM-visible [[systems]] hint block.
func renderAsyncUpdate(payload models.ToolUpdatePayload) string {
	var b strings.Builder
	b.WriteString("[[systems]]\n")
	fmt.Fprintf(&b, "tool_call_id: %s\n", payload.CallID)
	fmt.Fprintf(&b, "tool: %s\n", payload.ToolName)
	b.WriteString("sync: false\n")
	fmt.Fprintf(&b, "result: %s\n", string(payload.Result))
	b.WriteString("[[/systems]]\n")
	return b.String()
}
