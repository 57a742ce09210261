// Package scheduler implements the Tool Scheduler (C2) and Result Stream
// Fan-out (C3): it accepts tool requests, invokes the registered tool,
// and exposes a pair of consumer streams (UI and background) per call.
package scheduler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/agentcore/core/internal/tools"
	"github.com/agentcore/core/pkg/models"
)

// Config bounds the Scheduler's resource usage. Defaults mirror the
// option table in spec.md §6.
type Config struct {
	// ResultChannelCapacity bounds the internal channel depth per call.
	ResultChannelCapacity int
	// DefaultTimeout applies to any descriptor that does not declare its
	// own Timeout.
	DefaultTimeout time.Duration
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		ResultChannelCapacity: 16,
		DefaultTimeout:        60 * time.Second,
	}
}

// Result is one observed value from a tool invocation, carried on the
// internal channel before fan-out splits it into UI/BG streams.
type Result struct {
	Value json.RawMessage
	Err   string
}

func errResult(reason string) Result { return Result{Err: reason} }

// unresolvedCall is produced by Request and consumed once by
// ResolveLastCall/ResolveCalls.
type unresolvedCall struct {
	meta      models.CallMetadata
	multiStep bool
	ch        <-chan Result
}

// OngoingStream is the background-polling half of a fan-out split. The
// Completion Runner receives the paired UI stream directly from
// ResolveLastCall/ResolveCalls; the Handler retains only the BG half.
type OngoingStream struct {
	Meta           models.CallMetadata
	ch             <-chan Result
	FirstChunkSent bool
}

// Handler is a session's scheduler state: unresolved calls awaiting
// fan-out, ongoing background streams, and completions buffered for the
// Background Poller to drain. All fields are guarded by mu; mu is never
// held across a channel send or receive.
type Handler struct {
	registry *tools.Registry
	cfg      Config

	mu         sync.Mutex
	unresolved []*unresolvedCall
	ongoing    []*OngoingStream
	completed  []models.ToolCompletion
	multiStep  map[string]bool // toolName -> cached IsMultiStep result
}

// NewHandler constructs a Handler bound to registry, which must already
// contain every tool the session's backend exposes.
func NewHandler(registry *tools.Registry, cfg Config) *Handler {
	return &Handler{
		registry:  registry,
		cfg:       cfg,
		multiStep: make(map[string]bool),
	}
}

// IsMultiStep reports whether toolName is registered as multi-step,
// caching the registry lookup.
func (h *Handler) IsMultiStep(toolName string) bool {
	h.mu.Lock()
	if v, ok := h.multiStep[toolName]; ok {
		h.mu.Unlock()
		return v
	}
	h.mu.Unlock()

	v, err := h.registry.IsMultiStep(toolName)
	if err != nil {
		v = false
	}
	h.mu.Lock()
	h.multiStep[toolName] = v
	h.mu.Unlock()
	return v
}

// Request invokes tool toolName with args under callID. Unknown tools
// synthesize an immediate Err completion streamed back as single-shot so
// the LLM still observes a sync:true result for the call.
func (h *Handler) Request(ctx context.Context, callID, toolName string, args json.RawMessage) {
	descriptor, invoke, err := h.registry.Lookup(toolName)
	if err != nil {
		ch := h.runUnknownTool(callID, toolName)
		h.pushUnresolved(callID, toolName, false, ch)
		return
	}

	if err := h.registry.ValidateArgs(toolName, args); err != nil {
		ch := h.runValidationFailure(callID, toolName, err)
		h.pushUnresolved(callID, toolName, false, ch)
		return
	}

	timeout := descriptor.Timeout
	if timeout <= 0 {
		timeout = h.cfg.DefaultTimeout
	}

	if descriptor.MultiStep {
		ch := h.runMultiStep(ctx, timeout, toolName, args, invoke)
		h.pushUnresolved(callID, toolName, true, ch)
		return
	}
	ch := h.runSingleStep(ctx, timeout, toolName, args, invoke)
	h.pushUnresolved(callID, toolName, false, ch)
}

func (h *Handler) pushUnresolved(callID, toolName string, multiStep bool, ch <-chan Result) {
	h.mu.Lock()
	h.unresolved = append(h.unresolved, &unresolvedCall{
		meta:      models.CallMetadata{CallID: callID, ToolName: toolName, Sync: true},
		multiStep: multiStep,
		ch:        ch,
	})
	h.mu.Unlock()
}

func (h *Handler) runUnknownTool(callID, toolName string) <-chan Result {
	ch := make(chan Result, 1)
	ch <- errResult("unknown tool: " + toolName)
	close(ch)
	return ch
}

func (h *Handler) runValidationFailure(callID, toolName string, err error) <-chan Result {
	ch := make(chan Result, 1)
	ch <- errResult(err.Error())
	close(ch)
	return ch
}

func (h *Handler) runSingleStep(ctx context.Context, timeout time.Duration, toolName string, args json.RawMessage, invoke tools.Invocation) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		value, err := invoke.Single(cctx, args)
		if err != nil {
			if cctx.Err() == context.DeadlineExceeded {
				ch <- errResult("timeout")
				return
			}
			ch <- errResult(err.Error())
			return
		}
		ch <- Result{Value: value}
	}()
	return ch
}

func (h *Handler) runMultiStep(ctx context.Context, timeout time.Duration, toolName string, args json.RawMessage, invoke tools.Invocation) <-chan Result {
	raw := make(chan json.RawMessage, h.cfg.ResultChannelCapacity)
	out := make(chan Result, h.cfg.ResultChannelCapacity)

	cctx, cancel := context.WithTimeout(ctx, timeout)

	go func() {
		defer cancel()
		err := invoke.MultiStep(cctx, args, raw)
		close(raw)
		if err != nil {
			if cctx.Err() == context.DeadlineExceeded {
				out <- errResult("timeout")
			} else {
				out <- errResult(err.Error())
			}
		}
	}()

	go func() {
		defer close(out)
		emitted := false
		for v := range raw {
			emitted = true
			validated, verr := h.registry.Validate(toolName, v)
			if verr != nil {
				out <- errResult(verr.Error())
				return
			}
			out <- Result{Value: validated}
		}
		if !emitted && cctx.Err() == nil {
			out <- errResult("empty result")
		}
	}()

	return out
}

// ResolveLastCall pops the most recently requested unresolved call,
// splits it via Fan-out, retains the BG stream in ongoing, and returns
// the UI stream. Returns false if there is no pending call.
func (h *Handler) ResolveLastCall() (<-chan Result, bool) {
	h.mu.Lock()
	if len(h.unresolved) == 0 {
		h.mu.Unlock()
		return nil, false
	}
	uc := h.unresolved[len(h.unresolved)-1]
	h.unresolved = h.unresolved[:len(h.unresolved)-1]
	h.mu.Unlock()

	ui, bg := Split(uc.multiStep, uc.ch)
	h.mu.Lock()
	h.ongoing = append(h.ongoing, &OngoingStream{Meta: uc.meta, ch: bg})
	h.mu.Unlock()
	return ui, true
}

// ResolveCalls resolves every currently unresolved call, returning the
// UI streams in request order.
func (h *Handler) ResolveCalls() []<-chan Result {
	h.mu.Lock()
	pending := h.unresolved
	h.unresolved = nil
	h.mu.Unlock()

	uis := make([]<-chan Result, 0, len(pending))
	for _, uc := range pending {
		ui, bg := Split(uc.multiStep, uc.ch)
		h.mu.Lock()
		h.ongoing = append(h.ongoing, &OngoingStream{Meta: uc.meta, ch: bg})
		h.mu.Unlock()
		uis = append(uis, ui)
	}
	return uis
}

// PollStreamsOnce makes one non-blocking pass over ongoing streams.
// For each stream with a ready chunk it emits a ToolCompletion: the
// first chunk is sync:true, later chunks are sync:false. Streams whose
// channel has closed are removed.
func (h *Handler) PollStreamsOnce() {
	h.mu.Lock()
	streams := h.ongoing
	h.mu.Unlock()

	var remaining []*OngoingStream
	var newCompletions []models.ToolCompletion

	for _, s := range streams {
		select {
		case r, ok := <-s.ch:
			if !ok {
				// channel closed with nothing pending this pass
				continue
			}
			sync := !s.FirstChunkSent
			s.FirstChunkSent = true
			newCompletions = append(newCompletions, toCompletion(s.Meta, sync, r))
			remaining = append(remaining, s)
		default:
			remaining = append(remaining, s)
		}
	}

	h.mu.Lock()
	h.ongoing = remaining
	h.completed = append(h.completed, newCompletions...)
	h.mu.Unlock()
}

func toCompletion(meta models.CallMetadata, sync bool, r Result) models.ToolCompletion {
	return models.ToolCompletion{
		CallID:   meta.CallID,
		ToolName: meta.ToolName,
		Sync:     sync,
		Value:    r.Value,
		Err:      r.Err,
	}
}

// TakeCompletedCalls drains and returns buffered completions.
func (h *Handler) TakeCompletedCalls() []models.ToolCompletion {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.completed
	h.completed = nil
	return out
}

// HasOngoingStreams reports whether any background streams remain.
func (h *Handler) HasOngoingStreams() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ongoing) > 0
}
