package models

import (
	"encoding/json"
	"time"
)

// ToolDescriptor describes a registered tool: its name, a JSON-schema for
// arguments, whether it is single-step or multi-step, and an optional
// semantic validator applied to every result value it produces.
//
// A ToolDescriptor is immutable once registered; the Tool Registry never
// mutates one after Register returns.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ArgSchema   json.RawMessage `json:"arg_schema"`
	MultiStep   bool            `json:"multi_step"`

	// Timeout bounds a single invocation of this tool. Zero means the
	// Scheduler's configured default applies.
	Timeout time.Duration `json:"-"`

	// Validator checks a result value before it is accepted as a
	// completion. A nil Validator behaves as the identity validator.
	Validator func(value json.RawMessage) (json.RawMessage, error) `json:"-"`
}

// CallMetadata is attached to every tool completion and carries enough
// information for the Event Queue and Completion Runner to route it.
type CallMetadata struct {
	CallID   CallID `json:"call_id"`
	ToolName string `json:"tool_name"`
	Sync     bool   `json:"sync"`
}

// ToolRequest is created by the Completion Runner when the LLM issues a
// tool call, and consumed by the Scheduler's request operation.
type ToolRequest struct {
	CallID   CallID          `json:"call_id"`
	ToolName string          `json:"tool_name"`
	Args     json.RawMessage `json:"args"`
}

// ToolCompletion is a single observed result of a tool call: either a
// success value or an error reason. Exactly one ToolCompletion per call
// carries Sync == true; a multi-step call may produce any number of
// Sync == false completions afterward.
type ToolCompletion struct {
	CallID   CallID          `json:"call_id"`
	ToolName string          `json:"tool_name"`
	Sync     bool            `json:"sync"`
	Value    json.RawMessage `json:"value,omitempty"`
	Err      string          `json:"err,omitempty"`
}

// IsError reports whether this completion represents a failure.
func (c ToolCompletion) IsError() bool { return c.Err != "" }

// AsJSON renders the completion's payload the way the Event Queue embeds
// it into a SystemEvent: the value on success, or {"error": "..."} on
// failure.
func (c ToolCompletion) AsJSON() json.RawMessage {
	if c.IsError() {
		b, _ := json.Marshal(struct {
			Error string `json:"error"`
		}{Error: c.Err})
		return b
	}
	if len(c.Value) == 0 {
		return json.RawMessage("null")
	}
	return c.Value
}
