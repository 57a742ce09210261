// Package llmprovider abstracts chat-completion access behind a single
// streaming interface so the Completion Runner (internal/completion) never
// depends on a specific vendor SDK.
package llmprovider

import (
	"context"

	"github.com/agentcore/core/pkg/models"
)

// CompletionMessage is one turn of conversation handed to a Provider.
type CompletionMessage struct {
	Role        models.Role
	Content     string
	ToolCalls   []models.ToolCall
	ToolResults []models.ToolResult
}

// CompletionRequest is a single turn request to a Provider.
type CompletionRequest struct {
	Model                string
	System               string
	Messages             []CompletionMessage
	Tools                []models.ToolDescriptor
	MaxTokens            int
	EnableThinking       bool
	ThinkingBudgetTokens int
}

// CompletionChunk is one unit of a streamed completion. A stream ends when
// Done is true or Err is non-nil; both are terminal.
type CompletionChunk struct {
	Text          string
	ToolCall      *models.ToolCall
	Thinking      string
	ThinkingStart bool
	ThinkingEnd   bool
	Done          bool
	Err           error

	InputTokens  int
	OutputTokens int
}

// Model describes a model a Provider can serve.
type Model struct {
	ID             string
	Name           string
	ContextSize    int
	SupportsVision bool
}

// Provider is the abstraction every vendor adapter implements.
type Provider interface {
	// Complete streams a completion for req. The returned channel is
	// closed after the terminal chunk (Done or Err) is sent.
	Complete(ctx context.Context, req CompletionRequest) (<-chan CompletionChunk, error)
	Name() string
	Models() []Model
	SupportsTools() bool
}
