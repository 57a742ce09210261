package backend

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/core/internal/completion"
	"github.com/agentcore/core/internal/llmprovider"
	"github.com/agentcore/core/internal/scheduler"
	"github.com/agentcore/core/internal/tools"
	"github.com/agentcore/core/pkg/models"
)

type nopProvider struct{}

func (nopProvider) Name() string               { return "nop" }
func (nopProvider) Models() []llmprovider.Model { return nil }
func (nopProvider) SupportsTools() bool         { return true }
func (nopProvider) Complete(ctx context.Context, req llmprovider.CompletionRequest) (<-chan llmprovider.CompletionChunk, error) {
	ch := make(chan llmprovider.CompletionChunk)
	close(ch)
	return ch, nil
}

func sampleToolSet() ToolSet {
	echo := tools.Invocation{Single: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		return args, nil
	}}
	return ToolSet{
		Descriptors: []models.ToolDescriptor{
			{Name: "read", Description: "read a file"},
			{Name: "write", Description: "write a file"},
			{Name: "exec", Description: "run a shell command"},
			{Name: "websearch", Description: "search the web"},
		},
		Invoke: map[string]tools.Invocation{
			"read":      echo,
			"write":     echo,
			"exec":      echo,
			"websearch": echo,
		},
	}
}

func TestDefaultBackendAdvertisesFullToolSet(t *testing.T) {
	b := NewDefaultBackend(nopProvider{}, completion.Config{}, scheduler.Config{}, sampleToolSet())

	assert.Equal(t, models.NamespaceDefault, b.Namespace())
	assert.Len(t, b.ToolDescriptors(), 4)

	registry := b.NewRegistry()
	_, _, err := registry.Lookup("write")
	require.NoError(t, err)

	require.NotNil(t, b.NewRunner())
	q := b.NewEventQueue("sess-1", nil)
	require.NotNil(t, q)
	require.NotNil(t, b.NewHandler(registry))
}

func TestAnalysisBackendFiltersWriteTools(t *testing.T) {
	def := NewDefaultBackend(nopProvider{}, completion.Config{}, scheduler.Config{}, sampleToolSet())
	analysis := NewAnalysisBackend(def, nil, nil)

	assert.Equal(t, models.NamespaceAnalysis, analysis.Namespace())

	names := make(map[string]bool)
	for _, d := range analysis.ToolDescriptors() {
		names[d.Name] = true
	}
	assert.True(t, names["read"])
	assert.True(t, names["websearch"])
	assert.False(t, names["write"])
	assert.False(t, names["exec"])

	registry := analysis.NewRegistry()
	_, _, err := registry.Lookup("read")
	require.NoError(t, err)
	_, _, err = registry.Lookup("write")
	require.Error(t, err)
}
