package backend

import (
	"github.com/agentcore/core/internal/completion"
	"github.com/agentcore/core/internal/eventqueue"
	"github.com/agentcore/core/internal/llmprovider"
	"github.com/agentcore/core/internal/observability"
	"github.com/agentcore/core/internal/scheduler"
	"github.com/agentcore/core/internal/tools"
	"github.com/agentcore/core/pkg/models"
)

// ToolSet is a caller-assembled bundle of tool descriptors and their
// invocations, independent of which backend advertises them. A
// deployment builds one ToolSet per concern (filesystem, web, memory,
// ...) and hands it to NewDefaultBackend; this package has no opinion
// on what tools exist, only on how a namespace's registry is assembled
// from them.
type ToolSet struct {
	Descriptors []models.ToolDescriptor
	Invoke      map[string]tools.Invocation
}

// DefaultBackend is the general-purpose chat backend: it advertises
// every tool in its ToolSet and carries no per-tool access policy,
// mirroring the teacher's AgenticRuntime wired with ProfileFull.
type DefaultBackend struct {
	provider     llmprovider.Provider
	runnerCfg    completion.Config
	schedulerCfg scheduler.Config
	toolSet      ToolSet
	eventStore   observability.EventStore
}

var _ Backend = (*DefaultBackend)(nil)

// NewDefaultBackend builds a DefaultBackend. A zero-valued runnerCfg or
// schedulerCfg is replaced with completion.DefaultConfig/scheduler.DefaultConfig.
func NewDefaultBackend(provider llmprovider.Provider, runnerCfg completion.Config, schedulerCfg scheduler.Config, toolSet ToolSet) *DefaultBackend {
	if runnerCfg.MaxTokens == 0 {
		runnerCfg = completion.DefaultConfig()
	}
	if schedulerCfg.ResultChannelCapacity == 0 {
		schedulerCfg = scheduler.DefaultConfig()
	}
	return &DefaultBackend{provider: provider, runnerCfg: runnerCfg, schedulerCfg: schedulerCfg, toolSet: toolSet}
}

// WithEventStore records every Event Queue push made by sessions this
// backend serves into store, for post-hoc debugging and replay of a
// run. Returns b for chaining.
func (b *DefaultBackend) WithEventStore(store observability.EventStore) *DefaultBackend {
	b.eventStore = store
	return b
}

func (b *DefaultBackend) Namespace() models.Namespace { return models.NamespaceDefault }

func (b *DefaultBackend) NewRunner() *completion.Runner {
	return completion.New(b.provider, b.runnerCfg)
}

func (b *DefaultBackend) NewRegistry() *tools.Registry {
	registry := tools.New()
	for _, d := range b.toolSet.Descriptors {
		// Registration failures here indicate a malformed descriptor
		// assembled at process startup; surfacing that only at
		// session-creation time would be too late to act on, so a
		// backend built from a broken ToolSet panics immediately
		// rather than silently advertising a tool it cannot serve.
		if err := registry.Register(d, b.toolSet.Invoke[d.Name]); err != nil {
			panic("backend: invalid tool set: " + err.Error())
		}
	}
	return registry
}

func (b *DefaultBackend) ToolDescriptors() []models.ToolDescriptor {
	return b.toolSet.Descriptors
}

func (b *DefaultBackend) NewEventQueue(sessionID string, metrics *observability.Metrics) *eventqueue.Queue {
	if b.eventStore == nil {
		return eventqueue.New(metrics)
	}
	return eventqueue.NewWithRecorder(metrics, sessionID, b.eventStore)
}

func (b *DefaultBackend) NewHandler(registry *tools.Registry) *scheduler.Handler {
	return scheduler.NewHandler(registry, b.schedulerCfg)
}
