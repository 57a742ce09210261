package backend

import (
	policy "github.com/agentcore/core/internal/toolpolicy"

	"github.com/agentcore/core/internal/completion"
	"github.com/agentcore/core/internal/eventqueue"
	"github.com/agentcore/core/internal/observability"
	"github.com/agentcore/core/internal/scheduler"
	"github.com/agentcore/core/internal/tools"
	"github.com/agentcore/core/pkg/models"
)

// AnalysisBackend wraps a DefaultBackend's tool set, filtered down to
// tools a policy.Resolver allows under a read-only policy. It is the
// analysis namespace's backend: same runner/scheduler wiring as the
// general chat backend, but with write-capable tools (filesystem
// writes, shell execution, messaging) removed from both the advertised
// descriptor list and the registry a session can actually invoke
// through.
type AnalysisBackend struct {
	inner    *DefaultBackend
	resolver *policy.Resolver
	policy   *policy.Policy
	allowed  map[string]bool
}

var _ Backend = (*AnalysisBackend)(nil)

// DefaultReadOnlyPolicy denies the write-capable tool groups a coding
// profile would otherwise allow, leaving read/search/status tools
// available for analysis sessions.
func DefaultReadOnlyPolicy() *policy.Policy {
	return policy.NewPolicy(policy.ProfileCoding).WithDeny("write", "edit", "exec", "sandbox")
}

// NewAnalysisBackend builds an AnalysisBackend over inner's tool set,
// filtered through resolver using pol (DefaultReadOnlyPolicy if nil).
func NewAnalysisBackend(inner *DefaultBackend, resolver *policy.Resolver, pol *policy.Policy) *AnalysisBackend {
	if resolver == nil {
		resolver = policy.NewResolver()
	}
	if pol == nil {
		pol = DefaultReadOnlyPolicy()
	}

	names := make([]string, len(inner.toolSet.Descriptors))
	for i, d := range inner.toolSet.Descriptors {
		names[i] = d.Name
	}
	allowedNames := resolver.FilterAllowed(pol, names)
	allowed := make(map[string]bool, len(allowedNames))
	for _, n := range allowedNames {
		allowed[n] = true
	}

	return &AnalysisBackend{inner: inner, resolver: resolver, policy: pol, allowed: allowed}
}

func (b *AnalysisBackend) Namespace() models.Namespace { return models.NamespaceAnalysis }

func (b *AnalysisBackend) NewRunner() *completion.Runner {
	return b.inner.NewRunner()
}

// NewRegistry returns a registry containing only the tools this
// backend's policy allows; a session bound to AnalysisBackend cannot
// dispatch a denied tool because the Scheduler never finds it
// registered, not merely because the LLM wasn't told about it.
func (b *AnalysisBackend) NewRegistry() *tools.Registry {
	registry := tools.New()
	for _, d := range b.inner.toolSet.Descriptors {
		if !b.allowed[d.Name] {
			continue
		}
		if err := registry.Register(d, b.inner.toolSet.Invoke[d.Name]); err != nil {
			panic("backend: invalid tool set: " + err.Error())
		}
	}
	return registry
}

func (b *AnalysisBackend) ToolDescriptors() []models.ToolDescriptor {
	out := make([]models.ToolDescriptor, 0, len(b.allowed))
	for _, d := range b.inner.toolSet.Descriptors {
		if b.allowed[d.Name] {
			out = append(out, d)
		}
	}
	return out
}

func (b *AnalysisBackend) NewEventQueue(sessionID string, metrics *observability.Metrics) *eventqueue.Queue {
	return b.inner.NewEventQueue(sessionID, metrics)
}

func (b *AnalysisBackend) NewHandler(registry *tools.Registry) *scheduler.Handler {
	return b.inner.NewHandler(registry)
}
