// Package tools implements the Tool Registry (C1): an immutable-after-
// startup mapping from tool name to descriptor, validator, and
// invocation closure.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/agentcore/core/pkg/models"
)

// Invocation is the tagged variant a registered tool's callable takes:
// either Single (one result or error) or MultiStep (a sender the tool
// writes zero or more values to before closing). Exactly one of the two
// constructors below is used per registration; the Scheduler picks the
// fan-out path by inspecting which field is non-nil.
type Invocation struct {
	Single    func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
	MultiStep func(ctx context.Context, args json.RawMessage, out chan<- json.RawMessage) error
}

// registration bundles a descriptor with its compiled schema and
// invocation closure.
type registration struct {
	descriptor models.ToolDescriptor
	schema     *jsonschema.Schema
	invoke     Invocation
}

// ErrNotFound is returned by Lookup/Validate when no tool is registered
// under the given name.
var ErrNotFound = fmt.Errorf("tool not found")

// Registry maps tool names to descriptors and invocation closures.
// Registration happens at process start; Lookup and Validate are
// read-only and safe for concurrent use thereafter.
type Registry struct {
	mu   sync.RWMutex
	tool map[string]*registration
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{tool: make(map[string]*registration)}
}

// Register inserts a descriptor and its invocation closure. Duplicate
// names are rejected so a later registration can never silently shadow
// an earlier one.
func (r *Registry) Register(descriptor models.ToolDescriptor, invoke Invocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tool[descriptor.Name]; exists {
		return fmt.Errorf("tool %q already registered", descriptor.Name)
	}
	if invoke.Single == nil && invoke.MultiStep == nil {
		return fmt.Errorf("tool %q: invocation must provide Single or MultiStep", descriptor.Name)
	}
	if invoke.Single != nil && invoke.MultiStep != nil {
		return fmt.Errorf("tool %q: invocation must not set both Single and MultiStep", descriptor.Name)
	}
	if descriptor.MultiStep != (invoke.MultiStep != nil) {
		return fmt.Errorf("tool %q: MultiStep descriptor flag must match invocation variant", descriptor.Name)
	}

	var compiled *jsonschema.Schema
	if len(descriptor.ArgSchema) > 0 {
		s, err := compileSchema(descriptor.Name, descriptor.ArgSchema)
		if err != nil {
			return fmt.Errorf("tool %q: invalid arg_schema: %w", descriptor.Name, err)
		}
		compiled = s
	}

	r.tool[descriptor.Name] = &registration{descriptor: descriptor, schema: compiled, invoke: invoke}
	return nil
}

// Lookup returns the descriptor and invocation for name, or ErrNotFound.
func (r *Registry) Lookup(name string) (models.ToolDescriptor, Invocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.tool[name]
	if !ok {
		return models.ToolDescriptor{}, Invocation{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return reg.descriptor, reg.invoke, nil
}

// IsMultiStep reports whether name is registered as a multi-step tool.
// Returns false, ErrNotFound for an unknown tool.
func (r *Registry) IsMultiStep(name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.tool[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return reg.descriptor.MultiStep, nil
}

// Descriptors returns every registered descriptor, e.g. for exposing a
// tool list to an LLM provider.
func (r *Registry) Descriptors() []models.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ToolDescriptor, 0, len(r.tool))
	for _, reg := range r.tool {
		out = append(out, reg.descriptor)
	}
	return out
}

// ValidateArgs checks args against the tool's compiled JSON schema. A
// tool registered without a schema always validates successfully.
func (r *Registry) ValidateArgs(name string, args json.RawMessage) error {
	r.mu.RLock()
	reg, ok := r.tool[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if reg.schema == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return fmt.Errorf("invalid JSON arguments: %w", err)
	}
	if err := reg.schema.Validate(v); err != nil {
		return fmt.Errorf("arguments do not match schema: %w", err)
	}
	return nil
}

// Validate applies the descriptor's result validator to value, falling
// back to the identity validator when none is registered. This is the
// "semantic" validation step the Scheduler runs on every result chunk
// of a multi-step tool (spec invariant 5), distinct from ValidateArgs
// which checks inbound arguments against the JSON schema.
func (r *Registry) Validate(name string, value json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	reg, ok := r.tool[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if reg.descriptor.Validator == nil {
		return value, nil
	}
	return reg.descriptor.Validator(value)
}

func compileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	resource := fmt.Sprintf("tool://%s/schema.json", name)
	if err := c.AddResource(resource, toJSONAny(raw)); err != nil {
		return nil, err
	}
	return c.Compile(resource)
}

func toJSONAny(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}
	}
	return v
}
