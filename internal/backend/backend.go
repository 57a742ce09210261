// Package backend wraps the Completion Runner behind a per-namespace
// trait so the Session Manager can bind a session to a tool set and
// prompt policy without knowing which flavor it is.
//
// It plays the role the teacher's AgenticRuntime plays over AgenticLoop
// (internal/agent/loop.go): a thin, Runtime-shaped facade in front of
// the turn-driving engine, so callers depend on a small interface
// instead of the engine's full constructor surface.
package backend

import (
	"github.com/agentcore/core/internal/completion"
	"github.com/agentcore/core/internal/eventqueue"
	"github.com/agentcore/core/internal/observability"
	"github.com/agentcore/core/internal/scheduler"
	"github.com/agentcore/core/internal/tools"
	"github.com/agentcore/core/pkg/models"
)

// Backend provides everything a Session Manager needs to stand up a new
// sessionstate.Session for one namespace: which tools it advertises, a
// fresh Completion Runner to drive its turns, and a fresh tool registry
// wired to the Scheduler behind it.
//
// A Backend is immutable configuration shared across sessions; New*
// methods return per-session state so that two sessions in the same
// namespace never share a Tool Registry, Scheduler Handler, or Event
// Queue.
type Backend interface {
	// Namespace identifies which sessions this backend serves.
	Namespace() models.Namespace

	// NewRunner returns a Completion Runner configured for this
	// backend's default model and system prompt.
	NewRunner() *completion.Runner

	// NewRegistry returns a Tool Registry populated with this
	// backend's advertised tool set.
	NewRegistry() *tools.Registry

	// ToolDescriptors lists the tools this backend advertises to the
	// LLM; for a filtered backend this is a subset of the underlying
	// registry's full descriptor list.
	ToolDescriptors() []models.ToolDescriptor

	// NewEventQueue returns a fresh per-session Event Queue for
	// sessionID. A backend with an event-timeline recorder configured
	// mirrors every pushed event into it under sessionID.
	NewEventQueue(sessionID string, metrics *observability.Metrics) *eventqueue.Queue

	// NewHandler returns a fresh per-session Scheduler Handler bound
	// to a registry built by NewRegistry.
	NewHandler(registry *tools.Registry) *scheduler.Handler
}
