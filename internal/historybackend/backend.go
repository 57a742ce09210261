// Package historybackend implements the History Backend (C9): session
// metadata and message persistence keyed by session ID and public
// identifier.
package historybackend

import (
	"context"

	"github.com/agentcore/core/pkg/models"
)

// UserHistory is what LoadHistory seeds a freshly created Session
// State with: the persisted metadata record plus its most recent N
// messages (already in chronological order).
type UserHistory struct {
	Session  models.Session
	Messages []models.ChatMessage
}

// Backend persists session metadata and chat messages across process
// restarts. A no-op implementation is acceptable for ephemeral
// sessions; Postgres-backed deployments use NewPostgresBackend.
type Backend interface {
	// LoadHistory returns the most recent history for publicKey, or a
	// zero-value UserHistory with no messages if none exists.
	LoadHistory(ctx context.Context, publicKey string) (UserHistory, error)

	// SaveMessage persists one message for sessionID. Implementations
	// must reject a Streaming message (see models.ChatMessage) rather
	// than silently persisting an in-progress chunk.
	SaveMessage(ctx context.Context, sessionID models.SessionID, msg models.ChatMessage) error

	// SaveTitle persists title for sessionID. isUserTitle distinguishes
	// a user-supplied title (never overwritten by the sweeper) from a
	// generated one.
	SaveTitle(ctx context.Context, sessionID models.SessionID, title string, isUserTitle bool) error
}
