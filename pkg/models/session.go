package models

import "time"

// SessionID is an opaque, globally unique session identifier (UUIDv4 by
// convention, see internal/sessionmgr).
type SessionID = string

// CallID is unique within a single session; it ties an assistant tool
// call to its tool completion(s).
type CallID = string

// Namespace tags which backend flavor (tool set + prompt policy) a
// session is bound to.
type Namespace string

const (
	// NamespaceDefault is the general-purpose chat backend.
	NamespaceDefault Namespace = "default"
	// NamespaceAnalysis is a read-only/analysis-tooled backend flavor.
	NamespaceAnalysis Namespace = "analysis"
)

// Session is the metadata record a HistoryBackend persists about a
// session; it is distinct from the in-memory sessionstate.Session, which
// additionally owns live channels and goroutines.
type Session struct {
	ID          SessionID `json:"id"`
	PublicKey   string    `json:"public_key,omitempty"`
	Namespace   Namespace `json:"namespace"`
	Title       string    `json:"title,omitempty"`
	UserTitled  bool      `json:"user_titled,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Archived    bool      `json:"archived,omitempty"`
}

// TitlePlaceholder is the marker the Session Manager's title sweeper
// looks for when deciding a session still needs a generated title.
const TitlePlaceholder = "(untitled)"
