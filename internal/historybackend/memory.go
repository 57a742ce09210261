package historybackend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/agentcore/core/pkg/models"
)

// maxMessagesPerSession bounds in-memory retention to prevent unbounded
// growth in a long-running process.
const maxMessagesPerSession = 1000

// MemoryBackend is an in-memory Backend for tests and local runs,
// keyed by public key (one session-metadata record + message log per
// key).
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	messages map[string][]models.ChatMessage
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		sessions: make(map[string]models.Session),
		messages: make(map[string][]models.ChatMessage),
	}
}

func (m *MemoryBackend) LoadHistory(ctx context.Context, publicKey string) (UserHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[publicKey]
	if !ok {
		return UserHistory{}, nil
	}
	msgs := m.messages[publicKey]
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return UserHistory{Session: sess, Messages: out}, nil
}

func (m *MemoryBackend) SaveMessage(ctx context.Context, sessionID models.SessionID, msg models.ChatMessage) error {
	if msg.Streaming {
		return errors.New("historybackend: refusing to persist an in-progress streaming message")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(sessionID)
	sess, ok := m.sessions[key]
	if !ok {
		sess = models.Session{ID: sessionID, CreatedAt: time.Now()}
	}
	sess.UpdatedAt = time.Now()
	m.sessions[key] = sess

	msgs := append(m.messages[key], msg)
	if len(msgs) > maxMessagesPerSession {
		msgs = msgs[len(msgs)-maxMessagesPerSession:]
	}
	m.messages[key] = msgs
	return nil
}

func (m *MemoryBackend) SaveTitle(ctx context.Context, sessionID models.SessionID, title string, isUserTitle bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(sessionID)
	sess, ok := m.sessions[key]
	if !ok {
		sess = models.Session{ID: sessionID, CreatedAt: time.Now()}
	}
	sess.Title = title
	sess.UserTitled = isUserTitle
	sess.UpdatedAt = time.Now()
	m.sessions[key] = sess
	return nil
}

// sessionKey uses the session ID directly as the map key; a
// deployment that separates "session ID" from "public key" (e.g.
// multiple sessions per authenticated user) should key by publicKey
// instead, as PostgresBackend does.
func sessionKey(id models.SessionID) string { return id }
