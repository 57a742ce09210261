// Package sessionmgr implements the Session Manager (C7): the
// process-wide map from SessionID to a live sessionstate.Session, with
// per-key locking so two requests for the same session never race to
// create it twice, plus a background sweep that generates titles for
// sessions still carrying a placeholder one.
package sessionmgr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/agentcore/core/internal/backend"
	"github.com/agentcore/core/internal/historybackend"
	"github.com/agentcore/core/internal/observability"
	"github.com/agentcore/core/internal/poller"
	"github.com/agentcore/core/internal/sessionstate"
	"github.com/agentcore/core/pkg/models"
)

// titleSweepMinMessages is the minimum history length before a session
// is considered for automatic title generation; a session with only
// the opening user message rarely gives a summarizer enough to work
// with.
const titleSweepMinMessages = 2

// Summarizer produces a short title from a session's transcript so far.
// Implementations typically make one cheap LLM call; the Session
// Manager calls it at most once per sweep per eligible session.
type Summarizer interface {
	Summarize(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// NamespaceAuthorizer decides which namespaces a public key may open
// sessions in. Deciding this against an external authorization store
// is out of scope here; a deployment that needs it supplies its own
// implementation. A nil Authorizer makes every registered namespace
// available to every caller.
type NamespaceAuthorizer interface {
	ListNamespaces(ctx context.Context, publicKey string) ([]models.Namespace, error)
}

// EventKind tags what changed in a Manager-level broadcast Event.
type EventKind string

// EventTitleChanged is broadcast after the title sweeper persists a
// generated title.
const EventTitleChanged EventKind = "title_changed"

// Event is broadcast to every SubscribeToUpdates receiver.
type Event struct {
	Kind      EventKind
	SessionID models.SessionID
	Title     string
}

// Config bounds the Manager's background behavior and the defaults
// passed through to each Session it creates.
type Config struct {
	// WorkerID identifies this Manager instance; useful once multiple
	// processes share a HistoryBackend and need to attribute sweeps.
	// Defaults to a generated UUID.
	WorkerID string

	// SweepInterval is how often the title sweeper runs. Defaults to
	// 5 seconds.
	SweepInterval time.Duration

	SessionConfig sessionstate.Config
	PollerConfig  poller.Config
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		WorkerID:      uuid.NewString(),
		SweepInterval: 5 * time.Second,
		SessionConfig: sessionstate.DefaultConfig(),
		PollerConfig:  poller.DefaultConfig(),
	}
}

// sessionEntry bundles a live Session with the metadata a
// HistoryBackend persists about it and the cancel function that tears
// down its processing/polling goroutines on eviction or backend swap.
type sessionEntry struct {
	session *sessionstate.Session
	cancel  context.CancelFunc
	meta    models.Session
}

// sessionLock is a refcounted per-key mutex: once its last holder
// releases it, the entry is removed from locks so the map never grows
// unbounded with long-evicted session IDs.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the process-wide session map. It is safe for concurrent
// use; GetOrCreate/ReplaceBackend/Evict calls for different session IDs
// never block each other.
type Manager struct {
	backends   map[models.Namespace]backend.Backend
	history    historybackend.Backend
	metrics    *observability.Metrics
	summarizer Summarizer
	authorizer NamespaceAuthorizer
	cfg        Config

	mu       sync.RWMutex
	sessions map[models.SessionID]*sessionEntry

	locksMu sync.Mutex
	locks   map[models.SessionID]*sessionLock

	subMu       sync.Mutex
	subscribers map[int]chan Event
	nextSubID   int

	rootCtx    context.Context
	rootCancel context.CancelFunc
	cron       *cron.Cron
}

// New builds a Manager. backends must contain at least the namespaces
// the deployment intends to serve; history and summarizer may be nil
// (history defaults to ephemeral behavior, summarizer disables the
// title sweeper).
func New(backends map[models.Namespace]backend.Backend, history historybackend.Backend, metrics *observability.Metrics, summarizer Summarizer, authorizer NamespaceAuthorizer, cfg Config) *Manager {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Second
	}
	return &Manager{
		backends:    backends,
		history:     history,
		metrics:     metrics,
		summarizer:  summarizer,
		authorizer:  authorizer,
		cfg:         cfg,
		sessions:    make(map[models.SessionID]*sessionEntry),
		locks:       make(map[models.SessionID]*sessionLock),
		subscribers: make(map[int]chan Event),
	}
}

// Start begins the title sweeper under ctx; every Session created
// afterward derives its own lifetime from ctx, so cancelling it (or
// calling Stop) tears down every live session's goroutines.
func (m *Manager) Start(ctx context.Context) error {
	m.rootCtx, m.rootCancel = context.WithCancel(ctx)

	m.cron = cron.New(cron.WithSeconds())
	spec := fmt.Sprintf("@every %s", m.cfg.SweepInterval)
	if _, err := m.cron.AddFunc(spec, m.sweepTitles); err != nil {
		return fmt.Errorf("sessionmgr: schedule title sweep: %w", err)
	}
	m.cron.Start()
	return nil
}

// Stop halts the title sweeper and cancels every live session's
// context; each session's processing loop and poller exit within one
// iteration of their own select.
func (m *Manager) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
	if m.rootCancel != nil {
		m.rootCancel()
	}
}

// lockSession returns an unlock func for sessionID, blocking until any
// concurrent holder releases it. Grounded in the teacher's refcounted
// per-key session lock: the lock entry is removed once its last
// holder unlocks, so the map never accumulates one entry per session
// ID ever seen.
func (m *Manager) lockSession(sessionID models.SessionID) func() {
	m.locksMu.Lock()
	lock := m.locks[sessionID]
	if lock == nil {
		lock = &sessionLock{}
		m.locks[sessionID] = lock
	}
	lock.refs++
	m.locksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		m.locksMu.Lock()
		lock.refs--
		if lock.refs <= 0 {
			delete(m.locks, sessionID)
		}
		m.locksMu.Unlock()
	}
}

// GetOrCreate returns the live Session for sessionID, creating it
// (loading any persisted history via the configured HistoryBackend,
// then starting its processing loop and background poller) if this is
// the first request to see it. publicKey may be empty for an ephemeral
// session with no persisted history.
func (m *Manager) GetOrCreate(ctx context.Context, sessionID models.SessionID, publicKey string, ns models.Namespace) (*sessionstate.Session, error) {
	unlock := m.lockSession(sessionID)
	defer unlock()

	m.mu.RLock()
	if entry, ok := m.sessions[sessionID]; ok {
		m.mu.RUnlock()
		return entry.session, nil
	}
	m.mu.RUnlock()

	b, ok := m.backends[ns]
	if !ok {
		return nil, fmt.Errorf("sessionmgr: no backend registered for namespace %q", ns)
	}

	meta := models.Session{ID: sessionID, PublicKey: publicKey, Namespace: ns, Title: models.TitlePlaceholder, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	var seed []models.ChatMessage
	if m.history != nil && publicKey != "" {
		hist, err := m.history.LoadHistory(ctx, publicKey)
		if err != nil {
			return nil, fmt.Errorf("sessionmgr: load history: %w", err)
		}
		if hist.Session.ID != "" {
			meta = hist.Session
		}
		seed = hist.Messages
	}

	entry := m.spawn(sessionID, b, meta, seed)

	m.mu.Lock()
	m.sessions[sessionID] = entry
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionStarted()
	}
	return entry.session, nil
}

// spawn builds a fresh Session bound to b, seeds its history, and
// starts its processing loop and poller under the Manager's root
// context. Must be called without m.mu held.
func (m *Manager) spawn(sessionID models.SessionID, b backend.Backend, meta models.Session, seed []models.ChatMessage) *sessionEntry {
	registry := b.NewRegistry()
	runner := b.NewRunner()
	handler := b.NewHandler(registry)
	queue := b.NewEventQueue(string(sessionID), m.metrics)
	sess := sessionstate.New(sessionID, b.Namespace(), runner, registry, handler, queue, m.metrics, m.cfg.SessionConfig)
	if len(seed) > 0 {
		sess.LoadHistory(seed)
	}

	parent := m.rootCtx
	if parent == nil {
		parent = context.Background()
	}
	sessCtx, cancel := context.WithCancel(parent)
	sess.StartProcessing(sessCtx, b.ToolDescriptors())
	sess.StartPollingTools(sessCtx, m.cfg.PollerConfig)

	return &sessionEntry{session: sess, cancel: cancel, meta: meta}
}

// ReplaceBackend swaps the session's namespace binding (a new tool set
// and runner) mid-conversation, carrying its in-memory history across.
// This replaces the prior Session outright: its old processing loop and
// poller are cancelled and a new Session is spawned bound to the new
// backend.
func (m *Manager) ReplaceBackend(sessionID models.SessionID, newNamespace models.Namespace) (*sessionstate.Session, error) {
	unlock := m.lockSession(sessionID)
	defer unlock()

	m.mu.RLock()
	old, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sessionmgr: no session %q", sessionID)
	}

	b, ok := m.backends[newNamespace]
	if !ok {
		return nil, fmt.Errorf("sessionmgr: no backend registered for namespace %q", newNamespace)
	}

	history := old.session.History()
	old.cancel()

	meta := old.meta
	meta.Namespace = newNamespace
	meta.UpdatedAt = time.Now()

	entry := m.spawn(sessionID, b, meta, history)

	m.mu.Lock()
	m.sessions[sessionID] = entry
	m.mu.Unlock()

	return entry.session, nil
}

// ListUserNamespaces reports which namespaces publicKey may open
// sessions in. With no NamespaceAuthorizer configured, every registered
// backend namespace is considered available.
func (m *Manager) ListUserNamespaces(ctx context.Context, publicKey string) ([]models.Namespace, error) {
	if m.authorizer != nil {
		return m.authorizer.ListNamespaces(ctx, publicKey)
	}
	out := make([]models.Namespace, 0, len(m.backends))
	for ns := range m.backends {
		out = append(out, ns)
	}
	return out, nil
}

// SubscribeToUpdates registers a receiver for Manager-level broadcast
// events (currently just title changes). The returned unsubscribe func
// must be called once the receiver is no longer read from.
func (m *Manager) SubscribeToUpdates() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = ch
	m.subMu.Unlock()

	unsubscribe := func() {
		m.subMu.Lock()
		if c, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(c)
		}
		m.subMu.Unlock()
	}
	return ch, unsubscribe
}

func (m *Manager) broadcast(ev Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Evict removes sessionID from the map and cancels its processing loop
// and poller; both exit within one iteration of their own select.
func (m *Manager) Evict(sessionID models.SessionID) {
	unlock := m.lockSession(sessionID)
	defer unlock()

	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	entry.cancel()
	if m.metrics != nil {
		m.metrics.SessionEnded()
	}
}

// sweepTitles is the cron-driven background task: every session still
// titled with the placeholder and carrying enough transcript gets a
// generated title, persisted via the HistoryBackend and broadcast to
// subscribers. Disabled entirely when no Summarizer or HistoryBackend
// is configured.
func (m *Manager) sweepTitles() {
	if m.summarizer == nil || m.history == nil {
		return
	}
	ctx := m.rootCtx
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.RLock()
	candidates := make([]*sessionEntry, 0, len(m.sessions))
	for _, entry := range m.sessions {
		if entry.meta.UserTitled || entry.meta.Title != models.TitlePlaceholder {
			continue
		}
		if len(entry.session.History()) < titleSweepMinMessages {
			continue
		}
		candidates = append(candidates, entry)
	}
	m.mu.RUnlock()

	for _, entry := range candidates {
		title, err := m.summarizer.Summarize(ctx, entry.session.History())
		if err != nil || title == "" {
			continue
		}
		if err := m.history.SaveTitle(ctx, entry.session.ID, title, false); err != nil {
			continue
		}

		m.mu.Lock()
		entry.meta.Title = title
		m.mu.Unlock()

		m.broadcast(Event{Kind: EventTitleChanged, SessionID: entry.session.ID, Title: title})
	}
}
