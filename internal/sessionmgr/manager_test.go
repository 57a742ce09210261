package sessionmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/core/internal/backend"
	"github.com/agentcore/core/internal/completion"
	"github.com/agentcore/core/internal/historybackend"
	"github.com/agentcore/core/internal/llmprovider"
	"github.com/agentcore/core/internal/poller"
	"github.com/agentcore/core/internal/scheduler"
	"github.com/agentcore/core/internal/sessionstate"
	"github.com/agentcore/core/pkg/models"
)

type scriptedProvider struct {
	chunks []llmprovider.CompletionChunk
}

func (p *scriptedProvider) Name() string               { return "scripted" }
func (p *scriptedProvider) Models() []llmprovider.Model { return nil }
func (p *scriptedProvider) SupportsTools() bool         { return true }
func (p *scriptedProvider) Complete(ctx context.Context, req llmprovider.CompletionRequest) (<-chan llmprovider.CompletionChunk, error) {
	ch := make(chan llmprovider.CompletionChunk, len(p.chunks))
	for _, c := range p.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func textChunk(s string) llmprovider.CompletionChunk {
	return llmprovider.CompletionChunk{Text: s}
}

func doneChunk() llmprovider.CompletionChunk {
	return llmprovider.CompletionChunk{Done: true}
}

func testBackend(chunks ...llmprovider.CompletionChunk) backend.Backend {
	provider := &scriptedProvider{chunks: chunks}
	return backend.NewDefaultBackend(provider, completion.Config{}, scheduler.Config{}, backend.ToolSet{})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SessionConfig = sessionstate.DefaultConfig()
	cfg.PollerConfig = poller.Config{IdleInterval: 5 * time.Millisecond, ActiveInterval: time.Millisecond}
	cfg.SweepInterval = time.Second
	return cfg
}

type stubSummarizer struct {
	title string
	err   error
}

func (s stubSummarizer) Summarize(ctx context.Context, messages []models.ChatMessage) (string, error) {
	return s.title, s.err
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestGetOrCreateReturnsSameSessionOnSecondCall(t *testing.T) {
	backends := map[models.Namespace]backend.Backend{
		models.NamespaceDefault: testBackend(textChunk("hi"), doneChunk()),
	}
	m := New(backends, historybackend.NewMemoryBackend(), nil, nil, nil, testConfig())
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	s1, err := m.GetOrCreate(context.Background(), "sess-1", "pk-1", models.NamespaceDefault)
	require.NoError(t, err)
	s2, err := m.GetOrCreate(context.Background(), "sess-1", "pk-1", models.NamespaceDefault)
	require.NoError(t, err)
	assert.Same(t, s1, s2)
}

func TestGetOrCreateUnknownNamespaceErrors(t *testing.T) {
	m := New(map[models.Namespace]backend.Backend{}, nil, nil, nil, nil, testConfig())
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	_, err := m.GetOrCreate(context.Background(), "sess-1", "", models.NamespaceAnalysis)
	require.Error(t, err)
}

func TestGetOrCreateSeedsHistoryFromBackend(t *testing.T) {
	hb := historybackend.NewMemoryBackend()
	require.NoError(t, hb.SaveMessage(context.Background(), "pk-1", models.ChatMessage{Sender: models.RoleUser, Content: "earlier"}))

	backends := map[models.Namespace]backend.Backend{
		models.NamespaceDefault: testBackend(doneChunk()),
	}
	m := New(backends, hb, nil, nil, nil, testConfig())
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	sess, err := m.GetOrCreate(context.Background(), "pk-1", "pk-1", models.NamespaceDefault)
	require.NoError(t, err)
	waitUntil(t, time.Second, func() bool { return len(sess.History()) >= 1 })
	assert.Equal(t, "earlier", sess.History()[0].Content)
}

func TestReplaceBackendCarriesHistoryAcross(t *testing.T) {
	backends := map[models.Namespace]backend.Backend{
		models.NamespaceDefault:  testBackend(doneChunk()),
		models.NamespaceAnalysis: testBackend(doneChunk()),
	}
	m := New(backends, historybackend.NewMemoryBackend(), nil, nil, nil, testConfig())
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	sess, err := m.GetOrCreate(context.Background(), "sess-1", "pk-1", models.NamespaceDefault)
	require.NoError(t, err)
	require.NoError(t, sess.SendUserInput("hello"))
	waitUntil(t, time.Second, func() bool { return len(sess.History()) >= 1 })

	newSess, err := m.ReplaceBackend("sess-1", models.NamespaceAnalysis)
	require.NoError(t, err)
	assert.Equal(t, models.NamespaceAnalysis, newSess.Namespace)
	assert.NotEmpty(t, newSess.History())
}

func TestEvictRemovesSession(t *testing.T) {
	backends := map[models.Namespace]backend.Backend{
		models.NamespaceDefault: testBackend(doneChunk()),
	}
	m := New(backends, historybackend.NewMemoryBackend(), nil, nil, nil, testConfig())
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	s1, err := m.GetOrCreate(context.Background(), "sess-1", "pk-1", models.NamespaceDefault)
	require.NoError(t, err)
	m.Evict("sess-1")

	s2, err := m.GetOrCreate(context.Background(), "sess-1", "pk-1", models.NamespaceDefault)
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)
}

func TestListUserNamespacesWithoutAuthorizerReturnsAllBackends(t *testing.T) {
	backends := map[models.Namespace]backend.Backend{
		models.NamespaceDefault:  testBackend(doneChunk()),
		models.NamespaceAnalysis: testBackend(doneChunk()),
	}
	m := New(backends, nil, nil, nil, nil, testConfig())

	ns, err := m.ListUserNamespaces(context.Background(), "anyone")
	require.NoError(t, err)
	assert.Len(t, ns, 2)
}

func TestTitleSweepGeneratesAndBroadcastsTitle(t *testing.T) {
	hb := historybackend.NewMemoryBackend()
	backends := map[models.Namespace]backend.Backend{
		models.NamespaceDefault: testBackend(doneChunk()),
	}
	cfg := testConfig()
	cfg.SweepInterval = 50 * time.Millisecond
	m := New(backends, hb, nil, stubSummarizer{title: "Generated Title"}, nil, cfg)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	events, unsubscribe := m.SubscribeToUpdates()
	defer unsubscribe()

	sess, err := m.GetOrCreate(context.Background(), "sess-1", "pk-1", models.NamespaceDefault)
	require.NoError(t, err)
	require.NoError(t, sess.SendUserInput("hello"))
	require.NoError(t, sess.SendUserInput("again"))
	waitUntil(t, time.Second, func() bool { return len(sess.History()) >= 2 })

	select {
	case ev := <-events:
		assert.Equal(t, EventTitleChanged, ev.Kind)
		assert.Equal(t, "Generated Title", ev.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a title_changed event")
	}
}
