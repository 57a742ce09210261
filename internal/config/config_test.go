package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesDocumentedDefaults(t *testing.T) {
	d := Default()

	assert.Equal(t, 8, d.Session.InputChannelCapacity)
	assert.Equal(t, 100, d.Session.CommandChannelCapacity)
	assert.Equal(t, 16, d.Scheduler.ResultChannelCapacity)
	assert.Equal(t, 60*time.Second, d.Scheduler.DefaultTimeout)
	assert.Equal(t, 50*time.Millisecond, d.Poller.IdleInterval)
	assert.Equal(t, 10*time.Millisecond, d.Poller.ActiveInterval)
	assert.Equal(t, 5*time.Second, d.SessionManager.SweepInterval)
	assert.Equal(t, 3, d.Completion.LLMRetry.MaxAttempts)
	assert.Equal(t, time.Second, d.Completion.LLMRetry.InitialDelay)
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nhistory:\n  backend: memory\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Session.InputChannelCapacity)
	assert.Equal(t, 16, cfg.Scheduler.ResultChannelCapacity)
	assert.Equal(t, "memory", cfg.History.Backend)
	assert.Equal(t, 200, cfg.History.Limit)
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_AGENTCORE_API_KEY", "sk-test-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "version: 1\nllm:\n  default_provider: anthropic\n  providers:\n    anthropic:\n      api_key: ${TEST_AGENTCORE_API_KEY}\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", cfg.LLM.Providers["anthropic"].APIKey)
}

func TestLoadResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.yaml")
	require.NoError(t, os.WriteFile(basePath, []byte("history:\n  backend: memory\n  limit: 50\n"), 0o644))

	mainPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(mainPath, []byte("version: 1\n$include: base.yaml\nsession:\n  input_channel_capacity: 32\n"), 0o644))

	cfg, err := Load(mainPath)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.History.Backend)
	assert.Equal(t, 50, cfg.History.Limit)
	assert.Equal(t, 32, cfg.Session.InputChannelCapacity)
}

func TestValidatePostgresRequiresDSN(t *testing.T) {
	cfg := Default()
	cfg.History.Backend = "postgres"
	cfg.History.DSN = ""
	err := Validate(&cfg)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "history.dsn", ve.Field)
}

func TestValidateUnknownHistoryBackend(t *testing.T) {
	cfg := Default()
	cfg.History.Backend = "sqlite"
	err := Validate(&cfg)
	require.Error(t, err)
}

func TestValidateFallbackChainMustReferenceKnownProvider(t *testing.T) {
	cfg := Default()
	cfg.LLM.Providers = map[string]LLMProviderConfig{"anthropic": {}}
	cfg.LLM.FallbackChain = []string{"openai"}
	err := Validate(&cfg)
	require.Error(t, err)
}

func TestContextPruningConfigFallsThroughToDefaultsWhenUnset(t *testing.T) {
	c := DefaultContextPruningConfig()
	settings := c.ToPruningSettings()
	assert.Equal(t, 3, settings.KeepLastAssistants)
	assert.True(t, settings.HardClearEnabled)
}

func TestContextPruningConfigOverridesAndClamps(t *testing.T) {
	keep := 7
	ratio := 1.5 // out of range, should clamp to 1
	c := ContextPruningConfig{
		KeepLastAssistants: &keep,
		SoftTrimRatio:      &ratio,
	}
	settings := c.ToPruningSettings()
	assert.Equal(t, 7, settings.KeepLastAssistants)
	assert.Equal(t, 1.0, settings.SoftTrimRatio)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nbogus_field: true\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
