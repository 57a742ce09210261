// Package config loads the runtime configuration: the options table
// named in the environment/configuration section of the runtime spec,
// nothing else. Tool, transport, and provider wiring are caller
// concerns assembled in cmd/agentcore; this package only carries the
// knobs that size channels, intervals, and retry policy.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/agentcore/core/internal/completion"
	"github.com/agentcore/core/internal/observability"
	"github.com/agentcore/core/internal/poller"
	retry "github.com/agentcore/core/internal/retrypolicy"
	"github.com/agentcore/core/internal/scheduler"
	"github.com/agentcore/core/internal/sessionmgr"
	"github.com/agentcore/core/internal/sessionstate"
)

// RuntimeConfig is the root configuration document. Every field maps
// to one row of the option table: defaults match what the zero value
// of the underlying package's own DefaultConfig returns, so a config
// file only needs to name the values it wants to override.
type RuntimeConfig struct {
	Version int `yaml:"version"`

	Session        SessionConfig        `yaml:"session"`
	Scheduler      SchedulerConfig      `yaml:"scheduler"`
	Poller         PollerConfig         `yaml:"poller"`
	SessionManager SessionManagerConfig `yaml:"session_manager"`
	Completion     CompletionConfig     `yaml:"completion"`
	LLM            LLMConfig            `yaml:"llm"`
	History        HistoryConfig        `yaml:"history"`
	Logging        observability.LogConfig   `yaml:"logging"`
	Tracing        observability.TraceConfig `yaml:"tracing"`
}

// SessionConfig sizes the Session State's internal channels.
type SessionConfig struct {
	InputChannelCapacity   int           `yaml:"input_channel_capacity"`
	CommandChannelCapacity int           `yaml:"command_channel_capacity"`
	InterruptBuffer        int           `yaml:"interrupt_buffer"`
	TTL                    time.Duration `yaml:"ttl"`
}

func (c SessionConfig) ToSessionStateConfig() sessionstate.Config {
	d := sessionstate.DefaultConfig()
	if c.InputChannelCapacity > 0 {
		d.InputChannelCapacity = c.InputChannelCapacity
	}
	if c.CommandChannelCapacity > 0 {
		d.CommandChannelCapacity = c.CommandChannelCapacity
	}
	if c.InterruptBuffer > 0 {
		d.InterruptBuffer = c.InterruptBuffer
	}
	return d
}

// SchedulerConfig sizes the Tool Scheduler's result channel and the
// fallback timeout applied to tools that don't declare their own.
type SchedulerConfig struct {
	ResultChannelCapacity int           `yaml:"result_channel_capacity"`
	DefaultTimeout        time.Duration `yaml:"default_timeout"`
}

func (c SchedulerConfig) ToSchedulerConfig() scheduler.Config {
	d := scheduler.DefaultConfig()
	if c.ResultChannelCapacity > 0 {
		d.ResultChannelCapacity = c.ResultChannelCapacity
	}
	if c.DefaultTimeout > 0 {
		d.DefaultTimeout = c.DefaultTimeout
	}
	return d
}

// PollerConfig controls how often the Background Poller checks for
// tool completions while idle versus while a stream is active.
type PollerConfig struct {
	IdleInterval   time.Duration `yaml:"idle_interval"`
	ActiveInterval time.Duration `yaml:"active_interval"`
}

func (c PollerConfig) ToPollerConfig() poller.Config {
	d := poller.DefaultConfig()
	if c.IdleInterval > 0 {
		d.IdleInterval = c.IdleInterval
	}
	if c.ActiveInterval > 0 {
		d.ActiveInterval = c.ActiveInterval
	}
	return d
}

// SessionManagerConfig controls the Session Manager's title sweep.
type SessionManagerConfig struct {
	WorkerID      string        `yaml:"worker_id"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

func (c SessionManagerConfig) ToSessionMgrConfig(session sessionstate.Config, pollerCfg poller.Config) sessionmgr.Config {
	d := sessionmgr.DefaultConfig()
	if c.WorkerID != "" {
		d.WorkerID = c.WorkerID
	}
	if c.SweepInterval > 0 {
		d.SweepInterval = c.SweepInterval
	}
	d.SessionConfig = session
	d.PollerConfig = pollerCfg
	return d
}

// RetryConfig is the YAML shape of a retry.Config.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Factor       float64       `yaml:"factor"`
	Jitter       bool          `yaml:"jitter"`
}

func (c RetryConfig) ToRetryConfig() retry.Config {
	if c.MaxAttempts <= 0 {
		return retry.Exponential(3, time.Second, 30*time.Second)
	}
	return retry.Config{
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: c.InitialDelay,
		MaxDelay:     c.MaxDelay,
		Factor:       c.Factor,
		Jitter:       c.Jitter,
	}
}

// CompletionConfig sizes the Completion Runner: the token budget per
// turn, the wall-clock timeout a caller should apply to the LLM call,
// and the retry policy for transient provider failures.
type CompletionConfig struct {
	MaxTokens     int                 `yaml:"max_tokens"`
	LLMTimeout    time.Duration       `yaml:"llm_timeout"`
	LLMRetry      RetryConfig         `yaml:"llm_retry"`
	ContextPruning ContextPruningConfig `yaml:"context_pruning"`
}

func (c CompletionConfig) ToCompletionConfig() completion.Config {
	d := completion.DefaultConfig()
	if c.MaxTokens > 0 {
		d.MaxTokens = c.MaxTokens
		d.CharWindow = c.MaxTokens * 4
	}
	d.LLMRetry = c.LLMRetry.ToRetryConfig()
	d.Pruning = c.ContextPruning.ToPruningSettings()
	return d
}

// EffectiveLLMTimeout returns the wall-clock timeout a caller should
// wrap around one LLM turn, defaulting to the spec's documented value.
func (c CompletionConfig) EffectiveLLMTimeout() time.Duration {
	if c.LLMTimeout > 0 {
		return c.LLMTimeout
	}
	return 60 * time.Second
}

// HistoryConfig selects and configures the History Backend.
type HistoryConfig struct {
	// Backend is one of "memory", "postgres", or "nop".
	Backend string `yaml:"backend"`
	// DSN is the postgres connection string; required when Backend is "postgres".
	DSN string `yaml:"dsn"`
	// Limit bounds how many trailing messages LoadHistory returns per session.
	Limit int `yaml:"limit"`
}

// Default returns a RuntimeConfig populated with every documented
// default, equivalent to an empty config file.
func Default() RuntimeConfig {
	return RuntimeConfig{
		Version: CurrentVersion,
		Session: SessionConfig{
			InputChannelCapacity:   8,
			CommandChannelCapacity: 100,
			InterruptBuffer:        1,
		},
		Scheduler: SchedulerConfig{
			ResultChannelCapacity: 16,
			DefaultTimeout:        60 * time.Second,
		},
		Poller: PollerConfig{
			IdleInterval:   50 * time.Millisecond,
			ActiveInterval: 10 * time.Millisecond,
		},
		SessionManager: SessionManagerConfig{
			SweepInterval: 5 * time.Second,
		},
		Completion: CompletionConfig{
			MaxTokens:  4096,
			LLMTimeout: 60 * time.Second,
			LLMRetry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: time.Second,
				MaxDelay:     30 * time.Second,
				Factor:       2.0,
				Jitter:       true,
			},
			ContextPruning: DefaultContextPruningConfig(),
		},
		LLM: LLMConfig{
			Providers: map[string]LLMProviderConfig{},
		},
		History: HistoryConfig{
			Backend: "memory",
			Limit:   200,
		},
		Logging: observability.LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path (resolving $include directives and expanding
// ${VAR}/$VAR environment references, in that order) and decodes the
// merged document into a RuntimeConfig, applying defaults for any
// field left unset and validating the result.
func Load(path string) (*RuntimeConfig, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	applyDefaults(cfg)

	if err := ValidateVersion(cfg.Version); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *RuntimeConfig) {
	defaults := Default()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}
	if cfg.Session.InputChannelCapacity == 0 {
		cfg.Session.InputChannelCapacity = defaults.Session.InputChannelCapacity
	}
	if cfg.Session.CommandChannelCapacity == 0 {
		cfg.Session.CommandChannelCapacity = defaults.Session.CommandChannelCapacity
	}
	if cfg.Session.InterruptBuffer == 0 {
		cfg.Session.InterruptBuffer = defaults.Session.InterruptBuffer
	}
	if cfg.Scheduler.ResultChannelCapacity == 0 {
		cfg.Scheduler.ResultChannelCapacity = defaults.Scheduler.ResultChannelCapacity
	}
	if cfg.Scheduler.DefaultTimeout == 0 {
		cfg.Scheduler.DefaultTimeout = defaults.Scheduler.DefaultTimeout
	}
	if cfg.Poller.IdleInterval == 0 {
		cfg.Poller.IdleInterval = defaults.Poller.IdleInterval
	}
	if cfg.Poller.ActiveInterval == 0 {
		cfg.Poller.ActiveInterval = defaults.Poller.ActiveInterval
	}
	if cfg.SessionManager.SweepInterval == 0 {
		cfg.SessionManager.SweepInterval = defaults.SessionManager.SweepInterval
	}
	if cfg.SessionManager.WorkerID == "" {
		cfg.SessionManager.WorkerID = defaults.SessionManager.WorkerID
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = defaults.Completion.MaxTokens
	}
	if cfg.Completion.LLMTimeout == 0 {
		cfg.Completion.LLMTimeout = defaults.Completion.LLMTimeout
	}
	if cfg.Completion.LLMRetry.MaxAttempts == 0 {
		cfg.Completion.LLMRetry = defaults.Completion.LLMRetry
	}
	applyContextPruningDefaults(&cfg.Completion.ContextPruning)
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = map[string]LLMProviderConfig{}
	}
	if cfg.History.Backend == "" {
		cfg.History.Backend = defaults.History.Backend
	}
	if cfg.History.Limit == 0 {
		cfg.History.Limit = defaults.History.Limit
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
}

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config field %q: %s", e.Field, e.Reason)
}

// Validate checks cfg for internally inconsistent values that
// applyDefaults cannot repair on its own.
func Validate(cfg *RuntimeConfig) error {
	switch cfg.History.Backend {
	case "memory", "nop":
	case "postgres":
		if cfg.History.DSN == "" {
			return &ValidationError{Field: "history.dsn", Reason: "required when history.backend is \"postgres\""}
		}
	default:
		return &ValidationError{Field: "history.backend", Reason: fmt.Sprintf("unknown backend %q, want memory, postgres, or nop", cfg.History.Backend)}
	}

	if cfg.LLM.DefaultProvider != "" {
		if _, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; !ok {
			return &ValidationError{Field: "llm.default_provider", Reason: fmt.Sprintf("provider %q has no entry under llm.providers", cfg.LLM.DefaultProvider)}
		}
	}
	for _, name := range cfg.LLM.FallbackChain {
		if _, ok := cfg.LLM.Providers[name]; !ok {
			return &ValidationError{Field: "llm.fallback_chain", Reason: fmt.Sprintf("provider %q has no entry under llm.providers", name)}
		}
	}
	return nil
}

// expandEnv is a thin wrapper kept for call sites that only need
// variable expansion without the $include machinery LoadRaw applies.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}
