package main

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentcore/core/internal/backend"
	"github.com/agentcore/core/internal/config"
	"github.com/agentcore/core/internal/historybackend"
	"github.com/agentcore/core/internal/llmprovider"
	"github.com/agentcore/core/internal/observability"
	"github.com/agentcore/core/internal/sessionmgr"
	"github.com/agentcore/core/pkg/models"
)

func buildServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the session runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "agentcore.yaml", "path to the configuration file")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.Logging)
	metrics := observability.NewMetrics()

	var shutdownTracer func(context.Context) error
	if cfg.Tracing.Endpoint != "" {
		_, shutdownTracer = observability.NewTracer(cfg.Tracing)
		defer shutdownTracer(context.Background())
	}

	provider, err := buildProvider(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("build llm provider: %w", err)
	}

	history, closeHistory, err := buildHistoryBackend(cfg.History)
	if err != nil {
		return fmt.Errorf("build history backend: %w", err)
	}
	if closeHistory != nil {
		defer closeHistory()
	}

	schedulerCfg := cfg.Scheduler.ToSchedulerConfig()
	completionCfg := cfg.Completion.ToCompletionConfig()

	// No domain tools ship with this runtime: tool implementations are
	// assembled by the embedder and passed in here. An empty ToolSet
	// still exercises the full turn/scheduler/poller pipeline against
	// a provider that never emits a tool call.
	defaultBackend := backend.NewDefaultBackend(provider, completionCfg, schedulerCfg, backend.ToolSet{}).
		WithEventStore(observability.NewMemoryEventStore(0))
	analysisBackend := backend.NewAnalysisBackend(defaultBackend, nil, nil)

	backends := map[models.Namespace]backend.Backend{
		models.NamespaceDefault:  defaultBackend,
		models.NamespaceAnalysis: analysisBackend,
	}

	mgrCfg := cfg.SessionManager.ToSessionMgrConfig(cfg.Session.ToSessionStateConfig(), cfg.Poller.ToPollerConfig())
	mgr := sessionmgr.New(backends, history, metrics, nil, nil, mgrCfg)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start session manager: %w", err)
	}
	logger.Info(ctx, "agentcore runtime started", "llm_provider", provider.Name(), "history_backend", cfg.History.Backend)

	<-ctx.Done()
	logger.Info(ctx, "shutting down")
	mgr.Stop()
	return nil
}

func buildProvider(ctx context.Context, cfg config.LLMConfig) (llmprovider.Provider, error) {
	if cfg.DefaultProvider == "" {
		return nil, fmt.Errorf("llm.default_provider is required")
	}

	primary, err := newNamedProvider(ctx, cfg, cfg.DefaultProvider, cfg.Providers[cfg.DefaultProvider])
	if err != nil {
		return nil, err
	}
	if len(cfg.FallbackChain) == 0 {
		return primary, nil
	}

	orchestrator := llmprovider.NewOrchestrator(primary, llmprovider.DefaultFailoverConfig())
	for _, name := range cfg.FallbackChain {
		fallback, err := newNamedProvider(ctx, cfg, name, cfg.Providers[name])
		if err != nil {
			return nil, err
		}
		orchestrator.AddProvider(fallback)
	}
	return orchestrator, nil
}

func newNamedProvider(ctx context.Context, cfg config.LLMConfig, name string, pcfg config.LLMProviderConfig) (llmprovider.Provider, error) {
	switch name {
	case "anthropic":
		return llmprovider.NewAnthropicProvider(llmprovider.AnthropicConfig{
			APIKey:       pcfg.APIKey,
			BaseURL:      pcfg.BaseURL,
			DefaultModel: pcfg.DefaultModel,
		})
	case "openai":
		return llmprovider.NewOpenAIProvider(llmprovider.OpenAIConfig{
			APIKey:       pcfg.APIKey,
			BaseURL:      pcfg.BaseURL,
			DefaultModel: pcfg.DefaultModel,
		})
	case "bedrock":
		return llmprovider.NewBedrockProvider(ctx, llmprovider.BedrockConfig{
			Region:       cfg.Bedrock.Region,
			DefaultModel: pcfg.DefaultModel,
		})
	case "google":
		return llmprovider.NewGoogleProvider(ctx, llmprovider.GoogleConfig{
			APIKey:       pcfg.APIKey,
			DefaultModel: pcfg.DefaultModel,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}

func buildHistoryBackend(cfg config.HistoryConfig) (historybackend.Backend, func(), error) {
	switch cfg.Backend {
	case "nop":
		return historybackend.NopBackend{}, nil, nil
	case "memory", "":
		return historybackend.NewMemoryBackend(), nil, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		pg, err := historybackend.NewPostgresBackend(db, cfg.Limit)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init postgres backend: %w", err)
		}
		return pg, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}
