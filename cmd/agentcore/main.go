// Package main provides the CLI entry point for agentcore: a headless
// runtime that holds one Session Manager over a pool of Session States,
// each driven by a Completion Runner against a pluggable LLM provider.
//
// Start the server:
//
//	agentcore serve --config agentcore.yaml
//
// # Environment Variables
//
//   - AGENTCORE_CONFIG: path to the configuration file (default: agentcore.yaml)
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY: provider credentials referenced from config via ${VAR} expansion
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentcore",
		Short: "agentcore - session-scoped agent runtime",
		Long: `agentcore drives chat sessions through an LLM, dispatching tool calls
through a scheduler and streaming results back as a session evolves.

Documentation: https://github.com/agentcore/core`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(buildServeCmd())
	return rootCmd
}
