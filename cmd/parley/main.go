// Package main provides the CLI entry point for the Parley agent backend.
//
// Parley brokers conversations between clients and LLM-backed agents:
// streaming NDJSON responses, server- and client-side tool execution,
// and durable session history.
//
// # Basic Usage
//
// Start the server:
//
//	parley serve --config parley.yaml
//
// # Environment Variables
//
//   - PARLEY_CONFIG: Path to configuration file (default: parley.yaml)
//   - OPENAI_API_KEY: OpenAI API key, referenced as ${OPENAI_API_KEY}
//     from the config file
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"     // Semantic version (e.g., "v1.0.0")
	commit  = "none"    // Git commit SHA
	date    = "unknown" // Build timestamp
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "parley",
		Short:        "Parley - Conversational AI agent backend",
		Long:         "Parley serves LLM-backed agents over a streaming NDJSON HTTP API with durable sessions and client-side tool execution.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(buildServeCmd())
	return rootCmd
}

func defaultConfigPath() string {
	if path := os.Getenv("PARLEY_CONFIG"); path != "" {
		return path
	}
	return "parley.yaml"
}
