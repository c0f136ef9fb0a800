package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/parley/internal/agent"
	"github.com/haasonsaas/parley/internal/agent/providers"
	"github.com/haasonsaas/parley/internal/auth"
	"github.com/haasonsaas/parley/internal/config"
	"github.com/haasonsaas/parley/internal/gateway"
	"github.com/haasonsaas/parley/internal/observability"
	"github.com/haasonsaas/parley/internal/sessions"
	"github.com/haasonsaas/parley/internal/titles"
	"github.com/haasonsaas/parley/internal/tools"
)

// buildServeCmd creates the "serve" command that starts the HTTP server.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Parley API server",
		Long: `Start the Parley API server.

The server will:
1. Load configuration from the specified file (or parley.yaml)
2. Open the session store backend (memory, sqlite, or postgres)
3. Register the built-in tools and agent catalog
4. Start the HTTP server for the chat API, metrics, and health checks

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  parley serve

  # Start with custom config
  parley serve --config /etc/parley/production.yaml

  # Start with debug logging
  parley serve --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(),
		"Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	return cmd
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:  level,
		Format: cfg.Logging.Format,
	})
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()
	store = sessions.NewInstrumentedStore(store, metrics, cfg.Database.Backend)
	defer sessions.ClosePooledConnections()

	registry, err := tools.NewRegistry(logger)
	if err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}
	factory := agent.NewFactory(registry)

	resolver, err := providers.NewResolver(cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("configuring llm providers: %w", err)
	}

	engine := agent.NewEngine(resolver, logger, metrics, agent.EngineConfig{
		MaxTurns: cfg.Agents.MaxTurns,
	})
	normalizer := agent.NewNormalizer(logger, metrics)
	orchestrator := agent.NewOrchestrator(engine, factory, store, normalizer, logger)

	authSvc := auth.NewService(
		cfg.Auth.JWTSecret,
		cfg.Auth.TokenExpiry,
		cfg.Auth.RefreshExpiry,
		auth.NewMemoryUserStore(),
		auth.NewMemoryTokenStore(),
		logger,
	)

	var renamer *titles.Renamer
	if cfg.Agents.TitleRenaming {
		renamer = titles.NewRenamer(engine, factory, store, logger, cfg.Agents.TitleMaxTurns)
	}

	server := gateway.NewServer(gateway.Options{
		Config:       cfg,
		Logger:       logger,
		Metrics:      metrics,
		Orchestrator: orchestrator,
		Factory:      factory,
		Registry:     registry,
		Store:        store,
		Auth:         authSvc,
		Renamer:      renamer,
		Gatherer:     prometheus.DefaultGatherer,
		Version:      version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info(ctx, "shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info(ctx, "shutting down", "reason", "context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist so `parley serve` works out of the box.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && os.Getenv("PARLEY_CONFIG") == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func openStore(cfg *config.Config) (sessions.Store, error) {
	switch cfg.Database.Backend {
	case "postgres":
		return sessions.NewPostgresStore(cfg.Database.URL, sessions.PostgresOptions{
			MaxConnections:  cfg.Database.MaxConnections,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnectTimeout:  cfg.Database.ConnectTimeout,
		})
	case "sqlite":
		return sessions.NewSQLiteStore(cfg.Database.URL)
	default:
		return sessions.NewMemoryStore(), nil
	}
}
