package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dcse/searchd/internal/api"
	"github.com/dcse/searchd/internal/config"
	"github.com/dcse/searchd/internal/consumer"
	"github.com/dcse/searchd/internal/index"
	"github.com/dcse/searchd/internal/search"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings  func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings func(*config.Settings) error
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:  config.LoadSettingsWithFlags,
		ValidSettings: config.ValidateSettings,
	}
}

// RunWithDeps executes the server with the provided dependencies. It wires
// the index engine, idempotent writer, stream consumer, auto-refreshing
// reader, and search engine together, runs the background workers, and
// serves the HTTP API until ctx is cancelled.
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr to avoid buffering issues
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	slog.Info("Starting searchd", "version", version)
	config.Log(settings)

	synonymRules, err := index.LoadSynonymRules(settings.Index.SynonymsPath)
	if err != nil {
		return fmt.Errorf("failed to load synonym rules: %w", err)
	}
	if len(synonymRules) > 0 {
		slog.Info("Loaded synonym rules", "count", len(synonymRules))
	}

	engine, err := index.NewEngine(settings.Index.Dir, synonymRules)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			slog.Error("Failed to close index engine", "error", err)
		}
	}()

	// An existing index that cannot be opened is the one unrecoverable
	// startup condition.
	if engine.Exists() {
		if _, err := engine.TryOpen(); err != nil {
			return fmt.Errorf("failed to open index storage at %s: %w", engine.Path(), err)
		}
	}

	writer := index.NewWriter(engine)

	client := redis.NewClient(&redis.Options{Addr: settings.Stream.Addr})
	defer func() {
		if err := client.Close(); err != nil {
			slog.Error("Failed to close redis client", "error", err)
		}
	}()

	cons := consumer.New(client, writer, settings.Stream)
	reader := search.NewReader(engine, settings.Search.RefreshInterval)
	searchEngine := search.NewEngine(reader, settings.Search)

	app, err := api.NewApp(settings, searchEngine, cons, engine)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := cons.Run(runCtx); err != nil {
			slog.Error("Consumer stopped", "error", err)
		}
	}()

	// Pick up an existing index immediately instead of waiting one tick.
	reader.RefreshNow()
	go reader.Run(runCtx)

	return api.Serve(runCtx, app, settings)
}
