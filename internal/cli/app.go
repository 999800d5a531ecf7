package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/pbriand/verifai/internal/cache"
	"github.com/pbriand/verifai/internal/engine"
	"github.com/pbriand/verifai/internal/model"
	"github.com/pbriand/verifai/internal/provider"
	"github.com/pbriand/verifai/internal/store"
)

// app bundles the wired components behind a command invocation.
type app struct {
	cfg    *model.Config
	engine *engine.Engine
	store  *store.SQLiteStore
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// loadConfig merges defaults, the config file, and environment variables.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	// API keys come from the environment, never the config file.
	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		cfg.Search.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Analysis.APIKey = key
	}
	return cfg, nil
}

// newApp wires stores, providers, and the engine from configuration.
func newApp(cfg *model.Config) (*app, error) {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	search, err := provider.NewSearchProvider(cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("search provider: %w", err)
	}

	var analysis provider.AnalysisProvider
	if cfg.Analysis.APIKey != "" {
		analysis, err = provider.NewAnalysisProvider(cfg.Analysis)
		if err != nil {
			return nil, fmt.Errorf("analysis provider: %w", err)
		}
	} else if verbose {
		fmt.Fprintln(os.Stderr, "No analysis API key set, stances will be UNKNOWN")
	}

	db, err := store.OpenSQLite(cfg.Store.Path, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var claims *cache.ClaimCache
	if cfg.Cache.Enabled {
		claims = cache.NewClaimCache(
			cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.SweepInterval), cfg.Cache.TTL)
	}

	eng, err := engine.New(engine.Params{
		Config:      cfg,
		Search:      search,
		Analysis:    analysis,
		Claims:      claims,
		Checkpoints: db,
		Logger:      logger,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &app{cfg: cfg, engine: eng, store: db}, nil
}

// openStore opens only the database, for commands that never call providers.
func openStore(cfg *model.Config) (*store.SQLiteStore, error) {
	db, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

// noopSearch satisfies the engine for commands that only touch persisted
// sessions (resume, status, cancel) and never search.
type noopSearch struct{}

func (noopSearch) Name() string { return "none" }

func (noopSearch) Search(_ context.Context, _ string, _ int) (*provider.SearchResponse, error) {
	return nil, fmt.Errorf("search is not available in this command")
}

// newStoreApp wires an engine over the store without live providers.
func newStoreApp(cfg *model.Config) (*app, error) {
	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(engine.Params{
		Config:      cfg,
		Search:      noopSearch{},
		Checkpoints: db,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &app{cfg: cfg, engine: eng, store: db}, nil
}
