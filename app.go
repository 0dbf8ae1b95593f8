package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/planea-app/planea-go/internal/remote"
	"github.com/planea-app/planea-go/internal/sync"
)

// app bundles the assembled engine parts for one CLI invocation.
type app struct {
	logger *slog.Logger
	state  *sync.StateStore
	store  *sync.Store
	engine *sync.Engine
}

// newApp assembles the state store, in-memory store, remote client, and
// engine from the resolved configuration, and bootstraps persisted
// snapshots into memory.
func newApp(ctx context.Context) (*app, error) {
	logger := buildLogger()

	if err := os.MkdirAll(resolvedCfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	state, err := sync.NewStateStore(filepath.Join(resolvedCfg.DataDir, "state.db"), logger)
	if err != nil {
		return nil, err
	}

	store := sync.NewStore(state, logger)
	if err := store.Bootstrap(ctx); err != nil {
		state.Close()
		return nil, err
	}

	gateway := remote.NewClient(
		resolvedCfg.BaseURL,
		defaultHTTPClient(),
		remote.NewFileTokenSource(resolvedCfg.TokenFile),
		logger,
		resolvedCfg.UserAgent,
	)

	engine := sync.NewEngine(store, state, gateway, sync.EngineConfig{
		PullInterval: resolvedCfg.PullInterval,
		PushDebounce: resolvedCfg.PushDebounce,
	}, logger)

	return &app{logger: logger, state: state, store: store, engine: engine}, nil
}

// close releases the app's resources.
func (a *app) close() {
	if err := a.state.Close(); err != nil {
		a.logger.Warn("closing state store", slog.String("error", err.Error()))
	}
}
