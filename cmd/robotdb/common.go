package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/robotdb/pkg/config"
	"github.com/ethpandaops/robotdb/pkg/store"
)

// loadConfig reads the --config files and environment, then validates the
// result. The config log level applies unless --log-level was given.
func loadConfig(mutators ...func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cfgFiles...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	for _, mutate := range mutators {
		mutate(cfg)
	}

	if !logLevelSet && cfg.Global.LogLevel != "" {
		if err := applyLogLevel(cfg.Global.LogLevel); err != nil {
			return nil, fmt.Errorf("global.log_level: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	s := store.NewStore(log, &cfg.Database)
	if err := s.Start(ctx); err != nil {
		_ = s.Stop()

		return nil, fmt.Errorf("starting store: %w", err)
	}

	return s, nil
}

func stopStore(s store.Store) {
	if err := s.Stop(); err != nil {
		log.WithError(err).Warn("Failed to close database")
	}
}
