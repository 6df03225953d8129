// Package database opens the single storage handle every store shares.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/mongostore"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

// Connect opens the configured backend, verifies it is reachable and ensures
// its schema and indexes. Any failure is returned; callers treat it as fatal.
func Connect(ctx context.Context, cfg config.DatabaseConfig, collections config.CollectionsConfig) (service.Storage, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := storage.NewSQLiteStorage(cfg.Path)
		if err != nil {
			return nil, err
		}
		return finish(ctx, cfg, store, store.Migrate)

	case config.DriverMongo:
		store, err := mongostore.Open(mongostore.Options{
			URI:            cfg.URI,
			Database:       cfg.Name,
			ConnectTimeout: cfg.ConnectTimeout,
			Collections: mongostore.Collections{
				Users:        collections.Users,
				Transactions: collections.Transactions,
				Categories:   collections.Categories,
			},
		})
		if err != nil {
			return nil, err
		}
		return finish(ctx, cfg, store, store.EnsureIndexes)

	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", common.ErrInvalidConfig, cfg.Driver)
	}
}

func finish(ctx context.Context, cfg config.DatabaseConfig, store service.Storage, setup func(context.Context) error) (service.Storage, error) {
	if err := ping(ctx, store, cfg); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	setupCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := setup(setupCtx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to prepare database: %w", err)
	}

	slog.Info("Connected to database", "driver", cfg.Driver)
	return store, nil
}

// ping retries the connectivity check, bounding each attempt by the connect timeout.
func ping(ctx context.Context, store service.Storage, cfg config.DatabaseConfig) error {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return common.WithRetry(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return store.Ping(attemptCtx)
	}, common.RetryOptions{
		MaxAttempts:  cfg.ConnectAttempts,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	})
}
