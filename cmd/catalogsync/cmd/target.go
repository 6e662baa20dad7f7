package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/database"
	"github.com/dbsmedya/catalogsync/internal/lock"
)

// connectTarget opens and pings the target store.
func (e *runEnv) connectTarget(ctx context.Context) (*database.Manager, error) {
	dbManager := database.NewManager(&e.cfg.Target)
	if err := dbManager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to target: %w", err)
	}
	if err := dbManager.Ping(ctx); err != nil {
		dbManager.Close()
		return nil, fmt.Errorf("target connection failed: %w", err)
	}
	e.log.Infow("Connected to target", "host", e.cfg.Target.Host, "database", e.cfg.Target.Database)
	return dbManager, nil
}

// withRunLock runs fn while holding the advisory lock of operation. With
// skip set fn runs without the lock.
func (e *runEnv) withRunLock(ctx context.Context, dbManager *database.Manager, operation string, skip bool, fn func(context.Context) error) error {
	if skip {
		e.log.Warnw("Running without run lock", "operation", operation)
		return fn(ctx)
	}

	runLock := lock.New(dbManager.Target, operation, e.log)
	err := runLock.WithLock(ctx, lock.TimeoutShort, func(ctx context.Context) error {
		e.log.Infow("Run lock acquired", "lock", runLock.LockName())
		return fn(ctx)
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		return fmt.Errorf("%s is already running on another instance (use --force to override): %w", operation, err)
	}
	return err
}

func codesOperation(codes config.CodesConfig) string {
	return "codes-" + codes.Table + "-" + codes.Column
}
