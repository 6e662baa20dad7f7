// Package lock guards a pipeline stage against concurrent runs with a MySQL
// advisory lock.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dbsmedya/catalogsync/internal/logger"
)

// ErrLockTimeout is returned when another instance holds the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Timeouts for GET_LOCK, in seconds.
const (
	TimeoutImmediate = 0
	TimeoutShort     = 1
	TimeoutMedium    = 10
	// MySQL treats negative values as an infinite wait.
	TimeoutInfinite = -1
)

// AdvisoryLock is a named GET_LOCK held on one dedicated connection.
// Advisory locks belong to the session, so the connection is pinned from
// acquisition until release and never returned to the pool in between.
type AdvisoryLock struct {
	db       *sql.DB
	conn     *sql.Conn
	lockName string
	logger   *logger.Logger
}

// New creates a lock for the named operation. Nothing is acquired yet.
func New(db *sql.DB, operation string, log *logger.Logger) *AdvisoryLock {
	if log == nil {
		log = logger.NewDefault()
	}
	return &AdvisoryLock{
		db:       db,
		lockName: Name(operation),
		logger:   log,
	}
}

// Name returns the namespaced lock name for an operation, e.g.
// "catalogsync:run:sync". Characters outside [A-Za-z0-9_-] become '_'.
func Name(operation string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, operation)
	return "catalogsync:run:" + sanitized
}

// LockName returns the full lock name.
func (a *AdvisoryLock) LockName() string {
	return a.lockName
}

// IsHeld reports whether this instance holds the lock.
func (a *AdvisoryLock) IsHeld() bool {
	return a.conn != nil
}

// Acquire waits up to timeoutSeconds for the lock. It returns false without
// error when another session holds it.
//
// GET_LOCK returns 1 on success, 0 on timeout and NULL on error.
func (a *AdvisoryLock) Acquire(ctx context.Context, timeoutSeconds int) (bool, error) {
	if a.conn != nil {
		return true, nil
	}

	conn, err := a.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reserve lock connection: %w", err)
	}

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", a.lockName, timeoutSeconds).Scan(&result); err != nil {
		conn.Close()
		return false, fmt.Errorf("failed to execute GET_LOCK: %w", err)
	}
	if !result.Valid {
		conn.Close()
		return false, fmt.Errorf("GET_LOCK returned NULL for lock %q", a.lockName)
	}

	switch result.Int64 {
	case 1:
		a.conn = conn
		a.logger.Debugw("Advisory lock acquired", "lock", a.lockName)
		return true, nil
	case 0:
		conn.Close()
		return false, nil
	default:
		conn.Close()
		return false, fmt.Errorf("unexpected GET_LOCK return value: %d", result.Int64)
	}
}

// Release releases the lock and returns its connection to the pool.
// Releasing a lock that is not held is a no-op.
func (a *AdvisoryLock) Release(ctx context.Context) error {
	if a.conn == nil {
		return nil
	}
	conn := a.conn
	a.conn = nil
	defer conn.Close()

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", a.lockName).Scan(&result); err != nil {
		return fmt.Errorf("failed to execute RELEASE_LOCK: %w", err)
	}
	if !result.Valid || result.Int64 != 1 {
		return fmt.Errorf("lock %q was not held by this session", a.lockName)
	}
	a.logger.Debugw("Advisory lock released", "lock", a.lockName)
	return nil
}

// WithLock runs fn while holding the lock. The lock is released even when
// fn panics or ctx is cancelled.
func (a *AdvisoryLock) WithLock(ctx context.Context, timeoutSeconds int, fn func(context.Context) error) error {
	acquired, err := a.Acquire(ctx, timeoutSeconds)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.lockName)
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Release(releaseCtx); err != nil {
			a.logger.Warnw("Failed to release advisory lock", "lock", a.lockName, "error", err)
		}
	}()

	return fn(ctx)
}

// IsRunning reports whether some session currently holds the lock of
// operation. The answer can change right after it is returned.
func IsRunning(ctx context.Context, db *sql.DB, operation string) (bool, error) {
	var free sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT IS_FREE_LOCK(?)", Name(operation)).Scan(&free); err != nil {
		return false, fmt.Errorf("failed to check lock for %q: %w", operation, err)
	}
	if !free.Valid {
		return false, fmt.Errorf("IS_FREE_LOCK returned NULL for %q", operation)
	}
	return free.Int64 == 0, nil
}
