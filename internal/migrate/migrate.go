// Package migrate applies the SQL files under migrations/ to PostgreSQL and
// records which ones have run in schema_migrations.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/ignite/blacklist-api/internal/pkg/distlock"
	"github.com/ignite/blacklist-api/internal/pkg/logger"
)

// LockKey serializes concurrent migration runs across hosts.
const LockKey = "blacklist-migrations"

// ErrLocked is returned when another process holds the migration lock.
var ErrLocked = errors.New("migrate: another migration run holds the lock")

const createTrackingTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	filename   TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Applied is one row of schema_migrations.
type Applied struct {
	Filename  string
	AppliedAt time.Time
}

// Result summarizes an Up run.
type Result struct {
	Applied []string
	Skipped []string
}

// Runner applies migrations from a filesystem.
type Runner struct {
	db      *sql.DB
	lock    distlock.DistLock
	lockTTL time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithLockTTL sets the lease of an expiring lock. While Up runs, the lease
// is renewed every ttl/3.
func WithLockTTL(ttl time.Duration) Option {
	return func(r *Runner) { r.lockTTL = ttl }
}

// extender is implemented by locks whose lease expires, such as
// distlock.RedisLock.
type extender interface {
	Extend(ctx context.Context, ttl time.Duration) error
}

// NewRunner creates a runner. lock may be nil when the caller already
// guarantees a single writer.
func NewRunner(db *sql.DB, lock distlock.DistLock, opts ...Option) *Runner {
	r := &Runner{db: db, lock: lock}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Files returns the non-empty *.sql files in fsys in lexical order.
func Files(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Up applies every pending migration, each in its own transaction. The run
// stops at the first failure; files already committed stay recorded.
func (r *Runner) Up(ctx context.Context, fsys fs.FS) (*Result, error) {
	if r.lock != nil {
		ok, err := r.lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire migration lock: %w", err)
		}
		if !ok {
			return nil, ErrLocked
		}
		defer func() {
			if err := r.lock.Release(context.Background()); err != nil {
				logger.Warn("migrate: release lock failed", "error", err)
			}
		}()
		if ext, ok := r.lock.(extender); ok && r.lockTTL > 0 {
			stop := keepAlive(ctx, ext, r.lockTTL)
			defer stop()
		}
	}

	if _, err := r.db.ExecContext(ctx, createTrackingTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := Files(fsys)
	if err != nil {
		return nil, err
	}
	done, err := r.appliedSet(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, f := range files {
		if done[f] {
			res.Skipped = append(res.Skipped, f)
			continue
		}
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return res, fmt.Errorf("read %s: %w", f, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if err := r.apply(ctx, f, string(data)); err != nil {
			return res, err
		}
		logger.Info("migration applied", "file", f)
		res.Applied = append(res.Applied, f)
	}
	return res, nil
}

// keepAlive renews the lock lease until the returned stop func is called.
func keepAlive(ctx context.Context, lock extender, ttl time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lock.Extend(ctx, ttl); err != nil && ctx.Err() == nil {
					logger.Error("migrate: extend lock failed", "ttl", ttl.String(), "error", err)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (r *Runner) apply(ctx context.Context, name, content string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, content); err != nil {
		tx.Rollback()
		return fmt.Errorf("apply %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
		tx.Rollback()
		return fmt.Errorf("record %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

func (r *Runner) appliedSet(ctx context.Context) (map[string]bool, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(list))
	for _, a := range list {
		set[a.Filename] = true
	}
	return set, nil
}

// List returns the applied migrations ordered by filename.
func (r *Runner) List(ctx context.Context) ([]Applied, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT filename, applied_at FROM schema_migrations ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("list schema_migrations: %w", err)
	}
	defer rows.Close()

	var out []Applied
	for rows.Next() {
		var a Applied
		if err := rows.Scan(&a.Filename, &a.AppliedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
