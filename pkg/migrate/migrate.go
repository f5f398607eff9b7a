// Package migrate wraps goose for the inventory schema: a Runner bound to
// one database and migrations directory, filename validation for shipped
// migrations, and the dev auto-run hook.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Runner executes goose commands against one database and directory.
type Runner struct {
	db  *sql.DB
	dir string
}

// NewRunner binds a runner to the given connection and migrations directory.
func NewRunner(db *sql.DB, dir string) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	return &Runner{db: db, dir: dir}, nil
}

func (r *Runner) Up(ctx context.Context) error {
	if err := goose.UpContext(ctx, r.db, r.dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (r *Runner) Down(ctx context.Context) error {
	if err := goose.DownContext(ctx, r.db, r.dir); err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

func (r *Runner) Status(ctx context.Context) error {
	if err := goose.StatusContext(ctx, r.db, r.dir); err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	return nil
}

// ToVersion migrates up or down until the database sits at the requested
// goose version.
func (r *Runner) ToVersion(ctx context.Context, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}

	current, err := goose.GetDBVersionContext(ctx, r.db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, r.db, r.dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, r.db, r.dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}
