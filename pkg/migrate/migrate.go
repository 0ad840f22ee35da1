package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/digitos-team/masala-software/pkg/logger"
)

// DefaultDir is where `create` writes new files, relative to the repo root.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Files returns the migrations compiled into the binary.
func Files() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Source returns the on-disk directory when dir is set and the embedded set
// otherwise.
func Source(dir string) fs.FS {
	if dir == "" {
		return Files()
	}
	return os.DirFS(dir)
}

// Runner applies goose migrations against Postgres. It never closes the
// *sql.DB it was given.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

func NewRunner(db *sql.DB, fsys fs.FS, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if fsys == nil {
		return nil, errors.New("migrations source is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) error {
	results, err := r.provider.Up(ctx)
	r.report(ctx, results...)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) error {
	result, err := r.provider.Down(ctx)
	r.report(ctx, result)
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// Redo rolls back the most recent migration and applies it again.
func (r *Runner) Redo(ctx context.Context) error {
	if err := r.Down(ctx); err != nil {
		return err
	}
	result, err := r.provider.UpByOne(ctx)
	r.report(ctx, result)
	if err != nil {
		return fmt.Errorf("goose up-by-one: %w", err)
	}
	return nil
}

// Reset rolls back everything.
func (r *Runner) Reset(ctx context.Context) error {
	results, err := r.provider.DownTo(ctx, 0)
	r.report(ctx, results...)
	if err != nil {
		return fmt.Errorf("goose reset: %w", err)
	}
	return nil
}

// To moves the schema up or down to version (YYYYMMDDHHMMSS).
func (r *Runner) To(ctx context.Context, version string) error {
	target, err := ParseVersion(version)
	if err != nil {
		return err
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	r.report(ctx, results...)
	if err != nil {
		return fmt.Errorf("goose migrate to %d: %w", target, err)
	}
	return nil
}

// Status lists every known migration with its applied state.
func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	return statuses, nil
}

func (r *Runner) report(ctx context.Context, results ...*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"version":   res.Source.Version,
			"path":      res.Source.Path,
			"direction": res.Direction,
			"duration":  res.Duration.String(),
		}), "migration applied")
	}
}

// ParseVersion accepts the 14-digit timestamp prefix used in filenames.
func ParseVersion(version string) (int64, error) {
	if len(version) != 14 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", version)
	}
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}
	return target, nil
}
