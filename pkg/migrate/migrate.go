// Package migrate applies the goose SQL migrations, either the set compiled
// into the binary or a directory on disk.
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
)

const DefaultDir = "pkg/migrate/migrations"

// EmbeddedDir is the directory name inside the embedded filesystem.
const EmbeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// EmbeddedFiles lists the migration files compiled into the binary.
func EmbeddedFiles() ([]string, error) {
	return fs.Glob(embedded, EmbeddedDir+"/*.sql")
}

// Source is one set of migrations. The zero value is unusable.
type Source struct {
	name string
	fsys fs.FS
}

// Embedded is the migration set built into the binary, so deployed workers do
// not need the SQL files on disk.
func Embedded() Source {
	sub, err := fs.Sub(embedded, EmbeddedDir)
	if err != nil {
		// Only fails for an invalid path literal.
		panic(err)
	}
	return Source{name: "embedded", fsys: sub}
}

// Dir reads migrations from a directory on disk.
func Dir(path string) Source {
	return Source{name: path, fsys: os.DirFS(path)}
}

func (s Source) String() string { return s.name }

// provider is goose's instance API; unlike the package-level functions it
// holds no global filesystem or dialect state.
func (s Source) provider(db *sql.DB) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("migrate: db is required")
	}
	if s.fsys == nil {
		return nil, errors.New("migrate: empty source")
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, s.fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider for %s: %w", s.name, err)
	}
	return p, nil
}

// Up applies every pending migration and returns how many ran.
func Up(ctx context.Context, db *sql.DB, src Source) (int, error) {
	p, err := src.provider(db)
	if err != nil {
		return 0, err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("goose up: %w", err)
	}
	return len(results), nil
}

// Down rolls back the newest applied migration.
func Down(ctx context.Context, db *sql.DB, src Source) error {
	p, err := src.provider(db)
	if err != nil {
		return err
	}
	if _, err := p.Down(ctx); err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// Status reports every known migration and whether it has been applied.
func Status(ctx context.Context, db *sql.DB, src Source) ([]*goose.MigrationStatus, error) {
	p, err := src.provider(db)
	if err != nil {
		return nil, err
	}
	return p.Status(ctx)
}

// ToVersion moves the schema up or down until it sits at version, given as
// the YYYYMMDDHHMMSS prefix of a migration file.
func ToVersion(ctx context.Context, db *sql.DB, src Source, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || target < 0 {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", version)
	}
	p, err := src.provider(db)
	if err != nil {
		return err
	}
	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current < target:
		_, err = p.UpTo(ctx, target)
	case current > target:
		_, err = p.DownTo(ctx, target)
	}
	if err != nil {
		return fmt.Errorf("goose %d -> %d: %w", current, target, err)
	}
	return nil
}

// Versions returns the applied schema version and the newest version src
// knows about.
func Versions(ctx context.Context, db *sql.DB, src Source) (current, target int64, err error) {
	p, err := src.provider(db)
	if err != nil {
		return 0, 0, err
	}
	return p.GetVersions(ctx)
}
