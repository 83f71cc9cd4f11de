// Command migrate manages the Postgres schema with goose.
//
//	migrate -cmd up                      apply pending migrations from -dir
//	migrate -cmd up -embedded            apply the migrations built into the binary
//	migrate -cmd version -version 2026…  move up or down to a version
//	migrate -cmd check -embedded         exit 2 when the database lags the migrations
//	migrate -cmd create -name zonas      scaffold a new SQL migration
//	migrate -cmd validate                lint migration files without a database
package main

import (
	"context"
	"errors"
	"flag"
	"database/sql"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/db"
	"github.com/aguasol/aguasol-backend/pkg/logger"
	"github.com/aguasol/aguasol-backend/pkg/migrate"
)

var errSchemaBehind = errors.New("database schema is behind the migrations")

type options struct {
	cmd      string
	dir      string
	name     string
	version  string
	embedded bool
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|check|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.BoolVar(&opts.embedded, "embedded", false, "use the migrations compiled into the binary instead of -dir")
	flag.Parse()

	_ = godotenv.Load()

	err := run(opts)
	switch {
	case errors.Is(err, errSchemaBehind):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	// create and validate only touch files.
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("missing -name")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if opts.embedded {
			return migrate.ValidateEmbedded()
		}
		return migrate.ValidateDir(opts.dir)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"cmd":      opts.cmd,
		"dir":      opts.dir,
		"embedded": opts.embedded,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	src := migrate.Dir(opts.dir)
	if opts.embedded {
		src = migrate.Embedded()
	}

	switch opts.cmd {
	case "up":
		var applied int
		applied, err = migrate.Up(ctx, sqlDB, src)
		ctx = logg.WithField(ctx, "applied", applied)
	case "down":
		err = migrate.Down(ctx, sqlDB, src)
	case "status":
		err = printStatus(ctx, sqlDB, src)
	case "version":
		if opts.version == "" {
			return errors.New("missing -version")
		}
		err = migrate.ToVersion(ctx, sqlDB, src, opts.version)
	case "check":
		current, target, verr := migrate.Versions(ctx, sqlDB, src)
		if verr != nil {
			return verr
		}
		logg.Info(logg.WithFields(ctx, map[string]any{"schema_version": current, "binary_version": target}), "schema version checked")
		if current < target {
			return fmt.Errorf("%w: at %d, want %d", errSchemaBehind, current, target)
		}
	default:
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
	if err != nil {
		return err
	}
	logg.Info(ctx, "migrate finished")
	return nil
}

func printStatus(ctx context.Context, sqlDB *sql.DB, src migrate.Source) error {
	statuses, err := migrate.Status(ctx, sqlDB, src)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, st := range statuses {
		applied := "-"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, st.Source.Path)
	}
	return tw.Flush()
}
