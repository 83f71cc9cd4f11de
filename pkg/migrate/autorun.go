package migrate

import (
	"context"
	"fmt"

	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/db"
	"github.com/aguasol/aguasol-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations when running in dev with the
// auto-migrate flag on. Elsewhere it only reports whether the database lags
// behind the binary; deploys run cmd/migrate explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.DB.Driver == db.DriverSQLite {
		logg.Debug(ctx, "sqlite database: goose migrations skipped")
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate {
		logg.Info(ctx, "applying embedded migrations")
		applied, err := Up(ctx, sqlDB, Embedded())
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "embedded migrations applied")
		return nil
	}

	current, target, err := Versions(ctx, sqlDB, Embedded())
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "could not read schema version")
		return nil
	}
	versionCtx := logg.WithFields(ctx, map[string]any{"schema_version": current, "binary_version": target})
	if current < target {
		logg.Warn(versionCtx, "database schema is behind this binary; run cmd/migrate")
		return nil
	}
	logg.Debug(versionCtx, "database schema up to date")
	return nil
}
