package migrate

import (
	"context"
	"fmt"

	"github.com/casamarket/casa-backend/pkg/config"
	"github.com/casamarket/casa-backend/pkg/db"
	"github.com/casamarket/casa-backend/pkg/logger"
)

// autoRunSkip returns why startup migration is off, or "" when it should run.
func autoRunSkip(cfg *config.Config, dialect string) string {
	switch {
	case !cfg.FeatureFlags.AutoMigrate:
		return "CASA_AUTO_MIGRATE is off"
	case !cfg.App.IsDev():
		return "only dev environments migrate on boot"
	case dialect != "postgres":
		return "migrations target postgres, driver is " + dialect
	}
	return ""
}

// MaybeRunDev brings a dev database up to the embedded schema at boot.
// Everywhere else migrations are applied with cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if reason := autoRunSkip(cfg, client.Dialect()); reason != "" {
		logg.Debug(logg.WithField(ctx, "reason", reason), "startup migration skipped")
		return nil
	}

	pool, err := client.SQL()
	if err != nil {
		return fmt.Errorf("startup migration: %w", err)
	}
	runner, err := NewRunner(pool, Embedded(), logg)
	if err != nil {
		return fmt.Errorf("startup migration: %w", err)
	}
	if err := runner.Up(logg.WithField(ctx, "env", cfg.App.Env)); err != nil {
		return fmt.Errorf("startup migration: %w", err)
	}
	return nil
}
