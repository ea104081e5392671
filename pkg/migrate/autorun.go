package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/packfinderz-pos/pkg/config"
	"github.com/angelmondragon/packfinderz-pos/pkg/db"
	"github.com/angelmondragon/packfinderz-pos/pkg/logger"
)

// MaybeRunDev brings a local database up to date on API boot.
// Outside dev, or without PACKFINDERZ_AUTO_MIGRATE, schema changes go through cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	pool, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	if err := Run(ctx, pool, Embedded(), "up"); err != nil {
		return fmt.Errorf("auto-migrate up: %w", err)
	}
	logg.Info(ctx, "migrate.auto_applied")
	return nil
}
