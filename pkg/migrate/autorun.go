package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/nexusshop-storefront/pkg/config"
	"github.com/angelmondragon/nexusshop-storefront/pkg/db"
	"github.com/angelmondragon/nexusshop-storefront/pkg/logger"
)

// MaybeRun brings the storage_entries schema up to date when the sql storage
// driver opens with NEXUSSHOP_DB_AUTO_MIGRATE enabled.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.DB.AutoMigrate {
		logg.Debug(ctx, "migrate.autorun_disabled")
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "driver", client.Dialect())
	if err := Up(ctx, sqlDB, client.Dialect()); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, err := Version(sqlDB, client.Dialect())
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logg.Info(logg.WithField(ctx, "schema_version", version), "migrate.schema_ready")
	return nil
}
