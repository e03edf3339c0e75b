package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/nexusshop-storefront/pkg/config"
	"github.com/angelmondragon/nexusshop-storefront/pkg/logger"
)

// sqliteBusyTimeoutMS makes concurrent cart and auth writes wait for the file
// lock instead of failing with SQLITE_BUSY.
const sqliteBusyTimeoutMS = 5000

// Client is the GORM connection behind the sql storage driver.
type Client struct {
	conn    *gorm.DB
	dialect string
}

// New opens driver ("sqlite" or "postgres") against cfg.DSN and applies the
// pool settings.
func New(ctx context.Context, driver string, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	dialect := strings.ToLower(driver)
	dialector, err := dialectorFor(dialect, cfg.DSN)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", dialect, err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	applyPoolSettings(sqlDB, dialect, cfg)

	if dialect == config.StorageDriverSQLite {
		if err := conn.WithContext(ctx).Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", sqliteBusyTimeoutMS)).Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	}

	logg.Info(logg.WithField(ctx, "driver", dialect), "database connection established")
	return &Client{conn: conn, dialect: dialect}, nil
}

// Wrap adopts an existing GORM connection.
func Wrap(conn *gorm.DB, driver string) *Client {
	return &Client{conn: conn, dialect: strings.ToLower(driver)}
}

func dialectorFor(dialect, dsn string) (gorm.Dialector, error) {
	switch dialect {
	case config.StorageDriverSQLite:
		return sqlite.Open(dsn), nil
	case config.StorageDriverPostgres:
		return postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dialect)
	}
}

// applyPoolSettings pins in-memory sqlite databases to one connection, since
// every new connection would otherwise see an empty database.
func applyPoolSettings(sqlDB *sql.DB, dialect string, cfg config.DBConfig) {
	maxOpen := cfg.MaxOpenConns
	if dialect == config.StorageDriverSQLite && isMemoryDSN(cfg.DSN) {
		maxOpen = 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(min(cfg.MaxIdleConns, max(maxOpen, 1)))
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Dialect reports the storage driver the client was opened with.
func (c *Client) Dialect() string {
	return c.dialect
}

// Ping is the readiness check for the sql storage driver.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
