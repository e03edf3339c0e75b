package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/nexusshop-storefront/pkg/config"
	"github.com/angelmondragon/nexusshop-storefront/pkg/db"
	"github.com/angelmondragon/nexusshop-storefront/pkg/logger"
	"github.com/angelmondragon/nexusshop-storefront/pkg/migrate"
	"github.com/angelmondragon/nexusshop-storefront/pkg/redis"
	"go.uber.org/multierr"
)

// Pinger is a readiness check for a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend is the opened storage driver plus the handles other components
// may share with it.
type Backend struct {
	Driver string
	Store  Store
	// Redis is set for the redis driver and doubles as the rate limit counter.
	Redis *redis.Client
	// Checks are the readiness checks keyed by dependency name.
	Checks map[string]Pinger

	closers []func() error
}

// Open builds the configured storage driver.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Backend, error) {
	driver := strings.ToLower(cfg.Storage.Driver)
	backend := &Backend{Driver: driver, Checks: map[string]Pinger{}}

	switch driver {
	case config.StorageDriverMemory:
		backend.Store = NewMemoryStore()

	case config.StorageDriverFile:
		store, err := NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return nil, err
		}
		backend.Store = store

	case config.StorageDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, fmt.Errorf("open redis storage: %w", err)
		}
		store, err := NewRedisStore(client, 0)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		backend.Store = store
		backend.Redis = client
		backend.Checks["redis"] = client

	case config.StorageDriverSQLite, config.StorageDriverPostgres:
		client, err := db.New(ctx, driver, cfg.DB, logg)
		if err != nil {
			return nil, fmt.Errorf("open %s storage: %w", driver, err)
		}
		if err := migrate.MaybeRun(ctx, cfg, logg, client); err != nil {
			_ = client.Close()
			return nil, err
		}
		store, err := NewSQLStore(client.DB(), client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		backend.Store = store
		backend.Checks["database"] = client

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	backend.closers = append(backend.closers, backend.Store.Close)
	return backend, nil
}

// OnClose registers an extra shutdown hook run after the store closes.
func (b *Backend) OnClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Close releases every handle and reports all failures.
func (b *Backend) Close() error {
	var err error
	for _, fn := range b.closers {
		err = multierr.Append(err, fn())
	}
	b.closers = nil
	return err
}
