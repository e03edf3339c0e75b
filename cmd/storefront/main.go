package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/nexusshop-storefront/api/routes"
	"github.com/angelmondragon/nexusshop-storefront/internal/auth"
	"github.com/angelmondragon/nexusshop-storefront/internal/cart"
	"github.com/angelmondragon/nexusshop-storefront/internal/catalog"
	"github.com/angelmondragon/nexusshop-storefront/internal/search"
	"github.com/angelmondragon/nexusshop-storefront/internal/shipping"
	"github.com/angelmondragon/nexusshop-storefront/pkg/auth/session"
	"github.com/angelmondragon/nexusshop-storefront/pkg/config"
	"github.com/angelmondragon/nexusshop-storefront/pkg/instance"
	"github.com/angelmondragon/nexusshop-storefront/pkg/logger"
	"github.com/angelmondragon/nexusshop-storefront/pkg/metrics"
	"github.com/angelmondragon/nexusshop-storefront/pkg/mocknet"
	"github.com/angelmondragon/nexusshop-storefront/pkg/security"
	"github.com/angelmondragon/nexusshop-storefront/pkg/storage"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "storefront stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storefrontMetrics := metrics.NewStorefrontMetrics(reg)

	backend, err := storage.Open(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logg.Error(context.Background(), "error closing storage", err)
		}
	}()

	cat, err := catalog.Load()
	if err != nil {
		return err
	}

	rules, err := cart.RulesFromConfig(cfg.Pricing)
	if err != nil {
		return err
	}
	cartEngine, err := cart.NewPersistentEngine(cart.NewEngine(rules, storefrontMetrics), backend.Store, cfg.Storage.CartKey, logg)
	if err != nil {
		return err
	}
	cartEngine.Load(ctx)

	var sessions *session.Manager
	if backend.Redis != nil {
		sessions, err = session.NewManager(backend.Redis, cfg.JWT)
	} else {
		sessions, err = session.NewMemoryManager(cfg.JWT)
	}
	if err != nil {
		return err
	}

	sim := mocknet.New(0, cfg.Simulation.FailureRate, storefrontMetrics)
	authService, err := auth.NewService(auth.ServiceParams{
		Store:      backend.Store,
		StorageKey: cfg.Storage.AuthKey,
		Sessions:   sessions,
		Hasher:     security.NewHasher(cfg.Password),
		JWTConfig:  cfg.JWT,
		Simulator:  sim,
		Latencies:  auth.LatenciesFromConfig(cfg.Simulation),
		Logger:     logg,
		OnLogout:   func(ctx context.Context) { cartEngine.Forget(ctx) },
	})
	if err != nil {
		return err
	}
	if state := authService.Load(ctx); state.IsAuthenticated {
		if _, err := authService.Refresh(ctx); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "auth.refresh_on_start_failed")
		}
	}

	estimator, err := shipping.NewEstimator(sim.WithLatency(cfg.Simulation.ShippingLatency), rand.Float64)
	if err != nil {
		return err
	}

	addr := ":" + cfg.HTTP.Port
	srvCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"storage":  backend.Driver,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:      cfg,
			Logger:      logg,
			Catalog:     cat,
			Filters:     search.NewEngine(cat, storefrontMetrics),
			Cart:        cartEngine,
			Shipping:    estimator,
			Auth:        authService,
			Sessions:    sessions,
			Redis:       backend.Redis,
			Checks:      backend.Checks,
			Metrics:     storefrontMetrics,
			HTTPMetrics: metrics.NewHTTPMetrics(reg),
			Gatherer:    reg,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(srvCtx, "starting storefront server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(srvCtx, "shutting down storefront server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
