package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/cryptopulse/config"
	"github.com/guttosm/cryptopulse/internal/api"
	"github.com/guttosm/cryptopulse/internal/cache"
	"github.com/guttosm/cryptopulse/internal/changefeed"
	"github.com/guttosm/cryptopulse/internal/logger"
	"github.com/guttosm/cryptopulse/internal/refresh"
	"github.com/guttosm/cryptopulse/internal/service"
	"github.com/guttosm/cryptopulse/internal/storage"
	"github.com/guttosm/cryptopulse/internal/warehouse"
)

// warehouseOpener is an indirection for unit testing; defaults to warehouse.Open
var warehouseOpener = warehouse.Open

// App holds the wired dependencies of the serve command.
type App struct {
	Router    *gin.Engine
	Warehouse *warehouse.Warehouse
	Store     cache.Store
	Feed      changefeed.Feed

	// Exactly one of Scheduler and Poller is set: the scheduler when
	// refreshes run in this process, the poller when another process
	// publishes them to the cache store.
	Scheduler *refresh.Scheduler
	Poller    *api.StatePoller
}

// NewScheduler wires a refresh scheduler reading the raw layer of w,
// materializing into its derived tables and publishing to store.
func NewScheduler(cfg config.Config, w *warehouse.Warehouse, store cache.Store) (*refresh.Scheduler, error) {
	return refresh.NewScheduler(
		storage.NewRawRepository(w.DB, w.Dialect),
		refresh.Graph(cfg.Refresh),
		refresh.Options{
			Tick:  cfg.Refresh.Tick,
			Sink:  storage.NewDerivedRepository(w.DB, w.Dialect),
			Store: store,
		},
	)
}

// InitializeApp sets up all application dependencies.
//
// Responsibilities:
//   - Connects to the warehouse.
//   - Opens the derivation cache store and the change feed.
//   - Builds the refresh scheduler, or a cache store reader when refresh is disabled.
//   - Creates the service, handler and router layers, including the websocket stream.
//   - Registers health and readiness endpoints.
//
// Background loops are started with Start; resources are released with Close.
func InitializeApp(ctx context.Context) (*App, error) {
	cfg := config.AppConfig

	w, err := warehouseOpener(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize warehouse: %w", err)
	}
	a := &App{Warehouse: w}

	if a.Store, err = cache.New(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize cache store: %w", err)
	}
	if a.Feed, err = changefeed.New(cfg, w); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize change feed: %w", err)
	}

	var (
		reader refresh.Reader
		states api.StateSource
	)
	if cfg.Refresh.Enabled {
		if a.Scheduler, err = NewScheduler(cfg, w, a.Store); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
		}
		reader, states = a.Scheduler, a.Scheduler
	} else {
		storeReader := refresh.NewStoreReader(a.Store, refresh.Graph(cfg.Refresh))
		a.Poller = api.NewStatePoller(storeReader, cfg.Refresh.Tick)
		reader, states = storeReader, a.Poller
	}

	svc := service.NewDashboardService(reader)
	handler := api.NewHandler(svc)
	a.Router = api.NewRouter(handler, api.RouterOptions{
		Stream:       api.NewStreamHandler(states),
		RateLimitRPM: cfg.Server.RateLimitRPM,
	})
	api.NewHealthHandler(w.Ping).Register(a.Router)

	return a, nil
}

// Start runs the scheduler or the state poller until ctx is done.
func (a *App) Start(ctx context.Context) {
	switch {
	case a.Scheduler != nil:
		go func() {
			if err := a.Scheduler.Run(ctx, a.Feed); err != nil {
				logger.L().Error().Err(err).Msg("refresh scheduler stopped")
			}
		}()
	case a.Poller != nil:
		go a.Poller.Run(ctx)
	}
}

// Close releases the change feed, the cache store and the warehouse.
func (a *App) Close() error {
	var errs []error
	if a.Feed != nil {
		errs = append(errs, a.Feed.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Warehouse != nil {
		errs = append(errs, a.Warehouse.Close())
	}
	return errors.Join(errs...)
}
