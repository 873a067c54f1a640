package app

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "rentaldesk/libs/redis"

	"rentaldesk/internal/config"
	"rentaldesk/internal/events"
	httpserver "rentaldesk/internal/http"
	"rentaldesk/internal/http/handlers"
	"rentaldesk/internal/ledger"
	"rentaldesk/internal/monitoring"
	"rentaldesk/internal/settings"
	"rentaldesk/internal/stations"
	"rentaldesk/internal/store"
	"rentaldesk/internal/ws"
)

// App wires the rental desk dependencies.
type App struct {
	server      *httpserver.Server
	clock       *stations.Clock
	hub         *ws.Hub
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph. Without a redis address the
// service keeps all state in memory and loses it on restart.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	var (
		st          store.Store
		redisClient *redis.Client
	)
	if cfg.RedisEnabled() {
		client, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		redisClient = client
		st = store.NewRedisStore(client, logger)
	} else {
		logger.Warn("no redis address configured, state is in-memory only")
		st = store.NewMemoryStore()
	}

	sink := events.NewLogSink(logger)
	settingsProvider := settings.NewProvider(ctx, st, logger)
	ledgerEngine := ledger.New(ctx, st, sink, settingsProvider, logger)
	stationEngine := stations.New(ctx, st, sink, ledgerEngine, settingsProvider, logger)

	metrics := monitoring.NewMetrics()
	hub := ws.NewHub(logger)

	clock := stations.NewClock(stationEngine, cfg.TickPeriod(), logger)
	clock.Observe(func(result stations.TickResult) {
		metrics.StationsOccupied.Set(float64(result.Occupied))
		metrics.ParkedSessions.Set(float64(len(stationEngine.ParkedSessions())))
		if result.Alert {
			metrics.AlertsTotal.Inc()
		}
		if len(result.Expired) > 0 {
			metrics.AutoStopsTotal.Add(float64(len(result.Expired)))
		}
		hub.Broadcast(result)
	})

	customersHandlers := handlers.NewCustomersHandlers(ledgerEngine, logger)
	historyHandlers := handlers.NewHistoryHandlers(ledgerEngine, logger)
	stationsHandlers := handlers.NewStationsHandlers(stationEngine, logger)
	settingsHandlers := handlers.NewSettingsHandlers(settingsProvider, logger)

	routes := httpserver.Routes{
		Customers:        customersHandlers.List,
		AddCustomer:      customersHandlers.Add,
		DeletedCustomers: customersHandlers.Deleted,
		Purchase:         customersHandlers.Purchase,
		Adjust:           customersHandlers.Adjust,
		Redeem:           customersHandlers.Redeem,
		DeleteCustomer:   customersHandlers.Delete,
		RestoreCustomer:  customersHandlers.Restore,
		RenameCustomer:   customersHandlers.Rename,
		Undo:             customersHandlers.Undo,
		Leaderboard:      customersHandlers.Leaderboard,

		History:        historyHandlers.List,
		Stats:          historyHandlers.Stats,
		MonthlySales:   historyHandlers.MonthlySales,
		WalkInSale:     historyHandlers.WalkInSale,
		HistoricalSale: historyHandlers.HistoricalSale,

		Stations:       stationsHandlers.List,
		StationsRaw:    stationsHandlers.Raw,
		AddStation:     stationsHandlers.Add,
		DeleteStation:  stationsHandlers.Delete,
		StartStation:   stationsHandlers.Start,
		ExtendStation:  stationsHandlers.Extend,
		RedeemTime:     stationsHandlers.RedeemTime,
		ReduceTime:     stationsHandlers.Reduce,
		PauseStation:   stationsHandlers.Pause,
		UnpauseStation: stationsHandlers.Unpause,
		ParkStation:    stationsHandlers.Park,
		ResumeStation:  stationsHandlers.Resume,
		StopStation:    stationsHandlers.Stop,
		Transfer:       stationsHandlers.Transfer,
		ParkedSessions: stationsHandlers.Parked,

		GetSettings:    settingsHandlers.Get,
		UpdateSettings: settingsHandlers.Update,

		Health:    handlers.NewHealthHandler(),
		Websocket: hub.Handler(),
		Metrics:   metrics.Handler(),
	}

	router := httpserver.WithMetrics(metrics, httpserver.NewRouter(routes))
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		clock:       clock,
		hub:         hub,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the clock and the HTTP server, blocking until ctx cancels.
func (a *App) Run(ctx context.Context) error {
	go a.clock.Run(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	a.hub.Close()
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
