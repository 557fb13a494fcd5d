package bootstrap

import (
	"context"
	"fmt"

	"fx-margin-guard/internal/application"
	"fx-margin-guard/internal/config"
	httpserver "fx-margin-guard/internal/infrastructure/http"
	"fx-margin-guard/internal/infrastructure/logx"
	"fx-margin-guard/internal/infrastructure/worker"

	"go.uber.org/zap"
)

// App holds the wired services for both entry points.
type App struct {
	Config    config.Config
	Log       *zap.Logger
	Stores    Stores
	Query     *application.RateQueryService
	Impacts   *application.ImpactService
	Acquirer  *application.RateAcquisitionService
	Scheduler *worker.Scheduler
}

// ProvideLogger builds the process logger from config and installs it as the
// logx package logger.
func ProvideLogger(cfg config.Config) (*zap.Logger, error) {
	l, err := logx.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	logx.Replace(l.With(zap.String("env", cfg.Env)))
	return logx.L(), nil
}

// Build wires stores, providers, services and the scheduler. The returned
// cleanup closes every opened client in reverse order.
func Build(ctx context.Context, cfg config.Config) (*App, func(), error) {
	log, err := ProvideLogger(cfg)
	if err != nil {
		return nil, func() {}, err
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
		_ = log.Sync()
	}

	stores, closeStores, err := ProvideStores(ctx, cfg, log)
	if err != nil {
		return nil, cleanup, fmt.Errorf("stores: %w", err)
	}
	cleanups = append(cleanups, closeStores)

	primary, secondary, err := ProvideRateProviders(cfg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("providers: %w", err)
	}
	guard, closeGuard, err := ProvideSlotGuard(cfg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("slot guard: %w", err)
	}
	cleanups = append(cleanups, closeGuard)
	pairs, err := ProvidePairs(cfg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("pairs: %w", err)
	}

	opts := []application.Option{
		application.WithLogger(log),
		application.WithUnitOfWork(stores.UoW),
	}
	app := &App{
		Config:   cfg,
		Log:      log,
		Stores:   stores,
		Query:    application.NewRateQueryService(stores.Rates, opts...),
		Impacts:  application.NewImpactService(stores.Rates, stores.Orders, opts...),
		Acquirer: application.NewRateAcquisitionService(stores.Rates, primary, secondary, opts...),
	}
	app.Scheduler = &worker.Scheduler{
		Acquirer: app.Acquirer,
		Pairs:    pairs,
		Guard:    guard,
		Sweeps:   stores.Sweeps,
		Every:    cfg.FetchInterval,
		Timeout:  cfg.AcquireTimeout,
		Log:      log.With(zap.String("worker", "scheduler")),
	}
	return app, cleanup, nil
}

// HTTPServer builds the API handler set with per-route timeouts from config.
func (a *App) HTTPServer() *httpserver.Server {
	srv := httpserver.NewServer(a.Query, a.Impacts)
	srv.QueryTimeout = a.Config.QueryTimeout
	srv.ImpactTimeout = a.Config.ImpactTimeout
	if a.Stores.Ping != nil {
		srv.SetReadyCheck(a.Stores.Ping)
	}
	return srv
}
