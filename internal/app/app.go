package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"github.com/split2ynab/backend/internal/clients/splitwise"
	"github.com/split2ynab/backend/internal/clients/ynab"
	"github.com/split2ynab/backend/internal/config"
	"github.com/split2ynab/backend/internal/database"
	"github.com/split2ynab/backend/internal/handlers"
	"github.com/split2ynab/backend/internal/logging"
	"github.com/split2ynab/backend/internal/metrics"
	promcollector "github.com/split2ynab/backend/internal/metrics/prometheus"
	"github.com/split2ynab/backend/internal/services"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const ynabTimeout = 30 * time.Second

// Modes select which jobs the scheduler runs
const (
	ModeSync = "sync"
	ModeFund = "fund"
)

type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	Sync     *services.SyncService
	Funding  *services.FundingService
	Status   *services.StatusTracker
	Registry *prometheus.Registry
}

// NewApp connects the state store, resolves credentials and builds the services
func NewApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, func(), error) {
	registry := prometheus.NewRegistry()
	collector := promcollector.NewPrometheusCollector(promcollector.Namespace)
	if err := collector.Register(registry); err != nil {
		return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	store, journal, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", services.ErrStoreUnavailable, err)
	}

	cleanup := func() {
		if err := closeStore(); err != nil {
			logger.Warn("error closing state store", zap.Error(err))
		}
	}

	if err := bootstrap(ctx, cfg, store); err != nil {
		cleanup()
		return nil, nil, err
	}

	var dedup services.ImportIDSource
	if cfg.Dedup.Source == config.DedupJournal {
		dedup = services.JournalImportIDs{Journal: journal}
	}

	source := splitwise.NewClient(splitwise.Config{
		BaseURL: cfg.Splitwise.BaseURL,
		APIKey:  cfg.Splitwise.APIKey,
		Timeout: cfg.SourceTimeout,
		OnStateChange: func(name string, to gobreaker.State) {
			collector.RecordCircuitState(name, circuitState(to))
		},
	}, logger)
	ledger := ynab.NewClient(cfg.YNAB.BaseURL, cfg.YNAB.APIKey, ynabTimeout, logger)

	logger.Info("application initialised",
		zap.String("store", cfg.Store.Backend),
		zap.String("dedup", cfg.Dedup.Source),
		zap.Bool("nowrite", cfg.NoWrite),
		zap.Bool("writeback", cfg.Writeback),
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Sync:     services.NewSyncService(cfg, source, ledger, store, dedup, logger).WithMetrics(collector),
		Funding:  services.NewFundingService(cfg, ledger, logger).WithMetrics(collector),
		Status:   services.NewStatusTracker(),
		Registry: registry,
	}, cleanup, nil
}

func openStore(ctx context.Context, cfg *config.Config) (services.StateStore, *database.JournalStore, func() error, error) {
	switch cfg.Store.Backend {
	case config.StoreSQL:
		db, err := database.InitDB(database.DBConfig{
			Driver:          cfg.Database.Driver,
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		journal := database.NewJournalStore(db)
		return journal, journal, db.Close, nil

	default:
		rdb, err := database.InitRedis(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return database.NewRedisStateStore(rdb, cfg.Store.Prefix), nil, rdb.Close, nil
	}
}

// bootstrap fills unset API keys from the state store
func bootstrap(ctx context.Context, cfg *config.Config, store services.StateStore) error {
	var errs error

	fill := func(target *string, key, name string) {
		if *target != "" {
			return
		}
		value, err := store.Lookup(ctx, key)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: read %s: %w", services.ErrStoreUnavailable, key, err))
			return
		}
		if value == "" {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s is not configured", services.ErrConfiguration, name))
			return
		}
		*target = value
	}

	fill(&cfg.Splitwise.APIKey, database.PathSplitwiseAPIKey, "splitwise.api_key")
	fill(&cfg.YNAB.APIKey, database.PathYNABAPIKey, "ynab.api_key")
	return errs
}

func circuitState(s gobreaker.State) metrics.CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

// Scheduler returns the jobs for mode. Sync mode also funds credit cards when
// budget_ccs is set.
func (a *App) Scheduler(mode string) *services.Scheduler {
	s := services.NewScheduler(a.Config.DelayDuration(), a.Logger)
	if mode != ModeFund {
		s.Add("sync", services.SyncJob(a.Sync, a.Status))
	}
	if mode == ModeFund || a.Config.BudgetCCs {
		s.Add("fund", services.FundingJob(a.Funding, a.Status))
	}
	return s
}

// StatusServer returns the status endpoint server, or nil when http.addr is unset
func (a *App) StatusServer() *http.Server {
	if a.Config.HTTP.Addr == "" {
		return nil
	}

	metricsHandler := promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
	return &http.Server{
		Addr:         a.Config.HTTP.Addr,
		Handler:      handlers.NewRouter(handlers.NewStatusHandler(a.Status), metricsHandler, a.Logger.Named("http")),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
