package commands

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/internal/criteria"
	"github.com/wonny/scout/backend/internal/marketdata"
	"github.com/wonny/scout/backend/internal/monitor"
	"github.com/wonny/scout/backend/internal/report"
	"github.com/wonny/scout/backend/internal/scan"
	"github.com/wonny/scout/backend/internal/store"
	datasync "github.com/wonny/scout/backend/internal/sync"
	"github.com/wonny/scout/backend/internal/universe"
	"github.com/wonny/scout/backend/pkg/config"
	"github.com/wonny/scout/backend/pkg/database"
	"github.com/wonny/scout/backend/pkg/httputil"
	"github.com/wonny/scout/backend/pkg/logger"
	"github.com/wonny/scout/backend/pkg/redis"
)

// app bundles the fully wired dependency graph shared by all commands.
type app struct {
	cfg *config.Config
	log *logger.Logger

	db  *database.DB
	rdb *redis.Client

	store      *store.Postgres
	universe   *universe.Provider
	uniRepo    *universe.Repository
	prices     *marketdata.PriceClient
	priceRepo  *marketdata.Repository
	evaluators map[contracts.CriteriaKind]contracts.Evaluator

	engine  *scan.Engine
	monitor *monitor.Monitor
	syncer  *datasync.Syncer
	reports *report.Builder
}

// initApp wires the whole dependency graph: config, logger, Postgres, Redis,
// HTTP clients, data sources, evaluators and the engines on top of them.
func initApp() (*app, error) {
	// 1. Load config. An explicit --config file is loaded first; godotenv
	// never overrides variables already set, so the file only fills gaps.
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configFile, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := applyGlobalFlags(cfg); err != nil {
		return nil, err
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Connect to Redis (cache, lease, shared rate limiter)
	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	cache := redis.NewCache(rdb, "scout")
	lease := redis.NewLease(rdb, "scout")
	limiter := redis.NewRateLimiter(rdb, "scout")

	// 5. Create HTTP clients. The price client is throttled twice: a local
	// limiter keeps one worker pool from bursting, the Redis window caps
	// all processes together.
	priceHTTP := httputil.New(cfg, log).
		WithLocalRate(cfg.PriceAPI.RatePerSecond).
		WithRateLimiter(limiter, redis.RateLimitConfig{
			Key:    "price_api",
			Limit:  int(cfg.PriceAPI.RatePerSecond * 60),
			Window: time.Minute,
		})
	fundHTTP := httputil.NewWithTimeout(cfg, log, 20*time.Second).
		WithRateLimiter(limiter, redis.RateLimitConfig{
			Key:    "statementdog",
			Limit:  30,
			Window: time.Minute,
		})
	twseHTTP := httputil.New(cfg, log)

	// 6. Create the symbol universe and market data sources. The listing
	// page is the primary universe source; the last synced Postgres
	// snapshot serves when it is unreachable. Evaluations read bars from
	// the local mirror when it is fresh, the chart API otherwise.
	uniRepo := universe.NewRepository(db.Pool)
	uni := universe.NewProvider(universe.NewFallback(log,
		universe.NewTWSE(twseHTTP, cfg.TWSE, log),
		universe.NewSnapshotSource(uniRepo),
	))

	prices := marketdata.NewPriceClient(priceHTTP, cache, cfg.PriceAPI, log)
	fundamentals := marketdata.NewFundamentalClient(fundHTTP, cache, cfg.StatementDog, log)
	priceRepo := marketdata.NewRepository(db.Pool)
	bars := marketdata.NewMirrorSource(priceRepo, prices, cfg.PriceAPI.MirrorMaxAge, log)

	// 7. Create the evaluation pipelines
	evaluators := map[contracts.CriteriaKind]contracts.Evaluator{
		contracts.CriteriaMomentum:    criteria.NewMomentum(bars, cfg.Scan.MomentumMin, cfg.PriceAPI.LookbackDays, log),
		contracts.CriteriaFundamental: criteria.NewFundamental(fundamentals, cfg.Scan.FundamentalMin, cfg.Scan.MinFScore, log),
	}

	// 8. Create the retention store and the engines on top of it
	st := store.NewPostgres(db.Pool)
	engine := scan.New(uni, st, lease, cfg.Scan, log)
	mon := monitor.New(st, lease, uni, cfg.Scan, cfg.Monitor, log)
	syncer := datasync.New(uni, uniRepo, prices, priceRepo, st, cfg.PriceAPI.LookbackDays, log)
	reports := report.New(st, log)

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		rdb:        rdb,
		store:      st,
		universe:   uni,
		uniRepo:    uniRepo,
		prices:     prices,
		priceRepo:  priceRepo,
		evaluators: evaluators,
		engine:     engine,
		monitor:    mon,
		syncer:     syncer,
		reports:    reports,
	}, nil
}

// Close releases the database and Redis connections.
func (a *app) Close() {
	a.db.Close()
	if err := a.rdb.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis client")
	}
}

// parseKindArg maps a CLI argument onto a criteria kind.
func parseKindArg(raw string) (contracts.CriteriaKind, error) {
	kind := contracts.CriteriaKind(raw)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown criteria kind %q (want momentum or fundamental)", raw)
	}
	return kind, nil
}
