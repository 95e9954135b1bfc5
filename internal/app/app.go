// Package app wires the storage, cache and domain services shared by the
// binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/passport-office-scheduling/internal/appointment"
	"github.com/hackgods/passport-office-scheduling/internal/availability"
	"github.com/hackgods/passport-office-scheduling/internal/calendar"
	"github.com/hackgods/passport-office-scheduling/internal/config"
	"github.com/hackgods/passport-office-scheduling/internal/db"
	"github.com/hackgods/passport-office-scheduling/internal/location"
	"github.com/hackgods/passport-office-scheduling/internal/logging"
	"github.com/hackgods/passport-office-scheduling/internal/metrics"
	redisclient "github.com/hackgods/passport-office-scheduling/internal/redis"
	"github.com/hackgods/passport-office-scheduling/internal/retry"
	"github.com/hackgods/passport-office-scheduling/internal/slot"
	"github.com/hackgods/passport-office-scheduling/internal/subject"
)

type App struct {
	Config   config.Config
	Log      *logging.Logger
	Pool     *pgxpool.Pool
	Redis    *redis.Client // nil when Redis was unreachable at startup
	Registry *prometheus.Registry
	Metrics  *metrics.SchedulingMetrics
	Tx       *db.TxManager

	Locations    *location.Registry
	Ledger       *slot.Ledger
	Generator    *slot.Generator
	Searcher     *availability.Searcher
	Prewarmer    *availability.Prewarmer
	Appointments *appointment.Service
}

// New connects to Postgres and Redis and builds the services. Postgres is
// required; without Redis the app runs with unlocked generation and no
// location cache.
func New(ctx context.Context, cfg config.Config, log *logging.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.NewSchedulingMetrics(a.Registry)

	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.DefaultPoolConfig())
	cancel()
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a.Pool = pool
	log.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Warn("redis unavailable, continuing without lock and cache", "addr", cfg.RedisAddr, "error", err)
	} else {
		a.Redis = rdb
		log.Info("connected to Redis", "addr", cfg.RedisAddr)
	}

	a.build()
	return a, nil
}

func (a *App) build() {
	cfg := a.Config
	clock := calendar.SystemClock{}

	var (
		locRepo location.Repository = location.NewPgRepository(a.Pool)
		locker  redisclient.Locker  = redisclient.NopLocker{}
	)
	if a.Redis != nil {
		cache := redisclient.NewCache(a.Redis, "location", cfg.LocationCache)
		locRepo = location.NewCachedRepository(locRepo, cache, a.Log)
		locker = redisclient.NewRedisLocker(a.Redis, cfg.LockTTL)
	}
	a.Locations = location.NewRegistry(locRepo, cfg.DefaultTimezone, a.Log)

	slots := slot.NewPgRepository(a.Pool)
	a.Ledger = slot.NewLedger(slots, a.Log)
	a.Generator = slot.NewGenerator(slots, locker, a.Log, a.Metrics)
	a.Searcher = availability.NewSearcher(a.Locations, a.Generator, slots, clock, a.Log)
	a.Prewarmer = availability.NewPrewarmer(a.Locations, a.Generator, clock, a.Log)

	a.Tx = db.NewTxManager(a.Pool, retry.Config{
		MaxAttempts:   cfg.TxRetryAttempts,
		InitialDelay:  cfg.TxRetryInitialDelay,
		MaxDelay:      cfg.TxRetryMaxDelay,
		BackoffFactor: 2,
	}, a.Log, a.Metrics)

	a.Appointments = appointment.NewService(appointment.Deps{
		Repo:                appointment.NewPgRepository(a.Pool),
		Ledger:              a.Ledger,
		Subjects:            subject.NewPgStore(a.Pool),
		Locations:           a.Locations,
		Tx:                  a.Tx,
		Clock:               clock,
		Log:                 a.Log,
		Metrics:             a.Metrics,
		RequireConfirmation: cfg.BookingRequiresConfirmation,
	})
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn("error closing redis", "error", err)
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
