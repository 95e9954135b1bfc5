package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/passport-office-scheduling/internal/app"
	"github.com/hackgods/passport-office-scheduling/internal/config"
	"github.com/hackgods/passport-office-scheduling/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Fatal("config load error", "error", err)
	}

	log := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "slot-worker",
	})
	log.Info("slot-worker starting up", "env", cfg.Env, "interval", cfg.WorkerInterval, "no_show_grace", cfg.NoShowGrace)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(rootCtx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	// Run once at startup
	runOnce(rootCtx, a)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping slot worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, a)
		}
	}
}

// runOnce prewarms every active location over its booking horizon, then
// sweeps overdue appointments when a grace period is configured.
func runOnce(ctx context.Context, a *app.App) {
	runCtx, cancel := context.WithTimeout(ctx, a.Config.WorkerInterval/2)
	defer cancel()

	start := time.Now()
	created, err := a.Prewarmer.All(runCtx, 0)
	if err != nil {
		a.Log.Error("slot prewarm run error", "error", err)
	}

	marked, err := a.Appointments.SweepNoShows(runCtx, a.Config.NoShowGrace)
	if err != nil {
		a.Log.Error("no-show sweep error", "error", err)
	}

	a.Log.Info("worker run complete",
		"slots_created", created,
		"no_shows_marked", marked,
		"duration", time.Since(start))
}
