package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/passport-office-scheduling/internal/api"
	"github.com/hackgods/passport-office-scheduling/internal/app"
	"github.com/hackgods/passport-office-scheduling/internal/config"
	"github.com/hackgods/passport-office-scheduling/internal/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Fatal("config load error", "error", err)
	}

	log := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "api-server",
	})
	log.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort, "version", version)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(rootCtx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	var redisPinger api.Pinger
	if a.Redis != nil {
		redisPinger = api.RedisPinger(a.Redis)
	}

	router := api.NewRouter(api.RouterConfig{
		Appointments:   a.Appointments,
		Availability:   a.Searcher,
		Locations:      a.Locations,
		Slots:          a.Ledger,
		Prewarmer:      a.Prewarmer,
		Health:         api.NewHealthHandler(a.Pool, redisPinger, cfg.Env, version),
		Metrics:        a.Metrics,
		MetricsHandler: promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
		Log:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
