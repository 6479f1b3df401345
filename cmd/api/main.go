package main

import (
	"context"
	"net/http"
	"time"

	"textoverlay/internal/app"
	"textoverlay/internal/config"
	"textoverlay/internal/httpapi"
	"textoverlay/internal/httpapi/handlers"
	"textoverlay/internal/pkg/logger"
	"textoverlay/internal/pkg/shutdown"
)

var version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Format: "json", ServiceName: "textoverlay-api"}).
			LogFatal("invalid configuration", err)
	}

	log := logger.New(cfg.Logger("textoverlay-api"))
	log.Info("starting textoverlay API",
		"version", version,
		"ffmpeg", cfg.FFmpegPath,
		"scratch", cfg.ScratchDir,
	)

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.LogFatal("failed to initialize service", err)
	}
	shutdownMgr.RegisterSimple("backends", a.Close)

	// Leftovers from a previous process are no longer owned by anyone.
	res := a.Area.Sweep(cfg.StagingMaxAge, log)
	log.Info("initial staging sweep", "removed", len(res.Removed), "errors", len(res.Errors))

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	go a.Area.RunJanitor(janitorCtx, cfg.StagingSweepInterval, cfg.StagingMaxAge, log)
	shutdownMgr.RegisterSimple("staging-janitor", stopJanitor)

	router := httpapi.NewRouter(httpapi.Deps{
		Handlers: handlers.Deps{
			Renderer:   a.Renderer,
			Ledger:     a.Ledger,
			Storage:    a.Storage,
			Probes:     a.Probes,
			ProbeOrder: a.ProbeOrder,
			Version:    version,
			Log:        log,
		},
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RenderTimeout,
		IdleTimeout:       120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr, "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}
