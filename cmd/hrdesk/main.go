package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ent0n29/hrdesk/internal/app"
	"github.com/ent0n29/hrdesk/internal/config"
	"github.com/ent0n29/hrdesk/internal/observability"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("could not load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	log := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx := context.Background()
	res, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatalf("build failed: %v", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			log.WithError(err).Warn("cleanup failed")
		}
	}()

	log.WithFields(logrus.Fields{
		"assistant_mode": res.AssistantMode,
		"store_mode":     res.Store.Mode(),
		"cache_mode":     res.CacheMode,
	}).Info("services initialized")

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           res.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	res.Sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Infof("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
		_ = httpServer.Close()
	}

	log.Info("shutdown complete")
}
