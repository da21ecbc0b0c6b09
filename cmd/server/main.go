package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/teamtask/server/internal/app"
	"github.com/teamtask/server/internal/shared/config"
	"github.com/teamtask/server/internal/shared/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLog := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	defer func() { _ = zapLog.Sync() }()

	flush, err := app.InitSentry(&cfg.Sentry)
	if err != nil {
		zapLog.Fatal("failed to init sentry", zap.Error(err))
	}
	defer flush()

	application, cleanup, err := app.Initialize(cfg, zapLog)
	if err != nil {
		zapLog.Fatal("failed to initialize application", zap.Error(err))
	}
	defer cleanup()

	if err := application.Start(context.Background()); err != nil {
		zapLog.Fatal("failed to start application", zap.Error(err))
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      application.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		zapLog.Info("starting server", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Open notification streams never finish on their own.
	application.StopStreams()

	if err := srv.Shutdown(ctx); err != nil {
		zapLog.Error("server forced to shutdown", zap.Error(err))
	}

	application.Stop(ctx)

	zapLog.Info("server exited")
}
