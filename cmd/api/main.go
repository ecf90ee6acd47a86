package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"courier-sync/internal/app"
	"courier-sync/internal/core/config"
	"courier-sync/internal/core/logger"
	"courier-sync/internal/core/server"

	"go.uber.org/zap"
)

// @title Courier Sync API
// @version 1.0
// @description Reconciles order delivery statuses of every tenant against their courier providers.
// @contact.name API Support
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Open(ctx, cfg)
	if err != nil {
		l.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	srv := server.New(cfg)
	application.RegisterRoutes(srv)
	application.Periodic.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			l.Error("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Error("Server shutdown failed", zap.Error(err))
		}
	}
}
