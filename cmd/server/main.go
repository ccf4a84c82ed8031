package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"silvess-backend/internal/config"
	"silvess-backend/internal/database"
	"silvess-backend/internal/logger"
	"silvess-backend/internal/ratelimit"
	"silvess-backend/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	db, err := database.Open(cfg, zl)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	zl.Info("database ready", zap.String("driver", cfg.DBDriver))

	rdb, err := ratelimit.Connect(context.Background(), cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		// the limiter is optional; login stays open without it
		zl.Warn("redis unavailable, login rate limit disabled", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	app := server.New(cfg, db, zl, rdb)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.Env))
		errCh <- app.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			zl.Fatal("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		zl.Info("shutting down", zap.Duration("grace", cfg.ShutdownGracePeriod))
		if err := app.ShutdownWithTimeout(cfg.ShutdownGracePeriod); err != nil {
			zl.Error("shutdown", zap.Error(err))
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
