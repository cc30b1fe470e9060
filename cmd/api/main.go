package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskhub/configs"
	v1 "taskhub/internal/api/v1"
	"taskhub/internal/config"
	"taskhub/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logger.ErrorLogger.Error("Application stopped", zap.Error(err))
		logger.SyncLoggers()
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := configs.LoadConfig()
	if err != nil {
		return err
	}

	if err := logger.InitLoggers(cfg.LogDir); err != nil {
		return err
	}
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application",
		zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	deps, cleanup, err := config.Build(connectCtx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer cleanup()

	go deps.Hub.Run(ctx)

	app := v1.NewApp(deps)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.SystemLogger.Info("Application ready", zap.String("addr", addr))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.SystemLogger.Info("Shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}
