package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yungbote/replygen-backend/internal/app"
	"github.com/yungbote/replygen-backend/internal/observability"
	"github.com/yungbote/replygen-backend/internal/platform/envutil"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

func main() {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	if err := run(log); err != nil {
		log.Error("Service stopped with error", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

func run(log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Loading environment variables...")
	cfg := app.LoadConfig(log)

	shutdownOtel := observability.InitOTel(ctx, log, cfg.Otel)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(sctx); err != nil {
			log.Warn("otel shutdown failed", "error", err)
		}
	}()

	a, err := app.New(log, cfg)
	if err != nil {
		return fmt.Errorf("app init: %w", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Shutdown complete")
	return nil
}
