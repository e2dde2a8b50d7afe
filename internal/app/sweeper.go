package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pixelotes/Tempus/internal/shared/connection"
	"github.com/pixelotes/Tempus/internal/timeentry"
)

// RunSweeper periodically closes time entries left open past their calendar
// date. Each closed entry becomes a flagged modification version and emits an
// incident event through the outbox.
func RunSweeper() error {
	logger := zap.L().Named("app.sweeper")

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	gormDB, sqlDB, err := openDatabase()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	rdb, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return err
	}
	defer rdb.Close()

	reg := BuildRegistry(cfg, sqlDB, gormDB, rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()

		for {
			sweepOnce(ctx, reg.TimeEntry, logger)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("sweeper shutting down")
	cancel()

	return nil
}

func sweepOnce(ctx context.Context, entries timeentry.Service, logger *zap.Logger) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	closed, err := entries.CloseAbandoned(ctx, today)
	if err != nil {
		logger.Error("sweep failed", zap.Error(err))
		return
	}
	if closed > 0 {
		logger.Info("sweep closed abandoned entries", zap.Int("closed", closed))
	}
}
