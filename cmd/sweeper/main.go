package main

import (
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pixelotes/Tempus/internal/app"
)

func main() {
	_ = godotenv.Load()
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := app.RunSweeper(); err != nil {
		logger.Fatal("run sweeper failed", zap.Error(err))
	}
}
