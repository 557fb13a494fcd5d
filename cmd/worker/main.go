package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"fx-margin-guard/internal/bootstrap"
	"fx-margin-guard/internal/config"
	"fx-margin-guard/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	once := flag.Bool("once", false, "run a single acquisition and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logx.L().Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, cleanup, err := bootstrap.InitWorkerApp(ctx, cfg, *once)
	if err != nil {
		logx.L().Fatal("init worker", zap.Error(err))
	}
	if err := run(ctx); err != nil {
		logx.L().Error("worker run failed", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
	cleanup()
}
