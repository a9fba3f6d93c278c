package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"jlp-hedge-bot/internal/app"
	"jlp-hedge-bot/internal/config"
	"jlp-hedge-bot/internal/logging"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log)
	log.Info("config loaded", zap.String("path", *configPath), zap.Bool("dry_run", cfg.Run.DryRun))

	if code := run(cfg, log); code != 0 {
		_ = log.Sync()
		os.Exit(code)
	}
	_ = log.Sync()
}

func run(cfg *config.Config, log *zap.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Run.Timeout)
	defer cancel()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize app", zap.Error(err))
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()
	log.Info("app initialized")

	if _, err := application.Run(ctx); err != nil {
		log.Error("rebalance failed", zap.Error(err))
		return 1
	}
	log.Info("rebalance complete")
	return 0
}
