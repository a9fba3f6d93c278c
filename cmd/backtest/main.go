package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jlp-hedge-bot/internal/backtest"
	"jlp-hedge-bot/internal/config"
	"jlp-hedge-bot/internal/logging"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "optional config path for backtest settings")
	start := flag.String("start", "", "override backtest.start_date (YYYY-MM-DD)")
	investment := flag.Float64("investment", 0, "override backtest.initial_investment")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fatal(err)
	}
	cfg, err := config.LoadBacktest(*configPath)
	if err != nil {
		fatal(err)
	}
	bt := cfg.Backtest
	if *start != "" {
		bt.StartDate = *start
	}
	if *investment > 0 {
		bt.InitialInvestment = *investment
	}

	log := logging.New(cfg.Log)
	code := run(bt, log)
	_ = log.Sync()
	if code != 0 {
		os.Exit(code)
	}
}

func run(bt config.BacktestConfig, log *zap.Logger) int {
	var cache *backtest.Cache
	if bt.CachePath != "" {
		var err error
		cache, err = backtest.OpenCache(bt.CachePath)
		if err != nil {
			log.Error("failed to open cache", zap.Error(err))
			return 1
		}
		defer func() {
			if err := cache.Close(); err != nil {
				log.Warn("cache close failed", zap.Error(err))
			}
		}()
	}

	quotes := backtest.Cached(backtest.NewQuoteSource(bt.CMC), "cmc", cache)
	klines := backtest.Cached(backtest.NewKlineSource(bt.BinanceBaseURL), "binance", cache)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := backtest.NewRunner(bt, quotes, klines, log).Run(ctx, time.Now())
	if err != nil {
		log.Error("backtest failed", zap.Error(err))
		return 1
	}
	fmt.Print(backtest.Render(res))
	return 0
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
