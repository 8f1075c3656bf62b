// sentitrade-trader runs news items through the sentiment pipeline once and
// prints every trade result as a JSON line.
//
// Usage:
//
//	go build -o bin/sentitrade-trader ./cmd/sentitrade-trader/
//	bin/sentitrade-trader -news-file news.jsonl
//	bin/sentitrade-trader -symbols TSLA,AAPL -sources alpaca,google -since 6h
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sentitrade/internal/broker"
	"sentitrade/internal/config"
	"sentitrade/internal/domain"
	"sentitrade/internal/engine"
	"sentitrade/internal/marketdata"
	"sentitrade/internal/news"
	"sentitrade/internal/pipeline"
	"sentitrade/internal/sentiment"
	"sentitrade/internal/sizing"
	"sentitrade/internal/store"
	"sentitrade/internal/strategy/builtins"
	"sentitrade/internal/util"
)

func main() {
	newsFile := flag.String("news-file", "", "JSON-lines file of news items")
	symbols := flag.String("symbols", "", "comma-separated symbols to fetch news for")
	sources := flag.String("sources", "alpaca", "news sources for -symbols: alpaca, google, globenewswire")
	since := flag.Duration("since", 24*time.Hour, "news lookback window for -symbols")
	flag.Parse()

	cfgPath := "config/sentitrade.yaml"
	if p := os.Getenv("SENTITRADE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Results go to stdout; logs go to stderr.
	logger := util.NewLoggerTo(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, closeFn, err := build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("initializing pipeline: %v", err)
	}
	defer closeFn()

	items, err := loadItems(ctx, cfg, logger, *newsFile, *symbols, *sources, *since)
	if err != nil {
		log.Fatalf("loading news: %v", err)
	}
	logger.Info("sentitrade-trader starting", "broker", cfg.Broker.Name, "items", len(items))

	reports, err := p.ProcessAll(ctx, items)
	if err != nil {
		logger.Error("some items failed", "error", err)
	}

	enc := json.NewEncoder(os.Stdout)
	trades := 0
	for _, rep := range reports {
		for _, tr := range rep.Trades {
			if err := enc.Encode(tr); err != nil {
				log.Fatalf("writing result: %v", err)
			}
			trades++
		}
	}
	logger.Info("sentitrade-trader done", "processed", len(reports), "trades", trades)
}

// build wires broker, sizing, protection, strategy and market data into a
// pipeline. The returned func releases the seen ledger.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, func(), error) {
	b, err := broker.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	market, err := marketdata.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	sp, err := sentiment.New(cfg.Sentiment, logger)
	if err != nil {
		return nil, nil, err
	}

	gen, err := builtins.Registry(cfg.Trading.BuyThreshold).Select(cfg.Trading.Strategy)
	if err != nil {
		return nil, nil, err
	}

	// Stops need a real quote; sizing falls back to the configured price.
	quote := sizing.QuotePrice{Quoter: b}
	snap := sizing.SnapshotPrice{Source: market}
	guard, err := engine.NewRiskGuard(cfg.Trading.StopLossEnabled(), cfg.Trading.StopLossPct, sizing.Chain{quote, snap})
	if err != nil {
		return nil, nil, err
	}
	policy := sizing.Policy{
		MaxCapitalPerTrade: cfg.Trading.MaxCapitalPerTrade,
		Prices:             sizing.Chain{quote, snap, sizing.FlatPrice(cfg.Trading.DefaultPrice)},
	}
	eng := engine.NewEngine(b, policy, guard, logger)

	opts := pipeline.Options{
		MaxConcurrency: cfg.Trading.MaxConcurrency,
		Retry: engine.RetryPolicy{
			MaxAttempts: cfg.Trading.RetryAttempts,
			BaseDelay:   cfg.Trading.RetryDelay,
		},
	}
	closeFn := func() {}
	if cfg.Storage.SQLitePath != "" {
		seen, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		opts.Seen = seen
		closeFn = func() {
			if err := seen.Close(); err != nil {
				logger.Warn("closing seen ledger", "error", err)
			}
		}
	}

	return pipeline.New(sp, market, gen, eng, opts, logger), closeFn, nil
}

func loadItems(ctx context.Context, cfg *config.Config, logger *slog.Logger, file, symbols, sources string, since time.Duration) ([]domain.NewsItem, error) {
	if file != "" {
		return news.LoadFile(file)
	}

	var syms []string
	for _, s := range strings.Split(symbols, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			syms = append(syms, s)
		}
	}
	if len(syms) == 0 {
		return nil, errors.New("one of -news-file or -symbols is required")
	}

	end := time.Now().UTC()
	start := end.Add(-since)

	var items []domain.NewsItem
	for _, name := range strings.Split(sources, ",") {
		var src news.Source
		switch strings.TrimSpace(name) {
		case "alpaca":
			src = news.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Broker.CallTimeout, logger)
		case "google":
			src = news.NewRSSSource("google", news.GoogleNewsURL, cfg.Broker.CallTimeout, logger)
		case "globenewswire":
			src = news.NewRSSSource("globenewswire", news.GlobeNewswireURL, cfg.Broker.CallTimeout, logger)
		case "":
			continue
		default:
			logger.Warn("unknown news source", "source", name)
			continue
		}
		got, err := src.Fetch(ctx, syms, start, end)
		if err != nil {
			logger.Error("news fetch failed", "source", src.Name(), "error", err)
			continue
		}
		items = append(items, got...)
	}
	return news.Dedupe(items), nil
}
