package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sentitrade/internal/api"
	"sentitrade/internal/broker"
	"sentitrade/internal/config"
	"sentitrade/internal/engine"
	"sentitrade/internal/util"
)

func main() {
	cfgPath := "config/sentitrade.yaml"
	if p := os.Getenv("SENTITRADE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	b, err := broker.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("initializing broker: %v", err)
	}

	srv := api.NewServer(b, engine.NewTracker(b), logger)
	if err := srv.ListenAndServe(ctx, cfg.Server.GRPCAddr); err != nil {
		logger.Error("gRPC server error", "error", err)
		os.Exit(1)
	}
	logger.Info("sentitrade-server stopped")
}
