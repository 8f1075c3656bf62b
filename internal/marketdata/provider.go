// Package marketdata turns recent daily bars into the snapshot used by
// signal generation and price estimation.
package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"sentitrade/internal/config"
	"sentitrade/internal/domain"
	"sentitrade/internal/store"
)

const (
	// maWindow is the moving-average length of Snapshot.MA20.
	maWindow = 20
	// lookback is the calendar span fetched to cover maWindow sessions.
	lookback = 45 * 24 * time.Hour
)

// Provider produces a market snapshot for a ticker. ok is false when no
// data is available; callers proceed without it.
type Provider interface {
	GetSnapshot(ctx context.Context, ticker string) (snap domain.Snapshot, ok bool)
}

// None is a Provider that never has data.
type None struct{}

// GetSnapshot always reports no data.
func (None) GetSnapshot(context.Context, string) (domain.Snapshot, bool) {
	return domain.Snapshot{}, false
}

// New builds the provider named by cfg.MarketData.Source.
func New(cfg *config.Config, log *slog.Logger) (Provider, error) {
	switch cfg.MarketData.Source {
	case "", "none":
		return None{}, nil
	case "alpaca":
		var cache store.BarStore
		if cfg.MarketData.DataDir != "" {
			cache = store.NewParquetStore(cfg.MarketData.DataDir)
		}
		return NewAlpacaProvider(AlpacaOptions{
			APIKey:      cfg.Alpaca.APIKey,
			APISecret:   cfg.Alpaca.APISecret,
			DataURL:     cfg.Alpaca.DataURL,
			Feed:        cfg.Alpaca.Feed,
			CallTimeout: cfg.Broker.CallTimeout,
		}, cache, log), nil
	case "parquet":
		return NewParquetProvider(store.NewParquetStore(cfg.MarketData.DataDir), log), nil
	default:
		return nil, fmt.Errorf("unknown market data source %q", cfg.MarketData.Source)
	}
}

// Summarize computes a snapshot from daily bars in any order. Price and
// Volume come from the latest bar; MA20 and AvgVolume average the latest
// 20 bars, or all of them when fewer exist. ok is false for no bars.
func Summarize(bars []domain.Bar) (domain.Snapshot, bool) {
	if len(bars) == 0 {
		return domain.Snapshot{}, false
	}
	sorted := make([]domain.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	last := sorted[len(sorted)-1]
	window := sorted
	if len(window) > maWindow {
		window = window[len(window)-maWindow:]
	}

	var sumClose, sumVol float64
	for _, b := range window {
		sumClose += b.Close
		sumVol += float64(b.Volume)
	}
	n := float64(len(window))
	return domain.Snapshot{
		Price:     last.Close,
		Volume:    float64(last.Volume),
		MA20:      sumClose / n,
		AvgVolume: sumVol / n,
	}, last.Close > 0
}
