// Package store defines the persistence used around the execution pipeline:
// a daily bar cache for market data and a ledger of news items that were
// already processed.
package store

import (
	"context"
	"time"

	"sentitrade/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bars.
type BarStore interface {
	// WriteBars persists a batch of bars, replacing any bar with the same
	// symbol and timestamp.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for symbol within [start, end], oldest first.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// SeenStore remembers which news items have been processed.
type SeenStore interface {
	// MarkSeen records id and reports whether it was new.
	MarkSeen(ctx context.Context, id, source string) (bool, error)

	// Seen reports whether id was recorded before.
	Seen(ctx context.Context, id string) (bool, error)

	Close() error
}
