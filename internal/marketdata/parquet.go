package marketdata

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"sentitrade/internal/domain"
	"sentitrade/internal/store"
	"sentitrade/internal/util"
)

// Compile-time interface check.
var _ Provider = (*ParquetProvider)(nil)

// ParquetProvider builds snapshots from daily bars already on disk. The
// most recent bars are used, so stale files still produce a snapshot.
type ParquetProvider struct {
	bars store.BarStore
	now  func() time.Time
	log  *slog.Logger
}

// NewParquetProvider creates a ParquetProvider over bars.
func NewParquetProvider(bars store.BarStore, log *slog.Logger) *ParquetProvider {
	if log == nil {
		log = util.Discard()
	}
	return &ParquetProvider{
		bars: bars,
		now:  time.Now,
		log:  log.With("component", "marketdata", "source", "parquet"),
	}
}

// GetSnapshot summarizes up to the last year of stored bars for ticker.
func (p *ParquetProvider) GetSnapshot(ctx context.Context, ticker string) (domain.Snapshot, bool) {
	end := p.now().UTC()
	start := end.AddDate(-1, 0, 0)

	bars, err := p.bars.ReadBars(ctx, strings.ToUpper(ticker), start, end)
	if err != nil {
		p.log.Warn("reading bars failed", "ticker", ticker, "error", err)
		return domain.Snapshot{}, false
	}
	return Summarize(bars)
}
