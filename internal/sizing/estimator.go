package sizing

import (
	"context"
	"errors"
	"fmt"

	"sentitrade/internal/domain"
)

// PriceEstimator supplies a per-share price estimate for a ticker.
type PriceEstimator interface {
	Estimate(ctx context.Context, ticker string) (float64, error)
}

// Quoter is anything that can report a latest trade price; brokers satisfy
// it.
type Quoter interface {
	GetLatestPrice(ctx context.Context, ticker string) (float64, error)
}

// SnapshotSource is anything that can produce a market snapshot; market
// data providers satisfy it.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, ticker string) (domain.Snapshot, bool)
}

// FlatPrice assumes every share costs the same fixed amount.
type FlatPrice float64

// Estimate returns the fixed price.
func (f FlatPrice) Estimate(_ context.Context, _ string) (float64, error) {
	if f <= 0 {
		return 0, domain.NewError(domain.KindPriceUnavailable, "flat price", fmt.Errorf("non-positive flat price %v", float64(f)))
	}
	return float64(f), nil
}

// QuotePrice estimates from the venue's latest trade.
type QuotePrice struct {
	Quoter Quoter
}

// Estimate returns the latest trade price.
func (q QuotePrice) Estimate(ctx context.Context, ticker string) (float64, error) {
	return q.Quoter.GetLatestPrice(ctx, ticker)
}

// SnapshotPrice estimates from the last price of a market snapshot.
type SnapshotPrice struct {
	Source SnapshotSource
}

// Estimate returns the snapshot price.
func (s SnapshotPrice) Estimate(ctx context.Context, ticker string) (float64, error) {
	snap, ok := s.Source.GetSnapshot(ctx, ticker)
	if !ok || snap.Price <= 0 {
		return 0, domain.NewError(domain.KindPriceUnavailable, "snapshot price", fmt.Errorf("no snapshot for %s", ticker))
	}
	return snap.Price, nil
}

// Chain tries each estimator in order and returns the first success.
type Chain []PriceEstimator

// Estimate returns the first successful estimate, or every failure joined
// under a price_unavailable error.
func (c Chain) Estimate(ctx context.Context, ticker string) (float64, error) {
	var errs []error
	for _, e := range c {
		if e == nil {
			continue
		}
		px, err := e.Estimate(ctx, ticker)
		if err == nil {
			return px, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no estimators configured"))
	}
	return 0, domain.NewError(domain.KindPriceUnavailable, "estimate "+ticker, errors.Join(errs...))
}
