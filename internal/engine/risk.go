package engine

import (
	"context"
	"fmt"
	"math"

	"sentitrade/internal/domain"
	"sentitrade/internal/sizing"
)

// RiskGuard decides whether a filled BUY gets a protective stop order and
// builds it.
type RiskGuard struct {
	enabled     bool
	stopLossPct float64
	prices      sizing.PriceEstimator
}

// NewRiskGuard creates a RiskGuard.
//
//   - enabled: whether BUY fills are protected at all.
//   - stopLossPct: distance of the stop below entry (e.g. 0.05 for 5%).
//   - prices: entry-price source used when the venue did not report a fill
//     price.
func NewRiskGuard(enabled bool, stopLossPct float64, prices sizing.PriceEstimator) (*RiskGuard, error) {
	if enabled && (stopLossPct <= 0 || stopLossPct >= 1) {
		return nil, fmt.Errorf("stop loss pct must be in (0,1), got %v", stopLossPct)
	}
	return &RiskGuard{enabled: enabled, stopLossPct: stopLossPct, prices: prices}, nil
}

// Enabled reports whether the guard attaches protection.
func (g *RiskGuard) Enabled() bool {
	return g != nil && g.enabled
}

// Protect returns the stop order for a filled position, or nil when the
// action is not BUY or protection is disabled. entryPrice may be nil, in
// which case the guard's estimator supplies it; if that fails the error is
// of kind price_unavailable and the caller must keep the primary fill.
func (g *RiskGuard) Protect(ctx context.Context, action domain.Action, ticker string, filledQty int64, entryPrice *float64) (*domain.OrderRequest, error) {
	if !g.Enabled() || action != domain.ActionBuy {
		return nil, nil
	}
	if filledQty < 1 {
		return nil, domain.NewError(domain.KindValidation, "protect", fmt.Errorf("filled quantity %d", filledQty))
	}

	var entry float64
	if entryPrice != nil && *entryPrice > 0 {
		entry = *entryPrice
	} else {
		if g.prices == nil {
			return nil, domain.NewError(domain.KindPriceUnavailable, "protect", fmt.Errorf("no entry price for %s", ticker))
		}
		px, err := g.prices.Estimate(ctx, ticker)
		if err != nil {
			return nil, domain.NewError(domain.KindPriceUnavailable, "protect", err)
		}
		entry = px
	}

	stop := StopPrice(entry, g.stopLossPct)
	if stop <= 0 {
		return nil, domain.NewError(domain.KindPriceUnavailable, "protect", fmt.Errorf("entry price %v gives no usable stop", entry))
	}
	return &domain.OrderRequest{
		Ticker:      ticker,
		Side:        domain.OrderSideSell,
		Qty:         filledQty,
		Type:        domain.OrderTypeStop,
		StopPrice:   &stop,
		TimeInForce: domain.TimeInForceGTC,
	}, nil
}

// StopPrice is entry × (1 − pct), rounded to cents.
func StopPrice(entry, pct float64) float64 {
	return math.Round(entry*(1-pct)*100) / 100
}
