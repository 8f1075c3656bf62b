// Package sizing converts a signal's confidence and a capital limit into an
// order quantity.
package sizing

import (
	"context"
	"fmt"
	"math"
)

// ComputeQuantity returns floor(maxCapital × confidence / pricePerShare),
// never less than one share. Confidence is clamped to [0,1] because
// upstream providers may return unbounded values. A non-positive or NaN
// price carries no information and yields the one-share minimum.
func ComputeQuantity(confidence, maxCapital, pricePerShare float64) int64 {
	c := Clamp(confidence, 0, 1)
	if !(pricePerShare > 0) || !(maxCapital > 0) {
		return 1
	}
	q := math.Floor(maxCapital * c / pricePerShare)
	if q < 1 || math.IsNaN(q) {
		return 1
	}
	if q > math.MaxInt64/2 {
		return math.MaxInt64 / 2
	}
	return int64(q)
}

// Clamp limits v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// Policy is the read-only sizing configuration for one process.
type Policy struct {
	MaxCapitalPerTrade float64
	Prices             PriceEstimator
}

// Quantity sizes an order for ticker using the policy's price estimate.
func (p Policy) Quantity(ctx context.Context, ticker string, confidence float64) (int64, float64, error) {
	if p.Prices == nil {
		return 0, 0, fmt.Errorf("sizing %s: no price estimator configured", ticker)
	}
	px, err := p.Prices.Estimate(ctx, ticker)
	if err != nil {
		return 0, 0, fmt.Errorf("sizing %s: %w", ticker, err)
	}
	return ComputeQuantity(confidence, p.MaxCapitalPerTrade, px), px, nil
}
