// Package builtins provides the signal generators that ship with
// sentitrade.
package builtins

import (
	"strings"

	"sentitrade/internal/domain"
	"sentitrade/internal/strategy"
)

// Compile-time interface checks.
var (
	_ strategy.Generator = (*RuleBased)(nil)
	_ strategy.Generator = (*SentimentOnly)(nil)
)

// RuleBased trades on strong sentiment confirmed by trend. It emits BUY
// when the score reaches the threshold and price is at or above MA20, SELL
// when the score reaches the negative threshold and price is at or below
// MA20, and HOLD otherwise. Without a snapshot the trend check passes.
type RuleBased struct {
	threshold float64
}

// NewRuleBased creates a RuleBased generator. threshold is clamped to
// [0, 1].
func NewRuleBased(threshold float64) *RuleBased {
	return &RuleBased{threshold: clampUnit(threshold)}
}

// Name returns "rule_based".
func (g *RuleBased) Name() string {
	return "rule_based"
}

// Generate applies the threshold and trend rules.
func (g *RuleBased) Generate(ticker string, s domain.Sentiment, snap *domain.Snapshot) domain.Signal {
	action := domain.ActionHold
	switch {
	case s.Score >= g.threshold && s.Score > 0 && trendAllows(snap, domain.ActionBuy):
		action = domain.ActionBuy
	case s.Score <= -g.threshold && s.Score < 0 && trendAllows(snap, domain.ActionSell):
		action = domain.ActionSell
	}
	return signal(ticker, action, s)
}

func trendAllows(snap *domain.Snapshot, a domain.Action) bool {
	if snap == nil || snap.MA20 <= 0 || snap.Price <= 0 {
		return true
	}
	if a == domain.ActionBuy {
		return snap.Price >= snap.MA20
	}
	return snap.Price <= snap.MA20
}

// SentimentOnly applies the threshold rule and ignores market data.
type SentimentOnly struct {
	threshold float64
}

// NewSentimentOnly creates a SentimentOnly generator.
func NewSentimentOnly(threshold float64) *SentimentOnly {
	return &SentimentOnly{threshold: clampUnit(threshold)}
}

// Name returns "sentiment_only".
func (g *SentimentOnly) Name() string {
	return "sentiment_only"
}

// Generate applies the threshold rule.
func (g *SentimentOnly) Generate(ticker string, s domain.Sentiment, _ *domain.Snapshot) domain.Signal {
	action := domain.ActionHold
	switch {
	case s.Score >= g.threshold && s.Score > 0:
		action = domain.ActionBuy
	case s.Score <= -g.threshold && s.Score < 0:
		action = domain.ActionSell
	}
	return signal(ticker, action, s)
}

// Registry returns a registry holding every builtin generator configured
// with threshold.
func Registry(threshold float64) *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register(NewRuleBased(threshold))
	r.Register(NewSentimentOnly(threshold))
	return r
}

func signal(ticker string, a domain.Action, s domain.Sentiment) domain.Signal {
	return domain.Signal{
		Ticker:     strings.ToUpper(ticker),
		Action:     a,
		Confidence: s.Confidence,
		Score:      s.Score,
	}
}

func clampUnit(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
