// Package domain holds the value types shared by every layer of the
// execution pipeline: signals, order requests, order results, and the
// error kinds used at gateway boundaries.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// Action is the directive carried by a trading signal.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ParseAction converts a case-insensitive string into an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case ActionBuy, ActionSell, ActionHold:
		return a, nil
	}
	return "", NewError(KindValidation, "parse action", fmt.Errorf("unknown action %q", s))
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionSell || a == ActionHold
}

// Signal is a ticker-scoped trading directive. It is treated as an
// immutable value and consumed once by the engine.
type Signal struct {
	Ticker     string    `json:"ticker"`
	Action     Action    `json:"action"`
	Confidence float64   `json:"confidence"`
	Score      float64   `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

// ---------------------------------------------------------------------------
// Sentiment and market data
// ---------------------------------------------------------------------------

// Sentiment is the output of a sentiment provider for one piece of text.
type Sentiment struct {
	Score      float64 `json:"score"`      // [-1, 1]
	Confidence float64 `json:"confidence"` // [0, 1]
}

// Entity is a ticker mentioned in a piece of text.
type Entity struct {
	Ticker string `json:"ticker"`
}

// NewsItem is one event fed into the pipeline. Symbols lists tickers the
// source already associates with the item, in addition to any cashtags in
// Text.
type NewsItem struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	Source  string    `json:"source,omitempty"`
	Time    time.Time `json:"time,omitempty"`
	Symbols []string  `json:"symbols,omitempty"`
}

// Snapshot summarizes recent market activity for a ticker.
type Snapshot struct {
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	MA20      float64 `json:"ma20"`
	AvgVolume float64 `json:"avg_volume"`
}

// Bar is a single OHLCV bar.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}
