// Package broker defines the Broker gateway interface and its venue
// variants. A process owns exactly one Broker; nothing else talks to the
// venue.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sentitrade/internal/config"
	"sentitrade/internal/domain"
)

// State is the connection lifecycle of a Broker instance.
type State int32

const (
	StateUninitialized State = iota
	StateConnected
	// StateDisconnected is terminal for the instance; reconnecting means
	// constructing a new Broker.
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Submission is the venue's acknowledgement of an accepted order.
type Submission struct {
	OrderID       string
	ClientOrderID string
	Status        string
	// FilledPrice is the average fill price when the venue reports one at
	// submission time, nil otherwise.
	FilledPrice *float64
	AcceptedAt  time.Time
}

// Broker abstracts a trading venue behind one contract.
type Broker interface {
	// Name returns the broker identifier (e.g. "alpaca", "simulator").
	Name() string

	// Connect authenticates against the venue. A failure leaves the broker
	// in StateDisconnected and returns an error of kind connection.
	Connect(ctx context.Context) error

	// State reports the current connection state.
	State() State

	// SubmitOrder sends an order to the venue. Errors are *domain.Error of
	// kind connection or submission; for submission failures the venue's
	// message is preserved verbatim.
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (*Submission, error)

	// GetOrderStatus reads the lifecycle state of an order. It never fails:
	// a transient failure is reported as status "error" so callers can retry.
	GetOrderStatus(ctx context.Context, orderID string) domain.OrderStatus

	// GetOrderStatusByClientID looks an order up by the client order id the
	// engine assigned. Status "not_found" means the venue never accepted it.
	GetOrderStatusByClientID(ctx context.Context, clientOrderID string) domain.OrderStatus

	// GetLatestPrice returns the latest trade price, or an error of kind
	// price_unavailable when the venue has no quote.
	GetLatestPrice(ctx context.Context, ticker string) (float64, error)
}

// New builds the broker variant named by cfg.Broker.Name and connects it.
// An unknown name is a configuration error. A real venue that fails to
// connect is returned anyway, in StateDisconnected, so the process keeps
// running and every order reports the disconnection.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (Broker, error) {
	var b Broker
	switch cfg.Broker.Name {
	case "paper", "simulator":
		b = NewSimulatorBroker(cfg.Simulator.Quotes)
	case "alpaca":
		b = NewAlpacaBroker(AlpacaOptions{
			APIKey:          cfg.Alpaca.APIKey,
			APISecret:       cfg.Alpaca.APISecret,
			BaseURL:         cfg.Alpaca.BaseURL,
			DataURL:         cfg.Alpaca.DataURL,
			Feed:            cfg.Alpaca.Feed,
			CallTimeout:     cfg.Broker.CallTimeout,
			RateLimitPerMin: cfg.Broker.RateLimitPerMin,
		}, log)
	default:
		return nil, fmt.Errorf("unsupported broker %q", cfg.Broker.Name)
	}

	if err := b.Connect(ctx); err != nil {
		log.Error("broker connection failed, continuing disconnected",
			"broker", b.Name(), "error", err)
	}
	return b, nil
}
