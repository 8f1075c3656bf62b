package engine

import (
	"context"
	"strings"

	"sentitrade/internal/broker"
	"sentitrade/internal/domain"
)

// Tracker reads order lifecycle state from the broker. It holds no state
// and caches nothing, so it is safe to call at any rate.
type Tracker struct {
	broker broker.Broker
}

// NewTracker creates a Tracker over b.
func NewTracker(b broker.Broker) *Tracker {
	return &Tracker{broker: b}
}

// CheckStatus returns the current state of orderID. Failures come back as
// status "error" and may be retried by the caller.
func (t *Tracker) CheckStatus(ctx context.Context, orderID string) domain.OrderStatus {
	if strings.TrimSpace(orderID) == "" {
		return domain.ErrorStatus(domain.NewError(domain.KindValidation, "check status", errEmptyID))
	}
	return t.broker.GetOrderStatus(ctx, orderID)
}

// CheckClientOrder returns the state of the order the engine submitted with
// clientOrderID. Status "not_found" means the venue never accepted it.
func (t *Tracker) CheckClientOrder(ctx context.Context, clientOrderID string) domain.OrderStatus {
	if strings.TrimSpace(clientOrderID) == "" {
		return domain.ErrorStatus(domain.NewError(domain.KindValidation, "check client order", errEmptyID))
	}
	return t.broker.GetOrderStatusByClientID(ctx, clientOrderID)
}
