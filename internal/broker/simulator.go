package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sentitrade/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*SimulatorBroker)(nil)

const (
	simFilledPrice = 100.0
	simDefaultQty  = 10
)

// SimulatorBroker implements the Broker interface for paper trading. It
// accepts every order without making external calls and records them in
// memory so status queries can echo them back.
type SimulatorBroker struct {
	seq atomic.Uint64

	mu     sync.RWMutex
	orders map[string]domain.OrderRequest // order id -> request
	byCID  map[string]string              // client order id -> order id
	quotes map[string]float64
}

// NewSimulatorBroker creates a SimulatorBroker. quotes seeds the prices
// returned by GetLatestPrice and may be nil.
func NewSimulatorBroker(quotes map[string]float64) *SimulatorBroker {
	b := &SimulatorBroker{
		orders: make(map[string]domain.OrderRequest),
		byCID:  make(map[string]string),
		quotes: make(map[string]float64, len(quotes)),
	}
	for sym, px := range quotes {
		b.quotes[strings.ToUpper(sym)] = px
	}
	return b
}

// Name returns "simulator".
func (b *SimulatorBroker) Name() string {
	return "simulator"
}

// Connect always succeeds.
func (b *SimulatorBroker) Connect(_ context.Context) error {
	return nil
}

// State is always connected.
func (b *SimulatorBroker) State() State {
	return StateConnected
}

// SetQuote sets the latest price reported for ticker.
func (b *SimulatorBroker) SetQuote(ticker string, price float64) {
	b.mu.Lock()
	b.quotes[strings.ToUpper(ticker)] = price
	b.mu.Unlock()
}

// SubmitOrder records the order and acknowledges it with a synthetic,
// monotonically increasing id. It never fails and reports no fill price.
func (b *SimulatorBroker) SubmitOrder(_ context.Context, req domain.OrderRequest) (*Submission, error) {
	id := fmt.Sprintf("sim-%d", b.seq.Add(1))

	b.mu.Lock()
	b.orders[id] = req
	if req.ClientOrderID != "" {
		b.byCID[req.ClientOrderID] = id
	}
	b.mu.Unlock()

	return &Submission{
		OrderID:       id,
		ClientOrderID: req.ClientOrderID,
		Status:        "accepted",
		AcceptedAt:    time.Now().UTC(),
	}, nil
}

// GetOrderStatus returns a deterministic filled stub. Orders the simulator
// has seen report their own symbol and quantity.
func (b *SimulatorBroker) GetOrderStatus(_ context.Context, orderID string) domain.OrderStatus {
	b.mu.RLock()
	req, ok := b.orders[orderID]
	b.mu.RUnlock()

	st := domain.OrderStatus{
		OrderID:     orderID,
		Status:      domain.OrderStateFilled,
		FilledQty:   domain.Ptr(float64(simDefaultQty)),
		FilledPrice: domain.Ptr(simFilledPrice),
	}
	if ok {
		st.FilledQty = domain.Ptr(float64(req.Qty))
		st.Symbol = req.Ticker
	}
	return st
}

// GetOrderStatusByClientID resolves the client order id and delegates to
// GetOrderStatus.
func (b *SimulatorBroker) GetOrderStatusByClientID(ctx context.Context, clientOrderID string) domain.OrderStatus {
	b.mu.RLock()
	id, ok := b.byCID[clientOrderID]
	b.mu.RUnlock()
	if !ok {
		return domain.OrderStatus{Status: domain.OrderStateNotFound}
	}
	return b.GetOrderStatus(ctx, id)
}

// GetLatestPrice returns the seeded quote for ticker.
func (b *SimulatorBroker) GetLatestPrice(_ context.Context, ticker string) (float64, error) {
	b.mu.RLock()
	px, ok := b.quotes[strings.ToUpper(ticker)]
	b.mu.RUnlock()
	if !ok || px <= 0 {
		return 0, domain.NewError(domain.KindPriceUnavailable, "latest price",
			fmt.Errorf("no simulated quote for %s", ticker))
	}
	return px, nil
}
