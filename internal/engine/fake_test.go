package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sentitrade/internal/broker"
	"sentitrade/internal/domain"
)

// fakeBroker records every call and lets tests script failures.
type fakeBroker struct {
	mu        sync.Mutex
	submitted []domain.OrderRequest
	calls     atomic.Int64

	name        string
	state       broker.State
	submitErr   func(req domain.OrderRequest) error
	fillPrice   *float64
	priceErr    error
	price       float64
	byClientID  map[string]domain.OrderStatus
	statusCalls atomic.Int64
	submitDelay time.Duration
	seq         atomic.Int64
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{name: "fake", state: broker.StateConnected, price: 200, byClientID: map[string]domain.OrderStatus{}}
}

func (f *fakeBroker) Name() string                  { return f.name }
func (f *fakeBroker) Connect(context.Context) error { f.calls.Add(1); return nil }
func (f *fakeBroker) State() broker.State           { return f.state }

func (f *fakeBroker) SubmitOrder(_ context.Context, req domain.OrderRequest) (*broker.Submission, error) {
	f.calls.Add(1)
	if f.submitDelay > 0 {
		time.Sleep(f.submitDelay)
	}
	f.mu.Lock()
	f.submitted = append(f.submitted, req)
	f.mu.Unlock()
	if f.submitErr != nil {
		if err := f.submitErr(req); err != nil {
			return nil, err
		}
	}
	id := fmt.Sprintf("ord-%d", f.seq.Add(1))
	var fill *float64
	if req.Type != domain.OrderTypeStop {
		fill = f.fillPrice
	}
	return &broker.Submission{OrderID: id, ClientOrderID: req.ClientOrderID, Status: "accepted", FilledPrice: fill}, nil
}

func (f *fakeBroker) GetOrderStatus(_ context.Context, orderID string) domain.OrderStatus {
	f.calls.Add(1)
	f.statusCalls.Add(1)
	return domain.OrderStatus{OrderID: orderID, Status: "filled", FilledQty: domain.Ptr(3.0), FilledPrice: domain.Ptr(101.0), Symbol: "TSLA"}
}

func (f *fakeBroker) GetOrderStatusByClientID(_ context.Context, cid string) domain.OrderStatus {
	f.calls.Add(1)
	f.statusCalls.Add(1)
	if st, ok := f.byClientID[cid]; ok {
		return st
	}
	return domain.OrderStatus{Status: domain.OrderStateNotFound}
}

func (f *fakeBroker) GetLatestPrice(context.Context, string) (float64, error) {
	f.calls.Add(1)
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.price, nil
}

func (f *fakeBroker) orders() []domain.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OrderRequest(nil), f.submitted...)
}

var errVenueDown = errors.New("connection reset by peer")
