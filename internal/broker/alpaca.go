package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"sentitrade/internal/domain"
	"sentitrade/internal/util"
)

// Compile-time interface check.
var _ Broker = (*AlpacaBroker)(nil)

// tradingAPI is the subset of *alpaca.Client the broker uses.
type tradingAPI interface {
	GetAccount() (*alpaca.Account, error)
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
	GetOrder(orderID string) (*alpaca.Order, error)
	GetOrderByClientOrderID(clientOrderID string) (*alpaca.Order, error)
}

// quoteAPI is the subset of *marketdata.Client the broker uses.
type quoteAPI interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// AlpacaOptions configures an AlpacaBroker.
type AlpacaOptions struct {
	APIKey          string
	APISecret       string
	BaseURL         string
	DataURL         string
	Feed            string
	CallTimeout     time.Duration
	RateLimitPerMin int
}

// AlpacaBroker implements the Broker interface using the Alpaca brokerage
// API. It holds the process's only connection to the venue.
type AlpacaBroker struct {
	trading tradingAPI
	quotes  quoteAPI
	feed    marketdata.Feed
	limiter *util.RateLimiter
	state   atomic.Int32
	log     *slog.Logger
}

// NewAlpacaBroker creates an AlpacaBroker configured with the given
// credentials and API endpoints. It does not touch the network; call
// Connect before submitting orders.
func NewAlpacaBroker(opts AlpacaOptions, log *slog.Logger) *AlpacaBroker {
	httpClient := &http.Client{Timeout: opts.CallTimeout}

	trading := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:     opts.APIKey,
		APISecret:  opts.APISecret,
		BaseURL:    opts.BaseURL,
		HTTPClient: httpClient,
	})

	mdOpts := marketdata.ClientOpts{
		APIKey:     opts.APIKey,
		APISecret:  opts.APISecret,
		HTTPClient: httpClient,
	}
	if opts.DataURL != "" {
		mdOpts.BaseURL = opts.DataURL
	}

	return newAlpacaBroker(trading, marketdata.NewClient(mdOpts), opts.Feed,
		util.NewRateLimiter(opts.RateLimitPerMin, 10), log)
}

func newAlpacaBroker(t tradingAPI, q quoteAPI, feed string, limiter *util.RateLimiter, log *slog.Logger) *AlpacaBroker {
	if log == nil {
		log = util.Discard()
	}
	return &AlpacaBroker{
		trading: t,
		quotes:  q,
		feed:    marketdata.Feed(feed),
		limiter: limiter,
		log:     log.With("broker", "alpaca"),
	}
}

// Name returns "alpaca".
func (b *AlpacaBroker) Name() string {
	return "alpaca"
}

// State reports the connection state.
func (b *AlpacaBroker) State() State {
	return State(b.state.Load())
}

// Connect verifies the credentials by reading the account. It may only move
// the broker out of StateUninitialized once.
func (b *AlpacaBroker) Connect(ctx context.Context) error {
	switch b.State() {
	case StateConnected:
		return nil
	case StateDisconnected:
		return domain.NewError(domain.KindConnection, "connect", errors.New("broker is disconnected; create a new instance"))
	}

	// The venue has not been contacted yet, so the instance stays usable.
	if err := b.limiter.Wait(ctx); err != nil {
		return domain.NewError(domain.KindCanceled, "connect", err)
	}
	acct, err := b.trading.GetAccount()
	if err != nil {
		b.state.Store(int32(StateDisconnected))
		b.log.Error("failed to connect", "error", err)
		return domain.NewError(domain.KindConnection, "connect", err)
	}

	b.state.Store(int32(StateConnected))
	b.log.Info("connected", "account_status", acct.Status)
	return nil
}

// ready gates every venue call on the connection state, the caller's
// context, and the rate limiter.
func (b *AlpacaBroker) ready(ctx context.Context, op string) error {
	if st := b.State(); st != StateConnected {
		return domain.NewError(domain.KindConnection, op, fmt.Errorf("broker alpaca is %s", st))
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return domain.NewError(domain.KindCanceled, op, err)
	}
	return nil
}

// SubmitOrder translates the request into an Alpaca order and places it.
// Venue errors are returned with their message untouched.
func (b *AlpacaBroker) SubmitOrder(ctx context.Context, req domain.OrderRequest) (*Submission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := b.ready(ctx, "submit order"); err != nil {
		return nil, err
	}

	order, err := b.trading.PlaceOrder(toAlpacaOrder(req))
	if err != nil {
		b.log.Error("order rejected", "ticker", req.Ticker, "side", req.Side,
			"type", req.Type, "qty", req.Qty, "error", err)
		return nil, domain.NewError(domain.KindSubmission, "submit order", err)
	}

	sub := &Submission{
		OrderID:       order.ID,
		ClientOrderID: order.ClientOrderID,
		Status:        order.Status,
		FilledPrice:   decimalFloat(order.FilledAvgPrice),
		AcceptedAt:    time.Now().UTC(),
	}
	if sub.ClientOrderID == "" {
		sub.ClientOrderID = req.ClientOrderID
	}
	return sub, nil
}

// GetOrderStatus queries the live order state.
func (b *AlpacaBroker) GetOrderStatus(ctx context.Context, orderID string) domain.OrderStatus {
	if err := b.ready(ctx, "order status"); err != nil {
		return domain.ErrorStatus(err)
	}
	order, err := b.trading.GetOrder(orderID)
	if err != nil {
		b.log.Warn("order status query failed", "order_id", orderID, "error", err)
		return domain.ErrorStatus(domain.NewError(domain.KindStatusQuery, "order status", err))
	}
	return fromAlpacaOrder(order)
}

// GetOrderStatusByClientID queries the order by its client order id. A 404
// from the venue means the order was never placed.
func (b *AlpacaBroker) GetOrderStatusByClientID(ctx context.Context, clientOrderID string) domain.OrderStatus {
	if err := b.ready(ctx, "order status"); err != nil {
		return domain.ErrorStatus(err)
	}
	order, err := b.trading.GetOrderByClientOrderID(clientOrderID)
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return domain.OrderStatus{Status: domain.OrderStateNotFound}
		}
		b.log.Warn("order status query failed", "client_order_id", clientOrderID, "error", err)
		return domain.ErrorStatus(domain.NewError(domain.KindStatusQuery, "order status", err))
	}
	return fromAlpacaOrder(order)
}

// GetLatestPrice returns the price of the latest trade for ticker.
func (b *AlpacaBroker) GetLatestPrice(ctx context.Context, ticker string) (float64, error) {
	if err := b.ready(ctx, "latest price"); err != nil {
		return 0, err
	}
	trade, err := b.quotes.GetLatestTrade(ticker, marketdata.GetLatestTradeRequest{Feed: b.feed})
	if err != nil {
		return 0, domain.NewError(domain.KindPriceUnavailable, "latest price", err)
	}
	if trade == nil || trade.Price <= 0 {
		return 0, domain.NewError(domain.KindPriceUnavailable, "latest price",
			fmt.Errorf("no quote for %s", ticker))
	}
	return trade.Price, nil
}

// ---------------------------------------------------------------------------
// Translation helpers
// ---------------------------------------------------------------------------

func toAlpacaOrder(req domain.OrderRequest) alpaca.PlaceOrderRequest {
	qty := decimal.NewFromInt(req.Qty)
	out := alpaca.PlaceOrderRequest{
		Symbol:        req.Ticker,
		Qty:           &qty,
		Side:          alpaca.Side(req.Side),
		Type:          alpaca.OrderType(req.Type),
		TimeInForce:   alpaca.TimeInForce(req.TimeInForce),
		ClientOrderID: req.ClientOrderID,
	}
	if req.LimitPrice != nil {
		px := decimal.NewFromFloat(*req.LimitPrice).Round(2)
		out.LimitPrice = &px
	}
	if req.StopPrice != nil {
		px := decimal.NewFromFloat(*req.StopPrice).Round(2)
		out.StopPrice = &px
	}
	return out
}

func fromAlpacaOrder(o *alpaca.Order) domain.OrderStatus {
	return domain.OrderStatus{
		OrderID:     o.ID,
		Status:      o.Status,
		FilledQty:   domain.Ptr(o.FilledQty.InexactFloat64()),
		FilledPrice: decimalFloat(o.FilledAvgPrice),
		Symbol:      o.Symbol,
	}
}

func decimalFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	return domain.Ptr(d.InexactFloat64())
}
