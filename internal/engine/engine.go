// Package engine turns trading signals into broker orders: it sizes the
// order, submits it, attaches stop-loss protection to BUY fills, and
// normalizes every outcome into a domain.OrderResult.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"sentitrade/internal/broker"
	"sentitrade/internal/domain"
	"sentitrade/internal/sizing"
	"sentitrade/internal/util"
)

var errEmptyID = errors.New("order id is required")

// ExecuteOptions carries the caller's optional overrides for one execution.
type ExecuteOptions struct {
	// Quantity skips position sizing. It must be positive.
	Quantity *int64
	// LimitPrice turns the primary order into a LIMIT order.
	LimitPrice *float64
	// ClientOrderID is sent instead of a freshly generated id. Resubmitting
	// under the same id lets the venue reject a duplicate.
	ClientOrderID string
}

// Engine orchestrates one execution per signal. It is safe for concurrent
// use; executions for the same ticker are serialized.
type Engine struct {
	broker  broker.Broker
	sizing  sizing.Policy
	guard   *RiskGuard
	tracker *Tracker
	locks   *TickerLocks
	log     *slog.Logger
	now     func() time.Time
	newID   func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the clock used to stamp results.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the client order id generator.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine creates a new Engine wired with the given dependencies. guard
// may be nil to disable protection.
func NewEngine(b broker.Broker, policy sizing.Policy, guard *RiskGuard, log *slog.Logger, opts ...Option) *Engine {
	if log == nil {
		log = util.Discard()
	}
	e := &Engine{
		broker:  b,
		sizing:  policy,
		guard:   guard,
		tracker: NewTracker(b),
		locks:   NewTickerLocks(),
		log:     log.With("component", "engine"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Tracker returns the status tracker bound to the engine's broker.
func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// Execute runs one signal through the pipeline and always returns a
// result. HOLD signals and invalid input never reach the broker. Broker
// failures become ERROR results and are not retried here.
func (e *Engine) Execute(ctx context.Context, sig domain.Signal, opts ExecuteOptions) domain.OrderResult {
	log := e.log.With("ticker", sig.Ticker, "action", sig.Action)

	if sig.Action == domain.ActionHold {
		log.Info("no trade", "confidence", sig.Confidence)
		return domain.OrderResult{
			Status:    domain.StatusNoTrade,
			Ticker:    sig.Ticker,
			Action:    sig.Action,
			Timestamp: e.now().UTC(),
		}
	}

	side, err := validate(sig, opts)
	if err != nil {
		return e.fail(log, sig, nil, e.now().UTC(), err)
	}

	unlock, err := e.locks.Lock(ctx, sig.Ticker)
	if err != nil {
		return e.fail(log, sig, nil, e.now().UTC(), domain.NewError(domain.KindCanceled, "execute", err))
	}
	defer unlock()

	if err := ctx.Err(); err != nil {
		return e.fail(log, sig, nil, e.now().UTC(), domain.NewError(domain.KindCanceled, "execute", err))
	}

	qty, err := e.quantity(ctx, log, sig, opts)
	if err != nil {
		return e.fail(log, sig, nil, e.now().UTC(), err)
	}

	req := domain.OrderRequest{
		Ticker:        sig.Ticker,
		Side:          side,
		Qty:           qty,
		Type:          domain.OrderTypeMarket,
		TimeInForce:   domain.TimeInForceGTC,
		ClientOrderID: opts.ClientOrderID,
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = e.newID()
	}
	if opts.LimitPrice != nil {
		req.Type = domain.OrderTypeLimit
		req.LimitPrice = domain.Ptr(*opts.LimitPrice)
	}

	log.Info("submitting order", "qty", qty, "type", req.Type, "confidence", sig.Confidence)
	sub, err := e.broker.SubmitOrder(ctx, req)
	at := e.now().UTC()
	if err != nil {
		return e.fail(log, sig, &req, at, err)
	}

	res := domain.OrderResult{
		Status:        domain.StatusSuccess,
		OrderID:       domain.Ptr(sub.OrderID),
		ClientOrderID: domain.Ptr(req.ClientOrderID),
		Ticker:        sig.Ticker,
		Action:        sig.Action,
		Qty:           domain.Ptr(qty),
		Price:         resultPrice(req, sub),
		Timestamp:     at,
	}

	if sig.Action == domain.ActionBuy && e.guard.Enabled() {
		res.Protection = e.protect(ctx, log, sig.Ticker, qty, sub.OrderID, sub.FilledPrice)
	}

	logResult(log, res)
	return res
}

func validate(sig domain.Signal, opts ExecuteOptions) (domain.OrderSide, error) {
	if strings.TrimSpace(sig.Ticker) == "" {
		return "", domain.NewError(domain.KindValidation, "execute", errors.New("ticker is required"))
	}
	side, err := domain.SideFor(sig.Action)
	if err != nil {
		return "", err
	}
	if opts.Quantity != nil && *opts.Quantity <= 0 {
		return "", domain.NewError(domain.KindValidation, "execute",
			fmt.Errorf("explicit quantity must be positive, got %d", *opts.Quantity))
	}
	if opts.LimitPrice != nil && !(*opts.LimitPrice > 0) {
		return "", domain.NewError(domain.KindValidation, "execute",
			fmt.Errorf("limit price must be positive, got %v", *opts.LimitPrice))
	}
	return side, nil
}

func (e *Engine) quantity(ctx context.Context, log *slog.Logger, sig domain.Signal, opts ExecuteOptions) (int64, error) {
	if opts.Quantity != nil {
		return *opts.Quantity, nil
	}
	qty, px, err := e.sizing.Quantity(ctx, sig.Ticker, sig.Confidence)
	if err != nil {
		if domain.KindOf(err) == "" {
			err = domain.NewError(domain.KindPriceUnavailable, "size order", err)
		}
		return 0, err
	}
	log.Debug("sized order", "qty", qty, "price_estimate", px, "max_capital", e.sizing.MaxCapitalPerTrade)
	return qty, nil
}

// protect attaches the stop-loss. Whatever happens here, the primary
// result keeps its status; the outcome is only reported in the advisory
// Protection field.
func (e *Engine) protect(ctx context.Context, log *slog.Logger, ticker string, qty int64, primaryID string, fill *float64) *domain.ProtectionResult {
	req, err := e.guard.Protect(ctx, domain.ActionBuy, ticker, qty, fill)
	if err != nil {
		log.Warn("skipping stop-loss", "order_id", primaryID, "error", err)
		return &domain.ProtectionResult{
			Status:  domain.ProtectionSkipped,
			Message: domain.Ptr(err.Error()),
		}
	}
	if req == nil {
		return nil
	}

	req.ClientOrderID = e.newID()
	sub, err := e.broker.SubmitOrder(ctx, *req)
	if err != nil {
		log.Error("stop-loss submission failed", "order_id", primaryID,
			"stop_price", *req.StopPrice, "error", err)
		return &domain.ProtectionResult{
			Status:    domain.ProtectionFailed,
			StopPrice: req.StopPrice,
			Message:   domain.Ptr(domain.Cause(err)),
		}
	}

	log.Info("stop-loss placed", "order_id", sub.OrderID, "stop_price", *req.StopPrice, "qty", qty)
	return &domain.ProtectionResult{
		Status:    domain.ProtectionPlaced,
		OrderID:   domain.Ptr(sub.OrderID),
		StopPrice: req.StopPrice,
	}
}

// fail converts err into an ERROR result. Connection failures name the
// broker; submission failures carry the venue's text untouched.
func (e *Engine) fail(log *slog.Logger, sig domain.Signal, req *domain.OrderRequest, at time.Time, err error) domain.OrderResult {
	kind := domain.KindOf(err)
	if kind == "" {
		kind = domain.KindSubmission
	}

	var msg string
	switch kind {
	case domain.KindConnection:
		msg = fmt.Sprintf("broker %s not connected: %s", e.broker.Name(), domain.Cause(err))
	case domain.KindSubmission:
		msg = domain.Cause(err)
	default:
		msg = err.Error()
	}
	if msg == "" {
		msg = string(kind) + " error"
	}

	res := domain.OrderResult{
		Status:    domain.StatusError,
		Ticker:    sig.Ticker,
		Action:    sig.Action,
		Timestamp: at,
		Message:   &msg,
		ErrorKind: kind,
	}
	if req != nil {
		res.ClientOrderID = domain.Ptr(req.ClientOrderID)
		res.Qty = domain.Ptr(req.Qty)
	}

	logResult(log, res)
	return res
}

// resultPrice prefers a reported fill price, then the limit price.
func resultPrice(req domain.OrderRequest, sub *broker.Submission) *float64 {
	if sub.FilledPrice != nil {
		return domain.Ptr(*sub.FilledPrice)
	}
	if req.Type == domain.OrderTypeLimit && req.LimitPrice != nil {
		return domain.Ptr(*req.LimitPrice)
	}
	return nil
}

func logResult(log *slog.Logger, res domain.OrderResult) {
	attrs := []any{"status", res.Status, "timestamp", res.Timestamp}
	if res.OrderID != nil {
		attrs = append(attrs, "order_id", *res.OrderID)
	}
	if res.Qty != nil {
		attrs = append(attrs, "qty", *res.Qty)
	}
	if res.Price != nil {
		attrs = append(attrs, "price", *res.Price)
	}
	if res.Protection != nil {
		attrs = append(attrs, "protection", res.Protection.Status)
	}

	if res.Status == domain.StatusError {
		attrs = append(attrs, "error_kind", res.ErrorKind, "message", *res.Message)
		log.Error("trade result", attrs...)
		return
	}
	log.Info("trade result", attrs...)
}
