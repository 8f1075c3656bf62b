package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentitrade/internal/domain"
	"sentitrade/internal/util"
)

var errNotPlaced = errors.New("order was not placed")

// liveStates are venue statuses of an order that was accepted and is
// working or has filled. Anything else the venue reports for an order
// (rejected, canceled, expired, ...) means it will not execute.
var liveStates = map[string]bool{
	"new":                  true,
	"accepted":             true,
	"pending_new":          true,
	"accepted_for_bidding": true,
	"partially_filled":     true,
	"filled":               true,
	"done_for_day":         true,
	"calculated":           true,
}

// RetryPolicy bounds ExecuteConfirmed.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// ExecuteConfirmed is the caller-side retry around Execute. Every attempt
// carries the same client order id. A failed submission is only retried
// after the tracker confirms the venue never accepted the order. If the
// venue holds a live order under that id the result is reconciled to
// SUCCESS; if the venue reports it dead, or cannot be asked, the failure
// stands.
func (e *Engine) ExecuteConfirmed(ctx context.Context, sig domain.Signal, opts ExecuteOptions, policy RetryPolicy) domain.OrderResult {
	if opts.ClientOrderID == "" {
		opts.ClientOrderID = e.newID()
	}
	log := e.log.With("ticker", sig.Ticker, "action", sig.Action, "client_order_id", opts.ClientOrderID)

	var res domain.OrderResult
	_ = util.Retry(ctx, policy.MaxAttempts, policy.BaseDelay, func(attempt int) error {
		res = e.Execute(ctx, sig, opts)
		if res.Status != domain.StatusError || res.ErrorKind != domain.KindSubmission || res.ClientOrderID == nil {
			return nil
		}

		st := e.tracker.CheckClientOrder(ctx, *res.ClientOrderID)
		switch {
		case st.Status == domain.OrderStateNotFound:
			log.Warn("order confirmed absent at venue, retrying", "attempt", attempt)
			return errNotPlaced
		case st.Status == domain.OrderStateError:
			log.Warn("cannot confirm order state, not retrying")
		case st.OrderID == "":
		case liveStates[st.Status]:
			log.Warn("venue accepted order despite submission error", "order_id", st.OrderID, "status", st.Status)
			res = e.reconcile(ctx, sig, res, st)
		default:
			log.Warn("venue holds order in a terminal state, not retrying", "order_id", st.OrderID, "status", st.Status)
			msg := fmt.Sprintf("%s (venue order %s is %s)", *res.Message, st.OrderID, st.Status)
			res.Message = &msg
		}
		return nil
	})
	return res
}

// reconcile turns a failed submission into the SUCCESS of the live venue
// order st, attaching protection to a BUY the same way Execute does.
func (e *Engine) reconcile(ctx context.Context, sig domain.Signal, res domain.OrderResult, st domain.OrderStatus) domain.OrderResult {
	msg := "reconciled after submission error: " + *res.Message
	res.Status = domain.StatusSuccess
	res.OrderID = domain.Ptr(st.OrderID)
	res.Price = st.FilledPrice
	res.Message = &msg
	res.ErrorKind = ""

	if sig.Action == domain.ActionBuy && e.guard.Enabled() && res.Qty != nil {
		log := e.log.With("ticker", sig.Ticker, "action", sig.Action)
		unlock, err := e.locks.Lock(ctx, sig.Ticker)
		if err != nil {
			res.Protection = &domain.ProtectionResult{
				Status:  domain.ProtectionSkipped,
				Message: domain.Ptr(err.Error()),
			}
			log.Warn("skipping stop-loss", "order_id", st.OrderID, "error", err)
			return res
		}
		res.Protection = e.protect(ctx, log, sig.Ticker, *res.Qty, st.OrderID, st.FilledPrice)
		unlock()
	}
	logResult(e.log.With("ticker", sig.Ticker, "action", sig.Action), res)
	return res
}
