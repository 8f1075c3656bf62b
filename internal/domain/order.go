package domain

import (
	"errors"
	"fmt"
	"time"
)

// OrderSide is the direction of an order at the venue.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// SideFor maps a BUY/SELL action onto an order side.
func SideFor(a Action) (OrderSide, error) {
	switch a {
	case ActionBuy:
		return OrderSideBuy, nil
	case ActionSell:
		return OrderSideSell, nil
	}
	return "", NewError(KindValidation, "order side", fmt.Errorf("action %q does not trade", a))
}

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
	OrderTypeStop   OrderType = "stop"
)

// TimeInForce tells the venue how long an order stays working.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceDay TimeInForce = "day"
)

// OrderRequest is an order built by the engine. It is never mutated after
// it has been handed to a broker.
type OrderRequest struct {
	Ticker        string
	Side          OrderSide
	Qty           int64
	Type          OrderType
	LimitPrice    *float64
	StopPrice     *float64
	TimeInForce   TimeInForce
	ClientOrderID string
}

// Validate checks the request before any network call is made.
func (r OrderRequest) Validate() error {
	var errs []error
	if r.Ticker == "" {
		errs = append(errs, errors.New("ticker is required"))
	}
	if r.Side != OrderSideBuy && r.Side != OrderSideSell {
		errs = append(errs, fmt.Errorf("unknown side %q", r.Side))
	}
	if r.Qty < 1 {
		errs = append(errs, fmt.Errorf("quantity must be >= 1, got %d", r.Qty))
	}
	switch r.Type {
	case OrderTypeMarket:
	case OrderTypeLimit:
		if r.LimitPrice == nil || *r.LimitPrice <= 0 {
			errs = append(errs, errors.New("limit order needs a positive limit price"))
		}
	case OrderTypeStop:
		if r.StopPrice == nil || *r.StopPrice <= 0 {
			errs = append(errs, errors.New("stop order needs a positive stop price"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown order type %q", r.Type))
	}
	if len(errs) > 0 {
		return NewError(KindValidation, "validate order", errors.Join(errs...))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// ResultStatus is the outcome of one execution attempt.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "SUCCESS"
	StatusNoTrade ResultStatus = "NO_TRADE"
	StatusError   ResultStatus = "ERROR"
)

// ProtectionStatus is the outcome of the stop-loss step.
type ProtectionStatus string

const (
	ProtectionPlaced  ProtectionStatus = "PLACED"
	ProtectionSkipped ProtectionStatus = "SKIPPED"
	ProtectionFailed  ProtectionStatus = "FAILED"
)

// ProtectionResult is attached to a primary result as an advisory field. It
// never changes the status of the primary order.
type ProtectionResult struct {
	Status    ProtectionStatus `json:"status"`
	OrderID   *string          `json:"order_id"`
	StopPrice *float64         `json:"stop_price"`
	Message   *string          `json:"message,omitempty"`
}

// OrderResult is the externally observable record of one execution attempt.
// Anything that could not be determined is nil rather than a zero value.
type OrderResult struct {
	Status        ResultStatus      `json:"status"`
	OrderID       *string           `json:"order_id"`
	ClientOrderID *string           `json:"client_order_id,omitempty"`
	Ticker        string            `json:"ticker"`
	Action        Action            `json:"action"`
	Qty           *int64            `json:"quantity"`
	Price         *float64          `json:"price"`
	Timestamp     time.Time         `json:"timestamp"`
	Message       *string           `json:"message,omitempty"`
	ErrorKind     ErrorKind         `json:"error_kind,omitempty"`
	Protection    *ProtectionResult `json:"protection,omitempty"`
}

// Validate checks the result invariants: a SUCCESS carries an order id and
// a positive quantity, an ERROR carries a message.
func (r OrderResult) Validate() error {
	switch r.Status {
	case StatusSuccess:
		if r.OrderID == nil || *r.OrderID == "" {
			return errors.New("success result without order id")
		}
		if r.Qty == nil || *r.Qty < 1 {
			return errors.New("success result without a positive quantity")
		}
	case StatusError:
		if r.Message == nil || *r.Message == "" {
			return errors.New("error result without message")
		}
	case StatusNoTrade:
		if r.OrderID != nil {
			return errors.New("no-trade result with order id")
		}
	default:
		return fmt.Errorf("unknown result status %q", r.Status)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Order status
// ---------------------------------------------------------------------------

// Order status values produced by brokers in addition to the venue's own
// lifecycle strings ("new", "accepted", "partially_filled", ...).
const (
	OrderStateFilled   = "filled"
	OrderStateError    = "error"
	OrderStateNotFound = "not_found"
)

// OrderStatus is the lifecycle state of a previously submitted order.
type OrderStatus struct {
	OrderID     string   `json:"order_id,omitempty"`
	Status      string   `json:"status"`
	FilledQty   *float64 `json:"filled_qty"`
	FilledPrice *float64 `json:"filled_price"`
	Symbol      string   `json:"symbol,omitempty"`
	Message     *string  `json:"message,omitempty"`
}

// ErrorStatus builds the status returned when the state could not be read.
func ErrorStatus(err error) OrderStatus {
	msg := err.Error()
	return OrderStatus{Status: OrderStateError, Message: &msg}
}
