package domain

import "errors"

// ErrorKind classifies failures at gateway boundaries so callers can branch
// on the kind instead of matching message text.
type ErrorKind string

const (
	KindConnection       ErrorKind = "connection"
	KindValidation       ErrorKind = "validation"
	KindPriceUnavailable ErrorKind = "price_unavailable"
	KindSubmission       ErrorKind = "submission"
	KindStatusQuery      ErrorKind = "status_query"
	KindCanceled         ErrorKind = "canceled"
)

// Sentinel errors, one per kind. A *Error matches the sentinel of its kind
// under errors.Is.
var (
	ErrConnection       = errors.New("broker connection failed")
	ErrValidation       = errors.New("invalid input")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrSubmission       = errors.New("order submission failed")
	ErrStatusQuery      = errors.New("order status query failed")
	ErrCanceled         = errors.New("canceled before submission")
)

var sentinels = map[ErrorKind]error{
	KindConnection:       ErrConnection,
	KindValidation:       ErrValidation,
	KindPriceUnavailable: ErrPriceUnavailable,
	KindSubmission:       ErrSubmission,
	KindStatusQuery:      ErrStatusQuery,
	KindCanceled:         ErrCanceled,
}

// Error is a classified failure. Err holds the underlying cause, and for
// submission failures its text is the venue's message verbatim.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError wraps err with a kind and the operation that failed.
func NewError(kind ErrorKind, op string, err error) *Error {
	if err == nil {
		err = sentinels[kind]
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err carries no classification.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Cause returns the unclassified underlying error message, which for venue
// failures is the venue's own text.
func Cause(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
