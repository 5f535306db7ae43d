package fundtrade

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error by how a caller should react to it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is caught before any network call; the user can fix the input and retry.
	KindValidation
	// KindRejected is a trade the server refused, its message is shown verbatim.
	KindRejected
	// KindTransport is a network or protocol failure.
	KindTransport
	// KindNotFound is a missing fund, position or NAV.
	KindNotFound
	// KindSuperseded is a response dropped because a newer request replaced it.
	KindSuperseded
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRejected:
		return "rejected"
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not found"
	case KindSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

var (
	ErrNonPositiveAmount  = errors.New("amount must be positive")
	ErrBelowMinimum       = errors.New("amount below fund minimum")
	ErrUnitsOutOfRange    = errors.New("units out of range")
	ErrDisclosureRequired = errors.New("risk disclosure must be accepted")
	ErrNavUnavailable     = errors.New("nav unavailable")
	ErrPositionClosed     = errors.New("position is fully sold")
	ErrPositionNotFound   = errors.New("position not found")
	ErrFundNotFound       = errors.New("fund not found")
	ErrCurrencyMismatch   = errors.New("currency mismatch")
	ErrInvalidFees        = errors.New("invalid fee schedule")
	ErrInvalidSettlement  = errors.New("invalid settlement")
	ErrInvalidEntry       = errors.New("invalid ledger entry")
	ErrInvalidCatalog     = errors.New("invalid fund catalog")
	ErrRejected           = errors.New("trade rejected")
	ErrSuperseded         = errors.New("superseded by a newer request")
)

// Error is the error type returned by fundtrade and its adapters.
type Error struct {
	Kind Kind
	Op   string // operation, e.g. "purchase"
	Msg  string // user facing message, verbatim from the server for rejections
	Err  error  // sentinel or underlying cause
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Msg != "" && e.Err != nil && !isSentinel(e.Err):
		fmt.Fprintf(&b, "%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func isSentinel(err error) bool {
	for _, s := range []error{
		ErrNonPositiveAmount, ErrBelowMinimum, ErrUnitsOutOfRange, ErrDisclosureRequired,
		ErrNavUnavailable, ErrPositionClosed, ErrPositionNotFound, ErrFundNotFound,
		ErrCurrencyMismatch, ErrInvalidFees, ErrInvalidSettlement, ErrInvalidEntry, ErrInvalidCatalog, ErrRejected, ErrSuperseded,
	} {
		if err == s {
			return true
		}
	}
	return false
}

func invalid(op string, sentinel error, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...), Err: sentinel}
}

func notFound(op string, sentinel error, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...), Err: sentinel}
}

// Rejected returns the error for a trade the server refused.
func Rejected(op, serverMessage string) *Error {
	if serverMessage == "" {
		serverMessage = "trade rejected by server"
	}
	return &Error{Kind: KindRejected, Op: op, Msg: serverMessage, Err: ErrRejected}
}

// Transport wraps a network or decoding failure.
func Transport(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// KindOf classifies any error. Joined errors take the kind of their first
// classified member.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrSuperseded) {
		return KindSuperseded
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransport
	}
	return KindUnknown
}

// UserMessage returns the text to show for err: the verbatim server message
// for rejections, a generic line for transport failures.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case KindRejected:
		return e.Msg
	case KindTransport:
		return "the service is unavailable, please try again later"
	default:
		if e.Msg != "" {
			return e.Msg
		}
		return e.Error()
	}
}
