package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")

	ErrEventNotFound           = errors.New("event not found")
	ErrEventNotEligible        = errors.New("event not eligible for payout")
	ErrPayoutNotFound          = errors.New("payout not found")
	ErrPayoutAlreadyExists     = errors.New("payout already exists for event")
	ErrAccountNotReady         = errors.New("connect account not ready for payouts")
	ErrInsufficientBalance     = errors.New("net amount below minimum payout")
	ErrInvalidStatusTransition = errors.New("invalid payout status transition")

	ErrConfigMissing  = errors.New("fee configuration missing or incomplete")
	ErrCalculation    = errors.New("payout calculation produced an invalid result")
	ErrTransferFailed = errors.New("transfer creation failed")
	ErrRateLimited    = errors.New("processor rate limit hit")
)

// EligibilityError wraps ErrEventNotEligible or ErrAccountNotReady with the
// specific rule that failed and its diagnostics (e.g. days_remaining).
type EligibilityError struct {
	Err     error
	Reason  string
	Details map[string]any
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *EligibilityError) Unwrap() error { return e.Err }

// TransferStateError reports a divergence between the processor outcome and
// the local record that could not be repaired in-band: either the transfer
// succeeded but both the normal and the degraded (processing_error) status
// updates failed, or the transfer failed and marking the payout failed also
// failed. It carries every underlying cause so reconciliation can inspect
// each independently; it must never be collapsed into one of them.
type TransferStateError struct {
	PayoutID    string
	TransferID  string // empty when the transfer itself failed
	TransferErr error  // non-nil when the transfer failed
	UpdateErr   error
	FallbackErr error
}

func (e *TransferStateError) Error() string {
	var b strings.Builder
	if e.TransferErr != nil {
		fmt.Fprintf(&b, "transfer for payout %s failed: %v", e.PayoutID, e.TransferErr)
	} else {
		fmt.Fprintf(&b, "transfer %s for payout %s succeeded", e.TransferID, e.PayoutID)
	}
	fmt.Fprintf(&b, "; status update failed: %v", e.UpdateErr)
	if e.FallbackErr != nil {
		fmt.Fprintf(&b, "; processing_error update also failed: %v", e.FallbackErr)
	}
	return b.String()
}

func (e *TransferStateError) Unwrap() []error {
	out := make([]error, 0, 3)
	for _, err := range []error{e.TransferErr, e.UpdateErr, e.FallbackErr} {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

// ErrorMeta carries the propagation policy for one error kind.
type ErrorMeta struct {
	Retryable    bool
	Severity     slog.Level
	PageOperator bool
}

// Classify maps any error from the payout engine onto its propagation policy.
// Unknown errors are treated as system errors: logged at error level and
// surfaced, retryable only at the transfer-client layer.
func Classify(err error) ErrorMeta {
	var stateErr *TransferStateError
	if errors.As(err, &stateErr) {
		return ErrorMeta{Retryable: false, Severity: slog.LevelError, PageOperator: true}
	}
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrEventNotEligible),
		errors.Is(err, ErrPayoutNotFound),
		errors.Is(err, ErrPayoutAlreadyExists),
		errors.Is(err, ErrAccountNotReady),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrInvalidStatusTransition):
		return ErrorMeta{Retryable: false, Severity: slog.LevelWarn}
	case errors.Is(err, ErrConfigMissing), errors.Is(err, ErrCalculation):
		return ErrorMeta{Retryable: false, Severity: slog.LevelError, PageOperator: true}
	case errors.Is(err, ErrRateLimited):
		return ErrorMeta{Retryable: true, Severity: slog.LevelWarn}
	case errors.Is(err, ErrTransferFailed):
		return ErrorMeta{Retryable: true, Severity: slog.LevelError}
	default:
		return ErrorMeta{Retryable: true, Severity: slog.LevelError}
	}
}
