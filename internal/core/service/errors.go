package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPaymentNotCompleted = errors.New("payment not completed upstream")
	ErrAmountMismatch      = errors.New("payment amount does not match order")
	ErrRefundNotAllowed    = errors.New("only completed orders can be refunded")
	ErrRefundAmountInvalid = errors.New("refund amount out of range")
	ErrRefundRefused       = errors.New("gateway refused cancellation")
)

// ValidationError reports missing or malformed request fields. The message
// enumerates every offending field so the client can fix them in one pass.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// ReconciliationError marks a straddling failure: an external side effect
// (a gateway cancel, a verified payment) may have taken hold while the
// ledger write failed. It must reach the caller so an operator can
// reconcile manually; handlers must never retry it automatically.
type ReconciliationError struct {
	Err error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("ledger write failed, manual reconciliation required: %v", e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}
