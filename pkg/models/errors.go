package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain error taxonomy. Every failure surfaced by the core maps to
// exactly one of these. Sentinels support errors.Is; the structured
// types carry context for precise messages and support errors.As.
var (
	// ErrNotFound indicates a lookup miss on any repository.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indicates a natural-key collision on create
	// (invoice number, product code, payment note label).
	ErrDuplicate = errors.New("duplicate natural key")

	// ErrBackendUnavailable indicates a storage connectivity failure.
	// The core never retries; callers decide.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidTransition anchors InvalidTransitionError for errors.Is.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrImmutableInvoice anchors ImmutableInvoiceError for errors.Is.
	ErrImmutableInvoice = errors.New("invoice is immutable")

	// ErrOverpayment anchors OverpaymentError for errors.Is.
	ErrOverpayment = errors.New("payment exceeds outstanding balance")

	// ErrOverCredit anchors OverCreditError for errors.Is.
	ErrOverCredit = errors.New("credit exceeds outstanding balance")

	// ErrValidation anchors ValidationError for errors.Is.
	ErrValidation = errors.New("validation failed")
)

// InvalidTransitionError reports a lifecycle edge missing from the
// transition table, identifying both states. Reason qualifies edges
// that exist but are conditionally barred (cancel after payments,
// paying short of the total).
type InvalidTransitionError struct {
	From   InvoiceStatus
	To     InvoiceStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot change status from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ImmutableInvoiceError reports a content mutation attempted outside
// DRAFT, or a write to a storage-immutable field such as number or id.
type ImmutableInvoiceError struct {
	Number string
	Status InvoiceStatus
	Field  string // set when a specific immutable field was targeted
}

func (e *ImmutableInvoiceError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invoice %s: field %q is immutable", e.Number, e.Field)
	}
	return fmt.Sprintf("invoice %s is immutable in status %s; only DRAFT invoices can be modified", e.Number, e.Status)
}

func (e *ImmutableInvoiceError) Is(target error) bool {
	return target == ErrImmutableInvoice
}

// OverpaymentError reports a payment that would push the paid total
// past the invoice total. Limit is the remaining amount that would
// have been accepted.
type OverpaymentError struct {
	InvoiceNumber string
	Limit         decimal.Decimal
	Requested     decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s on invoice %s exceeds the outstanding balance of %s",
		e.Requested.StringFixed(2), e.InvoiceNumber, e.Limit.StringFixed(2))
}

func (e *OverpaymentError) Is(target error) bool {
	return target == ErrOverpayment
}

// OverCreditError reports a credit amount above the invoice's
// outstanding balance. Limit is the maximum creditable amount.
type OverCreditError struct {
	InvoiceNumber string
	Limit         decimal.Decimal
	Requested     decimal.Decimal
}

func (e *OverCreditError) Error() string {
	return fmt.Sprintf("credit of %s on invoice %s exceeds the outstanding balance of %s",
		e.Requested.StringFixed(2), e.InvoiceNumber, e.Limit.StringFixed(2))
}

func (e *OverCreditError) Is(target error) bool {
	return target == ErrOverCredit
}

// ValidationError reports a single malformed field on a document.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
