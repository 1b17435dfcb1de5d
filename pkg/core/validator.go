// Package core implements the invoice lifecycle: the business
// validator, the state machine, numbering, the audit trail and the
// services orchestrating them over the storage contract.
package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mbardeau/factura/pkg/models"
)

// Violations maps a field name to the problem found with it.
type Violations map[string]string

// Empty reports whether no violation was recorded.
func (v Violations) Empty() bool { return len(v) == 0 }

// Fields returns the violated field names, sorted.
func (v Violations) Fields() []string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Validator is the pure decision layer gating every mutation. It
// performs no I/O and never mutates state: it only authorizes, the
// lifecycle service performs the write. Callers pass the payment
// total because the validator does not read repositories.
type Validator struct{}

// NewValidator returns the business validator.
func NewValidator() *Validator { return &Validator{} }

// ValidateTransition authorizes moving inv to target. A request for
// the current status is authorized so callers can treat it as an
// idempotent no-op. Edges absent from the lifecycle table, cancelling
// after a payment, and paying short of the total are denied.
func (v *Validator) ValidateTransition(inv *models.Invoice, target models.InvoiceStatus, paidTotal decimal.Decimal) error {
	if inv.Status == target {
		return nil
	}
	if !inv.Status.CanTransitionTo(target) {
		return &models.InvalidTransitionError{From: inv.Status, To: target}
	}
	if inv.Status == models.StatusSent && target == models.StatusCancelled && paidTotal.IsPositive() {
		return &models.InvalidTransitionError{
			From:   inv.Status,
			To:     target,
			Reason: "payments have been recorded",
		}
	}
	if target == models.StatusPaid && !paidTotal.Equal(inv.TotalAmount) {
		return &models.InvalidTransitionError{
			From:   inv.Status,
			To:     target,
			Reason: "payment total has not reached the invoice total",
		}
	}
	return nil
}

// ValidateModification authorizes content changes (lines, client
// snapshot, dates). Only DRAFT invoices may change.
func (v *Validator) ValidateModification(inv *models.Invoice) error {
	if inv.Status != models.StatusDraft {
		return &models.ImmutableInvoiceError{Number: inv.Number, Status: inv.Status}
	}
	return nil
}

// ValidatePayment authorizes adding amount to an invoice that already
// carries paidTotal. Payments are accepted on SENT or PAID invoices
// only, must be positive, and must never overshoot the remaining
// balance: overshoot is denied, never clamped.
func (v *Validator) ValidatePayment(inv *models.Invoice, paidTotal, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &models.ValidationError{Field: "amount", Message: "must be positive"}
	}
	if inv.Status != models.StatusSent && inv.Status != models.StatusPaid {
		return &models.ValidationError{
			Field:   "status",
			Message: "payments are accepted only on SENT or PAID invoices, not " + inv.Status.String(),
		}
	}
	remaining := inv.TotalAmount.Sub(paidTotal)
	if amount.GreaterThan(remaining) {
		return &models.OverpaymentError{
			InvoiceNumber: inv.Number,
			Limit:         remaining,
			Requested:     amount,
		}
	}
	return nil
}

// ValidateCredit authorizes a credit of amount against an invoice
// whose outstanding balance is outstanding.
func (v *Validator) ValidateCredit(inv *models.Invoice, outstanding, amount decimal.Decimal) error {
	if inv.Status != models.StatusSent && inv.Status != models.StatusPaid {
		return &models.InvalidTransitionError{From: inv.Status, To: models.StatusCredited}
	}
	if !amount.IsPositive() {
		return &models.ValidationError{Field: "amount", Message: "must be positive"}
	}
	if amount.GreaterThan(outstanding) {
		return &models.OverCreditError{
			InvoiceNumber: inv.Number,
			Limit:         outstanding,
			Requested:     amount,
		}
	}
	return nil
}

// ValidateDocument checks invoice well-formedness field by field and
// reports every problem found rather than stopping at the first.
func (v *Validator) ValidateDocument(inv *models.Invoice) Violations {
	violations := Violations{}
	if inv.ClientID == 0 {
		violations["client_id"] = "required"
	}
	if inv.ClientName == "" {
		violations["client_name"] = "required"
	}
	if inv.IssueDate.IsZero() {
		violations["issue_date"] = "required"
	}
	if inv.DueDate.IsZero() {
		violations["due_date"] = "required"
	} else if inv.DueDate.Before(inv.IssueDate) {
		violations["due_date"] = "must_not_precede_issue_date"
	}
	if len(inv.Lines) == 0 {
		violations["lines"] = "at_least_one_line_required"
	}
	for i := range inv.Lines {
		line := &inv.Lines[i]
		if line.Description == "" {
			violations[lineField(i, "description")] = "required"
		}
		if line.Quantity.IsNegative() {
			violations[lineField(i, "quantity")] = "must_not_be_negative"
		}
		if line.UnitPrice.IsNegative() {
			violations[lineField(i, "unit_price")] = "must_not_be_negative"
		}
	}
	return violations
}

func lineField(i int, name string) string {
	return fmt.Sprintf("lines[%d].%s", i, name)
}
