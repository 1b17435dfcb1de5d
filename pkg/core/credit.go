package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

// CreditService reverses SENT or PAID invoices by issuing credit
// notes. Issuing one is the only way an invoice reaches CREDITED; the
// lifecycle service re-validates and performs that transition. A
// partial credit (amount below the outstanding balance) still closes
// the invoice to CREDITED per the lifecycle table.
type CreditService struct {
	store     storage.Store
	validator *Validator
	numbering *NumberingService
	lifecycle *LifecycleService
	log       zerolog.Logger
}

// NewCreditService wires the credit flow over the same store and
// lifecycle the invoices use.
func NewCreditService(store storage.Store, numbering *NumberingService, lifecycle *LifecycleService, log zerolog.Logger) *CreditService {
	return &CreditService{
		store:     store,
		validator: NewValidator(),
		numbering: numbering,
		lifecycle: lifecycle,
		log:       log,
	}
}

// CreateCreditNote credits an invoice by amount for the given reason.
// A zero amount credits the full outstanding balance. On success the
// credit note is persisted, the invoice is CREDITED and exactly one
// "credited" audit entry is appended.
func (c *CreditService) CreateCreditNote(ctx context.Context, invoiceID uint, amount decimal.Decimal, reason, actor string) (*models.CreditNote, error) {
	inv, err := c.store.Invoices().GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	outstanding, err := c.lifecycle.OutstandingBalance(ctx, inv)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		amount = outstanding
	}
	if err := c.validator.ValidateCredit(inv, outstanding, amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	number, err := c.numbering.Next(ctx, CreditNotePrefix, now)
	if err != nil {
		return nil, err
	}

	note, err := c.store.CreditNotes().Create(ctx, &models.CreditNote{
		Number:    number,
		InvoiceID: inv.ID,
		Reason:    reason,
		Amount:    amount,
		IssueDate: now,
	})
	if err != nil {
		return nil, err
	}

	if _, err := c.lifecycle.ApplyCredit(ctx, inv.ID, note, actor); err != nil {
		// The note row exists but the invoice did not transition;
		// surface the failure rather than hiding a half-applied credit.
		c.log.Warn().
			Err(err).
			Str("credit_note", note.Number).
			Str("invoice", inv.Number).
			Msg("credit note created but invoice transition failed")
		return nil, err
	}

	c.log.Info().
		Str("credit_note", note.Number).
		Str("invoice", inv.Number).
		Str("amount", amount.StringFixed(2)).
		Msg("credit note issued")
	return note, nil
}
