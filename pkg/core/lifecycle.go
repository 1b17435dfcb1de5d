package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

// InvoiceDraft is the input for creating an invoice. Zero dates get
// defaults: issue date now, due date issue plus the configured terms.
type InvoiceDraft struct {
	ClientID  uint
	IssueDate time.Time
	DueDate   time.Time
	Lines     []models.InvoiceLine
}

// InvoicePatch carries the optional content changes of an update.
// Nil fields stay untouched. Changing the client re-snapshots the
// billing fields from the live client record.
type InvoicePatch struct {
	ClientID  *uint
	IssueDate *time.Time
	DueDate   *time.Time
	Lines     *[]models.InvoiceLine
}

// LifecycleService orchestrates every invoice mutation: it asks the
// validator, writes through the repositories and records the audit
// trail. A service-level mutex linearizes load-validate-write cycles
// for the single-process backends; SQL backends additionally rely on
// transactions and the UpdateStatus compare-and-swap.
type LifecycleService struct {
	store     storage.Store
	validator *Validator
	numbering *NumberingService
	audit     *AuditService
	dueDays   int
	log       zerolog.Logger

	mu sync.Mutex
}

// NewLifecycleService wires the lifecycle over a store. dueDays sets
// the default payment terms for invoices created without a due date.
func NewLifecycleService(store storage.Store, numbering *NumberingService, audit *AuditService, dueDays int, log zerolog.Logger) *LifecycleService {
	if dueDays <= 0 {
		dueDays = 30
	}
	return &LifecycleService{
		store:     store,
		validator: NewValidator(),
		numbering: numbering,
		audit:     audit,
		dueDays:   dueDays,
		log:       log,
	}
}

// CreateInvoice builds a DRAFT invoice from the draft input: copies
// the client snapshot, computes line amounts and total, allocates the
// number and persists. Exactly one "created" audit entry follows.
func (s *LifecycleService) CreateInvoice(ctx context.Context, draft InvoiceDraft, actor string) (*models.Invoice, error) {
	client, err := s.store.Clients().GetByID(ctx, draft.ClientID)
	if err != nil {
		return nil, fmt.Errorf("client %d: %w", draft.ClientID, err)
	}

	issue := draft.IssueDate
	if issue.IsZero() {
		issue = time.Now().UTC()
	}
	due := draft.DueDate
	if due.IsZero() {
		due = issue.AddDate(0, 0, s.dueDays)
	}

	inv := &models.Invoice{
		IssueDate: issue,
		DueDate:   due,
		Status:    models.StatusDraft,
		Lines:     draft.Lines,
	}
	inv.SnapshotClient(client)
	inv.RecalculateTotals()

	if violations := s.validator.ValidateDocument(inv); !violations.Empty() {
		return nil, firstViolation(violations)
	}

	number, err := s.numbering.Next(ctx, InvoicePrefix, issue)
	if err != nil {
		return nil, err
	}
	inv.Number = number

	created, err := s.store.Invoices().Create(ctx, inv)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, created, models.AuditCreated, actor,
		fmt.Sprintf("invoice %s for %s, total %s", created.Number, created.ClientName, created.TotalAmount.StringFixed(2)))
	s.log.Info().Str("invoice", created.Number).Str("client", created.ClientName).Msg("invoice created")
	return created, nil
}

// UpdateInvoice applies a content patch to a DRAFT invoice and
// recomputes its totals. Non-DRAFT invoices are immutable.
func (s *LifecycleService) UpdateInvoice(ctx context.Context, id uint, patch InvoicePatch, actor string) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.store.Invoices().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateModification(inv); err != nil {
		return nil, err
	}

	if patch.ClientID != nil && *patch.ClientID != inv.ClientID {
		client, err := s.store.Clients().GetByID(ctx, *patch.ClientID)
		if err != nil {
			return nil, fmt.Errorf("client %d: %w", *patch.ClientID, err)
		}
		inv.SnapshotClient(client)
	}
	if patch.IssueDate != nil {
		inv.IssueDate = *patch.IssueDate
	}
	if patch.DueDate != nil {
		inv.DueDate = *patch.DueDate
	}
	if patch.Lines != nil {
		lines := make([]models.InvoiceLine, len(*patch.Lines))
		for i, line := range *patch.Lines {
			lines[i] = models.InvoiceLine{
				InvoiceID:   inv.ID,
				Description: line.Description,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
			}
		}
		inv.Lines = lines
	}
	inv.RecalculateTotals()

	if violations := s.validator.ValidateDocument(inv); !violations.Empty() {
		return nil, firstViolation(violations)
	}
	return s.store.Invoices().Update(ctx, inv)
}

// Send moves a DRAFT invoice to SENT.
func (s *LifecycleService) Send(ctx context.Context, id uint, actor string) (*models.Invoice, error) {
	return s.Transition(ctx, id, models.StatusSent, actor)
}

// Cancel moves a DRAFT, or a SENT invoice without payments, to
// CANCELLED.
func (s *LifecycleService) Cancel(ctx context.Context, id uint, actor string) (*models.Invoice, error) {
	return s.Transition(ctx, id, models.StatusCancelled, actor)
}

// Refund moves a PAID invoice to REFUNDED.
func (s *LifecycleService) Refund(ctx context.Context, id uint, actor string) (*models.Invoice, error) {
	return s.Transition(ctx, id, models.StatusRefunded, actor)
}

// Transition moves an invoice to target. Requesting the current
// status is an idempotent no-op: it succeeds without touching the
// record or the audit trail. CREDITED is reserved for the credit
// service; PAID is reachable only once payments cover the total.
func (s *LifecycleService) Transition(ctx context.Context, id uint, target models.InvoiceStatus, actor string) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.store.Invoices().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == target {
		return inv, nil
	}
	if target == models.StatusCredited {
		return nil, &models.InvalidTransitionError{
			From:   inv.Status,
			To:     target,
			Reason: "only a credit note credits an invoice",
		}
	}

	paid, err := s.store.Payments().TotalForInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateTransition(inv, target, paid); err != nil {
		s.log.Debug().Str("invoice", inv.Number).Str("from", string(inv.Status)).Str("to", string(target)).Msg("transition denied")
		return nil, err
	}
	return s.applyTransition(ctx, inv, target, models.AuditStatusChanged, actor, "")
}

// AddPayment records a payment and, when it settles the invoice in
// full, moves a SENT invoice to PAID. When the returned error is
// non-nil after the payment validated, the payment itself may already
// be persisted; only the follow-up transition failed.
func (s *LifecycleService) AddPayment(ctx context.Context, invoiceID uint, amount decimal.Decimal, date time.Time, reference, actor string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.store.Invoices().GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	paid, err := s.store.Payments().TotalForInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidatePayment(inv, paid, amount); err != nil {
		s.log.Debug().Str("invoice", inv.Number).Str("amount", amount.StringFixed(2)).Msg("payment denied")
		return nil, err
	}

	if date.IsZero() {
		date = time.Now().UTC()
	}
	payment, err := s.store.Payments().Create(ctx, &models.Payment{
		InvoiceID: inv.ID,
		Amount:    amount,
		Date:      date,
		Reference: reference,
	})
	if err != nil {
		return nil, err
	}

	detail := "payment of " + amount.StringFixed(2)
	if reference != "" {
		detail += " (" + reference + ")"
	}
	s.audit.Log(ctx, inv, models.AuditPaymentAdded, actor, detail)
	s.log.Info().Str("invoice", inv.Number).Str("amount", amount.StringFixed(2)).Msg("payment added")

	if inv.Status == models.StatusSent && paid.Add(amount).Equal(inv.TotalAmount) {
		if _, err := s.applyTransition(ctx, inv, models.StatusPaid, models.AuditStatusChanged, actor, ""); err != nil {
			return payment, err
		}
	}
	return payment, nil
}

// ApplyCredit transitions the invoice covered by cn to CREDITED and
// records the credit-note reference. The credit service is the only
// caller; the transition is re-validated here.
func (s *LifecycleService) ApplyCredit(ctx context.Context, invoiceID uint, cn *models.CreditNote, actor string) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.store.Invoices().GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	paid, err := s.store.Payments().TotalForInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateTransition(inv, models.StatusCredited, paid); err != nil {
		return nil, err
	}

	detail := fmt.Sprintf("credit note %s for %s", cn.Number, cn.Amount.StringFixed(2))
	inv, err = s.applyTransition(ctx, inv, models.StatusCredited, models.AuditCredited, actor, detail)
	if err != nil {
		return nil, err
	}

	inv.CreditNoteID = &cn.ID
	return s.store.Invoices().Update(ctx, inv)
}

// CloneInvoice copies an invoice's client snapshot and lines into a
// fresh DRAFT with a new number and today's dates.
func (s *LifecycleService) CloneInvoice(ctx context.Context, id uint, actor string) (*models.Invoice, error) {
	src, err := s.store.Invoices().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	dup := src.Clone()
	now := time.Now().UTC()
	dup.IssueDate = now
	dup.DueDate = now.AddDate(0, 0, s.dueDays)

	number, err := s.numbering.Next(ctx, InvoicePrefix, now)
	if err != nil {
		return nil, err
	}
	dup.Number = number

	created, err := s.store.Invoices().Create(ctx, dup)
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, created, models.AuditCloned, actor, "cloned from "+src.Number)
	s.log.Info().Str("invoice", created.Number).Str("source", src.Number).Msg("invoice cloned")
	return created, nil
}

// OutstandingBalance returns total minus payments minus credits.
func (s *LifecycleService) OutstandingBalance(ctx context.Context, inv *models.Invoice) (decimal.Decimal, error) {
	paid, err := s.store.Payments().TotalForInvoice(ctx, inv.ID)
	if err != nil {
		return decimal.Zero, err
	}
	credited := decimal.Zero
	notes, err := s.store.CreditNotes().GetByInvoice(ctx, inv.ID)
	if err != nil {
		return decimal.Zero, err
	}
	for i := range notes {
		credited = credited.Add(notes[i].Amount)
	}
	return inv.TotalAmount.Sub(paid).Sub(credited), nil
}

// ResolveInvoice finds an invoice by number, falling back to a
// numeric id. CLI and API lookups accept either.
func (s *LifecycleService) ResolveInvoice(ctx context.Context, ref string) (*models.Invoice, error) {
	inv, err := s.store.Invoices().GetByNumber(ctx, ref)
	if err == nil {
		return inv, nil
	}
	var id uint
	if _, scanErr := fmt.Sscanf(ref, "%d", &id); scanErr == nil {
		return s.store.Invoices().GetByID(ctx, id)
	}
	return nil, err
}

// applyTransition executes a validated transition: fires the machine,
// compare-and-swaps the stored status and writes one audit entry of
// the given kind. Callers hold the service mutex.
func (s *LifecycleService) applyTransition(ctx context.Context, inv *models.Invoice, target models.InvoiceStatus, kind models.AuditKind, actor, detail string) (*models.Invoice, error) {
	event, ok := inv.Status.EventFor(target)
	if !ok {
		return nil, &models.InvalidTransitionError{From: inv.Status, To: target}
	}

	machine, err := NewLifecycleMachine(inv.Status, inv.Number)
	if err != nil {
		return nil, err
	}
	next, err := machine.Fire(event)
	if err != nil {
		return nil, err
	}

	old := inv.Status
	if err := s.store.Invoices().UpdateStatus(ctx, inv.ID, old, next); err != nil {
		return nil, err
	}
	inv.Status = next

	if detail == "" {
		detail = fmt.Sprintf("%s -> %s", old, next)
	}
	s.audit.Log(ctx, inv, kind, actor, detail)
	s.log.Info().
		Str("invoice", inv.Number).
		Str("from", string(old)).
		Str("to", string(next)).
		Msg("invoice status changed")
	return inv, nil
}

func firstViolation(v Violations) error {
	fields := v.Fields()
	if len(fields) == 0 {
		return nil
	}
	return &models.ValidationError{Field: fields[0], Message: v[fields[0]]}
}
