package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbardeau/factura/pkg/core"
	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
	"github.com/mbardeau/factura/pkg/storage/memory"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type env struct {
	store     storage.Store
	lifecycle *core.LifecycleService
	credit    *core.CreditService
	audit     *core.AuditService
	client    *models.Client
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New(zerolog.Nop())
	numbering := core.NewNumberingService(store.Sequences())
	audit := core.NewAuditService(store.AuditLogs(), zerolog.Nop())
	lifecycle := core.NewLifecycleService(store, numbering, audit, 30, zerolog.Nop())
	credit := core.NewCreditService(store, numbering, lifecycle, zerolog.Nop())

	client, err := store.Clients().Create(context.Background(), &models.Client{
		Name:    "Acme Corp",
		Address: "1 Main Street",
		TaxID:   "FR-123",
		Email:   "billing@acme.test",
	})
	require.NoError(t, err)

	return &env{store: store, lifecycle: lifecycle, credit: credit, audit: audit, client: client}
}

// twoLines totals 200.00: qty 2 @ 50.00 plus qty 1 @ 100.00.
func twoLines() []models.InvoiceLine {
	return []models.InvoiceLine{
		{Description: "Design", Quantity: dec("2"), UnitPrice: dec("50")},
		{Description: "Development", Quantity: dec("1"), UnitPrice: dec("100")},
	}
}

func (e *env) draft(t *testing.T, lines []models.InvoiceLine) *models.Invoice {
	t.Helper()
	inv, err := e.lifecycle.CreateInvoice(context.Background(), core.InvoiceDraft{
		ClientID: e.client.ID,
		Lines:    lines,
	}, "test")
	require.NoError(t, err)
	return inv
}

func (e *env) sent(t *testing.T, lines []models.InvoiceLine) *models.Invoice {
	t.Helper()
	inv := e.draft(t, lines)
	inv, err := e.lifecycle.Send(context.Background(), inv.ID, "test")
	require.NoError(t, err)
	return inv
}

func TestCreateInvoice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	inv, err := e.lifecycle.CreateInvoice(ctx, core.InvoiceDraft{
		ClientID:  e.client.ID,
		IssueDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Lines:     twoLines(),
	}, "test")
	require.NoError(t, err)

	assert.Equal(t, models.StatusDraft, inv.Status)
	assert.Equal(t, "INV-2026-0001", inv.Number)
	assert.True(t, inv.TotalAmount.Equal(dec("200")), "total = %s, want 200", inv.TotalAmount)

	// Client snapshot is copied, not referenced.
	assert.Equal(t, e.client.ID, inv.ClientID)
	assert.Equal(t, "Acme Corp", inv.ClientName)
	assert.Equal(t, "FR-123", inv.ClientTaxID)

	// Exactly one "created" audit entry.
	trail, err := e.audit.InvoiceTrail(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, models.AuditCreated, trail[0].Kind)
	assert.Equal(t, "test", trail[0].Actor)
}

func TestCreateInvoice_DefaultDates(t *testing.T) {
	e := newEnv(t)

	before := time.Now().UTC()
	inv := e.draft(t, twoLines())
	after := time.Now().UTC()

	assert.False(t, inv.IssueDate.Before(before) || inv.IssueDate.After(after),
		"issue date %s should default to now", inv.IssueDate)
	assert.Equal(t, inv.IssueDate.AddDate(0, 0, 30), inv.DueDate,
		"due date should default to issue plus the configured terms")
}

func TestCreateInvoice_UnknownClient(t *testing.T) {
	e := newEnv(t)
	_, err := e.lifecycle.CreateInvoice(context.Background(), core.InvoiceDraft{
		ClientID: 999,
		Lines:    twoLines(),
	}, "test")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateInvoice_NoLines(t *testing.T) {
	e := newEnv(t)
	_, err := e.lifecycle.CreateInvoice(context.Background(), core.InvoiceDraft{
		ClientID: e.client.ID,
	}, "test")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateInvoice_SequentialNumbers(t *testing.T) {
	e := newEnv(t)
	period := core.PeriodOf(time.Now().UTC())

	first := e.draft(t, twoLines())
	second := e.draft(t, twoLines())

	assert.Equal(t, core.FormatNumber(core.InvoicePrefix, period, 1), first.Number)
	assert.Equal(t, core.FormatNumber(core.InvoicePrefix, period, 2), second.Number)
}

func TestUpdateInvoice_RecomputesTotals(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.draft(t, twoLines())

	newLines := []models.InvoiceLine{
		{Description: "Consulting", Quantity: dec("3"), UnitPrice: dec("120")},
	}
	updated, err := e.lifecycle.UpdateInvoice(ctx, inv.ID, core.InvoicePatch{Lines: &newLines}, "test")
	require.NoError(t, err)

	assert.True(t, updated.TotalAmount.Equal(dec("360")), "total = %s, want 360", updated.TotalAmount)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, "Consulting", updated.Lines[0].Description)
	assert.Equal(t, inv.Number, updated.Number, "the number never changes on update")
}

func TestUpdateInvoice_ResnapshotsOnClientChange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.draft(t, twoLines())

	other, err := e.store.Clients().Create(ctx, &models.Client{Name: "Globex", Address: "2 Side Street"})
	require.NoError(t, err)

	updated, err := e.lifecycle.UpdateInvoice(ctx, inv.ID, core.InvoicePatch{ClientID: &other.ID}, "test")
	require.NoError(t, err)
	assert.Equal(t, other.ID, updated.ClientID)
	assert.Equal(t, "Globex", updated.ClientName)
}

func TestUpdateInvoice_ImmutableOutsideDraft(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sent(t, twoLines())

	newLines := []models.InvoiceLine{
		{Description: "Sneaky edit", Quantity: dec("1"), UnitPrice: dec("1")},
	}
	_, err := e.lifecycle.UpdateInvoice(ctx, inv.ID, core.InvoicePatch{Lines: &newLines}, "test")
	assert.ErrorIs(t, err, models.ErrImmutableInvoice)

	// The stored record is unchanged.
	stored, err := e.store.Invoices().GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(dec("200")))
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, "Design", stored.Lines[0].Description)
}

func TestTransition_SendCancelRefund(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	t.Run("send", func(t *testing.T) {
		inv := e.draft(t, twoLines())
		sent, err := e.lifecycle.Send(ctx, inv.ID, "test")
		require.NoError(t, err)
		assert.Equal(t, models.StatusSent, sent.Status)
	})

	t.Run("cancel draft", func(t *testing.T) {
		inv := e.draft(t, twoLines())
		cancelled, err := e.lifecycle.Cancel(ctx, inv.ID, "test")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, cancelled.Status)
	})

	t.Run("cancel sent without payments", func(t *testing.T) {
		inv := e.sent(t, twoLines())
		cancelled, err := e.lifecycle.Cancel(ctx, inv.ID, "test")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, cancelled.Status)
	})

	t.Run("refund requires paid", func(t *testing.T) {
		inv := e.sent(t, twoLines())
		_, err := e.lifecycle.Refund(ctx, inv.ID, "test")
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})
}

func TestTransition_SelfIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sent(t, twoLines())

	trailBefore, err := e.audit.InvoiceTrail(ctx, inv.ID)
	require.NoError(t, err)

	again, err := e.lifecycle.Transition(ctx, inv.ID, models.StatusSent, "test")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, again.Status)
	assert.True(t, again.TotalAmount.Equal(inv.TotalAmount))

	trailAfter, err := e.audit.InvoiceTrail(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, trailAfter, len(trailBefore), "an idempotent no-op must not append audit entries")
}

func TestTransition_DeniedEdgeLeavesStateUnchanged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.draft(t, twoLines())

	_, err := e.lifecycle.Transition(ctx, inv.ID, models.StatusRefunded, "test")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	stored, err := e.store.Invoices().GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, stored.Status)
}

func TestTransition_CreditedIsReservedForCreditNotes(t *testing.T) {
	e := newEnv(t)
	inv := e.sent(t, twoLines())

	_, err := e.lifecycle.Transition(context.Background(), inv.ID, models.StatusCredited, "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestTransition_CancelAfterPayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sent(t, twoLines())

	_, err := e.lifecycle.AddPayment(ctx, inv.ID, dec("50"), time.Time{}, "", "test")
	require.NoError(t, err)

	_, err = e.lifecycle.Cancel(ctx, inv.ID, "test")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

// TestPaymentSettlement walks the canonical scenario: total 200,
// payments of 50, 50 and 100. The invoice stays SENT until the last
// payment settles it in full, then flips to PAID on its own.
func TestPaymentSettlement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sent(t, twoLines())

	for _, amount := range []string{"50", "50"} {
		_, err := e.lifecycle.AddPayment(ctx, inv.ID, dec(amount), time.Time{}, "", "test")
		require.NoError(t, err)

		current, err := e.store.Invoices().GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSent, current.Status, "partial payments must not settle the invoice")
	}

	payment, err := e.lifecycle.AddPayment(ctx, inv.ID, dec("100"), time.Time{}, "wire-042", "test")
	require.NoError(t, err)
	assert.Equal(t, "wire-042", payment.Reference)

	settled, err := e.store.Invoices().GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, settled.Status)

	paid, err := e.store.Payments().TotalForInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, paid.Equal(dec("200")))
}

func TestAddPayment_OverpaymentDenied(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sent(t, twoLines())

	_, err := e.lifecycle.AddPayment(ctx, inv.ID, dec("150"), time.Time{}, "", "test")
	require.NoError(t, err)

	_, err = e.lifecycle.AddPayment(ctx, inv.ID, dec("100"), time.Time{}, "", "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrOverpayment)

	// The rejected payment must not be persisted.
	payments, err := e.store.Payments().GetByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestAddPayment_AfterSettlementDenied(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sent(t, twoLines())

	_, err := e.lifecycle.AddPayment(ctx, inv.ID, dec("200"), time.Time{}, "", "test")
	require.NoError(t, err)

	_, err = e.lifecycle.AddPayment(ctx, inv.ID, dec("1"), time.Time{}, "", "test")
	assert.ErrorIs(t, err, models.ErrOverpayment)
}

func TestAddPayment_OnDraftDenied(t *testing.T) {
	e := newEnv(t)
	inv := e.draft(t, twoLines())

	_, err := e.lifecycle.AddPayment(context.Background(), inv.ID, dec("10"), time.Time{}, "", "test")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRefund(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sent(t, twoLines())

	_, err := e.lifecycle.AddPayment(ctx, inv.ID, dec("200"), time.Time{}, "", "test")
	require.NoError(t, err)

	refunded, err := e.lifecycle.Refund(ctx, inv.ID, "test")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRefunded, refunded.Status)
	assert.True(t, refunded.IsTerminal())
}

func TestCloneInvoice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	src := e.sent(t, twoLines())

	dup, err := e.lifecycle.CloneInvoice(ctx, src.ID, "test")
	require.NoError(t, err)

	assert.Equal(t, models.StatusDraft, dup.Status)
	assert.NotEqual(t, src.Number, dup.Number)
	assert.Equal(t, src.ClientName, dup.ClientName)
	assert.True(t, dup.TotalAmount.Equal(src.TotalAmount))
	require.Len(t, dup.Lines, 2)

	trail, err := e.audit.InvoiceTrail(ctx, dup.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, models.AuditCloned, trail[0].Kind)
}

func TestOutstandingBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.sent(t, []models.InvoiceLine{
		{Description: "Retainer", Quantity: dec("1"), UnitPrice: dec("500")},
	})

	_, err := e.lifecycle.AddPayment(ctx, inv.ID, dec("200"), time.Time{}, "", "test")
	require.NoError(t, err)

	current, err := e.store.Invoices().GetByID(ctx, inv.ID)
	require.NoError(t, err)

	outstanding, err := e.lifecycle.OutstandingBalance(ctx, current)
	require.NoError(t, err)
	assert.True(t, outstanding.Equal(dec("300")), "outstanding = %s, want 300", outstanding)
}

func TestResolveInvoice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := e.draft(t, twoLines())

	byNumber, err := e.lifecycle.ResolveInvoice(ctx, inv.Number)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, byNumber.ID)

	byID, err := e.lifecycle.ResolveInvoice(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, byID.ID)

	_, err = e.lifecycle.ResolveInvoice(ctx, "INV-2099-9999")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// TestEndToEndSettlementScenario is the full walk: DRAFT with two
// lines totalling 200, send, settle with one payment, then verify the
// invoice rejects further money and further edits.
func TestEndToEndSettlementScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	inv := e.draft(t, twoLines())
	require.True(t, inv.TotalAmount.Equal(dec("200")))

	_, err := e.lifecycle.Send(ctx, inv.ID, "test")
	require.NoError(t, err)

	_, err = e.lifecycle.AddPayment(ctx, inv.ID, dec("200"), time.Time{}, "", "test")
	require.NoError(t, err)

	settled, err := e.store.Invoices().GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, settled.Status)

	_, err = e.lifecycle.AddPayment(ctx, inv.ID, dec("1"), time.Time{}, "", "test")
	assert.ErrorIs(t, err, models.ErrOverpayment)

	lines := []models.InvoiceLine{{Description: "Edit", Quantity: dec("1"), UnitPrice: dec("1")}}
	_, err = e.lifecycle.UpdateInvoice(ctx, inv.ID, core.InvoicePatch{Lines: &lines}, "test")
	assert.ErrorIs(t, err, models.ErrImmutableInvoice)

	// Audit trail: created, status-changed (send), payment-added,
	// status-changed (auto-paid), in commit order.
	trail, err := e.audit.InvoiceTrail(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, trail, 4)
	assert.Equal(t, models.AuditCreated, trail[0].Kind)
	assert.Equal(t, models.AuditStatusChanged, trail[1].Kind)
	assert.Equal(t, models.AuditPaymentAdded, trail[2].Kind)
	assert.Equal(t, models.AuditStatusChanged, trail[3].Kind)
}
