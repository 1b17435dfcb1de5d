package storage_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbardeau/factura/pkg/config"
	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
	"github.com/mbardeau/factura/pkg/storage/files"
	"github.com/mbardeau/factura/pkg/storage/memory"
	"github.com/mbardeau/factura/pkg/storage/sqldb"
)

// The conformance suite runs every repository property against every
// backend unmodified. A backend that needs its own expectations in
// here is a backend that broke the contract.

type backendFactory struct {
	name string
	open func(t *testing.T) storage.Store
}

func backends() []backendFactory {
	list := []backendFactory{
		{"memory", func(t *testing.T) storage.Store {
			return memory.New(zerolog.Nop())
		}},
	}
	for _, format := range []string{config.FormatJSON, config.FormatYAML, config.FormatXML, config.FormatMarkdown} {
		format := format
		list = append(list, backendFactory{"files-" + format, func(t *testing.T) storage.Store {
			s, err := files.New(t.TempDir(), format, zerolog.Nop())
			require.NoError(t, err)
			return s
		}})
	}
	list = append(list, backendFactory{"sqlite", openSQLite})
	return list
}

var sqliteDBs atomic.Int64

// openSQLite gives every test its own shared-cache in-memory database;
// the pool keeps a connection open so the database survives the test.
func openSQLite(t *testing.T) storage.Store {
	cfg := config.Settings{
		Backend:     config.BackendSQLite,
		DatabaseURL: fmt.Sprintf("file:conformance%d?mode=memory&cache=shared", sqliteDBs.Add(1)),
	}
	s, err := sqldb.Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store storage.Store)) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t))
		})
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func testInvoice(number string, status models.InvoiceStatus) *models.Invoice {
	inv := &models.Invoice{
		Number:        number,
		ClientID:      1,
		ClientName:    "Acme Corp",
		ClientAddress: "1 Main Street",
		ClientTaxID:   "FR-123",
		ClientEmail:   "billing@acme.test",
		IssueDate:     date("2026-03-01"),
		DueDate:       date("2026-03-31"),
		Status:        status,
		Lines: []models.InvoiceLine{
			{Description: "Design", Quantity: dec("2"), UnitPrice: dec("50")},
			{Description: "Development", Quantity: dec("1"), UnitPrice: dec("100")},
		},
	}
	inv.RecalculateTotals()
	return inv
}

func TestInvoices_CreateAndLookup(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		created, err := store.Invoices().Create(ctx, testInvoice("INV-2026-0001", models.StatusDraft))
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "INV-2026-0001", created.Number)

		byID, err := store.Invoices().GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Number, byID.Number)
		assert.Equal(t, models.StatusDraft, byID.Status)
		assert.True(t, byID.TotalAmount.Equal(dec("200")), "total = %s", byID.TotalAmount)
		require.Len(t, byID.Lines, 2)
		assert.Equal(t, "Design", byID.Lines[0].Description)
		assert.True(t, byID.Lines[0].Amount.Equal(dec("100")))
		assert.Equal(t, "Acme Corp", byID.ClientName)

		byNumber, err := store.Invoices().GetByNumber(ctx, "INV-2026-0001")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byNumber.ID)
	})
}

func TestInvoices_LookupMiss(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		_, err := store.Invoices().GetByID(ctx, 42)
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = store.Invoices().GetByNumber(ctx, "INV-2099-0001")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestInvoices_DuplicateNumber(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		_, err := store.Invoices().Create(ctx, testInvoice("INV-2026-0001", models.StatusDraft))
		require.NoError(t, err)

		_, err = store.Invoices().Create(ctx, testInvoice("INV-2026-0001", models.StatusDraft))
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrDuplicate)
	})
}

func TestInvoices_ListingAndPagination(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		for i := 1; i <= 5; i++ {
			_, err := store.Invoices().Create(ctx, testInvoice(fmt.Sprintf("INV-2026-%04d", i), models.StatusDraft))
			require.NoError(t, err)
		}

		all, err := store.Invoices().GetAll(ctx, storage.ListOptions{})
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i := 1; i < len(all); i++ {
			assert.Less(t, all[i-1].ID, all[i].ID, "listing must be ordered by creation")
		}

		page, err := store.Invoices().GetAll(ctx, storage.ListOptions{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, all[2].Number, page[0].Number)
		assert.Equal(t, all[3].Number, page[1].Number)

		empty, err := store.Invoices().GetAll(ctx, storage.ListOptions{Offset: 99})
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestInvoices_Overdue(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()
		asOf := date("2026-06-15")

		mk := func(number string, status models.InvoiceStatus, due time.Time) {
			inv := testInvoice(number, status)
			inv.DueDate = due
			_, err := store.Invoices().Create(ctx, inv)
			require.NoError(t, err)
		}
		mk("INV-2026-0001", models.StatusSent, date("2026-06-01"))
		mk("INV-2026-0002", models.StatusDraft, date("2026-05-01"))
		mk("INV-2026-0003", models.StatusPaid, date("2026-05-01"))      // settled, never overdue
		mk("INV-2026-0004", models.StatusSent, date("2026-07-01"))      // not yet due
		mk("INV-2026-0005", models.StatusCancelled, date("2026-05-01")) // terminal

		overdue, err := store.Invoices().GetOverdue(ctx, asOf)
		require.NoError(t, err)
		require.Len(t, overdue, 2)
		assert.Equal(t, "INV-2026-0002", overdue[0].Number, "ordered by due date ascending")
		assert.Equal(t, "INV-2026-0001", overdue[1].Number)
	})
}

func TestInvoices_UpdateKeepsNumberImmutable(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		created, err := store.Invoices().Create(ctx, testInvoice("INV-2026-0001", models.StatusDraft))
		require.NoError(t, err)

		tampered := *created
		tampered.Number = "INV-2026-9999"
		_, err = store.Invoices().Update(ctx, &tampered)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrImmutableInvoice)

		stored, err := store.Invoices().GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "INV-2026-0001", stored.Number)
	})
}

func TestInvoices_UpdateReplacesLines(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		created, err := store.Invoices().Create(ctx, testInvoice("INV-2026-0001", models.StatusDraft))
		require.NoError(t, err)

		created.Lines = []models.InvoiceLine{
			{Description: "Rework", Quantity: dec("4"), UnitPrice: dec("25")},
		}
		created.RecalculateTotals()
		updated, err := store.Invoices().Update(ctx, created)
		require.NoError(t, err)
		require.Len(t, updated.Lines, 1)
		assert.Equal(t, "Rework", updated.Lines[0].Description)
		assert.True(t, updated.TotalAmount.Equal(dec("100")))

		reloaded, err := store.Invoices().GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, reloaded.Lines, 1)
		assert.True(t, reloaded.TotalAmount.Equal(dec("100")))
	})
}

func TestInvoices_UpdateStatusCompareAndSwap(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		created, err := store.Invoices().Create(ctx, testInvoice("INV-2026-0001", models.StatusSent))
		require.NoError(t, err)

		// Stale expectation loses.
		err = store.Invoices().UpdateStatus(ctx, created.ID, models.StatusDraft, models.StatusCancelled)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)

		var ite *models.InvalidTransitionError
		require.ErrorAs(t, err, &ite)
		assert.Equal(t, models.StatusSent, ite.From, "the error names the stored status")

		// Matching expectation wins.
		err = store.Invoices().UpdateStatus(ctx, created.ID, models.StatusSent, models.StatusPaid)
		require.NoError(t, err)

		stored, err := store.Invoices().GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, stored.Status)

		err = store.Invoices().UpdateStatus(ctx, 999, models.StatusSent, models.StatusPaid)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestInvoices_Search(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		first := testInvoice("INV-2026-0001", models.StatusDraft)
		_, err := store.Invoices().Create(ctx, first)
		require.NoError(t, err)

		second := testInvoice("INV-2026-0002", models.StatusDraft)
		second.ClientName = "Globex GmbH"
		second.ClientEmail = "ap@globex.test"
		_, err = store.Invoices().Create(ctx, second)
		require.NoError(t, err)

		byName, err := store.Invoices().Search(ctx, "globex")
		require.NoError(t, err)
		require.Len(t, byName, 1)
		assert.Equal(t, "INV-2026-0002", byName[0].Number)

		byNumber, err := store.Invoices().Search(ctx, "inv-2026")
		require.NoError(t, err)
		assert.Len(t, byNumber, 2, "matching is case-insensitive on the number too")

		none, err := store.Invoices().Search(ctx, "initech")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestInvoices_Summary(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		_, err := store.Invoices().Create(ctx, testInvoice("INV-2026-0001", models.StatusDraft))
		require.NoError(t, err)
		_, err = store.Invoices().Create(ctx, testInvoice("INV-2026-0002", models.StatusSent))
		require.NoError(t, err)
		_, err = store.Invoices().Create(ctx, testInvoice("INV-2026-0003", models.StatusSent))
		require.NoError(t, err)

		sum, err := store.Invoices().Summary(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), sum.TotalCount)
		assert.Equal(t, int64(1), sum.ByStatus[models.StatusDraft])
		assert.Equal(t, int64(2), sum.ByStatus[models.StatusSent])
		assert.Equal(t, int64(0), sum.ByStatus[models.StatusCancelled])
		assert.True(t, sum.TotalAmount.Equal(dec("600")), "total = %s", sum.TotalAmount)
	})
}

func TestInvoices_CountByClient(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		inv := testInvoice("INV-2026-0001", models.StatusDraft)
		inv.ClientID = 7
		_, err := store.Invoices().Create(ctx, inv)
		require.NoError(t, err)

		n, err := store.Invoices().CountByClient(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = store.Invoices().CountByClient(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}

func TestSequences_MonotonicPerNamespace(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		s1, err := store.Sequences().NextSequence(ctx, "INV", "2026")
		require.NoError(t, err)
		s2, err := store.Sequences().NextSequence(ctx, "INV", "2026")
		require.NoError(t, err)
		assert.Equal(t, s1+1, s2)

		other, err := store.Sequences().NextSequence(ctx, "CN", "2026")
		require.NoError(t, err)
		assert.Equal(t, 1, other, "prefixes allocate independently")

		nextPeriod, err := store.Sequences().NextSequence(ctx, "INV", "2027")
		require.NoError(t, err)
		assert.Equal(t, 1, nextPeriod, "a new period restarts the sequence")
	})
}

func TestSequences_AdoptExistingNumbers(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		_, err := store.Invoices().Create(ctx, testInvoice("INV-2026-0007", models.StatusDraft))
		require.NoError(t, err)

		seq, err := store.Sequences().NextSequence(ctx, "INV", "2026")
		require.NoError(t, err)
		assert.Equal(t, 8, seq, "the allocator must continue past numbers already on record")
	})
}

func TestPayments_TotalsAndRanges(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		inv, err := store.Invoices().Create(ctx, testInvoice("INV-2026-0001", models.StatusSent))
		require.NoError(t, err)

		zero, err := store.Payments().TotalForInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, zero.IsZero())

		mk := func(amount string, day time.Time, ref string) *models.Payment {
			p, err := store.Payments().Create(ctx, &models.Payment{
				InvoiceID: inv.ID, Amount: dec(amount), Date: day, Reference: ref,
			})
			require.NoError(t, err)
			require.NotZero(t, p.ID)
			return p
		}
		mk("50", date("2026-03-05"), "wire-1")
		mk("50", date("2026-03-10"), "wire-2")
		mk("100", date("2026-04-02"), "wire-3")

		total, err := store.Payments().TotalForInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, total.Equal(dec("200")), "total = %s", total)

		byInvoice, err := store.Payments().GetByInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Len(t, byInvoice, 3)

		march, err := store.Payments().GetByDateRange(ctx, date("2026-03-01"), date("2026-03-31"))
		require.NoError(t, err)
		require.Len(t, march, 2)
		assert.Equal(t, "wire-1", march[0].Reference)
		assert.Equal(t, "wire-2", march[1].Reference)

		_, err = store.Payments().GetByID(ctx, 999)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestCreditNotes_Roundtrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		inv, err := store.Invoices().Create(ctx, testInvoice("INV-2026-0001", models.StatusSent))
		require.NoError(t, err)

		cn, err := store.CreditNotes().Create(ctx, &models.CreditNote{
			Number:    "CN-2026-0001",
			InvoiceID: inv.ID,
			Reason:    "order cancelled",
			Amount:    dec("200"),
			IssueDate: date("2026-04-01"),
		})
		require.NoError(t, err)
		assert.NotZero(t, cn.ID)

		byNumber, err := store.CreditNotes().GetByNumber(ctx, "CN-2026-0001")
		require.NoError(t, err)
		assert.Equal(t, cn.ID, byNumber.ID)
		assert.True(t, byNumber.Amount.Equal(dec("200")))

		byInvoice, err := store.CreditNotes().GetByInvoice(ctx, inv.ID)
		require.NoError(t, err)
		require.Len(t, byInvoice, 1)
		assert.Equal(t, "order cancelled", byInvoice[0].Reason)

		_, err = store.CreditNotes().Create(ctx, &models.CreditNote{
			Number: "CN-2026-0001", InvoiceID: inv.ID, Amount: dec("1"), IssueDate: date("2026-04-02"),
		})
		assert.ErrorIs(t, err, models.ErrDuplicate)

		max, err := store.CreditNotes().MaxSequence(ctx, "CN", "2026")
		require.NoError(t, err)
		assert.Equal(t, 1, max)
	})
}

func TestClients_CRUD(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		created, err := store.Clients().Create(ctx, &models.Client{
			Name: "Acme Corp", Address: "1 Main Street", TaxID: "FR-123", Email: "billing@acme.test",
		})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)

		created.Email = "accounts@acme.test"
		updated, err := store.Clients().Update(ctx, created)
		require.NoError(t, err)
		assert.Equal(t, "accounts@acme.test", updated.Email)

		found, err := store.Clients().Search(ctx, "acme")
		require.NoError(t, err)
		require.Len(t, found, 1)

		require.NoError(t, store.Clients().Delete(ctx, created.ID))
		_, err = store.Clients().GetByID(ctx, created.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)

		err = store.Clients().Delete(ctx, created.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestProducts_NaturalKey(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		created, err := store.Products().Create(ctx, &models.Product{
			Code: "DEV-DAY", Name: "Development day", UnitPrice: dec("650"),
		})
		require.NoError(t, err)

		_, err = store.Products().Create(ctx, &models.Product{Code: "DEV-DAY", Name: "Copy"})
		assert.ErrorIs(t, err, models.ErrDuplicate)

		byCode, err := store.Products().GetByCode(ctx, "DEV-DAY")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byCode.ID)
		assert.True(t, byCode.UnitPrice.Equal(dec("650")))

		_, err = store.Products().GetByCode(ctx, "MISSING")
		assert.ErrorIs(t, err, models.ErrNotFound)

		require.NoError(t, store.Products().Delete(ctx, created.ID))
		_, err = store.Products().GetByID(ctx, created.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestCompanies_DefaultHandling(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		_, err := store.Companies().GetDefault(ctx)
		assert.ErrorIs(t, err, models.ErrNotFound)

		first, err := store.Companies().Create(ctx, &models.Company{Name: "Studio One"})
		require.NoError(t, err)
		assert.True(t, first.IsDefault, "the first company becomes the default")

		second, err := store.Companies().Create(ctx, &models.Company{Name: "Studio Two"})
		require.NoError(t, err)
		assert.False(t, second.IsDefault)

		def, err := store.Companies().GetDefault(ctx)
		require.NoError(t, err)
		assert.Equal(t, first.ID, def.ID)

		require.NoError(t, store.Companies().SetDefault(ctx, second.ID))

		def, err = store.Companies().GetDefault(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.ID, def.ID)

		// Exactly one default at a time.
		all, err := store.Companies().GetAll(ctx, storage.ListOptions{})
		require.NoError(t, err)
		defaults := 0
		for _, c := range all {
			if c.IsDefault {
				defaults++
			}
		}
		assert.Equal(t, 1, defaults)
	})
}

func TestPaymentNotes_NaturalKey(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		created, err := store.PaymentNotes().Create(ctx, &models.PaymentNote{
			Label: "net-30", Text: "Payment due within 30 days.",
		})
		require.NoError(t, err)

		_, err = store.PaymentNotes().Create(ctx, &models.PaymentNote{Label: "net-30", Text: "Copy"})
		assert.ErrorIs(t, err, models.ErrDuplicate)

		byLabel, err := store.PaymentNotes().GetByLabel(ctx, "net-30")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byLabel.ID)

		require.NoError(t, store.PaymentNotes().Delete(ctx, created.ID))
		_, err = store.PaymentNotes().GetByLabel(ctx, "net-30")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestAuditLogs_AppendOnlyOrdering(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()

		for i, kind := range []models.AuditKind{models.AuditCreated, models.AuditStatusChanged, models.AuditPaymentAdded} {
			_, err := store.AuditLogs().Append(ctx, &models.AuditLogEntry{
				Timestamp:     date("2026-03-01").Add(time.Duration(i) * time.Hour),
				InvoiceID:     1,
				InvoiceNumber: "INV-2026-0001",
				Kind:          kind,
				Actor:         "test",
			})
			require.NoError(t, err)
		}
		_, err := store.AuditLogs().Append(ctx, &models.AuditLogEntry{
			Timestamp: date("2026-03-02"), InvoiceID: 2, InvoiceNumber: "INV-2026-0002",
			Kind: models.AuditCreated, Actor: "test",
		})
		require.NoError(t, err)

		trail, err := store.AuditLogs().GetByInvoice(ctx, 1)
		require.NoError(t, err)
		require.Len(t, trail, 3)
		assert.Equal(t, models.AuditCreated, trail[0].Kind)
		assert.Equal(t, models.AuditStatusChanged, trail[1].Kind)
		assert.Equal(t, models.AuditPaymentAdded, trail[2].Kind)

		all, err := store.AuditLogs().GetAll(ctx, storage.ListOptions{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestStore_Ping(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		assert.NoError(t, store.Ping(context.Background()))
	})
}

func TestOpen_Registry(t *testing.T) {
	cfg := config.Settings{Backend: config.BackendMemory, FileFormat: config.FormatJSON}
	store, err := storage.Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, store.Ping(context.Background()))

	cfg.Backend = "etcd"
	_, err = storage.Open(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")

	assert.Contains(t, storage.Backends(), config.BackendMemory)
	assert.Contains(t, storage.Backends(), config.BackendFiles)
	assert.Contains(t, storage.Backends(), config.BackendSQLite)
}
