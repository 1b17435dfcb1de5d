// Package storage defines the repository contract every backend must
// satisfy identically: the same operations with the same observable
// semantics across memory, flat files and SQL. Business logic depends
// only on these interfaces, never on a concrete backend, so one
// conformance suite can run against every implementation unmodified.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbardeau/factura/pkg/models"
)

// ListOptions pages ordered listings. Limit <= 0 means no limit.
type ListOptions struct {
	Limit  int
	Offset int
}

// InvoiceSummary aggregates the invoice book for reporting.
type InvoiceSummary struct {
	TotalCount  int64                          `json:"total_count"`
	ByStatus    map[models.InvoiceStatus]int64 `json:"by_status"`
	TotalAmount decimal.Decimal                `json:"total_amount"`
}

// InvoiceRepository persists invoices. Create assigns the surrogate id
// and persists the pre-allocated number; it fails with ErrDuplicate if
// the number already exists. GetAll orders by creation; GetOverdue by
// due date ascending. Update must reject changes to the id and number
// regardless of caller.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *models.Invoice) (*models.Invoice, error)
	GetByID(ctx context.Context, id uint) (*models.Invoice, error)
	GetByNumber(ctx context.Context, number string) (*models.Invoice, error)
	GetAll(ctx context.Context, opts ListOptions) ([]models.Invoice, error)
	GetOverdue(ctx context.Context, asOf time.Time) ([]models.Invoice, error)
	Update(ctx context.Context, inv *models.Invoice) (*models.Invoice, error)
	// UpdateStatus moves the status from exactly `from` to `to` in one
	// linearized step. A stored status other than `from` fails with an
	// InvalidTransitionError naming the stored status, so concurrent
	// transitions cannot interleave.
	UpdateStatus(ctx context.Context, id uint, from, to models.InvoiceStatus) error
	// Search matches the query case-insensitively against the invoice
	// number and the client snapshot fields.
	Search(ctx context.Context, query string) ([]models.Invoice, error)
	Summary(ctx context.Context) (*InvoiceSummary, error)
	CountByClient(ctx context.Context, clientID uint) (int64, error)
	// MaxSequence returns the highest already-issued sequence for a
	// numbering prefix and period, 0 when none. Seed for the allocator.
	MaxSequence(ctx context.Context, prefix, period string) (int, error)
}

// CreditNoteRepository persists credit notes (own number namespace).
type CreditNoteRepository interface {
	Create(ctx context.Context, cn *models.CreditNote) (*models.CreditNote, error)
	GetByID(ctx context.Context, id uint) (*models.CreditNote, error)
	GetByNumber(ctx context.Context, number string) (*models.CreditNote, error)
	GetByInvoice(ctx context.Context, invoiceID uint) ([]models.CreditNote, error)
	GetAll(ctx context.Context, opts ListOptions) ([]models.CreditNote, error)
	MaxSequence(ctx context.Context, prefix, period string) (int, error)
}

// PaymentRepository persists payments against invoices.
type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) (*models.Payment, error)
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	GetByInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error)
	GetAll(ctx context.Context, opts ListOptions) ([]models.Payment, error)
	TotalForInvoice(ctx context.Context, invoiceID uint) (decimal.Decimal, error)
	GetByDateRange(ctx context.Context, from, to time.Time) ([]models.Payment, error)
}

// ClientRepository persists clients (master data).
type ClientRepository interface {
	Create(ctx context.Context, c *models.Client) (*models.Client, error)
	GetByID(ctx context.Context, id uint) (*models.Client, error)
	GetAll(ctx context.Context, opts ListOptions) ([]models.Client, error)
	Update(ctx context.Context, c *models.Client) (*models.Client, error)
	Search(ctx context.Context, query string) ([]models.Client, error)
	Delete(ctx context.Context, id uint) error
}

// ProductRepository persists catalog products. Code is a natural key.
type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetByCode(ctx context.Context, code string) (*models.Product, error)
	GetAll(ctx context.Context, opts ListOptions) ([]models.Product, error)
	Update(ctx context.Context, p *models.Product) (*models.Product, error)
	Search(ctx context.Context, query string) ([]models.Product, error)
	Delete(ctx context.Context, id uint) error
}

// CompanyRepository persists issuer profiles.
type CompanyRepository interface {
	Create(ctx context.Context, c *models.Company) (*models.Company, error)
	GetByID(ctx context.Context, id uint) (*models.Company, error)
	GetAll(ctx context.Context, opts ListOptions) ([]models.Company, error)
	Update(ctx context.Context, c *models.Company) (*models.Company, error)
	GetDefault(ctx context.Context) (*models.Company, error)
	SetDefault(ctx context.Context, id uint) error
}

// PaymentNoteRepository persists note templates. Label is a natural key.
type PaymentNoteRepository interface {
	Create(ctx context.Context, n *models.PaymentNote) (*models.PaymentNote, error)
	GetByID(ctx context.Context, id uint) (*models.PaymentNote, error)
	GetByLabel(ctx context.Context, label string) (*models.PaymentNote, error)
	GetAll(ctx context.Context, opts ListOptions) ([]models.PaymentNote, error)
	Update(ctx context.Context, n *models.PaymentNote) (*models.PaymentNote, error)
	Delete(ctx context.Context, id uint) error
}

// AuditLogRepository appends and reads trail entries. There is no
// update or delete: the log is append-only by construction.
type AuditLogRepository interface {
	Append(ctx context.Context, e *models.AuditLogEntry) (*models.AuditLogEntry, error)
	GetByInvoice(ctx context.Context, invoiceID uint) ([]models.AuditLogEntry, error)
	GetAll(ctx context.Context, opts ListOptions) ([]models.AuditLogEntry, error)
}

// SequenceSource hands out the next sequence for a numbering prefix
// within a period. Implementations must be race-free for their
// documented concurrency model: row locks for SQL, a process-local
// mutex for memory/files.
type SequenceSource interface {
	NextSequence(ctx context.Context, prefix, period string) (int, error)
}

// Store bundles the repositories of one backend.
type Store interface {
	Invoices() InvoiceRepository
	CreditNotes() CreditNoteRepository
	Payments() PaymentRepository
	Clients() ClientRepository
	Products() ProductRepository
	Companies() CompanyRepository
	PaymentNotes() PaymentNoteRepository
	AuditLogs() AuditLogRepository
	Sequences() SequenceSource

	// Ping verifies connectivity (health checks).
	Ping(ctx context.Context) error
	Close() error
}
