// Package memory implements the storage contract over plain maps
// guarded by a single mutex. Nothing survives process exit; it exists
// for tests, demos and throwaway sessions. Single-process only, so
// sequence allocation uses the process-local counter.
package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mbardeau/factura/pkg/config"
	"github.com/mbardeau/factura/pkg/core"
	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

func init() {
	storage.Register(config.BackendMemory, func(cfg config.Settings, log zerolog.Logger) (storage.Store, error) {
		return New(log), nil
	})
}

// Store holds every entity in maps keyed by surrogate id. One RWMutex
// covers the whole store: operations are short and the backend is not
// meant for contention-heavy use.
type Store struct {
	mu sync.RWMutex

	invoices     map[uint]*models.Invoice
	creditNotes  map[uint]*models.CreditNote
	payments     map[uint]*models.Payment
	clients      map[uint]*models.Client
	products     map[uint]*models.Product
	companies    map[uint]*models.Company
	paymentNotes map[uint]*models.PaymentNote
	auditLog     []models.AuditLogEntry

	invoiceID     uint
	creditNoteID  uint
	paymentID     uint
	clientID      uint
	productID     uint
	companyID     uint
	paymentNoteID uint

	seq *core.LocalSequenceSource
	log zerolog.Logger
}

// New returns an empty in-memory store.
func New(log zerolog.Logger) *Store {
	s := &Store{
		invoices:     make(map[uint]*models.Invoice),
		creditNotes:  make(map[uint]*models.CreditNote),
		payments:     make(map[uint]*models.Payment),
		clients:      make(map[uint]*models.Client),
		products:     make(map[uint]*models.Product),
		companies:    make(map[uint]*models.Company),
		paymentNotes: make(map[uint]*models.PaymentNote),
		log:          log.With().Str("backend", config.BackendMemory).Logger(),
	}
	s.seq = core.NewLocalSequenceSource(func(ctx context.Context, prefix, period string) (int, error) {
		if prefix == core.CreditNotePrefix {
			return s.CreditNotes().MaxSequence(ctx, prefix, period)
		}
		return s.Invoices().MaxSequence(ctx, prefix, period)
	})
	return s
}

func (s *Store) Invoices() storage.InvoiceRepository         { return &invoiceRepo{s} }
func (s *Store) CreditNotes() storage.CreditNoteRepository   { return &creditNoteRepo{s} }
func (s *Store) Payments() storage.PaymentRepository         { return &paymentRepo{s} }
func (s *Store) Clients() storage.ClientRepository           { return &clientRepo{s} }
func (s *Store) Products() storage.ProductRepository         { return &productRepo{s} }
func (s *Store) Companies() storage.CompanyRepository        { return &companyRepo{s} }
func (s *Store) PaymentNotes() storage.PaymentNoteRepository { return &paymentNoteRepo{s} }
func (s *Store) AuditLogs() storage.AuditLogRepository       { return &auditRepo{s} }
func (s *Store) Sequences() storage.SequenceSource           { return s.seq }

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }

// cloneInvoice deep-copies an invoice so callers never alias store
// internals. Decimal values are immutable and safe to share.
func cloneInvoice(in *models.Invoice) *models.Invoice {
	out := *in
	out.Lines = make([]models.InvoiceLine, len(in.Lines))
	copy(out.Lines, in.Lines)
	if in.CreditNoteID != nil {
		id := *in.CreditNoteID
		out.CreditNoteID = &id
	}
	return &out
}

// paginate applies ListOptions to an already-ordered slice.
func paginate[T any](items []T, opts storage.ListOptions) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return []T{}
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}
