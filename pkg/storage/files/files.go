// Package files implements the storage contract over flat files, one
// record per file inside a per-entity directory. Records are written
// in the configured format (json, yaml, xml or md) and read back in
// any supported format, so a user may hand-convert or rename files
// between runs. Single-process only: the id counters and sequence
// allocator are process-local.
package files

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/mbardeau/factura/pkg/config"
	"github.com/mbardeau/factura/pkg/core"
	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

func init() {
	storage.Register(config.BackendFiles, func(cfg config.Settings, log zerolog.Logger) (storage.Store, error) {
		return New(cfg.RootDir, cfg.FileFormat, log)
	})
}

// Store holds one entityStore per entity type under a common root.
type Store struct {
	root string

	invoices     *entityStore[models.Invoice]
	creditNotes  *entityStore[models.CreditNote]
	payments     *entityStore[models.Payment]
	clients      *entityStore[models.Client]
	products     *entityStore[models.Product]
	companies    *entityStore[models.Company]
	paymentNotes *entityStore[models.PaymentNote]
	auditLog     *entityStore[models.AuditLogEntry]

	seq *core.LocalSequenceSource
	log zerolog.Logger
}

// New opens (or creates) a file store rooted at root, writing new
// records in the given format.
func New(root, format string, log zerolog.Logger) (*Store, error) {
	if format == "" {
		format = config.FormatJSON
	}
	if format == "yml" {
		format = config.FormatYAML
	}
	switch format {
	case config.FormatJSON, config.FormatYAML, config.FormatXML, config.FormatMarkdown:
	default:
		return nil, fmt.Errorf("unsupported file format %q", format)
	}

	s := &Store{
		root: root,
		log:  log.With().Str("backend", config.BackendFiles).Str("root", root).Logger(),
	}
	var err error
	if s.invoices, err = newEntityStore[models.Invoice](root, "invoices", format); err != nil {
		return nil, err
	}
	if s.creditNotes, err = newEntityStore[models.CreditNote](root, "credit_notes", format); err != nil {
		return nil, err
	}
	if s.payments, err = newEntityStore[models.Payment](root, "payments", format); err != nil {
		return nil, err
	}
	if s.clients, err = newEntityStore[models.Client](root, "clients", format); err != nil {
		return nil, err
	}
	if s.products, err = newEntityStore[models.Product](root, "products", format); err != nil {
		return nil, err
	}
	if s.companies, err = newEntityStore[models.Company](root, "companies", format); err != nil {
		return nil, err
	}
	if s.paymentNotes, err = newEntityStore[models.PaymentNote](root, "payment_notes", format); err != nil {
		return nil, err
	}
	if s.auditLog, err = newEntityStore[models.AuditLogEntry](root, "audit_logs", format); err != nil {
		return nil, err
	}

	s.seq = core.NewLocalSequenceSource(func(ctx context.Context, prefix, period string) (int, error) {
		if prefix == core.CreditNotePrefix {
			return s.CreditNotes().MaxSequence(ctx, prefix, period)
		}
		return s.Invoices().MaxSequence(ctx, prefix, period)
	})
	return s, nil
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

func (s *Store) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.root); err != nil {
		return fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

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
