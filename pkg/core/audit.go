package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

// AuditService appends lifecycle events to the audit trail. Writes
// are best-effort observability: a failed append is logged as a
// warning and never invalidates the business mutation it describes.
// Losing an audit line is less harmful than losing or duplicating a
// financial record.
type AuditService struct {
	repo storage.AuditLogRepository
	log  zerolog.Logger
}

// NewAuditService returns an audit service over repo.
func NewAuditService(repo storage.AuditLogRepository, log zerolog.Logger) *AuditService {
	return &AuditService{repo: repo, log: log}
}

// Log appends one entry for inv. An empty actor is recorded as
// "system".
func (a *AuditService) Log(ctx context.Context, inv *models.Invoice, kind models.AuditKind, actor, detail string) {
	if actor == "" {
		actor = "system"
	}
	entry := &models.AuditLogEntry{
		Timestamp:     time.Now().UTC(),
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
		Kind:          kind,
		Actor:         actor,
		Detail:        detail,
	}
	if _, err := a.repo.Append(ctx, entry); err != nil {
		a.log.Warn().
			Err(err).
			Str("invoice", inv.Number).
			Str("kind", string(kind)).
			Msg("audit entry not written")
	}
}

// InvoiceTrail returns the entries for one invoice, oldest first.
func (a *AuditService) InvoiceTrail(ctx context.Context, invoiceID uint) ([]models.AuditLogEntry, error) {
	return a.repo.GetByInvoice(ctx, invoiceID)
}

// List returns up to limit entries across all invoices, oldest
// first. A non-positive limit returns everything.
func (a *AuditService) List(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	return a.repo.GetAll(ctx, storage.ListOptions{Limit: limit})
}
