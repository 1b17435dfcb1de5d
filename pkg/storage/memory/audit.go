package memory

import (
	"context"
	"time"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

// auditRepo stores the trail in an append-only slice. There is no way
// to update or remove an entry once written.
type auditRepo struct {
	s *Store
}

func (r *auditRepo) Append(ctx context.Context, e *models.AuditLogEntry) (*models.AuditLogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec := *e
	rec.ID = uint(len(r.s.auditLog) + 1)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	r.s.auditLog = append(r.s.auditLog, rec)
	out := rec
	return &out, nil
}

func (r *auditRepo) GetByInvoice(ctx context.Context, invoiceID uint) ([]models.AuditLogEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.AuditLogEntry
	for _, e := range r.s.auditLog {
		if e.InvoiceID == invoiceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *auditRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.AuditLogEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.AuditLogEntry, len(r.s.auditLog))
	copy(out, r.s.auditLog)
	return paginate(out, opts), nil
}
