package files

import (
	"context"
	"time"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

// auditRepo writes one file per trail entry. Nothing in the interface
// can modify or remove a written entry.
type auditRepo struct {
	s *Store
}

func (r *auditRepo) Append(ctx context.Context, e *models.AuditLogEntry) (*models.AuditLogEntry, error) {
	id, err := r.s.auditLog.allocID()
	if err != nil {
		return nil, err
	}
	rec := *e
	rec.ID = id
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if err := r.s.auditLog.save(id, &rec); err != nil {
		return nil, err
	}
	out := rec
	return &out, nil
}

func (r *auditRepo) GetByInvoice(ctx context.Context, invoiceID uint) ([]models.AuditLogEntry, error) {
	all, err := r.s.auditLog.loadAll()
	if err != nil {
		return nil, err
	}
	var out []models.AuditLogEntry
	for i := range all {
		if all[i].InvoiceID == invoiceID {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (r *auditRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.AuditLogEntry, error) {
	all, err := r.s.auditLog.loadAll()
	if err != nil {
		return nil, err
	}
	return paginate(all, opts), nil
}
