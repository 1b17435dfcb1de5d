package sqldb

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

// auditRepo appends to the audit_log_entries table. The interface has
// no update or delete, so rows are immutable once committed.
type auditRepo struct {
	db *gorm.DB
}

func (r *auditRepo) Append(ctx context.Context, e *models.AuditLogEntry) (*models.AuditLogEntry, error) {
	rec := *e
	rec.ID = 0
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *auditRepo) GetByInvoice(ctx context.Context, invoiceID uint) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *auditRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.AuditLogEntry, error) {
	q := r.db.WithContext(ctx).Order("id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	var entries []models.AuditLogEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
