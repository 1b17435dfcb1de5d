package sqldb

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type creditNoteRepo struct {
	db *gorm.DB
}

func (r *creditNoteRepo) Create(ctx context.Context, cn *models.CreditNote) (*models.CreditNote, error) {
	rec := *cn
	rec.ID = 0
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("credit note number %s: %w", rec.Number, models.ErrDuplicate)
		}
		return nil, err
	}
	return &rec, nil
}

func (r *creditNoteRepo) GetByID(ctx context.Context, id uint) (*models.CreditNote, error) {
	var cn models.CreditNote
	if err := r.db.WithContext(ctx).First(&cn, id).Error; err != nil {
		return nil, notFound(err, "credit note", id)
	}
	return &cn, nil
}

func (r *creditNoteRepo) GetByNumber(ctx context.Context, number string) (*models.CreditNote, error) {
	var cn models.CreditNote
	if err := r.db.WithContext(ctx).Where("number = ?", number).First(&cn).Error; err != nil {
		return nil, notFound(err, "credit note", number)
	}
	return &cn, nil
}

func (r *creditNoteRepo) GetByInvoice(ctx context.Context, invoiceID uint) ([]models.CreditNote, error) {
	var notes []models.CreditNote
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("id ASC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *creditNoteRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.CreditNote, error) {
	q := r.db.WithContext(ctx).Order("id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	var notes []models.CreditNote
	if err := q.Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *creditNoteRepo) MaxSequence(ctx context.Context, prefix, period string) (int, error) {
	return maxStoredSequence(r.db.WithContext(ctx), "credit_notes", prefix, period)
}
