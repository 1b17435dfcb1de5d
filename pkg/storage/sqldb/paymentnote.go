package sqldb

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type paymentNoteRepo struct {
	db *gorm.DB
}

func (r *paymentNoteRepo) Create(ctx context.Context, n *models.PaymentNote) (*models.PaymentNote, error) {
	rec := *n
	rec.ID = 0
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("payment note label %s: %w", rec.Label, models.ErrDuplicate)
		}
		return nil, err
	}
	return &rec, nil
}

func (r *paymentNoteRepo) GetByID(ctx context.Context, id uint) (*models.PaymentNote, error) {
	var n models.PaymentNote
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, notFound(err, "payment note", id)
	}
	return &n, nil
}

func (r *paymentNoteRepo) GetByLabel(ctx context.Context, label string) (*models.PaymentNote, error) {
	var n models.PaymentNote
	if err := r.db.WithContext(ctx).Where("label = ?", label).First(&n).Error; err != nil {
		return nil, notFound(err, "payment note", label)
	}
	return &n, nil
}

func (r *paymentNoteRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.PaymentNote, error) {
	q := r.db.WithContext(ctx).Order("id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	var notes []models.PaymentNote
	if err := q.Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *paymentNoteRepo) Update(ctx context.Context, n *models.PaymentNote) (*models.PaymentNote, error) {
	var stored models.PaymentNote
	if err := r.db.WithContext(ctx).First(&stored, n.ID).Error; err != nil {
		return nil, notFound(err, "payment note", n.ID)
	}
	updates := map[string]any{
		"label": n.Label,
		"text":  n.Text,
	}
	if err := r.db.WithContext(ctx).Model(&stored).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("payment note label %s: %w", n.Label, models.ErrDuplicate)
		}
		return nil, err
	}
	return r.GetByID(ctx, n.ID)
}

func (r *paymentNoteRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.PaymentNote{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payment note %d: %w", id, models.ErrNotFound)
	}
	return nil
}
