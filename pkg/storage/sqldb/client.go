package sqldb

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type clientRepo struct {
	db *gorm.DB
}

func (r *clientRepo) Create(ctx context.Context, c *models.Client) (*models.Client, error) {
	rec := *c
	rec.ID = 0
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *clientRepo) GetByID(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err, "client", id)
	}
	return &c, nil
}

func (r *clientRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Client, error) {
	q := r.db.WithContext(ctx).Order("id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	var clients []models.Client
	if err := q.Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *clientRepo) Update(ctx context.Context, c *models.Client) (*models.Client, error) {
	var stored models.Client
	if err := r.db.WithContext(ctx).First(&stored, c.ID).Error; err != nil {
		return nil, notFound(err, "client", c.ID)
	}
	updates := map[string]any{
		"name":    c.Name,
		"address": c.Address,
		"tax_id":  c.TaxID,
		"email":   c.Email,
		"phone":   c.Phone,
	}
	if err := r.db.WithContext(ctx).Model(&stored).Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, c.ID)
}

func (r *clientRepo) Search(ctx context.Context, query string) ([]models.Client, error) {
	q := "%" + strings.ToLower(query) + "%"
	var clients []models.Client
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(tax_id) LIKE ? OR LOWER(email) LIKE ?", q, q, q).
		Order("id ASC").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *clientRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Client{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("client %d: %w", id, models.ErrNotFound)
	}
	return nil
}
