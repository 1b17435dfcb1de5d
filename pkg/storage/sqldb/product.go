package sqldb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type productRepo struct {
	db *gorm.DB
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	rec := *p
	rec.ID = 0
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("product code %s: %w", rec.Code, models.ErrDuplicate)
		}
		return nil, err
	}
	return &rec, nil
}

func (r *productRepo) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "product", id)
	}
	return &p, nil
}

func (r *productRepo) GetByCode(ctx context.Context, code string) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&p).Error; err != nil {
		return nil, notFound(err, "product", code)
	}
	return &p, nil
}

func (r *productRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Order("id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepo) Update(ctx context.Context, p *models.Product) (*models.Product, error) {
	var stored models.Product
	if err := r.db.WithContext(ctx).First(&stored, p.ID).Error; err != nil {
		return nil, notFound(err, "product", p.ID)
	}
	updates := map[string]any{
		"code":        p.Code,
		"name":        p.Name,
		"description": p.Description,
		"unit_price":  p.UnitPrice,
	}
	if err := r.db.WithContext(ctx).Model(&stored).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("product code %s: %w", p.Code, models.ErrDuplicate)
		}
		return nil, err
	}
	return r.GetByID(ctx, p.ID)
}

func (r *productRepo) Search(ctx context.Context, query string) ([]models.Product, error) {
	q := "%" + strings.ToLower(query) + "%"
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ? OR LOWER(description) LIKE ?", q, q, q).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	return nil
}
