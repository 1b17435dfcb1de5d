package sqldb

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type companyRepo struct {
	db *gorm.DB
}

func (r *companyRepo) Create(ctx context.Context, c *models.Company) (*models.Company, error) {
	rec := *c
	rec.ID = 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Company{}).Count(&count).Error; err != nil {
			return err
		}
		// First company becomes the default automatically.
		if count == 0 {
			rec.IsDefault = true
		} else if rec.IsDefault {
			if err := tx.Model(&models.Company{}).Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *companyRepo) GetByID(ctx context.Context, id uint) (*models.Company, error) {
	var c models.Company
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err, "company", id)
	}
	return &c, nil
}

func (r *companyRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Company, error) {
	q := r.db.WithContext(ctx).Order("id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	var companies []models.Company
	if err := q.Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *companyRepo) Update(ctx context.Context, c *models.Company) (*models.Company, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.Company
		if err := tx.First(&stored, c.ID).Error; err != nil {
			return notFound(err, "company", c.ID)
		}
		if c.IsDefault && !stored.IsDefault {
			if err := tx.Model(&models.Company{}).Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		updates := map[string]any{
			"name":       c.Name,
			"address":    c.Address,
			"tax_id":     c.TaxID,
			"email":      c.Email,
			"iban":       c.IBAN,
			"is_default": c.IsDefault,
		}
		return tx.Model(&stored).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, c.ID)
}

func (r *companyRepo) GetDefault(ctx context.Context) (*models.Company, error) {
	var c models.Company
	err := r.db.WithContext(ctx).Where("is_default = ?", true).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("default company: %w", models.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func (r *companyRepo) SetDefault(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Company
		if err := tx.First(&c, id).Error; err != nil {
			return notFound(err, "company", id)
		}
		if err := tx.Model(&models.Company{}).Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&c).Update("is_default", true).Error
	})
}
