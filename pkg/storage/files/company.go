package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type companyRepo struct {
	s *Store
}

func (r *companyRepo) Create(ctx context.Context, c *models.Company) (*models.Company, error) {
	all, err := r.s.companies.loadAll()
	if err != nil {
		return nil, err
	}

	id, err := r.s.companies.allocID()
	if err != nil {
		return nil, err
	}
	rec := *c
	rec.ID = id
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	// First company becomes the default automatically.
	if len(all) == 0 {
		rec.IsDefault = true
	} else if rec.IsDefault {
		if err := r.clearDefault(all); err != nil {
			return nil, err
		}
	}
	if err := r.s.companies.save(id, &rec); err != nil {
		return nil, err
	}
	out := rec
	return &out, nil
}

func (r *companyRepo) clearDefault(all []models.Company) error {
	for i := range all {
		if !all[i].IsDefault {
			continue
		}
		_, err := r.s.companies.mutate(all[i].ID, func(stored *models.Company) error {
			stored.IsDefault = false
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *companyRepo) GetByID(ctx context.Context, id uint) (*models.Company, error) {
	c, err := r.s.companies.load(id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("company %d: %w", id, models.ErrNotFound)
	}
	return c, err
}

func (r *companyRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Company, error) {
	all, err := r.s.companies.loadAll()
	if err != nil {
		return nil, err
	}
	return paginate(all, opts), nil
}

func (r *companyRepo) Update(ctx context.Context, c *models.Company) (*models.Company, error) {
	if c.IsDefault {
		all, err := r.s.companies.loadAll()
		if err != nil {
			return nil, err
		}
		for i := range all {
			if all[i].ID != c.ID && all[i].IsDefault {
				if err := r.clearDefault([]models.Company{all[i]}); err != nil {
					return nil, err
				}
			}
		}
	}

	updated, err := r.s.companies.mutate(c.ID, func(stored *models.Company) error {
		created := stored.CreatedAt
		*stored = *c
		stored.CreatedAt = created
		stored.UpdatedAt = time.Now().UTC()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("company %d: %w", c.ID, models.ErrNotFound)
	}
	return updated, err
}

func (r *companyRepo) GetDefault(ctx context.Context) (*models.Company, error) {
	all, err := r.s.companies.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].IsDefault {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("default company: %w", models.ErrNotFound)
}

func (r *companyRepo) SetDefault(ctx context.Context, id uint) error {
	if _, err := r.s.companies.load(id); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("company %d: %w", id, models.ErrNotFound)
		}
		return err
	}
	all, err := r.s.companies.loadAll()
	if err != nil {
		return err
	}
	if err := r.clearDefault(all); err != nil {
		return err
	}
	_, err = r.s.companies.mutate(id, func(stored *models.Company) error {
		stored.IsDefault = true
		return nil
	})
	return err
}
