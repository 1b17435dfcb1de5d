package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type productRepo struct {
	s *Store
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	existing, err := r.s.products.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Code == p.Code {
			return nil, fmt.Errorf("product code %s: %w", p.Code, models.ErrDuplicate)
		}
	}

	id, err := r.s.products.allocID()
	if err != nil {
		return nil, err
	}
	rec := *p
	rec.ID = id
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := r.s.products.save(id, &rec); err != nil {
		return nil, err
	}
	out := rec
	return &out, nil
}

func (r *productRepo) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	p, err := r.s.products.load(id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	return p, err
}

func (r *productRepo) GetByCode(ctx context.Context, code string) (*models.Product, error) {
	all, err := r.s.products.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Code == code {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", code, models.ErrNotFound)
}

func (r *productRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Product, error) {
	all, err := r.s.products.loadAll()
	if err != nil {
		return nil, err
	}
	return paginate(all, opts), nil
}

func (r *productRepo) Update(ctx context.Context, p *models.Product) (*models.Product, error) {
	all, err := r.s.products.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID != p.ID && all[i].Code == p.Code {
			return nil, fmt.Errorf("product code %s: %w", p.Code, models.ErrDuplicate)
		}
	}

	updated, err := r.s.products.mutate(p.ID, func(stored *models.Product) error {
		created := stored.CreatedAt
		*stored = *p
		stored.CreatedAt = created
		stored.UpdatedAt = time.Now().UTC()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("product %d: %w", p.ID, models.ErrNotFound)
	}
	return updated, err
}

func (r *productRepo) Search(ctx context.Context, query string) ([]models.Product, error) {
	all, err := r.s.products.loadAll()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []models.Product
	for i := range all {
		if strings.Contains(strings.ToLower(all[i].Code), q) ||
			strings.Contains(strings.ToLower(all[i].Name), q) ||
			strings.Contains(strings.ToLower(all[i].Description), q) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (r *productRepo) Delete(ctx context.Context, id uint) error {
	err := r.s.products.delete(id)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	return err
}
