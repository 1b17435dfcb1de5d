package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type productRepo struct {
	s *Store
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.products {
		if existing.Code == p.Code {
			return nil, fmt.Errorf("product code %s: %w", p.Code, models.ErrDuplicate)
		}
	}

	rec := *p
	r.s.productID++
	rec.ID = r.s.productID
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	r.s.products[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (r *productRepo) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	out := *p
	return &out, nil
}

func (r *productRepo) GetByCode(ctx context.Context, code string) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.products {
		if p.Code == code {
			out := *p
			return &out, nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", code, models.ErrNotFound)
}

func (r *productRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts), nil
}

func (r *productRepo) Update(ctx context.Context, p *models.Product) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.products[p.ID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", p.ID, models.ErrNotFound)
	}
	for _, existing := range r.s.products {
		if existing.ID != p.ID && existing.Code == p.Code {
			return nil, fmt.Errorf("product code %s: %w", p.Code, models.ErrDuplicate)
		}
	}
	rec := *p
	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	r.s.products[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (r *productRepo) Search(ctx context.Context, query string) ([]models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := strings.ToLower(query)
	var out []models.Product
	for _, p := range r.s.products {
		if strings.Contains(strings.ToLower(p.Code), q) ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *productRepo) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	delete(r.s.products, id)
	return nil
}
