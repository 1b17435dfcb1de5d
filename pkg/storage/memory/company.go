package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type companyRepo struct {
	s *Store
}

// clearDefaultLocked drops the default flag everywhere. Caller holds
// the write lock.
func (r *companyRepo) clearDefaultLocked() {
	for _, c := range r.s.companies {
		c.IsDefault = false
	}
}

func (r *companyRepo) Create(ctx context.Context, c *models.Company) (*models.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec := *c
	r.s.companyID++
	rec.ID = r.s.companyID
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	// First company becomes the default automatically.
	if len(r.s.companies) == 0 {
		rec.IsDefault = true
	} else if rec.IsDefault {
		r.clearDefaultLocked()
	}
	r.s.companies[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (r *companyRepo) GetByID(ctx context.Context, id uint) (*models.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.companies[id]
	if !ok {
		return nil, fmt.Errorf("company %d: %w", id, models.ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (r *companyRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Company, 0, len(r.s.companies))
	for _, c := range r.s.companies {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts), nil
}

func (r *companyRepo) Update(ctx context.Context, c *models.Company) (*models.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.companies[c.ID]
	if !ok {
		return nil, fmt.Errorf("company %d: %w", c.ID, models.ErrNotFound)
	}
	rec := *c
	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	if rec.IsDefault && !stored.IsDefault {
		r.clearDefaultLocked()
	}
	r.s.companies[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (r *companyRepo) GetDefault(ctx context.Context) (*models.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.companies {
		if c.IsDefault {
			out := *c
			return &out, nil
		}
	}
	return nil, fmt.Errorf("default company: %w", models.ErrNotFound)
}

func (r *companyRepo) SetDefault(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.companies[id]
	if !ok {
		return fmt.Errorf("company %d: %w", id, models.ErrNotFound)
	}
	r.clearDefaultLocked()
	c.IsDefault = true
	c.UpdatedAt = time.Now().UTC()
	return nil
}
