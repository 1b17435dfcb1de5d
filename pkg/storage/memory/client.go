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

type clientRepo struct {
	s *Store
}

func (r *clientRepo) Create(ctx context.Context, c *models.Client) (*models.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec := *c
	r.s.clientID++
	rec.ID = r.s.clientID
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	r.s.clients[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (r *clientRepo) GetByID(ctx context.Context, id uint) (*models.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %d: %w", id, models.ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (r *clientRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Client, 0, len(r.s.clients))
	for _, c := range r.s.clients {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts), nil
}

func (r *clientRepo) Update(ctx context.Context, c *models.Client) (*models.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.clients[c.ID]
	if !ok {
		return nil, fmt.Errorf("client %d: %w", c.ID, models.ErrNotFound)
	}
	rec := *c
	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	r.s.clients[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (r *clientRepo) Search(ctx context.Context, query string) ([]models.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := strings.ToLower(query)
	var out []models.Client
	for _, c := range r.s.clients {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.TaxID), q) ||
			strings.Contains(strings.ToLower(c.Email), q) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *clientRepo) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.clients[id]; !ok {
		return fmt.Errorf("client %d: %w", id, models.ErrNotFound)
	}
	delete(r.s.clients, id)
	return nil
}
