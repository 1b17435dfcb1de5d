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

type clientRepo struct {
	s *Store
}

func (r *clientRepo) Create(ctx context.Context, c *models.Client) (*models.Client, error) {
	id, err := r.s.clients.allocID()
	if err != nil {
		return nil, err
	}
	rec := *c
	rec.ID = id
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := r.s.clients.save(id, &rec); err != nil {
		return nil, err
	}
	out := rec
	return &out, nil
}

func (r *clientRepo) GetByID(ctx context.Context, id uint) (*models.Client, error) {
	c, err := r.s.clients.load(id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("client %d: %w", id, models.ErrNotFound)
	}
	return c, err
}

func (r *clientRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Client, error) {
	all, err := r.s.clients.loadAll()
	if err != nil {
		return nil, err
	}
	return paginate(all, opts), nil
}

func (r *clientRepo) Update(ctx context.Context, c *models.Client) (*models.Client, error) {
	updated, err := r.s.clients.mutate(c.ID, func(stored *models.Client) error {
		created := stored.CreatedAt
		*stored = *c
		stored.CreatedAt = created
		stored.UpdatedAt = time.Now().UTC()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("client %d: %w", c.ID, models.ErrNotFound)
	}
	return updated, err
}

func (r *clientRepo) Search(ctx context.Context, query string) ([]models.Client, error) {
	all, err := r.s.clients.loadAll()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []models.Client
	for i := range all {
		if strings.Contains(strings.ToLower(all[i].Name), q) ||
			strings.Contains(strings.ToLower(all[i].TaxID), q) ||
			strings.Contains(strings.ToLower(all[i].Email), q) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (r *clientRepo) Delete(ctx context.Context, id uint) error {
	err := r.s.clients.delete(id)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("client %d: %w", id, models.ErrNotFound)
	}
	return err
}
