package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type paymentNoteRepo struct {
	s *Store
}

func (r *paymentNoteRepo) Create(ctx context.Context, n *models.PaymentNote) (*models.PaymentNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.paymentNotes {
		if existing.Label == n.Label {
			return nil, fmt.Errorf("payment note label %s: %w", n.Label, models.ErrDuplicate)
		}
	}

	rec := *n
	r.s.paymentNoteID++
	rec.ID = r.s.paymentNoteID
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	r.s.paymentNotes[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (r *paymentNoteRepo) GetByID(ctx context.Context, id uint) (*models.PaymentNote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n, ok := r.s.paymentNotes[id]
	if !ok {
		return nil, fmt.Errorf("payment note %d: %w", id, models.ErrNotFound)
	}
	out := *n
	return &out, nil
}

func (r *paymentNoteRepo) GetByLabel(ctx context.Context, label string) (*models.PaymentNote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, n := range r.s.paymentNotes {
		if n.Label == label {
			out := *n
			return &out, nil
		}
	}
	return nil, fmt.Errorf("payment note %s: %w", label, models.ErrNotFound)
}

func (r *paymentNoteRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.PaymentNote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.PaymentNote, 0, len(r.s.paymentNotes))
	for _, n := range r.s.paymentNotes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts), nil
}

func (r *paymentNoteRepo) Update(ctx context.Context, n *models.PaymentNote) (*models.PaymentNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.paymentNotes[n.ID]
	if !ok {
		return nil, fmt.Errorf("payment note %d: %w", n.ID, models.ErrNotFound)
	}
	for _, existing := range r.s.paymentNotes {
		if existing.ID != n.ID && existing.Label == n.Label {
			return nil, fmt.Errorf("payment note label %s: %w", n.Label, models.ErrDuplicate)
		}
	}
	rec := *n
	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	r.s.paymentNotes[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (r *paymentNoteRepo) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.paymentNotes[id]; !ok {
		return fmt.Errorf("payment note %d: %w", id, models.ErrNotFound)
	}
	delete(r.s.paymentNotes, id)
	return nil
}
