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

type paymentNoteRepo struct {
	s *Store
}

func (r *paymentNoteRepo) Create(ctx context.Context, n *models.PaymentNote) (*models.PaymentNote, error) {
	existing, err := r.s.paymentNotes.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Label == n.Label {
			return nil, fmt.Errorf("payment note label %s: %w", n.Label, models.ErrDuplicate)
		}
	}

	id, err := r.s.paymentNotes.allocID()
	if err != nil {
		return nil, err
	}
	rec := *n
	rec.ID = id
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := r.s.paymentNotes.save(id, &rec); err != nil {
		return nil, err
	}
	out := rec
	return &out, nil
}

func (r *paymentNoteRepo) GetByID(ctx context.Context, id uint) (*models.PaymentNote, error) {
	n, err := r.s.paymentNotes.load(id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("payment note %d: %w", id, models.ErrNotFound)
	}
	return n, err
}

func (r *paymentNoteRepo) GetByLabel(ctx context.Context, label string) (*models.PaymentNote, error) {
	all, err := r.s.paymentNotes.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Label == label {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("payment note %s: %w", label, models.ErrNotFound)
}

func (r *paymentNoteRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.PaymentNote, error) {
	all, err := r.s.paymentNotes.loadAll()
	if err != nil {
		return nil, err
	}
	return paginate(all, opts), nil
}

func (r *paymentNoteRepo) Update(ctx context.Context, n *models.PaymentNote) (*models.PaymentNote, error) {
	all, err := r.s.paymentNotes.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID != n.ID && all[i].Label == n.Label {
			return nil, fmt.Errorf("payment note label %s: %w", n.Label, models.ErrDuplicate)
		}
	}

	updated, err := r.s.paymentNotes.mutate(n.ID, func(stored *models.PaymentNote) error {
		created := stored.CreatedAt
		*stored = *n
		stored.CreatedAt = created
		stored.UpdatedAt = time.Now().UTC()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("payment note %d: %w", n.ID, models.ErrNotFound)
	}
	return updated, err
}

func (r *paymentNoteRepo) Delete(ctx context.Context, id uint) error {
	err := r.s.paymentNotes.delete(id)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("payment note %d: %w", id, models.ErrNotFound)
	}
	return err
}
