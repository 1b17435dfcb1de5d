package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mbardeau/factura/pkg/core"
	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type creditNoteRepo struct {
	s *Store
}

func (r *creditNoteRepo) Create(ctx context.Context, cn *models.CreditNote) (*models.CreditNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.creditNotes {
		if existing.Number == cn.Number {
			return nil, fmt.Errorf("credit note number %s: %w", cn.Number, models.ErrDuplicate)
		}
	}

	rec := *cn
	r.s.creditNoteID++
	rec.ID = r.s.creditNoteID
	rec.CreatedAt = time.Now().UTC()
	r.s.creditNotes[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (r *creditNoteRepo) GetByID(ctx context.Context, id uint) (*models.CreditNote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	cn, ok := r.s.creditNotes[id]
	if !ok {
		return nil, fmt.Errorf("credit note %d: %w", id, models.ErrNotFound)
	}
	out := *cn
	return &out, nil
}

func (r *creditNoteRepo) GetByNumber(ctx context.Context, number string) (*models.CreditNote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, cn := range r.s.creditNotes {
		if cn.Number == number {
			out := *cn
			return &out, nil
		}
	}
	return nil, fmt.Errorf("credit note %s: %w", number, models.ErrNotFound)
}

func (r *creditNoteRepo) GetByInvoice(ctx context.Context, invoiceID uint) ([]models.CreditNote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.CreditNote
	for _, cn := range r.s.creditNotes {
		if cn.InvoiceID == invoiceID {
			out = append(out, *cn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *creditNoteRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.CreditNote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.CreditNote, 0, len(r.s.creditNotes))
	for _, cn := range r.s.creditNotes {
		out = append(out, *cn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts), nil
}

func (r *creditNoteRepo) MaxSequence(ctx context.Context, prefix, period string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	max := 0
	for _, cn := range r.s.creditNotes {
		p, per, seq, err := core.ParseNumber(cn.Number)
		if err != nil || p != prefix || per != period {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}
