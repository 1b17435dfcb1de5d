package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
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
	existing, err := r.s.creditNotes.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Number == cn.Number {
			return nil, fmt.Errorf("credit note number %s: %w", cn.Number, models.ErrDuplicate)
		}
	}

	id, err := r.s.creditNotes.allocID()
	if err != nil {
		return nil, err
	}
	rec := *cn
	rec.ID = id
	rec.CreatedAt = time.Now().UTC()
	if err := r.s.creditNotes.save(id, &rec); err != nil {
		return nil, err
	}
	out := rec
	return &out, nil
}

func (r *creditNoteRepo) GetByID(ctx context.Context, id uint) (*models.CreditNote, error) {
	cn, err := r.s.creditNotes.load(id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("credit note %d: %w", id, models.ErrNotFound)
	}
	return cn, err
}

func (r *creditNoteRepo) GetByNumber(ctx context.Context, number string) (*models.CreditNote, error) {
	all, err := r.s.creditNotes.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Number == number {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("credit note %s: %w", number, models.ErrNotFound)
}

func (r *creditNoteRepo) GetByInvoice(ctx context.Context, invoiceID uint) ([]models.CreditNote, error) {
	all, err := r.s.creditNotes.loadAll()
	if err != nil {
		return nil, err
	}
	var out []models.CreditNote
	for i := range all {
		if all[i].InvoiceID == invoiceID {
			out = append(out, all[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *creditNoteRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.CreditNote, error) {
	all, err := r.s.creditNotes.loadAll()
	if err != nil {
		return nil, err
	}
	return paginate(all, opts), nil
}

func (r *creditNoteRepo) MaxSequence(ctx context.Context, prefix, period string) (int, error) {
	all, err := r.s.creditNotes.loadAll()
	if err != nil {
		return 0, err
	}
	max := 0
	for i := range all {
		p, per, seq, err := core.ParseNumber(all[i].Number)
		if err != nil || p != prefix || per != period {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}
