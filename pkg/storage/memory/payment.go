package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type paymentRepo struct {
	s *Store
}

func (r *paymentRepo) Create(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec := *p
	r.s.paymentID++
	rec.ID = r.s.paymentID
	rec.CreatedAt = time.Now().UTC()
	if rec.Date.IsZero() {
		rec.Date = rec.CreatedAt
	}
	r.s.payments[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (r *paymentRepo) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %d: %w", id, models.ErrNotFound)
	}
	out := *p
	return &out, nil
}

func (r *paymentRepo) GetByInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Payment
	for _, p := range r.s.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *paymentRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Payment, 0, len(r.s.payments))
	for _, p := range r.s.payments {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts), nil
}

func (r *paymentRepo) TotalForInvoice(ctx context.Context, invoiceID uint) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := decimal.Zero
	for _, p := range r.s.payments {
		if p.InvoiceID == invoiceID {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (r *paymentRepo) GetByDateRange(ctx context.Context, from, to time.Time) ([]models.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Payment
	for _, p := range r.s.payments {
		if !p.Date.Before(from) && !p.Date.After(to) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
