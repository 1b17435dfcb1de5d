package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
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
	id, err := r.s.payments.allocID()
	if err != nil {
		return nil, err
	}
	rec := *p
	rec.ID = id
	rec.CreatedAt = time.Now().UTC()
	if rec.Date.IsZero() {
		rec.Date = rec.CreatedAt
	}
	if err := r.s.payments.save(id, &rec); err != nil {
		return nil, err
	}
	out := rec
	return &out, nil
}

func (r *paymentRepo) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	p, err := r.s.payments.load(id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("payment %d: %w", id, models.ErrNotFound)
	}
	return p, err
}

func (r *paymentRepo) GetByInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	all, err := r.s.payments.loadAll()
	if err != nil {
		return nil, err
	}
	var out []models.Payment
	for i := range all {
		if all[i].InvoiceID == invoiceID {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (r *paymentRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Payment, error) {
	all, err := r.s.payments.loadAll()
	if err != nil {
		return nil, err
	}
	return paginate(all, opts), nil
}

func (r *paymentRepo) TotalForInvoice(ctx context.Context, invoiceID uint) (decimal.Decimal, error) {
	all, err := r.s.payments.loadAll()
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for i := range all {
		if all[i].InvoiceID == invoiceID {
			total = total.Add(all[i].Amount)
		}
	}
	return total, nil
}

func (r *paymentRepo) GetByDateRange(ctx context.Context, from, to time.Time) ([]models.Payment, error) {
	all, err := r.s.payments.loadAll()
	if err != nil {
		return nil, err
	}
	var out []models.Payment
	for i := range all {
		if !all[i].Date.Before(from) && !all[i].Date.After(to) {
			out = append(out, all[i])
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
