package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbardeau/factura/pkg/core"
	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type invoiceRepo struct {
	s *Store
}

func (r *invoiceRepo) Create(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.invoices {
		if existing.Number == inv.Number {
			return nil, fmt.Errorf("invoice number %s: %w", inv.Number, models.ErrDuplicate)
		}
	}

	rec := cloneInvoice(inv)
	r.s.invoiceID++
	rec.ID = r.s.invoiceID
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	for i := range rec.Lines {
		rec.Lines[i].ID = uint(i + 1)
		rec.Lines[i].InvoiceID = rec.ID
	}
	r.s.invoices[rec.ID] = rec
	return cloneInvoice(rec), nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uint) (*models.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %d: %w", id, models.ErrNotFound)
	}
	return cloneInvoice(inv), nil
}

func (r *invoiceRepo) GetByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, inv := range r.s.invoices {
		if inv.Number == number {
			return cloneInvoice(inv), nil
		}
	}
	return nil, fmt.Errorf("invoice %s: %w", number, models.ErrNotFound)
}

func (r *invoiceRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Invoice, 0, len(r.s.invoices))
	for _, inv := range r.s.invoices {
		out = append(out, *cloneInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts), nil
}

func (r *invoiceRepo) GetOverdue(ctx context.Context, asOf time.Time) ([]models.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Invoice
	for _, inv := range r.s.invoices {
		if inv.IsOverdue(asOf) {
			out = append(out, *cloneInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *invoiceRepo) Update(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.invoices[inv.ID]
	if !ok {
		return nil, fmt.Errorf("invoice %d: %w", inv.ID, models.ErrNotFound)
	}
	if inv.Number != "" && inv.Number != stored.Number {
		return nil, &models.ImmutableInvoiceError{Number: stored.Number, Status: stored.Status, Field: "number"}
	}

	rec := cloneInvoice(inv)
	rec.Number = stored.Number
	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	for i := range rec.Lines {
		rec.Lines[i].ID = uint(i + 1)
		rec.Lines[i].InvoiceID = rec.ID
	}
	r.s.invoices[rec.ID] = rec
	return cloneInvoice(rec), nil
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, id uint, from, to models.InvoiceStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.invoices[id]
	if !ok {
		return fmt.Errorf("invoice %d: %w", id, models.ErrNotFound)
	}
	if stored.Status != from {
		return &models.InvalidTransitionError{
			From:   stored.Status,
			To:     to,
			Reason: "invoice status changed concurrently",
		}
	}
	stored.Status = to
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *invoiceRepo) Search(ctx context.Context, query string) ([]models.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := strings.ToLower(query)
	var out []models.Invoice
	for _, inv := range r.s.invoices {
		if invoiceMatches(inv, q) {
			out = append(out, *cloneInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func invoiceMatches(inv *models.Invoice, q string) bool {
	for _, field := range []string{inv.Number, inv.ClientName, inv.ClientAddress, inv.ClientTaxID, inv.ClientEmail} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func (r *invoiceRepo) Summary(ctx context.Context) (*storage.InvoiceSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	statuses := models.AllStatuses()
	sum := &storage.InvoiceSummary{
		ByStatus:    make(map[models.InvoiceStatus]int64, len(statuses)),
		TotalAmount: decimal.Zero,
	}
	for _, st := range statuses {
		sum.ByStatus[st] = 0
	}
	for _, inv := range r.s.invoices {
		sum.TotalCount++
		sum.ByStatus[inv.Status]++
		sum.TotalAmount = sum.TotalAmount.Add(inv.TotalAmount)
	}
	return sum, nil
}

func (r *invoiceRepo) CountByClient(ctx context.Context, clientID uint) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, inv := range r.s.invoices {
		if inv.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (r *invoiceRepo) MaxSequence(ctx context.Context, prefix, period string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	max := 0
	for _, inv := range r.s.invoices {
		p, per, seq, err := core.ParseNumber(inv.Number)
		if err != nil || p != prefix || per != period {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}
