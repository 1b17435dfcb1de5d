package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
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
	existing, err := r.s.invoices.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Number == inv.Number {
			return nil, fmt.Errorf("invoice number %s: %w", inv.Number, models.ErrDuplicate)
		}
	}

	id, err := r.s.invoices.allocID()
	if err != nil {
		return nil, err
	}
	rec := *inv
	rec.ID = id
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.Lines = make([]models.InvoiceLine, len(inv.Lines))
	copy(rec.Lines, inv.Lines)
	for i := range rec.Lines {
		rec.Lines[i].ID = uint(i + 1)
		rec.Lines[i].InvoiceID = id
	}
	if err := r.s.invoices.save(id, &rec); err != nil {
		return nil, err
	}
	out := rec
	return &out, nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uint) (*models.Invoice, error) {
	inv, err := r.s.invoices.load(id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("invoice %d: %w", id, models.ErrNotFound)
	}
	return inv, err
}

func (r *invoiceRepo) GetByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	all, err := r.s.invoices.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Number == number {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("invoice %s: %w", number, models.ErrNotFound)
}

func (r *invoiceRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Invoice, error) {
	all, err := r.s.invoices.loadAll()
	if err != nil {
		return nil, err
	}
	return paginate(all, opts), nil
}

func (r *invoiceRepo) GetOverdue(ctx context.Context, asOf time.Time) ([]models.Invoice, error) {
	all, err := r.s.invoices.loadAll()
	if err != nil {
		return nil, err
	}
	var out []models.Invoice
	for i := range all {
		if all[i].IsOverdue(asOf) {
			out = append(out, all[i])
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
	updated, err := r.s.invoices.mutate(inv.ID, func(stored *models.Invoice) error {
		if inv.Number != "" && inv.Number != stored.Number {
			return &models.ImmutableInvoiceError{Number: stored.Number, Status: stored.Status, Field: "number"}
		}
		number := stored.Number
		created := stored.CreatedAt
		*stored = *inv
		stored.Number = number
		stored.CreatedAt = created
		stored.UpdatedAt = time.Now().UTC()
		stored.Lines = make([]models.InvoiceLine, len(inv.Lines))
		copy(stored.Lines, inv.Lines)
		for i := range stored.Lines {
			stored.Lines[i].ID = uint(i + 1)
			stored.Lines[i].InvoiceID = stored.ID
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("invoice %d: %w", inv.ID, models.ErrNotFound)
	}
	return updated, err
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, id uint, from, to models.InvoiceStatus) error {
	_, err := r.s.invoices.mutate(id, func(stored *models.Invoice) error {
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
	})
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("invoice %d: %w", id, models.ErrNotFound)
	}
	return err
}

func (r *invoiceRepo) Search(ctx context.Context, query string) ([]models.Invoice, error) {
	all, err := r.s.invoices.loadAll()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []models.Invoice
	for i := range all {
		inv := &all[i]
		for _, field := range []string{inv.Number, inv.ClientName, inv.ClientAddress, inv.ClientTaxID, inv.ClientEmail} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, *inv)
				break
			}
		}
	}
	return out, nil
}

func (r *invoiceRepo) Summary(ctx context.Context) (*storage.InvoiceSummary, error) {
	all, err := r.s.invoices.loadAll()
	if err != nil {
		return nil, err
	}
	statuses := models.AllStatuses()
	sum := &storage.InvoiceSummary{
		ByStatus:    make(map[models.InvoiceStatus]int64, len(statuses)),
		TotalAmount: decimal.Zero,
	}
	for _, st := range statuses {
		sum.ByStatus[st] = 0
	}
	for i := range all {
		sum.TotalCount++
		sum.ByStatus[all[i].Status]++
		sum.TotalAmount = sum.TotalAmount.Add(all[i].TotalAmount)
	}
	return sum, nil
}

func (r *invoiceRepo) CountByClient(ctx context.Context, clientID uint) (int64, error) {
	all, err := r.s.invoices.loadAll()
	if err != nil {
		return 0, err
	}
	var n int64
	for i := range all {
		if all[i].ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (r *invoiceRepo) MaxSequence(ctx context.Context, prefix, period string) (int, error) {
	all, err := r.s.invoices.loadAll()
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
