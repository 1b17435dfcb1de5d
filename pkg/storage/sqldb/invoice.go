package sqldb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type invoiceRepo struct {
	db *gorm.DB
}

// withLines preloads line items in position order.
func withLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (r *invoiceRepo) Create(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	rec := *inv
	rec.ID = 0
	rec.Lines = make([]models.InvoiceLine, len(inv.Lines))
	copy(rec.Lines, inv.Lines)
	for i := range rec.Lines {
		rec.Lines[i].ID = 0
		rec.Lines[i].InvoiceID = 0
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("invoice number %s: %w", rec.Number, models.ErrDuplicate)
		}
		return nil, err
	}
	return &rec, nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := withLines(r.db.WithContext(ctx)).First(&inv, id).Error
	if err != nil {
		return nil, notFound(err, "invoice", id)
	}
	return &inv, nil
}

func (r *invoiceRepo) GetByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	var inv models.Invoice
	err := withLines(r.db.WithContext(ctx)).Where("number = ?", number).First(&inv).Error
	if err != nil {
		return nil, notFound(err, "invoice", number)
	}
	return &inv, nil
}

func (r *invoiceRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.Invoice, error) {
	q := withLines(r.db.WithContext(ctx)).Order("id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	var invoices []models.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepo) GetOverdue(ctx context.Context, asOf time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := withLines(r.db.WithContext(ctx)).
		Where("status IN ? AND due_date < ?", []models.InvoiceStatus{models.StatusDraft, models.StatusSent}, asOf).
		Order("due_date ASC, id ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// Update rewrites the invoice fields and replaces the line items in
// one transaction. The number and creation timestamp on the stored
// row always win; a caller-supplied number that differs is rejected.
func (r *invoiceRepo) Update(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.Invoice
		if err := tx.First(&stored, inv.ID).Error; err != nil {
			return notFound(err, "invoice", inv.ID)
		}
		if inv.Number != "" && inv.Number != stored.Number {
			return &models.ImmutableInvoiceError{Number: stored.Number, Status: stored.Status, Field: "number"}
		}

		updates := map[string]any{
			"client_id":      inv.ClientID,
			"client_name":    inv.ClientName,
			"client_address": inv.ClientAddress,
			"client_tax_id":  inv.ClientTaxID,
			"client_email":   inv.ClientEmail,
			"issue_date":     inv.IssueDate,
			"due_date":       inv.DueDate,
			"status":         inv.Status,
			"total_amount":   inv.TotalAmount,
			"credit_note_id": inv.CreditNoteID,
			"updated_at":     time.Now().UTC(),
		}
		if err := tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return err
		}
		if len(inv.Lines) > 0 {
			lines := make([]models.InvoiceLine, len(inv.Lines))
			copy(lines, inv.Lines)
			for i := range lines {
				lines[i].ID = 0
				lines[i].InvoiceID = inv.ID
			}
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, inv.ID)
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, id uint, from, to models.InvoiceStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var stored models.Invoice
		if err := r.db.WithContext(ctx).Select("status").First(&stored, id).Error; err != nil {
			return notFound(err, "invoice", id)
		}
		return &models.InvalidTransitionError{
			From:   stored.Status,
			To:     to,
			Reason: "invoice status changed concurrently",
		}
	}
	return nil
}

func (r *invoiceRepo) Search(ctx context.Context, query string) ([]models.Invoice, error) {
	q := "%" + strings.ToLower(query) + "%"
	var invoices []models.Invoice
	err := withLines(r.db.WithContext(ctx)).
		Where(`LOWER(number) LIKE ? OR LOWER(client_name) LIKE ? OR LOWER(client_address) LIKE ?
			OR LOWER(client_tax_id) LIKE ? OR LOWER(client_email) LIKE ?`, q, q, q, q, q).
		Order("id ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepo) Summary(ctx context.Context) (*storage.InvoiceSummary, error) {
	statuses := models.AllStatuses()
	sum := &storage.InvoiceSummary{
		ByStatus:    make(map[models.InvoiceStatus]int64, len(statuses)),
		TotalAmount: decimal.Zero,
	}
	for _, st := range statuses {
		sum.ByStatus[st] = 0
	}

	var rows []struct {
		Status models.InvoiceStatus
		Cnt    int64
	}
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Select("status, COUNT(*) AS cnt").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		sum.ByStatus[row.Status] = row.Cnt
		sum.TotalCount += row.Cnt
	}

	var total decimal.Decimal
	err = r.db.WithContext(ctx).Model(&models.Invoice{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&total).Error
	if err != nil {
		return nil, err
	}
	sum.TotalAmount = total
	return sum, nil
}

func (r *invoiceRepo) CountByClient(ctx context.Context, clientID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("client_id = ?", clientID).
		Count(&n).Error
	return n, err
}

func (r *invoiceRepo) MaxSequence(ctx context.Context, prefix, period string) (int, error) {
	return maxStoredSequence(r.db.WithContext(ctx), "invoices", prefix, period)
}
