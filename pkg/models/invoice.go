package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice represents a billing invoice.
// Monetary fields use exact decimals; totals are always recomputable
// from the lines and are refreshed on every line mutation.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id" yaml:"id" xml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" xml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" xml:"updated_at"`

	// Invoice identification. Number is globally unique and immutable
	// once assigned by the numbering allocator.
	Number string `gorm:"size:50;uniqueIndex" json:"number" yaml:"number" xml:"number"`

	// Client snapshot, copied from the Client at creation time and
	// never re-derived. Later edits to the Client must not alter
	// invoices already issued.
	ClientID      uint   `gorm:"index;not null" json:"client_id" yaml:"client_id" xml:"client_id"`
	ClientName    string `gorm:"size:255;not null" json:"client_name" yaml:"client_name" xml:"client_name"`
	ClientAddress string `gorm:"size:500" json:"client_address" yaml:"client_address" xml:"client_address"`
	ClientTaxID   string `gorm:"size:50" json:"client_tax_id" yaml:"client_tax_id" xml:"client_tax_id"`
	ClientEmail   string `gorm:"size:255" json:"client_email" yaml:"client_email" xml:"client_email"`

	// Invoice dates
	IssueDate time.Time `gorm:"not null" json:"issue_date" yaml:"issue_date" xml:"issue_date"`
	DueDate   time.Time `gorm:"not null" json:"due_date" yaml:"due_date" xml:"due_date"`

	// Status moves only along the lifecycle table in status.go.
	Status InvoiceStatus `gorm:"size:20;not null;default:'DRAFT'" json:"status" yaml:"status" xml:"status"`

	// Ordered line items.
	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lines" yaml:"lines" xml:"lines>line"`

	// TotalAmount is the sum of line extensions.
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount" yaml:"total_amount" xml:"total_amount"`

	// CreditNoteID references the credit note that credited this
	// invoice, if any.
	CreditNoteID *uint `gorm:"index" json:"credit_note_id,omitempty" yaml:"credit_note_id,omitempty" xml:"credit_note_id,omitempty"`
}

// InvoiceLine is a single position on an invoice.
type InvoiceLine struct {
	ID        uint `gorm:"primaryKey" json:"id" yaml:"id" xml:"id"`
	InvoiceID uint `gorm:"index;not null" json:"invoice_id" yaml:"invoice_id" xml:"invoice_id"`

	Position    int             `gorm:"not null;default:0" json:"position" yaml:"position" xml:"position"`
	Description string          `gorm:"size:500;not null" json:"description" yaml:"description" xml:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity" yaml:"quantity" xml:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price" yaml:"unit_price" xml:"unit_price"`

	// Amount is the line extension Quantity * UnitPrice, stored for
	// listing but recomputed on every mutation.
	Amount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount" yaml:"amount" xml:"amount"`
}

// Extension computes Quantity * UnitPrice.
func (l *InvoiceLine) Extension() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// RecalculateTotals refreshes every line amount and the invoice total
// from quantities and unit prices. Call after any line mutation.
func (i *Invoice) RecalculateTotals() {
	total := decimal.Zero
	for idx := range i.Lines {
		i.Lines[idx].Position = idx + 1
		i.Lines[idx].Amount = i.Lines[idx].Extension()
		total = total.Add(i.Lines[idx].Amount)
	}
	i.TotalAmount = total
}

// ComputeTotal returns the sum of line extensions without mutating
// the invoice.
func (i *Invoice) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for idx := range i.Lines {
		total = total.Add(i.Lines[idx].Extension())
	}
	return total
}

// SnapshotClient copies the billing fields of c onto the invoice.
func (i *Invoice) SnapshotClient(c *Client) {
	i.ClientID = c.ID
	i.ClientName = c.Name
	i.ClientAddress = c.Address
	i.ClientTaxID = c.TaxID
	i.ClientEmail = c.Email
}

// IsDraft returns true while the invoice content may still change.
func (i *Invoice) IsDraft() bool {
	return i.Status == StatusDraft
}

// IsTerminal returns true once no lifecycle event can apply anymore.
func (i *Invoice) IsTerminal() bool {
	return i.Status.IsTerminal()
}

// IsOverdue reports whether the invoice is still open and past due.
func (i *Invoice) IsOverdue(asOf time.Time) bool {
	if i.Status != StatusDraft && i.Status != StatusSent {
		return false
	}
	return i.DueDate.Before(asOf)
}

// Clone returns a fresh DRAFT copy of the invoice: same client
// snapshot and lines, no identity, no number, no payments.
func (i *Invoice) Clone() *Invoice {
	dup := &Invoice{
		ClientID:      i.ClientID,
		ClientName:    i.ClientName,
		ClientAddress: i.ClientAddress,
		ClientTaxID:   i.ClientTaxID,
		ClientEmail:   i.ClientEmail,
		IssueDate:     i.IssueDate,
		DueDate:       i.DueDate,
		Status:        StatusDraft,
	}
	dup.Lines = make([]InvoiceLine, len(i.Lines))
	for idx, line := range i.Lines {
		dup.Lines[idx] = InvoiceLine{
			Position:    line.Position,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		}
	}
	dup.RecalculateTotals()
	return dup
}
