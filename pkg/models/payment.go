package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment tied to an invoice. The validator guarantees that the sum
// of payments per invoice never exceeds the invoice total.
type Payment struct {
	ID        uint            `gorm:"primaryKey" json:"id" yaml:"id" xml:"id"`
	InvoiceID uint            `gorm:"index;not null" json:"invoice_id" yaml:"invoice_id" xml:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount" yaml:"amount" xml:"amount"`
	Date      time.Time       `gorm:"not null" json:"date" yaml:"date" xml:"date"`
	Reference string          `gorm:"size:255" json:"reference" yaml:"reference" xml:"reference"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at" xml:"created_at"`
}
