package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditNote reverses some or all of a SENT or PAID invoice. Numbers
// live in their own CN namespace, separate from invoice numbers.
// InvoiceID is mandatory and immutable; issuing a credit note is the
// only way an invoice reaches CREDITED.
type CreditNote struct {
	ID        uint            `gorm:"primaryKey" json:"id" yaml:"id" xml:"id"`
	Number    string          `gorm:"size:50;uniqueIndex" json:"number" yaml:"number" xml:"number"`
	InvoiceID uint            `gorm:"index;not null" json:"invoice_id" yaml:"invoice_id" xml:"invoice_id"`
	Reason    string          `gorm:"size:500" json:"reason" yaml:"reason" xml:"reason"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount" yaml:"amount" xml:"amount"`
	IssueDate time.Time       `gorm:"not null" json:"issue_date" yaml:"issue_date" xml:"issue_date"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at" xml:"created_at"`
}
