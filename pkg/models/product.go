package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product catalog entry. Code is the natural key.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id" yaml:"id" xml:"id"`
	Code        string          `gorm:"size:40;not null;uniqueIndex" json:"code" yaml:"code" xml:"code"`
	Name        string          `gorm:"size:255;not null" json:"name" yaml:"name" xml:"name"`
	Description string          `gorm:"size:500" json:"description" yaml:"description" xml:"description"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price" yaml:"unit_price" xml:"unit_price"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at" xml:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" yaml:"updated_at" xml:"updated_at"`
}
