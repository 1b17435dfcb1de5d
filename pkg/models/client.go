package models

import "time"

// Client entity. Invoices copy these fields as a snapshot at creation;
// editing a client never touches issued invoices.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id" yaml:"id" xml:"id"`
	Name      string    `gorm:"size:255;not null;index" json:"name" yaml:"name" xml:"name"`
	Address   string    `gorm:"size:500" json:"address" yaml:"address" xml:"address"`
	TaxID     string    `gorm:"size:50;index" json:"tax_id" yaml:"tax_id" xml:"tax_id"`
	Email     string    `gorm:"size:255" json:"email" yaml:"email" xml:"email"`
	Phone     string    `gorm:"size:50" json:"phone" yaml:"phone" xml:"phone"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" xml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" xml:"updated_at"`
}
