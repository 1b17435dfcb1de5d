package models

import "time"

// Company is an issuer profile. The default company is the one used
// when rendering documents.
type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id" yaml:"id" xml:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" yaml:"name" xml:"name"`
	Address   string    `gorm:"size:500" json:"address" yaml:"address" xml:"address"`
	TaxID     string    `gorm:"size:50" json:"tax_id" yaml:"tax_id" xml:"tax_id"`
	Email     string    `gorm:"size:255" json:"email" yaml:"email" xml:"email"`
	IBAN      string    `gorm:"size:50" json:"iban" yaml:"iban" xml:"iban"`
	IsDefault bool      `gorm:"not null;default:false" json:"is_default" yaml:"is_default" xml:"is_default"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" xml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" xml:"updated_at"`
}
