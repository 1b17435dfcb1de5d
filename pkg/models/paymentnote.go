package models

import "time"

// PaymentNote is a reusable note template ("Net 30", bank details)
// attached to rendered documents. Label is the natural key.
type PaymentNote struct {
	ID        uint      `gorm:"primaryKey" json:"id" yaml:"id" xml:"id"`
	Label     string    `gorm:"size:100;not null;uniqueIndex" json:"label" yaml:"label" xml:"label"`
	Text      string    `gorm:"size:1000;not null" json:"text" yaml:"text" xml:"text"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" xml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" xml:"updated_at"`
}
