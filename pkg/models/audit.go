package models

import "time"

// AuditKind is the closed set of lifecycle events the audit log records.
type AuditKind string

const (
	AuditCreated       AuditKind = "created"
	AuditStatusChanged AuditKind = "status-changed"
	AuditPaymentAdded  AuditKind = "payment-added"
	AuditCredited      AuditKind = "credited"
	AuditCloned        AuditKind = "cloned"
)

// AuditLogEntry is one immutable line of the audit trail. Entries are
// append-only: no repository exposes an update or delete for them, and
// per-invoice retrieval returns them in commit order.
type AuditLogEntry struct {
	ID            uint      `gorm:"primaryKey" json:"id" yaml:"id" xml:"id"`
	Timestamp     time.Time `gorm:"not null;index" json:"timestamp" yaml:"timestamp" xml:"timestamp"`
	InvoiceID     uint      `gorm:"index;not null" json:"invoice_id" yaml:"invoice_id" xml:"invoice_id"`
	InvoiceNumber string    `gorm:"size:50;index" json:"invoice_number" yaml:"invoice_number" xml:"invoice_number"`
	Kind          AuditKind `gorm:"size:30;not null" json:"kind" yaml:"kind" xml:"kind"`
	Actor         string    `gorm:"size:100" json:"actor" yaml:"actor" xml:"actor"`
	Detail        string    `gorm:"size:500" json:"detail" yaml:"detail" xml:"detail"`
}
