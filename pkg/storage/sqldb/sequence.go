package sqldb

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mbardeau/factura/pkg/core"
)

// sequenceCounter is one row per numbering namespace and period. The
// row is locked FOR UPDATE while a number is allocated, so concurrent
// transactions, even from different processes, serialize on it and
// never hand out the same sequence twice. sqlite has no row locks;
// its single-writer transaction gives the same guarantee.
type sequenceCounter struct {
	ID      uint   `gorm:"primaryKey"`
	Prefix  string `gorm:"size:10;not null;uniqueIndex:idx_sequence_namespace"`
	Period  string `gorm:"size:20;not null;uniqueIndex:idx_sequence_namespace"`
	Current int    `gorm:"not null"`
}

func (sequenceCounter) TableName() string { return "sequence_counters" }

type sequenceSource struct {
	db *gorm.DB
}

func (s *sequenceSource) NextSequence(ctx context.Context, prefix, period string) (int, error) {
	var next int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Make sure the counter row exists; losing the insert race to
		// another transaction is fine.
		seed := sequenceCounter{Prefix: prefix, Period: period}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var row sequenceCounter
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("prefix = ? AND period = ?", prefix, period).
			First(&row).Error; err != nil {
			return err
		}

		// First allocation in this namespace adopts numbers already in
		// the tables, so attaching to an existing database continues
		// after the highest issued sequence instead of colliding.
		if row.Current == 0 {
			max, err := maxStoredSequence(tx, tableForPrefix(prefix), prefix, period)
			if err != nil {
				return err
			}
			row.Current = max
		}

		row.Current++
		next = row.Current
		return tx.Model(&sequenceCounter{}).Where("id = ?", row.ID).Update("current", row.Current).Error
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func tableForPrefix(prefix string) string {
	if prefix == core.CreditNotePrefix {
		return "credit_notes"
	}
	return "invoices"
}

// maxStoredSequence scans the numbers already issued in a namespace.
// Parsing happens in Go so the query stays portable across engines.
func maxStoredSequence(tx *gorm.DB, table, prefix, period string) (int, error) {
	like := prefix + "-" + period + "-%"
	var numbers []string
	if err := tx.Table(table).Where("number LIKE ?", like).Pluck("number", &numbers).Error; err != nil {
		return 0, err
	}
	max := 0
	for _, n := range numbers {
		p, per, seq, err := core.ParseNumber(n)
		if err != nil || p != prefix || per != period {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}
