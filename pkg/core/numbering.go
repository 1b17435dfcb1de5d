package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mbardeau/factura/pkg/storage"
)

// Numbering prefixes. Invoices and credit notes each own a namespace
// with an independent sequence per period.
const (
	InvoicePrefix    = "INV"
	CreditNotePrefix = "CN"
)

// PeriodOf returns the numbering period for a point in time. The
// sequence resets per calendar year.
func PeriodOf(t time.Time) string {
	return strconv.Itoa(t.Year())
}

// FormatNumber renders a document number, e.g. INV-2026-0042.
func FormatNumber(prefix, period string, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, period, seq)
}

// ParseNumber splits a document number into prefix, period and
// sequence. The sequence is the last dash-separated segment so that
// periods containing dashes keep parsing.
func ParseNumber(number string) (prefix, period string, seq int, err error) {
	parts := strings.Split(number, "-")
	if len(parts) < 3 {
		return "", "", 0, fmt.Errorf("malformed document number %q", number)
	}
	seq, err = strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return "", "", 0, fmt.Errorf("malformed sequence in document number %q", number)
	}
	prefix = parts[0]
	period = strings.Join(parts[1:len(parts)-1], "-")
	return prefix, period, seq, nil
}

// NumberingService allocates collision-free sequential document
// numbers of the form {PREFIX}-{PERIOD}-{SEQUENCE}. Race freedom is
// delegated to the backend's SequenceSource; a failed write after
// allocation may leave a gap, which is tolerated. Duplicates are not:
// the unique index on number is the backstop.
type NumberingService struct {
	seq storage.SequenceSource
}

// NewNumberingService returns an allocator over the given source.
func NewNumberingService(seq storage.SequenceSource) *NumberingService {
	return &NumberingService{seq: seq}
}

// Next allocates the next number in the prefix namespace for the
// period containing at.
func (n *NumberingService) Next(ctx context.Context, prefix string, at time.Time) (string, error) {
	period := PeriodOf(at)
	seq, err := n.seq.NextSequence(ctx, prefix, period)
	if err != nil {
		return "", fmt.Errorf("allocate %s sequence for %s: %w", prefix, period, err)
	}
	return FormatNumber(prefix, period, seq), nil
}

// MaxSequenceFunc reports the highest sequence already issued for a
// prefix and period, 0 when none exists.
type MaxSequenceFunc func(ctx context.Context, prefix, period string) (int, error)

// LocalSequenceSource is the process-local counter used by the memory
// and files backends: a mutex-guarded map of last-issued sequences,
// seeded per period from a scan of existing numbers on first use.
// Only safe for a single process, as those backends document.
type LocalSequenceSource struct {
	mu   sync.Mutex
	last map[string]int
	seed MaxSequenceFunc
}

// NewLocalSequenceSource builds a source seeded by seed.
func NewLocalSequenceSource(seed MaxSequenceFunc) *LocalSequenceSource {
	return &LocalSequenceSource{
		last: make(map[string]int),
		seed: seed,
	}
}

// NextSequence returns the next sequence for prefix within period.
func (s *LocalSequenceSource) NextSequence(ctx context.Context, prefix, period string) (int, error) {
	key := prefix + "-" + period
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.last[key]; !ok {
		max, err := s.seed(ctx, prefix, period)
		if err != nil {
			return 0, err
		}
		s.last[key] = max
	}
	s.last[key]++
	return s.last[key], nil
}
