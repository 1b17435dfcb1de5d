package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		prefix string
		period string
		seq    int
		want   string
	}{
		{"INV", "2026", 1, "INV-2026-0001"},
		{"INV", "2026", 42, "INV-2026-0042"},
		{"CN", "2026", 7, "CN-2026-0007"},
		{"INV", "2026", 12345, "INV-2026-12345"}, // padding grows past 4 digits
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.prefix, tt.period, tt.seq))
	}
}

func TestParseNumber(t *testing.T) {
	prefix, period, seq, err := ParseNumber("INV-2026-0042")
	require.NoError(t, err)
	assert.Equal(t, "INV", prefix)
	assert.Equal(t, "2026", period)
	assert.Equal(t, 42, seq)
}

func TestParseNumber_PeriodWithDashes(t *testing.T) {
	prefix, period, seq, err := ParseNumber("INV-2026-Q1-0003")
	require.NoError(t, err)
	assert.Equal(t, "INV", prefix)
	assert.Equal(t, "2026-Q1", period)
	assert.Equal(t, 3, seq)
}

func TestParseNumber_Malformed(t *testing.T) {
	for _, bad := range []string{"", "INV", "INV-2026", "INV-2026-abc"} {
		_, _, _, err := ParseNumber(bad)
		assert.Error(t, err, "%q must not parse", bad)
	}
}

func TestPeriodOf(t *testing.T) {
	assert.Equal(t, "2026", PeriodOf(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2027", PeriodOf(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNumberingService_Next(t *testing.T) {
	src := NewLocalSequenceSource(func(ctx context.Context, prefix, period string) (int, error) {
		return 0, nil
	})
	svc := NewNumberingService(src)

	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first, err := svc.Next(context.Background(), InvoicePrefix, at)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0001", first)

	second, err := svc.Next(context.Background(), InvoicePrefix, at)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0002", second)
}

func TestLocalSequenceSource_SeedsFromExisting(t *testing.T) {
	src := NewLocalSequenceSource(func(ctx context.Context, prefix, period string) (int, error) {
		if prefix == "INV" && period == "2026" {
			return 7, nil
		}
		return 0, nil
	})

	seq, err := src.NextSequence(context.Background(), "INV", "2026")
	require.NoError(t, err)
	assert.Equal(t, 8, seq, "the allocator must continue past numbers already on record")

	seq, err = src.NextSequence(context.Background(), "CN", "2026")
	require.NoError(t, err)
	assert.Equal(t, 1, seq, "other namespaces are unaffected by the seed")
}

func TestLocalSequenceSource_SeedRunsOncePerKey(t *testing.T) {
	calls := 0
	src := NewLocalSequenceSource(func(ctx context.Context, prefix, period string) (int, error) {
		calls++
		return 0, nil
	})
	for i := 0; i < 5; i++ {
		_, err := src.NextSequence(context.Background(), "INV", "2026")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestLocalSequenceSource_IndependentPeriods(t *testing.T) {
	src := NewLocalSequenceSource(func(ctx context.Context, prefix, period string) (int, error) {
		return 0, nil
	})
	ctx := context.Background()

	s1, _ := src.NextSequence(ctx, "INV", "2026")
	s2, _ := src.NextSequence(ctx, "INV", "2027")
	s3, _ := src.NextSequence(ctx, "INV", "2026")

	assert.Equal(t, 1, s1)
	assert.Equal(t, 1, s2, "a new period restarts at 1")
	assert.Equal(t, 2, s3)
}

// TestLocalSequenceSource_Concurrent allocates from many goroutines
// and requires every sequence to come out exactly once.
func TestLocalSequenceSource_Concurrent(t *testing.T) {
	src := NewLocalSequenceSource(func(ctx context.Context, prefix, period string) (int, error) {
		return 0, nil
	})
	ctx := context.Background()

	const workers = 25
	const perWorker = 40

	var wg sync.WaitGroup
	results := make(chan int, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				seq, err := src.NextSequence(ctx, "INV", "2026")
				if err != nil {
					t.Errorf("NextSequence: %v", err)
					return
				}
				results <- seq
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int]bool, workers*perWorker)
	for seq := range results {
		if seen[seq] {
			t.Fatalf("sequence %d issued twice", seq)
		}
		seen[seq] = true
	}
	require.Len(t, seen, workers*perWorker)
	for i := 1; i <= workers*perWorker; i++ {
		if !seen[i] {
			t.Fatalf("sequence %d never issued", i)
		}
	}
}

func TestNumberRoundTrip(t *testing.T) {
	for seq := 1; seq <= 3; seq++ {
		number := FormatNumber(CreditNotePrefix, "2026", seq)
		prefix, period, parsed, err := ParseNumber(number)
		require.NoError(t, err, number)
		assert.Equal(t, CreditNotePrefix, prefix)
		assert.Equal(t, "2026", period)
		assert.Equal(t, seq, parsed)
	}
}

func TestNumberingService_PropagatesSourceError(t *testing.T) {
	src := NewLocalSequenceSource(func(ctx context.Context, prefix, period string) (int, error) {
		return 0, fmt.Errorf("seed scan failed")
	})
	svc := NewNumberingService(src)

	_, err := svc.Next(context.Background(), InvoicePrefix, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INV")
}
