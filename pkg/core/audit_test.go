package core

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

// stubAuditRepo records appends and can be told to fail.
type stubAuditRepo struct {
	entries   []models.AuditLogEntry
	appendErr error
}

func (r *stubAuditRepo) Append(ctx context.Context, e *models.AuditLogEntry) (*models.AuditLogEntry, error) {
	if r.appendErr != nil {
		return nil, r.appendErr
	}
	rec := *e
	rec.ID = uint(len(r.entries) + 1)
	r.entries = append(r.entries, rec)
	return &rec, nil
}

func (r *stubAuditRepo) GetByInvoice(ctx context.Context, invoiceID uint) ([]models.AuditLogEntry, error) {
	var out []models.AuditLogEntry
	for _, e := range r.entries {
		if e.InvoiceID == invoiceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubAuditRepo) GetAll(ctx context.Context, opts storage.ListOptions) ([]models.AuditLogEntry, error) {
	out := r.entries
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func TestAuditService_Log(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, zerolog.Nop())
	inv := &models.Invoice{ID: 3, Number: "INV-2026-0003"}

	svc.Log(context.Background(), inv, models.AuditCreated, "cli", "invoice created")

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, uint(3), entry.InvoiceID)
	assert.Equal(t, "INV-2026-0003", entry.InvoiceNumber)
	assert.Equal(t, models.AuditCreated, entry.Kind)
	assert.Equal(t, "cli", entry.Actor)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestAuditService_EmptyActorBecomesSystem(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, zerolog.Nop())

	svc.Log(context.Background(), &models.Invoice{ID: 1}, models.AuditCreated, "", "")

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "system", repo.entries[0].Actor)
}

// A failed append is logged and swallowed: audit is best-effort and
// must never invalidate the mutation it describes.
func TestAuditService_AppendFailureDoesNotPanic(t *testing.T) {
	repo := &stubAuditRepo{appendErr: errors.New("disk full")}
	svc := NewAuditService(repo, zerolog.Nop())

	assert.NotPanics(t, func() {
		svc.Log(context.Background(), &models.Invoice{ID: 1, Number: "INV-2026-0001"}, models.AuditCreated, "cli", "")
	})
	assert.Empty(t, repo.entries)
}

func TestAuditService_List(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Log(ctx, &models.Invoice{ID: uint(i + 1)}, models.AuditCreated, "cli", "")
	}

	entries, err := svc.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	trail, err := svc.InvoiceTrail(ctx, 2)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, uint(2), trail[0].InvoiceID)
}
