package files

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbardeau/factura/pkg/config"
	"github.com/mbardeau/factura/pkg/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleInvoice() *models.Invoice {
	inv := &models.Invoice{
		Number:        "INV-2026-0001",
		ClientID:      1,
		ClientName:    "Acme Corp",
		ClientAddress: "1 Main Street",
		ClientTaxID:   "FR-123",
		ClientEmail:   "billing@acme.test",
		IssueDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Status:        models.StatusDraft,
		Lines: []models.InvoiceLine{
			{Description: "Design", Quantity: dec("2"), UnitPrice: dec("50.10")},
			{Description: "Development", Quantity: dec("1.5"), UnitPrice: dec("100")},
		},
	}
	inv.RecalculateTotals()
	return inv
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	_, err := New(t.TempDir(), "toml", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "toml")
}

func TestNew_AcceptsYmlAlias(t *testing.T) {
	s, err := New(t.TempDir(), "yml", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, config.FormatYAML, s.invoices.format)
}

// Records must survive a process restart byte-for-byte in meaning:
// exact decimals, exact instants, every line. A new Store on the same
// directory plays the part of the restarted process.
func TestRoundTrip_AllFormats(t *testing.T) {
	for _, format := range []string{config.FormatJSON, config.FormatYAML, config.FormatXML, config.FormatMarkdown} {
		format := format
		t.Run(format, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			first, err := New(dir, format, zerolog.Nop())
			require.NoError(t, err)
			created, err := first.Invoices().Create(ctx, sampleInvoice())
			require.NoError(t, err)

			reopened, err := New(dir, format, zerolog.Nop())
			require.NoError(t, err)
			got, err := reopened.Invoices().GetByID(ctx, created.ID)
			require.NoError(t, err)

			assert.Equal(t, created.Number, got.Number)
			assert.Equal(t, models.StatusDraft, got.Status)
			assert.Equal(t, "Acme Corp", got.ClientName)
			assert.True(t, got.IssueDate.Equal(created.IssueDate))
			assert.True(t, got.DueDate.Equal(created.DueDate))
			assert.True(t, got.TotalAmount.Equal(dec("250.20")), "total = %s", got.TotalAmount)
			require.Len(t, got.Lines, 2)
			assert.True(t, got.Lines[0].Quantity.Equal(dec("2")))
			assert.True(t, got.Lines[0].UnitPrice.Equal(dec("50.10")), "unit price = %s", got.Lines[0].UnitPrice)
			assert.True(t, got.Lines[1].Quantity.Equal(dec("1.5")))
			assert.True(t, got.Lines[1].Amount.Equal(dec("150")))
		})
	}
}

func TestMarkdownRecordsCarryFrontMatter(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(dir, config.FormatMarkdown, zerolog.Nop())
	require.NoError(t, err)
	created, err := s.Invoices().Create(ctx, sampleInvoice())
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "invoices", "1.md"))
	require.NoError(t, err)
	text := string(raw)
	assert.True(t, strings.HasPrefix(text, "---\n"), "front matter must open the file")
	assert.GreaterOrEqual(t, strings.Count(text, "---"), 2, "front matter must be fenced")
	assert.Contains(t, text, "number: "+created.Number)
}

// A user may rename "1.json" to "1.acme-corp.json" to make the
// directory browsable. Lookups and updates must keep working, and the
// update must not resurrect the plain name next to the custom one.
func TestRenamedRecordStillResolves(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(dir, config.FormatJSON, zerolog.Nop())
	require.NoError(t, err)
	created, err := s.Invoices().Create(ctx, sampleInvoice())
	require.NoError(t, err)

	invoiceDir := filepath.Join(dir, "invoices")
	require.NoError(t, os.Rename(
		filepath.Join(invoiceDir, "1.json"),
		filepath.Join(invoiceDir, "1.acme-corp.json"),
	))

	got, err := s.Invoices().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Number, got.Number)

	got.Lines = []models.InvoiceLine{{Description: "Rework", Quantity: dec("1"), UnitPrice: dec("75")}}
	got.RecalculateTotals()
	_, err = s.Invoices().Update(ctx, got)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(invoiceDir, "1.json"))
	assert.True(t, os.IsNotExist(err), "the plain name must not come back")

	raw, err := os.ReadFile(filepath.Join(invoiceDir, "1.acme-corp.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Rework")
}

// A user may also convert a record to another supported format by
// hand. The resolver reads whatever extension it finds, and updates
// stay in the converted format.
func TestHandConvertedFormatSurvives(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(dir, config.FormatJSON, zerolog.Nop())
	require.NoError(t, err)
	created, err := s.Invoices().Create(ctx, sampleInvoice())
	require.NoError(t, err)

	invoiceDir := filepath.Join(dir, "invoices")
	raw, err := os.ReadFile(filepath.Join(invoiceDir, "1.json"))
	require.NoError(t, err)
	var inv models.Invoice
	require.NoError(t, decode(raw, config.FormatJSON, &inv))
	converted, err := encode(&inv, config.FormatYAML)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(invoiceDir, "1.yaml"), converted, 0o644))
	require.NoError(t, os.Remove(filepath.Join(invoiceDir, "1.json")))

	got, err := s.Invoices().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Number, got.Number)
	assert.True(t, got.TotalAmount.Equal(created.TotalAmount))

	got.ClientEmail = "accounts@acme.test"
	_, err = s.Invoices().Update(ctx, got)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(invoiceDir, "1.json"))
	assert.True(t, os.IsNotExist(err), "updates must stay in the converted format")
	yamlRaw, err := os.ReadFile(filepath.Join(invoiceDir, "1.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(yamlRaw), "accounts@acme.test")
}

// Deleting or corrupting _meta.json must never lead to an id being
// issued twice: the counter is rebuilt from the files present.
func TestMetaCounterRebuiltFromRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(dir, config.FormatJSON, zerolog.Nop())
	require.NoError(t, err)
	_, err = s.Invoices().Create(ctx, sampleInvoice())
	require.NoError(t, err)
	second := sampleInvoice()
	second.Number = "INV-2026-0002"
	_, err = s.Invoices().Create(ctx, second)
	require.NoError(t, err)

	metaPath := filepath.Join(dir, "invoices", "_meta.json")
	require.NoError(t, os.Remove(metaPath))

	reopened, err := New(dir, config.FormatJSON, zerolog.Nop())
	require.NoError(t, err)
	third := sampleInvoice()
	third.Number = "INV-2026-0003"
	created, err := reopened.Invoices().Create(ctx, third)
	require.NoError(t, err)
	assert.Equal(t, uint(3), created.ID, "rebuilt counter must continue past existing records")
}

func TestCorruptMetaFallsBackToScan(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(dir, config.FormatJSON, zerolog.Nop())
	require.NoError(t, err)
	_, err = s.Invoices().Create(ctx, sampleInvoice())
	require.NoError(t, err)

	metaPath := filepath.Join(dir, "invoices", "_meta.json")
	require.NoError(t, os.WriteFile(metaPath, []byte("{not json"), 0o644))

	reopened, err := New(dir, config.FormatJSON, zerolog.Nop())
	require.NoError(t, err)
	second := sampleInvoice()
	second.Number = "INV-2026-0002"
	created, err := reopened.Invoices().Create(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, uint(2), created.ID)
}

func TestWritesLeaveNoTempFilesBehind(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(dir, config.FormatJSON, zerolog.Nop())
	require.NoError(t, err)
	created, err := s.Invoices().Create(ctx, sampleInvoice())
	require.NoError(t, err)
	created.ClientEmail = "accounts@acme.test"
	_, err = s.Invoices().Update(ctx, created)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "invoices"))
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".tmp-"), "leftover temp file %s", entry.Name())
	}
}

type note struct {
	ID   uint            `json:"id" yaml:"id" xml:"id"`
	Body string          `json:"body" yaml:"body" xml:"body"`
	Qty  decimal.Decimal `json:"qty" yaml:"qty" xml:"qty"`
}

// find must not let id 1 swallow the files of id 10.
func TestFindMatchesWholeIDOnly(t *testing.T) {
	e, err := newEntityStore[note](t.TempDir(), "notes", config.FormatJSON)
	require.NoError(t, err)

	require.NoError(t, e.save(1, &note{ID: 1, Body: "one", Qty: dec("1")}))
	require.NoError(t, e.save(10, &note{ID: 10, Body: "ten", Qty: dec("10")}))
	require.NoError(t, os.Rename(
		filepath.Join(e.dir, "1.json"),
		filepath.Join(e.dir, "1.custom.json"),
	))

	got, err := e.load(1)
	require.NoError(t, err)
	assert.Equal(t, "one", got.Body)

	got, err = e.load(10)
	require.NoError(t, err)
	assert.Equal(t, "ten", got.Body)
}

func TestListIDsCountsLabelledRecordsOnce(t *testing.T) {
	e, err := newEntityStore[note](t.TempDir(), "notes", config.FormatJSON)
	require.NoError(t, err)

	require.NoError(t, e.save(1, &note{ID: 1, Body: "one", Qty: dec("1")}))
	require.NoError(t, e.save(2, &note{ID: 2, Body: "two", Qty: dec("2")}))
	require.NoError(t, os.Rename(
		filepath.Join(e.dir, "2.json"),
		filepath.Join(e.dir, "2.two.json"),
	))

	ids, err := e.listIDs()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, ids)
}

func TestDecodeMarkdownWithoutFrontMatterFails(t *testing.T) {
	var v note
	err := decode([]byte("just prose\n"), config.FormatMarkdown, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "front matter")
}
