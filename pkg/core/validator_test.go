package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbardeau/factura/pkg/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sentInvoice(total string) *models.Invoice {
	return &models.Invoice{
		Number:      "INV-2026-0001",
		Status:      models.StatusSent,
		TotalAmount: dec(total),
	}
}

func TestValidateTransition_AllowedEdges(t *testing.T) {
	v := NewValidator()
	tests := []struct {
		from models.InvoiceStatus
		to   models.InvoiceStatus
		paid string
	}{
		{models.StatusDraft, models.StatusSent, "0"},
		{models.StatusDraft, models.StatusCancelled, "0"},
		{models.StatusSent, models.StatusPaid, "100"},
		{models.StatusSent, models.StatusCancelled, "0"},
		{models.StatusSent, models.StatusCredited, "0"},
		{models.StatusPaid, models.StatusRefunded, "100"},
		{models.StatusPaid, models.StatusCredited, "100"},
	}
	for _, tt := range tests {
		inv := &models.Invoice{Status: tt.from, TotalAmount: dec("100")}
		err := v.ValidateTransition(inv, tt.to, dec(tt.paid))
		assert.NoError(t, err, "%s -> %s should be authorized", tt.from, tt.to)
	}
}

func TestValidateTransition_DeniedEdges(t *testing.T) {
	v := NewValidator()
	tests := []struct {
		from models.InvoiceStatus
		to   models.InvoiceStatus
	}{
		{models.StatusDraft, models.StatusPaid},
		{models.StatusDraft, models.StatusRefunded},
		{models.StatusDraft, models.StatusCredited},
		{models.StatusSent, models.StatusDraft},
		{models.StatusSent, models.StatusRefunded},
		{models.StatusPaid, models.StatusSent},
		{models.StatusPaid, models.StatusCancelled},
		{models.StatusCancelled, models.StatusDraft},
		{models.StatusCancelled, models.StatusSent},
		{models.StatusRefunded, models.StatusSent},
		{models.StatusCredited, models.StatusSent},
	}
	for _, tt := range tests {
		inv := &models.Invoice{Status: tt.from, TotalAmount: dec("100")}
		err := v.ValidateTransition(inv, tt.to, dec("100"))
		require.Error(t, err, "%s -> %s must be denied", tt.from, tt.to)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	}
}

func TestValidateTransition_SelfIsAuthorized(t *testing.T) {
	v := NewValidator()
	for _, status := range models.AllStatuses() {
		inv := &models.Invoice{Status: status, TotalAmount: dec("100")}
		assert.NoError(t, v.ValidateTransition(inv, status, decimal.Zero),
			"%s -> %s must be an authorized no-op", status, status)
	}
}

func TestValidateTransition_CancelAfterPaymentDenied(t *testing.T) {
	v := NewValidator()
	inv := sentInvoice("200")

	err := v.ValidateTransition(inv, models.StatusCancelled, dec("50"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	var ite *models.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, models.StatusSent, ite.From)
	assert.Equal(t, models.StatusCancelled, ite.To)
	assert.NotEmpty(t, ite.Reason)
}

func TestValidateTransition_PayRequiresFullSettlement(t *testing.T) {
	v := NewValidator()
	inv := sentInvoice("200")

	err := v.ValidateTransition(inv, models.StatusPaid, dec("150"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	assert.NoError(t, v.ValidateTransition(inv, models.StatusPaid, dec("200")))
}

func TestValidateModification(t *testing.T) {
	v := NewValidator()

	draft := &models.Invoice{Number: "INV-2026-0001", Status: models.StatusDraft}
	assert.NoError(t, v.ValidateModification(draft))

	for _, status := range []models.InvoiceStatus{
		models.StatusSent, models.StatusPaid, models.StatusCancelled,
		models.StatusRefunded, models.StatusCredited,
	} {
		inv := &models.Invoice{Number: "INV-2026-0001", Status: status}
		err := v.ValidateModification(inv)
		require.Error(t, err, "modification in %s must be denied", status)
		assert.ErrorIs(t, err, models.ErrImmutableInvoice)
	}
}

func TestValidatePayment(t *testing.T) {
	v := NewValidator()

	t.Run("positive amount within balance", func(t *testing.T) {
		assert.NoError(t, v.ValidatePayment(sentInvoice("200"), dec("50"), dec("100")))
	})

	t.Run("exact remaining balance", func(t *testing.T) {
		assert.NoError(t, v.ValidatePayment(sentInvoice("200"), dec("150"), dec("50")))
	})

	t.Run("zero amount", func(t *testing.T) {
		err := v.ValidatePayment(sentInvoice("200"), decimal.Zero, decimal.Zero)
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("negative amount", func(t *testing.T) {
		err := v.ValidatePayment(sentInvoice("200"), decimal.Zero, dec("-10"))
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("draft invoice", func(t *testing.T) {
		inv := &models.Invoice{Status: models.StatusDraft, TotalAmount: dec("200")}
		err := v.ValidatePayment(inv, decimal.Zero, dec("10"))
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("cancelled invoice", func(t *testing.T) {
		inv := &models.Invoice{Status: models.StatusCancelled, TotalAmount: dec("200")}
		err := v.ValidatePayment(inv, decimal.Zero, dec("10"))
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("overshoot is denied not clamped", func(t *testing.T) {
		err := v.ValidatePayment(sentInvoice("200"), dec("150"), dec("51"))
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrOverpayment)

		var ope *models.OverpaymentError
		require.ErrorAs(t, err, &ope)
		assert.True(t, ope.Limit.Equal(dec("50")), "limit = %s, want 50", ope.Limit)
		assert.True(t, ope.Requested.Equal(dec("51")))
	})
}

func TestValidateCredit(t *testing.T) {
	v := NewValidator()

	t.Run("within outstanding", func(t *testing.T) {
		assert.NoError(t, v.ValidateCredit(sentInvoice("500"), dec("500"), dec("200")))
	})

	t.Run("exact outstanding", func(t *testing.T) {
		assert.NoError(t, v.ValidateCredit(sentInvoice("500"), dec("500"), dec("500")))
	})

	t.Run("over outstanding", func(t *testing.T) {
		err := v.ValidateCredit(sentInvoice("500"), dec("500"), dec("501"))
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrOverCredit)

		var oce *models.OverCreditError
		require.ErrorAs(t, err, &oce)
		assert.True(t, oce.Limit.Equal(dec("500")))
	})

	t.Run("zero amount", func(t *testing.T) {
		err := v.ValidateCredit(sentInvoice("500"), dec("500"), decimal.Zero)
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("draft invoice", func(t *testing.T) {
		inv := &models.Invoice{Status: models.StatusDraft, TotalAmount: dec("500")}
		err := v.ValidateCredit(inv, dec("500"), dec("100"))
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})

	t.Run("cancelled invoice", func(t *testing.T) {
		inv := &models.Invoice{Status: models.StatusCancelled, TotalAmount: dec("500")}
		err := v.ValidateCredit(inv, dec("500"), dec("100"))
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})
}

func TestValidateDocument_ReportsEveryViolation(t *testing.T) {
	v := NewValidator()
	inv := &models.Invoice{
		Lines: []models.InvoiceLine{
			{Description: "", Quantity: dec("-1"), UnitPrice: dec("-2")},
		},
	}
	violations := v.ValidateDocument(inv)

	assert.False(t, violations.Empty())
	assert.Equal(t, []string{
		"client_id",
		"client_name",
		"due_date",
		"issue_date",
		"lines[0].description",
		"lines[0].quantity",
		"lines[0].unit_price",
	}, violations.Fields())
}

func TestValidateDocument_DueBeforeIssue(t *testing.T) {
	v := NewValidator()
	inv := &models.Invoice{
		ClientID:   1,
		ClientName: "Acme",
		IssueDate:  mustDate("2026-03-10"),
		DueDate:    mustDate("2026-03-01"),
		Lines: []models.InvoiceLine{
			{Description: "Work", Quantity: dec("1"), UnitPrice: dec("10")},
		},
	}
	violations := v.ValidateDocument(inv)
	assert.Equal(t, []string{"due_date"}, violations.Fields())
	assert.Equal(t, "must_not_precede_issue_date", violations["due_date"])
}

func TestValidateDocument_NoLines(t *testing.T) {
	v := NewValidator()
	inv := &models.Invoice{
		ClientID:   1,
		ClientName: "Acme",
		IssueDate:  mustDate("2026-03-01"),
		DueDate:    mustDate("2026-03-31"),
	}
	violations := v.ValidateDocument(inv)
	assert.Equal(t, []string{"lines"}, violations.Fields())
}

func TestValidateDocument_WellFormed(t *testing.T) {
	v := NewValidator()
	inv := &models.Invoice{
		ClientID:   1,
		ClientName: "Acme",
		IssueDate:  mustDate("2026-03-01"),
		DueDate:    mustDate("2026-03-31"),
		Lines: []models.InvoiceLine{
			{Description: "Work", Quantity: dec("0"), UnitPrice: dec("0")},
		},
	}
	assert.True(t, v.ValidateDocument(inv).Empty(),
		"zero quantity and price are well-formed, only negatives are not")
}

func TestViolations_ErrorMapping(t *testing.T) {
	violations := Violations{"lines": "at_least_one_line_required"}
	err := firstViolation(violations)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)

	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "lines", ve.Field)
}
