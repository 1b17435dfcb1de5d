package render

import (
	"context"
	"errors"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

// BuildContext assembles the template context for one invoice: the
// default company when one is configured, the payment history, every
// payment note and the outstanding balance after payments and credits.
func BuildContext(ctx context.Context, store storage.Store, inv *models.Invoice) (Context, error) {
	c := Context{Invoice: inv}

	company, err := store.Companies().GetDefault(ctx)
	switch {
	case err == nil:
		c.Company = company
	case !errors.Is(err, models.ErrNotFound):
		return Context{}, err
	}

	payments, err := store.Payments().GetByInvoice(ctx, inv.ID)
	if err != nil {
		return Context{}, err
	}
	c.Payments = payments

	notes, err := store.PaymentNotes().GetAll(ctx, storage.ListOptions{})
	if err != nil {
		return Context{}, err
	}
	c.Notes = notes

	creditNotes, err := store.CreditNotes().GetByInvoice(ctx, inv.ID)
	if err != nil {
		return Context{}, err
	}

	balance := inv.TotalAmount
	for i := range payments {
		balance = balance.Sub(payments[i].Amount)
	}
	for i := range creditNotes {
		balance = balance.Sub(creditNotes[i].Amount)
	}
	c.Balance = balance
	return c, nil
}
