package cli

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Record and list payments",
}

var paymentsAddCmd = &cobra.Command{
	Use:   "add INVOICE",
	Short: "Record a payment against an invoice",
	Long: `Record a payment against a SENT or PAID invoice. The payment that
brings the paid total to exactly the invoice total moves a SENT
invoice to PAID. Overshooting the balance is rejected, never clamped.`,
	Args: cobra.ExactArgs(1),
	RunE: runPaymentsAdd,
}

var paymentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List payments, optionally for one invoice or a date range",
	RunE:  runPaymentsList,
}

func init() {
	paymentsAddCmd.Flags().String("amount", "", "payment amount (required)")
	paymentsAddCmd.Flags().String("date", "", "payment date (YYYY-MM-DD, default today)")
	paymentsAddCmd.Flags().String("reference", "", "payment reference")
	_ = paymentsAddCmd.MarkFlagRequired("amount")

	paymentsListCmd.Flags().String("invoice", "", "only payments of this invoice (number or id)")
	paymentsListCmd.Flags().String("from", "", "start of date range (YYYY-MM-DD)")
	paymentsListCmd.Flags().String("to", "", "end of date range (YYYY-MM-DD)")
	paymentsListCmd.Flags().Int("limit", 50, "maximum rows")

	paymentsCmd.AddCommand(paymentsAddCmd, paymentsListCmd)
	rootCmd.AddCommand(paymentsCmd)
}

func runPaymentsAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	inv, err := a.lifecycle.ResolveInvoice(ctx, args[0])
	if err != nil {
		return err
	}

	amountStr, _ := cmd.Flags().GetString("amount")
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("invalid amount %q", amountStr)
	}

	var date time.Time
	if v, _ := cmd.Flags().GetString("date"); v != "" {
		if date, err = parseDate(v); err != nil {
			return err
		}
	}
	reference, _ := cmd.Flags().GetString("reference")

	payment, err := a.lifecycle.AddPayment(ctx, inv.ID, amount, date, reference, actor)
	if err != nil {
		return err
	}

	settled, err := a.store.Invoices().GetByID(ctx, inv.ID)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(map[string]any{"payment": payment, "invoice": settled})
	}
	fmt.Printf("✓ Recorded payment of %s on %s\n", money(payment.Amount), settled.Number)
	fmt.Printf("  Status: %s\n", settled.Status)
	return nil
}

func runPaymentsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	var payments []models.Payment
	switch {
	case mustString(cmd, "invoice") != "":
		inv, err := a.lifecycle.ResolveInvoice(ctx, mustString(cmd, "invoice"))
		if err != nil {
			return err
		}
		payments, err = a.store.Payments().GetByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
	case mustString(cmd, "from") != "" || mustString(cmd, "to") != "":
		from := time.Time{}
		to := time.Now().UTC()
		if v := mustString(cmd, "from"); v != "" {
			if from, err = parseDate(v); err != nil {
				return err
			}
		}
		if v := mustString(cmd, "to"); v != "" {
			if to, err = parseDate(v); err != nil {
				return err
			}
		}
		payments, err = a.store.Payments().GetByDateRange(ctx, from, to)
		if err != nil {
			return err
		}
	default:
		limit, _ := cmd.Flags().GetInt("limit")
		payments, err = a.store.Payments().GetAll(ctx, storage.ListOptions{Limit: limit})
		if err != nil {
			return err
		}
	}

	if jsonOutput(cmd) {
		return printJSON(payments)
	}
	if len(payments) == 0 {
		fmt.Println("No payments found.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tINVOICE\tDATE\tAMOUNT\tREFERENCE")
	for i := range payments {
		p := &payments[i]
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", p.ID, p.InvoiceID, day(p.Date), money(p.Amount), p.Reference)
	}
	return w.Flush()
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
