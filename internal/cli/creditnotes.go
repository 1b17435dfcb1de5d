package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

var creditNotesCmd = &cobra.Command{
	Use:     "credit-notes",
	Aliases: []string{"cn"},
	Short:   "Issue and list credit notes",
}

var creditNotesCreateCmd = &cobra.Command{
	Use:   "create INVOICE",
	Short: "Credit a SENT or PAID invoice",
	Long: `Issue a credit note against a SENT or PAID invoice. This is the only
operation that moves an invoice to CREDITED. Omitting --amount credits
the full outstanding balance; crediting more than the outstanding
balance is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreditNotesCreate,
}

var creditNotesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credit notes",
	RunE:  runCreditNotesList,
}

func init() {
	creditNotesCreateCmd.Flags().String("amount", "", "credit amount (default: outstanding balance)")
	creditNotesCreateCmd.Flags().String("reason", "", "why the invoice is credited")

	creditNotesListCmd.Flags().Int("limit", 50, "maximum rows")
	creditNotesListCmd.Flags().String("invoice", "", "only notes for this invoice (number or id)")

	creditNotesCmd.AddCommand(creditNotesCreateCmd, creditNotesListCmd)
	rootCmd.AddCommand(creditNotesCmd)
}

func runCreditNotesCreate(cmd *cobra.Command, args []string) error {
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

	amount := decimal.Zero
	if v, _ := cmd.Flags().GetString("amount"); v != "" {
		if amount, err = decimal.NewFromString(v); err != nil {
			return fmt.Errorf("invalid amount %q", v)
		}
	}
	reason, _ := cmd.Flags().GetString("reason")

	note, err := a.credit.CreateCreditNote(ctx, inv.ID, amount, reason, actor)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(note)
	}
	fmt.Printf("✓ Issued credit note %s against %s\n", note.Number, inv.Number)
	fmt.Printf("  Amount: %s\n", money(note.Amount))
	return nil
}

func runCreditNotesList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	var notes []models.CreditNote
	if ref := mustString(cmd, "invoice"); ref != "" {
		inv, err := a.lifecycle.ResolveInvoice(ctx, ref)
		if err != nil {
			return err
		}
		notes, err = a.store.CreditNotes().GetByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
	} else {
		limit, _ := cmd.Flags().GetInt("limit")
		var err error
		notes, err = a.store.CreditNotes().GetAll(ctx, storage.ListOptions{Limit: limit})
		if err != nil {
			return err
		}
	}

	if jsonOutput(cmd) {
		return printJSON(notes)
	}
	if len(notes) == 0 {
		fmt.Println("No credit notes found.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "NUMBER\tINVOICE\tDATE\tAMOUNT\tREASON")
	for i := range notes {
		n := &notes[i]
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", n.Number, n.InvoiceID, day(n.IssueDate), money(n.Amount), n.Reason)
	}
	return w.Flush()
}
