package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

var paymentNotesCmd = &cobra.Command{
	Use:   "payment-notes",
	Short: "Manage reusable payment instruction notes",
}

var paymentNotesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a payment note",
	RunE:  runPaymentNotesCreate,
}

var paymentNotesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List payment notes",
	RunE:  runPaymentNotesList,
}

func init() {
	f := paymentNotesCreateCmd.Flags()
	f.String("label", "", "unique label (required)")
	f.String("text", "", "note text shown on rendered invoices (required)")
	_ = paymentNotesCreateCmd.MarkFlagRequired("label")
	_ = paymentNotesCreateCmd.MarkFlagRequired("text")

	paymentNotesCmd.AddCommand(paymentNotesCreateCmd, paymentNotesListCmd)
	rootCmd.AddCommand(paymentNotesCmd)
}

func runPaymentNotesCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	note, err := a.store.PaymentNotes().Create(cmd.Context(), &models.PaymentNote{
		Label: mustString(cmd, "label"),
		Text:  mustString(cmd, "text"),
	})
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(note)
	}
	fmt.Printf("✓ Created payment note %q\n", note.Label)
	return nil
}

func runPaymentNotesList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	notes, err := a.store.PaymentNotes().GetAll(cmd.Context(), storage.ListOptions{})
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(notes)
	}
	if len(notes) == 0 {
		fmt.Println("No payment notes found.")
		return nil
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tLABEL\tTEXT")
	for i := range notes {
		n := &notes[i]
		fmt.Fprintf(w, "%d\t%s\t%s\n", n.ID, n.Label, n.Text)
	}
	return w.Flush()
}
