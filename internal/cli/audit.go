package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbardeau/factura/pkg/models"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show audit entries, newest first",
	RunE:  runAuditList,
}

func init() {
	f := auditListCmd.Flags()
	f.String("invoice", "", "restrict to one invoice (number or id)")
	f.Int("limit", 50, "maximum rows")

	auditCmd.AddCommand(auditListCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	var entries []models.AuditLogEntry
	if ref := mustString(cmd, "invoice"); ref != "" {
		inv, err := a.lifecycle.ResolveInvoice(ctx, ref)
		if err != nil {
			return err
		}
		if entries, err = a.audit.InvoiceTrail(ctx, inv.ID); err != nil {
			return err
		}
	} else {
		limit, _ := cmd.Flags().GetInt("limit")
		if entries, err = a.audit.List(ctx, limit); err != nil {
			return err
		}
	}

	if jsonOutput(cmd) {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No audit entries found.")
		return nil
	}
	w := newTable()
	fmt.Fprintln(w, "TIMESTAMP\tINVOICE\tKIND\tACTOR\tDETAIL")
	for i := range entries {
		e := &entries[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Format(time.RFC3339), e.InvoiceNumber, e.Kind, e.Actor, e.Detail)
	}
	return w.Flush()
}
