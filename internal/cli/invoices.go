package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mbardeau/factura/pkg/core"
	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Create and manage invoices",
}

var invoicesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a DRAFT invoice",
	Long: `Create a DRAFT invoice for a client.

Lines are given as --line "DESCRIPTION:QTY:UNIT_PRICE" (repeatable) or
--product "CODE:QTY" to pull description and price from the catalog.
--client takes a client id or name; an unknown name creates the client.`,
	Example: `  factura invoices create --client "ACME Corp" --line "Consulting:10:85.00"
  factura invoices create --client 3 --product "SRV-001:2" --due-date 2026-10-01`,
	RunE: runInvoicesCreate,
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
	RunE:  runInvoicesList,
}

var invoicesDetailsCmd = &cobra.Command{
	Use:   "details NUMBER",
	Short: "Show one invoice with lines, payments and balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicesDetails,
}

var invoicesSendCmd = &cobra.Command{
	Use:   "send NUMBER",
	Short: "Move a DRAFT invoice to SENT",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunE(models.StatusSent),
}

var invoicesCancelCmd = &cobra.Command{
	Use:   "cancel NUMBER",
	Short: "Cancel a DRAFT invoice, or a SENT invoice without payments",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunE(models.StatusCancelled),
}

var invoicesRefundCmd = &cobra.Command{
	Use:   "refund NUMBER",
	Short: "Move a PAID invoice to REFUNDED",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunE(models.StatusRefunded),
}

var invoicesPayCmd = &cobra.Command{
	Use:   "pay NUMBER",
	Short: "Record a payment; omit --amount to settle the balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicesPay,
}

var invoicesCloneCmd = &cobra.Command{
	Use:   "clone NUMBER",
	Short: "Copy an invoice into a fresh DRAFT with a new number",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicesClone,
}

var invoicesOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List unpaid invoices past their due date",
	RunE:  runInvoicesOverdue,
}

var invoicesSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show counts per status and the total amount",
	RunE:  runInvoicesSummary,
}

func init() {
	f := invoicesCreateCmd.Flags()
	f.String("client", "", "client id or name (required)")
	f.String("client-address", "", "address when creating the client on the fly")
	f.String("client-email", "", "email when creating the client on the fly")
	f.String("client-tax-id", "", "tax id when creating the client on the fly")
	f.String("client-phone", "", "phone when creating the client on the fly")
	f.String("issue-date", "", "issue date (YYYY-MM-DD, default today)")
	f.String("due-date", "", "due date (YYYY-MM-DD, default issue + terms)")
	f.StringArray("line", nil, `invoice line "DESCRIPTION:QTY:UNIT_PRICE" (repeatable)`)
	f.StringArray("product", nil, `catalog line "CODE:QTY" (repeatable)`)
	_ = invoicesCreateCmd.MarkFlagRequired("client")

	invoicesListCmd.Flags().Int("limit", 50, "maximum rows")
	invoicesListCmd.Flags().Int("offset", 0, "rows to skip")
	invoicesListCmd.Flags().String("search", "", "match number or client fields")

	invoicesPayCmd.Flags().String("amount", "", "payment amount (default: outstanding balance)")
	invoicesPayCmd.Flags().String("date", "", "payment date (YYYY-MM-DD, default today)")
	invoicesPayCmd.Flags().String("reference", "", "payment reference")

	invoicesCmd.AddCommand(
		invoicesCreateCmd,
		invoicesListCmd,
		invoicesDetailsCmd,
		invoicesSendCmd,
		invoicesCancelCmd,
		invoicesRefundCmd,
		invoicesPayCmd,
		invoicesCloneCmd,
		invoicesOverdueCmd,
		invoicesSummaryCmd,
	)
	rootCmd.AddCommand(invoicesCmd)
}

// resolveClient finds a client by id or exact (case-insensitive) name,
// creating it from the flags when the name is unknown.
func resolveClient(cmd *cobra.Command, a *app, ref string) (*models.Client, error) {
	ctx := cmd.Context()
	if id, err := parseUintArg(ref); err == nil {
		return a.store.Clients().GetByID(ctx, id)
	}

	matches, err := a.store.Clients().Search(ctx, ref)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		if strings.EqualFold(matches[i].Name, ref) {
			return &matches[i], nil
		}
	}

	address, _ := cmd.Flags().GetString("client-address")
	email, _ := cmd.Flags().GetString("client-email")
	taxID, _ := cmd.Flags().GetString("client-tax-id")
	phone, _ := cmd.Flags().GetString("client-phone")
	client, err := a.store.Clients().Create(ctx, &models.Client{
		Name:    ref,
		Address: address,
		Email:   email,
		TaxID:   taxID,
		Phone:   phone,
	})
	if err != nil {
		return nil, err
	}
	fmt.Printf("✓ Created client %s (id %d)\n", client.Name, client.ID)
	return client, nil
}

func runInvoicesCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	clientRef, _ := cmd.Flags().GetString("client")
	client, err := resolveClient(cmd, a, clientRef)
	if err != nil {
		return err
	}

	draft := core.InvoiceDraft{ClientID: client.ID}
	if v, _ := cmd.Flags().GetString("issue-date"); v != "" {
		if draft.IssueDate, err = parseDate(v); err != nil {
			return err
		}
	}
	if v, _ := cmd.Flags().GetString("due-date"); v != "" {
		if draft.DueDate, err = parseDate(v); err != nil {
			return err
		}
	}

	lineSpecs, _ := cmd.Flags().GetStringArray("line")
	for _, spec := range lineSpecs {
		desc, qty, price, err := parseLineSpec(spec)
		if err != nil {
			return err
		}
		draft.Lines = append(draft.Lines, models.InvoiceLine{
			Description: desc,
			Quantity:    qty,
			UnitPrice:   price,
		})
	}

	productSpecs, _ := cmd.Flags().GetStringArray("product")
	for _, spec := range productSpecs {
		line, err := lineFromProduct(cmd, a, spec)
		if err != nil {
			return err
		}
		draft.Lines = append(draft.Lines, line)
	}

	inv, err := a.lifecycle.CreateInvoice(ctx, draft, actor)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(inv)
	}
	fmt.Printf("✓ Created invoice %s\n", inv.Number)
	fmt.Printf("  Client: %s\n", inv.ClientName)
	fmt.Printf("  Due:    %s\n", day(inv.DueDate))
	fmt.Printf("  Total:  %s\n", money(inv.TotalAmount))
	return nil
}

// lineFromProduct expands "CODE:QTY" using the catalog.
func lineFromProduct(cmd *cobra.Command, a *app, spec string) (models.InvoiceLine, error) {
	code, qtyStr, ok := cutLast(spec, ":")
	if !ok {
		return models.InvoiceLine{}, fmt.Errorf("invalid product %q (want CODE:QTY)", spec)
	}
	qty, err := decimal.NewFromString(qtyStr)
	if err != nil {
		return models.InvoiceLine{}, fmt.Errorf("invalid quantity in product %q", spec)
	}
	product, err := a.store.Products().GetByCode(cmd.Context(), code)
	if err != nil {
		return models.InvoiceLine{}, err
	}
	desc := product.Name
	if product.Description != "" {
		desc = product.Description
	}
	return models.InvoiceLine{
		Description: desc,
		Quantity:    qty,
		UnitPrice:   product.UnitPrice,
	}, nil
}

func runInvoicesList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	var invoices []models.Invoice
	if q, _ := cmd.Flags().GetString("search"); q != "" {
		invoices, err = a.store.Invoices().Search(ctx, q)
	} else {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		invoices, err = a.store.Invoices().GetAll(ctx, storage.ListOptions{Limit: limit, Offset: offset})
	}
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(invoices)
	}
	if len(invoices) == 0 {
		fmt.Println("No invoices found.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "NUMBER\tDATE\tCLIENT\tTOTAL\tSTATUS")
	for i := range invoices {
		inv := &invoices[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			inv.Number, day(inv.IssueDate), inv.ClientName, money(inv.TotalAmount), inv.Status)
	}
	return w.Flush()
}

func runInvoicesDetails(cmd *cobra.Command, args []string) error {
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
	outstanding, err := a.lifecycle.OutstandingBalance(ctx, inv)
	if err != nil {
		return err
	}
	payments, err := a.store.Payments().GetByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(map[string]any{
			"invoice":     inv,
			"payments":    payments,
			"outstanding": outstanding,
		})
	}

	fmt.Printf("Invoice %s\n", inv.Number)
	fmt.Printf("  Status: %s\n", inv.Status)
	fmt.Printf("  Client: %s\n", inv.ClientName)
	fmt.Printf("  Issued: %s   Due: %s\n", day(inv.IssueDate), day(inv.DueDate))
	fmt.Println()

	w := newTable()
	fmt.Fprintln(w, "  DESCRIPTION\tQTY\tPRICE\tAMOUNT")
	for i := range inv.Lines {
		line := &inv.Lines[i]
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
			line.Description, line.Quantity.String(), money(line.UnitPrice), money(line.Amount))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n  Total:       %s\n", money(inv.TotalAmount))
	if len(payments) > 0 {
		for i := range payments {
			p := &payments[i]
			ref := ""
			if p.Reference != "" {
				ref = " (" + p.Reference + ")"
			}
			fmt.Printf("  Payment:     %s on %s%s\n", money(p.Amount), day(p.Date), ref)
		}
	}
	fmt.Printf("  Outstanding: %s\n", money(outstanding))
	return nil
}

// transitionRunE builds the RunE for one lifecycle edge.
func transitionRunE(target models.InvoiceStatus) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
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
		moved, err := a.lifecycle.Transition(ctx, inv.ID, target, actor)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(moved)
		}
		fmt.Printf("✓ Invoice %s is now %s\n", moved.Number, moved.Status)
		return nil
	}
}

func runInvoicesPay(cmd *cobra.Command, args []string) error {
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
	} else {
		if amount, err = a.lifecycle.OutstandingBalance(ctx, inv); err != nil {
			return err
		}
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

func runInvoicesClone(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	src, err := a.lifecycle.ResolveInvoice(ctx, args[0])
	if err != nil {
		return err
	}
	dup, err := a.lifecycle.CloneInvoice(ctx, src.ID, actor)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(dup)
	}
	fmt.Printf("✓ Cloned %s -> %s\n", src.Number, dup.Number)
	fmt.Printf("  Total: %s\n", money(dup.TotalAmount))
	return nil
}

func runInvoicesOverdue(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	invoices, err := a.store.Invoices().GetOverdue(cmd.Context(), time.Now().UTC())
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(invoices)
	}
	if len(invoices) == 0 {
		fmt.Println("No overdue invoices.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "NUMBER\tDUE\tCLIENT\tTOTAL\tSTATUS")
	for i := range invoices {
		inv := &invoices[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			inv.Number, day(inv.DueDate), inv.ClientName, money(inv.TotalAmount), inv.Status)
	}
	return w.Flush()
}

func runInvoicesSummary(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.store.Invoices().Summary(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(summary)
	}

	fmt.Println("Invoice summary")
	fmt.Printf("  Total invoices: %d\n", summary.TotalCount)
	fmt.Printf("  Total amount:   %s\n", money(summary.TotalAmount))
	for _, status := range models.AllStatuses() {
		fmt.Printf("  %-10s %d\n", status.String()+":", summary.ByStatus[status])
	}
	return nil
}

// parseUintArg parses a positional id.
func parseUintArg(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, errors.New("not a numeric id")
	}
	return uint(n), nil
}
