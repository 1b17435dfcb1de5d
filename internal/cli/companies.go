package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Manage issuing companies",
}

var companiesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an issuing company",
	RunE:  runCompaniesCreate,
}

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issuing companies",
	RunE:  runCompaniesList,
}

var companiesSetDefaultCmd = &cobra.Command{
	Use:   "set-default ID",
	Short: "Mark a company as the default issuer",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompaniesSetDefault,
}

func init() {
	f := companiesCreateCmd.Flags()
	f.String("name", "", "company name (required)")
	f.String("address", "", "postal address")
	f.String("tax-id", "", "tax id")
	f.String("email", "", "email")
	f.String("iban", "", "bank account")
	f.Bool("default", false, "mark as the default issuer")
	_ = companiesCreateCmd.MarkFlagRequired("name")

	companiesCmd.AddCommand(companiesCreateCmd, companiesListCmd, companiesSetDefaultCmd)
	rootCmd.AddCommand(companiesCmd)
}

func runCompaniesCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	isDefault, _ := cmd.Flags().GetBool("default")
	company, err := a.store.Companies().Create(cmd.Context(), &models.Company{
		Name:      mustString(cmd, "name"),
		Address:   mustString(cmd, "address"),
		TaxID:     mustString(cmd, "tax-id"),
		Email:     mustString(cmd, "email"),
		IBAN:      mustString(cmd, "iban"),
		IsDefault: isDefault,
	})
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(company)
	}
	suffix := ""
	if company.IsDefault {
		suffix = " [default]"
	}
	fmt.Printf("✓ Created company %s (id %d)%s\n", company.Name, company.ID, suffix)
	return nil
}

func runCompaniesList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	companies, err := a.store.Companies().GetAll(cmd.Context(), storage.ListOptions{})
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(companies)
	}
	if len(companies) == 0 {
		fmt.Println("No companies found.")
		return nil
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tTAX ID\tIBAN\tDEFAULT")
	for i := range companies {
		c := &companies[i]
		def := ""
		if c.IsDefault {
			def = "✓"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.TaxID, c.IBAN, def)
	}
	return w.Flush()
}

func runCompaniesSetDefault(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	id, err := parseUintArg(args[0])
	if err != nil {
		return fmt.Errorf("invalid company id %q", args[0])
	}
	if err := a.store.Companies().SetDefault(ctx, id); err != nil {
		return err
	}
	company, err := a.store.Companies().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(company)
	}
	fmt.Printf("✓ %s is now the default issuer\n", company.Name)
	return nil
}
