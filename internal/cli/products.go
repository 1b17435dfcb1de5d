package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage the product catalog",
}

var productsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Add a product to the catalog",
	RunE:  runProductsCreate,
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	RunE:  runProductsList,
}

var productsDeleteCmd = &cobra.Command{
	Use:   "delete CODE",
	Short: "Remove a product from the catalog",
	Long: `Remove a product from the catalog by code or numeric id.

Invoice lines keep the description and price they were created with,
so deleting a product never alters existing documents.`,
	Args: cobra.ExactArgs(1),
	RunE: runProductsDelete,
}

func init() {
	f := productsCreateCmd.Flags()
	f.String("code", "", "unique product code (required)")
	f.String("name", "", "product name (required)")
	f.String("description", "", "description used on invoice lines")
	f.String("price", "0", "unit price")
	_ = productsCreateCmd.MarkFlagRequired("code")
	_ = productsCreateCmd.MarkFlagRequired("name")

	productsListCmd.Flags().Int("limit", 50, "maximum rows")

	productsCmd.AddCommand(productsCreateCmd, productsListCmd, productsDeleteCmd)
	rootCmd.AddCommand(productsCmd)
}

func runProductsCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	price, err := decimal.NewFromString(mustString(cmd, "price"))
	if err != nil {
		return fmt.Errorf("invalid price %q", mustString(cmd, "price"))
	}
	product, err := a.store.Products().Create(cmd.Context(), &models.Product{
		Code:        mustString(cmd, "code"),
		Name:        mustString(cmd, "name"),
		Description: mustString(cmd, "description"),
		UnitPrice:   price,
	})
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(product)
	}
	fmt.Printf("✓ Created product %s (%s)\n", product.Code, product.Name)
	return nil
}

func runProductsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	products, err := a.store.Products().GetAll(cmd.Context(), storage.ListOptions{Limit: limit})
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(products)
	}
	if len(products) == 0 {
		fmt.Println("No products found.")
		return nil
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tCODE\tNAME\tUNIT PRICE")
	for i := range products {
		p := &products[i]
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Code, p.Name, money(p.UnitPrice))
	}
	return w.Flush()
}

func runProductsDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	product, err := a.store.Products().GetByCode(ctx, args[0])
	if err != nil {
		id, perr := parseUintArg(args[0])
		if perr != nil {
			return err
		}
		if product, err = a.store.Products().GetByID(ctx, id); err != nil {
			return err
		}
	}
	if err := a.store.Products().Delete(ctx, product.ID); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted product %s\n", product.Code)
	return nil
}
