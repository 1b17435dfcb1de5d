package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage clients",
}

var clientsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a client",
	RunE:  runClientsCreate,
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients",
	RunE:  runClientsList,
}

var clientsSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search clients by name, email or tax id",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientsSearch,
}

var clientsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a client without invoices",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientsDelete,
}

func init() {
	f := clientsCreateCmd.Flags()
	f.String("name", "", "client name (required)")
	f.String("address", "", "postal address")
	f.String("tax-id", "", "tax id")
	f.String("email", "", "email")
	f.String("phone", "", "phone")
	_ = clientsCreateCmd.MarkFlagRequired("name")

	clientsListCmd.Flags().Int("limit", 50, "maximum rows")

	clientsCmd.AddCommand(clientsCreateCmd, clientsListCmd, clientsSearchCmd, clientsDeleteCmd)
	rootCmd.AddCommand(clientsCmd)
}

func runClientsCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.store.Clients().Create(cmd.Context(), &models.Client{
		Name:    mustString(cmd, "name"),
		Address: mustString(cmd, "address"),
		TaxID:   mustString(cmd, "tax-id"),
		Email:   mustString(cmd, "email"),
		Phone:   mustString(cmd, "phone"),
	})
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(client)
	}
	fmt.Printf("✓ Created client %s (id %d)\n", client.Name, client.ID)
	return nil
}

func printClients(cmd *cobra.Command, clients []models.Client) error {
	if jsonOutput(cmd) {
		return printJSON(clients)
	}
	if len(clients) == 0 {
		fmt.Println("No clients found.")
		return nil
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tTAX ID\tPHONE")
	for i := range clients {
		c := &clients[i]
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Email, c.TaxID, c.Phone)
	}
	return w.Flush()
}

func runClientsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	clients, err := a.store.Clients().GetAll(cmd.Context(), storage.ListOptions{Limit: limit})
	if err != nil {
		return err
	}
	return printClients(cmd, clients)
}

func runClientsSearch(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	clients, err := a.store.Clients().Search(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printClients(cmd, clients)
}

func runClientsDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	id, err := parseUintArg(args[0])
	if err != nil {
		return fmt.Errorf("invalid client id %q", args[0])
	}
	count, err := a.store.Invoices().CountByClient(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("client %d has %d invoice(s); deletion would orphan their history", id, count)
	}
	if err := a.store.Clients().Delete(ctx, id); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted client %d\n", id)
	return nil
}
