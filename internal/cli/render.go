package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mbardeau/factura/pkg/render"
	"github.com/mbardeau/factura/pkg/ubl"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render invoices to documents",
}

var renderHTMLCmd = &cobra.Command{
	Use:   "html INVOICE",
	Short: "Render an invoice as a standalone HTML document",
	Example: `  factura render html INV-2025-001
  factura render html INV-2025-001 --out - > invoice.html`,
	Args: cobra.ExactArgs(1),
	RunE: runRenderHTML,
}

var renderUBLCmd = &cobra.Command{
	Use:   "ubl INVOICE",
	Short: "Render an invoice as a UBL 2.1 XML document",
	Args:  cobra.ExactArgs(1),
	RunE:  runRenderUBL,
}

func init() {
	renderHTMLCmd.Flags().String("out", "", `output file, "-" for stdout (default {output-dir}/{number}.html)`)
	renderHTMLCmd.Flags().String("template-dir", "", "directory with a custom invoice.html.tmpl")
	renderUBLCmd.Flags().String("out", "", `output file, "-" for stdout (default {output-dir}/{number}.xml)`)

	renderCmd.AddCommand(renderHTMLCmd, renderUBLCmd)
	rootCmd.AddCommand(renderCmd)
}

// writeDocument resolves the destination and writes the rendered bytes.
// "-" streams to stdout so output can be piped.
func writeDocument(a *app, out, defaultName string, data []byte) error {
	if out == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if out == "" {
		out = filepath.Join(a.cfg.OutputDir, defaultName)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	fmt.Printf("✓ Wrote %s\n", out)
	return nil
}

func runRenderHTML(cmd *cobra.Command, args []string) error {
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
	rctx, err := render.BuildContext(ctx, a.store, inv)
	if err != nil {
		return err
	}
	dir, _ := cmd.Flags().GetString("template-dir")
	data, err := render.NewHTMLRenderer(dir).Render(rctx)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")
	return writeDocument(a, out, safeFileName(inv.Number)+".html", data)
}

func runRenderUBL(cmd *cobra.Command, args []string) error {
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
	rctx, err := render.BuildContext(ctx, a.store, inv)
	if err != nil {
		return err
	}
	data, err := ubl.Generate(inv, rctx.Company)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")
	return writeDocument(a, out, safeFileName(inv.Number)+".xml", data)
}

// safeFileName keeps invoice numbers usable as file names even if a
// custom prefix sneaks in a path separator.
func safeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, s)
}
