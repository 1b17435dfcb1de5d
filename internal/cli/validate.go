package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mbardeau/factura/pkg/ubl"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate generated documents",
}

var validateUBLCmd = &cobra.Command{
	Use:   "ubl FILE",
	Short: "Check a UBL 2.1 invoice document",
	Long: `Check a UBL 2.1 invoice document for structural problems.

The check covers well-formed XML, the Invoice-2 root element and the
mandatory invoice fields. It is not a full schema validation.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidateUBL,
}

func init() {
	validateCmd.AddCommand(validateUBLCmd)
	rootCmd.AddCommand(validateCmd)
}

// Validation does not need a backend, so this command never opens one.
func runValidateUBL(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	report := ubl.Validate(data)

	if jsonOutput(cmd) {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		for _, msg := range report.Messages {
			fmt.Printf("%-8s %s\n", levelTag(msg.Level), msg.Text)
		}
	}
	if !report.Valid {
		return errors.New("document is not a valid UBL invoice")
	}
	if !jsonOutput(cmd) {
		fmt.Println("✓ Document is a valid UBL invoice")
	}
	return nil
}

func levelTag(level ubl.Level) string {
	switch level {
	case ubl.LevelError:
		return "[error]"
	case ubl.LevelWarning:
		return "[warn]"
	case ubl.LevelSuccess:
		return "[ok]"
	default:
		return "[info]"
	}
}
