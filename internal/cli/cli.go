// Package cli implements the factura command tree. Commands are thin
// adapters over the same services the HTTP API mounts; every domain
// rule stays in pkg/core.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mbardeau/factura/internal/logger"
	"github.com/mbardeau/factura/pkg/config"
	"github.com/mbardeau/factura/pkg/core"
	"github.com/mbardeau/factura/pkg/storage"

	// Register every storage backend.
	_ "github.com/mbardeau/factura/pkg/storage/files"
	_ "github.com/mbardeau/factura/pkg/storage/memory"
	_ "github.com/mbardeau/factura/pkg/storage/sqldb"
)

// Version is stamped by the build; "dev" otherwise.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "factura",
	Short: "Invoice lifecycle management",
	Long: `factura manages invoices, credit notes and payments over a strict
lifecycle (DRAFT, SENT, PAID, CANCELLED, REFUNDED, CREDITED) with
sequential document numbers and an append-only audit trail.

The same behavior is available as a Go library and over HTTP; the
storage backend (memory, flat files or SQL) is selected by flags or
FACTURA_* environment variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("backend", "", "storage backend: memory|files|sqlite|postgres|mysql")
	pf.String("root-dir", "", "data directory for the files backend and the sqlite fallback")
	pf.String("file-format", "", "write format of the files backend: json|yaml|xml|md")
	pf.String("database-url", "", "SQL connection string")
	pf.String("output-dir", "", "directory receiving rendered documents")
	pf.String("log-level", "", "log level: debug|info|warn|error")
	pf.Bool("json", false, "print results as JSON")
}

// Execute runs the command tree. Domain errors exit 1 with the
// taxonomy message on stderr.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the opened store and the services for one command run.
type app struct {
	cfg       config.Settings
	store     storage.Store
	lifecycle *core.LifecycleService
	credit    *core.CreditService
	audit     *core.AuditService
	log       zerolog.Logger
}

// openApp resolves settings (environment first, then flag overrides),
// opens the selected backend and wires the services.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.Log)

	store, err := storage.Open(cfg, logger.WithComponent("storage"))
	if err != nil {
		return nil, err
	}

	numbering := core.NewNumberingService(store.Sequences())
	audit := core.NewAuditService(store.AuditLogs(), logger.WithComponent("audit"))
	lifecycle := core.NewLifecycleService(store, numbering, audit, cfg.DefaultDueDays, logger.WithComponent("lifecycle"))
	credit := core.NewCreditService(store, numbering, lifecycle, logger.WithComponent("credit"))

	return &app{
		cfg:       cfg,
		store:     store,
		lifecycle: lifecycle,
		credit:    credit,
		audit:     audit,
		log:       logger.WithComponent("cli"),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("store close failed")
	}
}

// loadSettings reads the environment and applies the global flags on
// top, so `--backend files` wins over FACTURA_BACKEND.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Settings{}, err
	}
	flags := cmd.Flags()
	if v, _ := flags.GetString("backend"); v != "" {
		cfg.Backend = v
	}
	if v, _ := flags.GetString("root-dir"); v != "" {
		cfg.RootDir = v
	}
	if v, _ := flags.GetString("file-format"); v != "" {
		cfg.FileFormat = v
	}
	if v, _ := flags.GetString("database-url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v, _ := flags.GetString("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return config.Settings{}, err
	}
	return cfg, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// actor is the audit identity of CLI mutations.
const actor = "cli"
