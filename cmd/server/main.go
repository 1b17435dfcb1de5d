// Command server runs the invoicing HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/mbardeau/factura/internal/logger"
	"github.com/mbardeau/factura/internal/server"
	"github.com/mbardeau/factura/pkg/config"
	"github.com/mbardeau/factura/pkg/core"
	"github.com/mbardeau/factura/pkg/render"
	"github.com/mbardeau/factura/pkg/storage"

	// Register the storage backends.
	_ "github.com/mbardeau/factura/pkg/storage/files"
	_ "github.com/mbardeau/factura/pkg/storage/memory"
	_ "github.com/mbardeau/factura/pkg/storage/sqldb"
)

func main() {
	// A missing .env file is not an error, the environment wins anyway.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log)

	store, err := storage.Open(cfg, logger.WithComponent("storage"))
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend).Msg("open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("close storage")
		}
	}()

	numbering := core.NewNumberingService(store.Sequences())
	audit := core.NewAuditService(store.AuditLogs(), logger.WithComponent("audit"))
	lifecycle := core.NewLifecycleService(store, numbering, audit, cfg.DefaultDueDays, logger.WithComponent("lifecycle"))
	credit := core.NewCreditService(store, numbering, lifecycle, logger.WithComponent("credit"))

	handler := server.New(server.Services{
		Store:     store,
		Lifecycle: lifecycle,
		Credit:    credit,
		Audit:     audit,
		Renderer:  render.NewHTMLRenderer(""),
	}, logger.WithComponent("http"))

	if err := server.Run(cfg, handler, logger.WithComponent("server")); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
