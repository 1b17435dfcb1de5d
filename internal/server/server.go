// Package server assembles the HTTP surface: the chi router, the
// middleware chain and the graceful-shutdown runner. Every endpoint is
// a thin adapter over the same services the CLI and the library use.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/mbardeau/factura/internal/handlers"
	"github.com/mbardeau/factura/internal/httpx"
	"github.com/mbardeau/factura/pkg/config"
	"github.com/mbardeau/factura/pkg/core"
	"github.com/mbardeau/factura/pkg/render"
	"github.com/mbardeau/factura/pkg/storage"
)

// Services bundles the wired application services the router mounts.
type Services struct {
	Store     storage.Store
	Lifecycle *core.LifecycleService
	Credit    *core.CreditService
	Audit     *core.AuditService
	Renderer  render.Renderer
}

// New constructs the root handler with all routes and middleware.
func New(svc Services, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(RequestID)
	r.Use(RequestLogger(log))
	r.Use(chimw.Recoverer)

	// Liveness never touches storage; readiness pings it.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Store.Ping(r.Context()); err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/invoices", handlers.NewInvoiceHandler(svc.Store, svc.Lifecycle, svc.Audit, svc.Renderer, log).MountRoutes)
		api.Route("/credit-notes", handlers.NewCreditNoteHandler(svc.Store, svc.Credit, svc.Lifecycle).MountRoutes)
		api.Route("/clients", handlers.NewClientHandler(svc.Store).MountRoutes)
		api.Route("/products", handlers.NewProductHandler(svc.Store).MountRoutes)
		api.Route("/companies", handlers.NewCompanyHandler(svc.Store).MountRoutes)
		api.Route("/payment-notes", handlers.NewPaymentNoteHandler(svc.Store).MountRoutes)
		api.Route("/audit", handlers.NewAuditHandler(svc.Audit).MountRoutes)
		api.Route("/validate", handlers.NewValidateHandler().MountRoutes)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})

	return r
}

// Run serves handler until SIGINT/SIGTERM, then shuts down gracefully
// within the configured timeout.
func Run(cfg config.Settings, handler http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("backend", cfg.Backend).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
