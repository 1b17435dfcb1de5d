package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbardeau/factura/internal/httpx"
	"github.com/mbardeau/factura/pkg/core"
)

// AuditHandler reads the trail. There is deliberately no write route:
// entries are appended by the lifecycle only.
type AuditHandler struct {
	audit *core.AuditService
}

func NewAuditHandler(audit *core.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func (h *AuditHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// List: GET /api/audit?limit=
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	entries, err := h.audit.List(r.Context(), opts.Limit)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": entries, "count": len(entries)})
}
