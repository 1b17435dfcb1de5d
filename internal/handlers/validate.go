package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbardeau/factura/internal/httpx"
	"github.com/mbardeau/factura/pkg/ubl"
)

// maxDocumentSize bounds the validation request body (1 MiB).
const maxDocumentSize = 1 << 20

// ValidateHandler runs the UBL checks over a posted document.
type ValidateHandler struct{}

func NewValidateHandler() *ValidateHandler { return &ValidateHandler{} }

func (h *ValidateHandler) MountRoutes(r chi.Router) {
	r.Post("/ubl", h.UBL)
}

// UBL: POST /api/validate/ubl with the XML document as the body.
// The report is returned with 200 whether or not the document is
// valid; the verdict lives in the body.
func (h *ValidateHandler) UBL(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "unreadable_body", nil)
		return
	}
	if len(data) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "empty_body", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, ubl.Validate(data))
}
