package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mbardeau/factura/internal/httpx"
	"github.com/mbardeau/factura/pkg/core"
	"github.com/mbardeau/factura/pkg/storage"
)

// CreditNoteHandler serves the credit-note endpoints. Creation goes
// through the credit service, which is the only path that moves an
// invoice to CREDITED.
type CreditNoteHandler struct {
	store     storage.Store
	credit    *core.CreditService
	lifecycle *core.LifecycleService
	validate  *validator.Validate
}

func NewCreditNoteHandler(store storage.Store, credit *core.CreditService, lifecycle *core.LifecycleService) *CreditNoteHandler {
	return &CreditNoteHandler{
		store:     store,
		credit:    credit,
		lifecycle: lifecycle,
		validate:  newValidator(),
	}
}

func (h *CreditNoteHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{number}", h.Details)
}

type creditNoteRequest struct {
	Invoice string          `json:"invoice" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
}

// List: GET /api/credit-notes
func (h *CreditNoteHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	notes, err := h.store.CreditNotes().GetAll(r.Context(), opts)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":  notes,
		"count":  len(notes),
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// Create: POST /api/credit-notes. An omitted or zero amount credits
// the full outstanding balance.
func (h *CreditNoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req creditNoteRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fieldErrors(err))
		return
	}

	inv, err := h.lifecycle.ResolveInvoice(r.Context(), req.Invoice)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	note, err := h.credit.CreateCreditNote(r.Context(), inv.ID, req.Amount, req.Reason, actorFrom(r))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, note)
}

// Details: GET /api/credit-notes/{number}. Accepts a CN number or a
// numeric id, like the invoice lookups.
func (h *CreditNoteHandler) Details(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "number")
	note, err := h.store.CreditNotes().GetByNumber(r.Context(), ref)
	if err != nil {
		if id, idErr := parseID(ref); idErr == nil {
			if byID, byErr := h.store.CreditNotes().GetByID(r.Context(), id); byErr == nil {
				httpx.JSON(w, http.StatusOK, byID)
				return
			}
		}
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, note)
}
