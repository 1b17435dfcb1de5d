package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mbardeau/factura/internal/httpx"
	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type PaymentNoteHandler struct {
	store    storage.Store
	validate *validator.Validate
}

func NewPaymentNoteHandler(store storage.Store) *PaymentNoteHandler {
	return &PaymentNoteHandler{store: store, validate: newValidator()}
}

func (h *PaymentNoteHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Details)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type paymentNoteRequest struct {
	Label string `json:"label" validate:"required"`
	Text  string `json:"text" validate:"required"`
}

// List: GET /api/payment-notes
func (h *PaymentNoteHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	notes, err := h.store.PaymentNotes().GetAll(r.Context(), opts)
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

// Create: POST /api/payment-notes
func (h *PaymentNoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req paymentNoteRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fieldErrors(err))
		return
	}
	created, err := h.store.PaymentNotes().Create(r.Context(), &models.PaymentNote{
		Label: req.Label,
		Text:  req.Text,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// Details: GET /api/payment-notes/{id}. Accepts an id or a label.
func (h *PaymentNoteHandler) Details(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "id")
	if id, err := parseID(ref); err == nil {
		note, err := h.store.PaymentNotes().GetByID(r.Context(), id)
		if err != nil {
			httpx.Error(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, note)
		return
	}
	note, err := h.store.PaymentNotes().GetByLabel(r.Context(), ref)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, note)
}

// Update: PUT /api/payment-notes/{id}
func (h *PaymentNoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req paymentNoteRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fieldErrors(err))
		return
	}

	note, err := h.store.PaymentNotes().GetByID(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	note.Label = req.Label
	note.Text = req.Text
	updated, err := h.store.PaymentNotes().Update(r.Context(), note)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Delete: DELETE /api/payment-notes/{id}
func (h *PaymentNoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.store.PaymentNotes().Delete(r.Context(), id); err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
