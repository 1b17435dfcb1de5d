package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mbardeau/factura/internal/httpx"
	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type ClientHandler struct {
	store    storage.Store
	validate *validator.Validate
}

func NewClientHandler(store storage.Store) *ClientHandler {
	return &ClientHandler{store: store, validate: newValidator()}
}

func (h *ClientHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Details)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type clientRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	TaxID   string `json:"tax_id"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
}

func (req clientRequest) apply(c *models.Client) {
	c.Name = req.Name
	c.Address = req.Address
	c.TaxID = req.TaxID
	c.Email = req.Email
	c.Phone = req.Phone
}

// List: GET /api/clients?q=
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	var (
		clients []models.Client
		err     error
	)
	if q != "" {
		clients, err = h.store.Clients().Search(r.Context(), q)
	} else {
		clients, err = h.store.Clients().GetAll(r.Context(), opts)
	}
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":  clients,
		"count":  len(clients),
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// Create: POST /api/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fieldErrors(err))
		return
	}
	var client models.Client
	req.apply(&client)
	created, err := h.store.Clients().Create(r.Context(), &client)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// Details: GET /api/clients/{id}
func (h *ClientHandler) Details(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	client, err := h.store.Clients().GetByID(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Update: PUT /api/clients/{id}. Editing a client never rewrites the
// snapshots already copied onto invoices.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req clientRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fieldErrors(err))
		return
	}

	client, err := h.store.Clients().GetByID(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	req.apply(client)
	updated, err := h.store.Clients().Update(r.Context(), client)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Delete: DELETE /api/clients/{id}. Refused while invoices reference
// the client, so history keeps resolving.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	count, err := h.store.Invoices().CountByClient(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if count > 0 {
		httpx.JSONError(w, http.StatusConflict, "client_has_invoices", map[string]int64{"invoices": count})
		return
	}
	if err := h.store.Clients().Delete(r.Context(), id); err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
