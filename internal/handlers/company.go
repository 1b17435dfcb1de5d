package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mbardeau/factura/internal/httpx"
	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type CompanyHandler struct {
	store    storage.Store
	validate *validator.Validate
}

func NewCompanyHandler(store storage.Store) *CompanyHandler {
	return &CompanyHandler{store: store, validate: newValidator()}
}

func (h *CompanyHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/default", h.Default)
	r.Get("/{id}", h.Details)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/default", h.SetDefault)
}

type companyRequest struct {
	Name      string `json:"name" validate:"required"`
	Address   string `json:"address"`
	TaxID     string `json:"tax_id"`
	Email     string `json:"email" validate:"omitempty,email"`
	IBAN      string `json:"iban"`
	IsDefault bool   `json:"is_default"`
}

func (req companyRequest) apply(c *models.Company) {
	c.Name = req.Name
	c.Address = req.Address
	c.TaxID = req.TaxID
	c.Email = req.Email
	c.IBAN = req.IBAN
	c.IsDefault = req.IsDefault
}

// List: GET /api/companies
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	companies, err := h.store.Companies().GetAll(r.Context(), opts)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":  companies,
		"count":  len(companies),
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// Create: POST /api/companies. The first company becomes the default
// regardless of the flag.
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fieldErrors(err))
		return
	}
	var company models.Company
	req.apply(&company)
	created, err := h.store.Companies().Create(r.Context(), &company)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// Default: GET /api/companies/default
func (h *CompanyHandler) Default(w http.ResponseWriter, r *http.Request) {
	company, err := h.store.Companies().GetDefault(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

// Details: GET /api/companies/{id}
func (h *CompanyHandler) Details(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	company, err := h.store.Companies().GetByID(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

// Update: PUT /api/companies/{id}
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req companyRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fieldErrors(err))
		return
	}

	company, err := h.store.Companies().GetByID(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	req.apply(company)
	updated, err := h.store.Companies().Update(r.Context(), company)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// SetDefault: POST /api/companies/{id}/default
func (h *CompanyHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.store.Companies().SetDefault(r.Context(), id); err != nil {
		httpx.Error(w, err)
		return
	}
	company, err := h.store.Companies().GetByID(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}
