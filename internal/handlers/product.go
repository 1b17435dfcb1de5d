package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mbardeau/factura/internal/httpx"
	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

type ProductHandler struct {
	store    storage.Store
	validate *validator.Validate
}

func NewProductHandler(store storage.Store) *ProductHandler {
	return &ProductHandler{store: store, validate: newValidator()}
}

func (h *ProductHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Details)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type productRequest struct {
	Code        string          `json:"code" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (req productRequest) apply(p *models.Product) {
	p.Code = req.Code
	p.Name = req.Name
	p.Description = req.Description
	p.UnitPrice = req.UnitPrice
}

// List: GET /api/products?q=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	var (
		products []models.Product
		err      error
	)
	if q != "" {
		products, err = h.store.Products().Search(r.Context(), q)
	} else {
		products, err = h.store.Products().GetAll(r.Context(), opts)
	}
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":  products,
		"count":  len(products),
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// Create: POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fieldErrors(err))
		return
	}
	var product models.Product
	req.apply(&product)
	created, err := h.store.Products().Create(r.Context(), &product)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// Details: GET /api/products/{id}. Accepts an id or a product code.
func (h *ProductHandler) Details(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "id")
	if id, err := parseID(ref); err == nil {
		product, err := h.store.Products().GetByID(r.Context(), id)
		if err != nil {
			httpx.Error(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, product)
		return
	}
	product, err := h.store.Products().GetByCode(r.Context(), ref)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

// Update: PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req productRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fieldErrors(err))
		return
	}

	product, err := h.store.Products().GetByID(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	req.apply(product)
	updated, err := h.store.Products().Update(r.Context(), product)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Delete: DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.store.Products().Delete(r.Context(), id); err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
