package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mbardeau/factura/internal/httpx"
	"github.com/mbardeau/factura/pkg/core"
	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/render"
	"github.com/mbardeau/factura/pkg/storage"
)

// InvoiceHandler serves the invoice lifecycle endpoints, including the
// nested payment, audit and rendering routes.
type InvoiceHandler struct {
	store     storage.Store
	lifecycle *core.LifecycleService
	audit     *core.AuditService
	renderer  render.Renderer
	validate  *validator.Validate
	log       zerolog.Logger
}

func NewInvoiceHandler(store storage.Store, lifecycle *core.LifecycleService, audit *core.AuditService, renderer render.Renderer, log zerolog.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		store:     store,
		lifecycle: lifecycle,
		audit:     audit,
		renderer:  renderer,
		validate:  newValidator(),
		log:       log,
	}
}

// MountRoutes registers the invoice routes. Subpaths with a fixed
// segment (overdue, summary) are declared before the wildcard so chi
// never treats them as a number.
func (h *InvoiceHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/overdue", h.Overdue)
	r.Get("/summary", h.Summary)
	r.Get("/{number}", h.Details)
	r.Put("/{number}", h.Update)
	r.Post("/{number}/send", h.transitionTo(models.StatusSent))
	r.Post("/{number}/cancel", h.transitionTo(models.StatusCancelled))
	r.Post("/{number}/refund", h.transitionTo(models.StatusRefunded))
	r.Post("/{number}/clone", h.Clone)
	r.Get("/{number}/payments", h.ListPayments)
	r.Post("/{number}/payments", h.AddPayment)
	r.Get("/{number}/audit", h.AuditTrail)
	r.Get("/{number}/html", h.HTML)
}

type invoiceLineRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type invoiceCreateRequest struct {
	ClientID  uint                 `json:"client_id" validate:"required"`
	IssueDate dateValue            `json:"issue_date"`
	DueDate   dateValue            `json:"due_date"`
	Lines     []invoiceLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type invoiceUpdateRequest struct {
	ClientID  *uint                 `json:"client_id"`
	IssueDate *dateValue            `json:"issue_date"`
	DueDate   *dateValue            `json:"due_date"`
	Lines     *[]invoiceLineRequest `json:"lines"`
}

type paymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Date      dateValue       `json:"date"`
	Reference string          `json:"reference"`
}

// invoiceDetail is the GET /{number} body: the record plus the money
// facts a caller otherwise derives from three endpoints.
type invoiceDetail struct {
	Invoice     *models.Invoice     `json:"invoice"`
	Outstanding decimal.Decimal     `json:"outstanding"`
	Payments    []models.Payment    `json:"payments"`
	CreditNotes []models.CreditNote `json:"credit_notes"`
}

func toLines(reqs []invoiceLineRequest) []models.InvoiceLine {
	lines := make([]models.InvoiceLine, len(reqs))
	for i, lr := range reqs {
		lines[i] = models.InvoiceLine{
			Description: lr.Description,
			Quantity:    lr.Quantity,
			UnitPrice:   lr.UnitPrice,
		}
	}
	return lines
}

// List: GET /api/invoices?limit&offset&q
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	var (
		invoices []models.Invoice
		err      error
	)
	if q != "" {
		invoices, err = h.store.Invoices().Search(r.Context(), q)
	} else {
		invoices, err = h.store.Invoices().GetAll(r.Context(), opts)
	}
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":  invoices,
		"count":  len(invoices),
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// Create: POST /api/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req invoiceCreateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", fieldErrors(err))
		return
	}

	inv, err := h.lifecycle.CreateInvoice(r.Context(), core.InvoiceDraft{
		ClientID:  req.ClientID,
		IssueDate: req.IssueDate.Time,
		DueDate:   req.DueDate.Time,
		Lines:     toLines(req.Lines),
	}, actorFrom(r))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Details: GET /api/invoices/{number}
func (h *InvoiceHandler) Details(w http.ResponseWriter, r *http.Request) {
	inv, err := h.lifecycle.ResolveInvoice(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	outstanding, err := h.lifecycle.OutstandingBalance(r.Context(), inv)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	payments, err := h.store.Payments().GetByInvoice(r.Context(), inv.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	notes, err := h.store.CreditNotes().GetByInvoice(r.Context(), inv.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoiceDetail{
		Invoice:     inv,
		Outstanding: outstanding,
		Payments:    payments,
		CreditNotes: notes,
	})
}

// Update: PUT /api/invoices/{number} (DRAFT only)
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	inv, err := h.lifecycle.ResolveInvoice(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req invoiceUpdateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	patch := core.InvoicePatch{ClientID: req.ClientID}
	if req.IssueDate != nil {
		patch.IssueDate = &req.IssueDate.Time
	}
	if req.DueDate != nil {
		patch.DueDate = &req.DueDate.Time
	}
	if req.Lines != nil {
		lines := toLines(*req.Lines)
		patch.Lines = &lines
	}

	updated, err := h.lifecycle.UpdateInvoice(r.Context(), inv.ID, patch, actorFrom(r))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// transitionTo builds the handler for one lifecycle edge.
func (h *InvoiceHandler) transitionTo(target models.InvoiceStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, err := h.lifecycle.ResolveInvoice(r.Context(), chi.URLParam(r, "number"))
		if err != nil {
			httpx.Error(w, err)
			return
		}
		moved, err := h.lifecycle.Transition(r.Context(), inv.ID, target, actorFrom(r))
		if err != nil {
			httpx.Error(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, moved)
	}
}

// Clone: POST /api/invoices/{number}/clone
func (h *InvoiceHandler) Clone(w http.ResponseWriter, r *http.Request) {
	inv, err := h.lifecycle.ResolveInvoice(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	dup, err := h.lifecycle.CloneInvoice(r.Context(), inv.ID, actorFrom(r))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dup)
}

// Overdue: GET /api/invoices/overdue
func (h *InvoiceHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.store.Invoices().GetOverdue(r.Context(), time.Now().UTC())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invoices, "count": len(invoices)})
}

// Summary: GET /api/invoices/summary
func (h *InvoiceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Invoices().Summary(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

// ListPayments: GET /api/invoices/{number}/payments
func (h *InvoiceHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	inv, err := h.lifecycle.ResolveInvoice(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	payments, err := h.store.Payments().GetByInvoice(r.Context(), inv.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	total, err := h.store.Payments().TotalForInvoice(r.Context(), inv.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": payments, "total": total})
}

// AddPayment: POST /api/invoices/{number}/payments
func (h *InvoiceHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	inv, err := h.lifecycle.ResolveInvoice(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req paymentRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	payment, err := h.lifecycle.AddPayment(r.Context(), inv.ID, req.Amount, req.Date.Time, req.Reference, actorFrom(r))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

// AuditTrail: GET /api/invoices/{number}/audit
func (h *InvoiceHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	inv, err := h.lifecycle.ResolveInvoice(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	entries, err := h.audit.InvoiceTrail(r.Context(), inv.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": entries, "count": len(entries)})
}

// HTML: GET /api/invoices/{number}/html
func (h *InvoiceHandler) HTML(w http.ResponseWriter, r *http.Request) {
	inv, err := h.lifecycle.ResolveInvoice(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	c, err := render.BuildContext(r.Context(), h.store, inv)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	doc, err := h.renderer.Render(c)
	if err != nil {
		h.log.Error().Err(err).Str("invoice", inv.Number).Msg("render failed")
		httpx.JSONError(w, http.StatusInternalServerError, "render_failed", nil)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
