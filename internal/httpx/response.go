// Package httpx holds the JSON plumbing shared by all HTTP handlers:
// response writers, request decoding and the mapping from the domain
// error taxonomy to status codes.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mbardeau/factura/pkg/models"
)

// ErrorResponse is the uniform error body: a stable snake_case code
// plus optional details for the caller.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// JSONError writes an ErrorResponse with the given status.
func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// Error maps a domain error onto the HTTP taxonomy and writes it.
// Unknown errors become 500 internal_error without leaking details.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		JSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, models.ErrDuplicate):
		JSONError(w, http.StatusConflict, "duplicate", err.Error())
	case errors.Is(err, models.ErrInvalidTransition):
		JSONError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, models.ErrImmutableInvoice):
		JSONError(w, http.StatusConflict, "immutable_invoice", err.Error())
	case errors.Is(err, models.ErrOverpayment):
		JSONError(w, http.StatusUnprocessableEntity, "overpayment", err.Error())
	case errors.Is(err, models.ErrOverCredit):
		JSONError(w, http.StatusUnprocessableEntity, "over_credit", err.Error())
	case errors.Is(err, models.ErrValidation):
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{ve.Field: ve.Message})
			return
		}
		JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, models.ErrBackendUnavailable):
		JSONError(w, http.StatusServiceUnavailable, "backend_unavailable", nil)
	default:
		JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
