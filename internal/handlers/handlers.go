// Package handlers exposes the lifecycle over HTTP. Handlers are thin
// adapters: decode, validate shape, call the same services the CLI
// uses, map domain errors through httpx. No business rule lives here.
package handlers

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mbardeau/factura/pkg/storage"
)

// maxPageSize caps the limit query parameter.
const maxPageSize = 200

// listOptions reads limit/offset query parameters. Absent or invalid
// values fall back to a 50-row first page.
func listOptions(r *http.Request) storage.ListOptions {
	opts := storage.ListOptions{Limit: 50}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxPageSize {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Offset = n
		}
	}
	return opts
}

// newValidator labels violations with the json field names the caller
// actually sent, not the Go struct field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors flattens validator violations into a field→message map
// for the error response body.
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out["body"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// dateValue accepts RFC 3339 timestamps and plain YYYY-MM-DD dates in
// request bodies.
type dateValue struct {
	time.Time
}

func (d *dateValue) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(n), nil
}

// actorFrom labels mutations with the caller identity. The API has no
// authentication layer, so the audit actor is a fixed origin tag.
func actorFrom(r *http.Request) string {
	if v := r.Header.Get("X-Actor"); v != "" {
		return v
	}
	return "api"
}
