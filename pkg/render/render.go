// Package render turns stored documents into human-readable output.
// The built-in HTML renderer embeds its template, so the library works
// without any files on disk; a template directory can override it.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbardeau/factura/pkg/models"
)

//go:embed templates/invoice.html.tmpl
var builtin embed.FS

const templateName = "invoice.html.tmpl"

// Context carries everything a document template may reference.
// Company and Notes are optional; the template renders without them.
type Context struct {
	Invoice  *models.Invoice
	Company  *models.Company
	Payments []models.Payment
	Notes    []models.PaymentNote
	Balance  decimal.Decimal
	Now      time.Time
}

// Renderer produces a rendered document from a context.
type Renderer interface {
	Render(c Context) ([]byte, error)
}

// HTMLRenderer renders invoices with html/template. The template is
// parsed once; pass a template directory to replace the embedded one.
type HTMLRenderer struct {
	templateDir string

	once sync.Once
	tpl  *template.Template
	err  error
}

// NewHTMLRenderer returns a renderer. templateDir may be empty, in
// which case the embedded template is used.
func NewHTMLRenderer(templateDir string) *HTMLRenderer {
	return &HTMLRenderer{templateDir: templateDir}
}

// Funcs is the helper set shared by document templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"date":  func(t time.Time) string { return t.Format("2006-01-02") },
		"year":  func() int { return time.Now().Year() },
	}
}

func (r *HTMLRenderer) parse() {
	funcs := Funcs()
	if r.templateDir != "" {
		path := filepath.Join(r.templateDir, templateName)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			r.tpl, r.err = template.New(templateName).Funcs(funcs).ParseFiles(path)
			return
		}
	}
	r.tpl, r.err = template.New(templateName).Funcs(funcs).ParseFS(builtin, "templates/"+templateName)
}

// Render executes the invoice template.
func (r *HTMLRenderer) Render(c Context) ([]byte, error) {
	r.once.Do(r.parse)
	if r.err != nil {
		return nil, r.err
	}
	if c.Now.IsZero() {
		c.Now = time.Now()
	}
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, templateName, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
