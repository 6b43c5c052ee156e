// Package web serves the server-rendered catalog and company pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	appcompany "github.com/b2bmarket/backend/internal/application/company"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names
const (
	TemplateCatalog = "catalog.html"
	TemplateCompany = "company.html"
	TemplateError   = "error.html"
)

// Renderer holds the parsed page templates. The company template is shared
// by the web page and the PDF brochure.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("pages").Funcs(funcMap()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Template returns the template set for gin's HTML renderer
func (r *Renderer) Template() *template.Template {
	return r.tmpl
}

// RenderCompanyPage renders a company page as a standalone HTML document
func (r *Renderer) RenderCompanyPage(page *appcompany.Page) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, TemplateCompany, companyView{Page: page, Printable: true}); err != nil {
		return "", fmt.Errorf("failed to render company page: %w", err)
	}
	return buf.String(), nil
}

type companyView struct {
	*appcompany.Page
	Printable bool
}

var printer = message.NewPrinter(language.English)

func funcMap() template.FuncMap {
	title := cases.Title(language.English)
	return template.FuncMap{
		"formatMoney": formatMoney,
		"formatDate":  func(t time.Time) string { return t.Format("2 Jan 2006") },
		"truncate":    truncate,
		"join":        strings.Join,
		"title":       title.String,
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
	}
}

// formatMoney formats an amount with its currency symbol, falling back to
// the plain code for unknown currencies.
func formatMoney(amount decimal.Decimal, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return amount.StringFixed(2) + " " + code
	}
	scale, _ := currency.Standard.Rounding(unit)
	f, _ := amount.Round(int32(scale)).Float64()
	return printer.Sprint(currency.Symbol(unit)) + " " + printer.Sprint(number.Decimal(f, number.Scale(scale)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
