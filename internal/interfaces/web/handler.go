package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	catalogapp "github.com/b2bmarket/backend/internal/application/catalog"
	appcompany "github.com/b2bmarket/backend/internal/application/company"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/logger"
	"github.com/b2bmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const pageSize = 24

// CatalogSource fetches the public catalog
type CatalogSource interface {
	Fetch(ctx context.Context, q catalogapp.CatalogQuery) (*catalogapp.CatalogResult, error)
}

// CompanyPages builds company pages
type CompanyPages interface {
	Page(ctx context.Context, viewerCompanyID, ref string) (*appcompany.Page, error)
}

// Handler serves the HTML pages
type Handler struct {
	renderer  *Renderer
	catalog   CatalogSource
	companies CompanyPages
}

// NewHandler creates a new page handler
func NewHandler(renderer *Renderer, catalog CatalogSource, companies CompanyPages) *Handler {
	return &Handler{renderer: renderer, catalog: catalog, companies: companies}
}

// Register installs the page templates and routes on the engine
func (h *Handler) Register(engine *gin.Engine) {
	engine.SetHTMLTemplate(h.renderer.Template())
	engine.GET("/", h.Catalog)
	engine.GET("/c/:slug", h.Company)
}

type catalogView struct {
	Query  string
	Type   string
	Result *catalogapp.CatalogResult
	params url.Values
}

// PageQuery returns a relative link to another page with the current filters
func (v catalogView) PageQuery(page int) template.URL {
	q := url.Values{}
	for k, vs := range v.params {
		q[k] = vs
	}
	q.Set("page", strconv.Itoa(page))
	return template.URL("?" + q.Encode())
}

// Catalog renders the public catalog
func (h *Handler) Catalog(c *gin.Context) {
	params := c.Request.URL.Query()
	page, _ := strconv.Atoi(params.Get("page"))
	kind := params.Get("type")
	if kind == "" {
		kind = "all"
	}

	result, err := h.catalog.Fetch(c.Request.Context(), catalogapp.CatalogQuery{
		Type:     kind,
		Category: params.Get("category"),
		Company:  params.Get("company"),
		Search:   params.Get("q"),
		Sort:     params.Get("sort"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.HTML(http.StatusOK, TemplateCatalog, catalogView{
		Query:  params.Get("q"),
		Type:   kind,
		Result: result,
		params: params,
	})
}

// Company renders a company's public page
func (h *Handler) Company(c *gin.Context) {
	page, err := h.companies.Page(c.Request.Context(), middleware.GetCompanyID(c), c.Param("slug"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, TemplateCompany, companyView{Page: page})
}

type errorView struct {
	Title   string
	Message string
}

func (h *Handler) renderError(c *gin.Context, err error) {
	de, ok := shared.AsDomainError(err)
	if !ok {
		logger.L(c.Request.Context()).Error("Failed to render page", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.HTML(http.StatusInternalServerError, TemplateError, errorView{
			Title:   "Something went wrong",
			Message: "The page could not be loaded. Please try again later.",
		})
		return
	}
	if errors.Is(err, shared.ErrNotFound) {
		c.HTML(http.StatusNotFound, TemplateError, errorView{Title: "Not found", Message: de.Message})
		return
	}
	c.HTML(http.StatusBadRequest, TemplateError, errorView{Title: "Invalid request", Message: de.Message})
}
