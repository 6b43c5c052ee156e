package handler

import (
	catalogapp "github.com/b2bmarket/backend/internal/application/catalog"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CatalogQueryParams are the public catalog filters
type CatalogQueryParams struct {
	Type     string `form:"type" binding:"omitempty,oneof=product service all"`
	Category string `form:"category"`
	Company  string `form:"company"`
	Search   string `form:"q" binding:"max=200"`
	MinPrice string `form:"min_price" binding:"omitempty,numeric"`
	MaxPrice string `form:"max_price" binding:"omitempty,numeric"`
	Sort     string `form:"sort"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (p CatalogQueryParams) toQuery() catalogapp.CatalogQuery {
	return catalogapp.CatalogQuery{
		Type:     p.Type,
		Category: p.Category,
		Company:  p.Company,
		Search:   p.Search,
		MinPrice: parseDecimal(p.MinPrice),
		MaxPrice: parseDecimal(p.MaxPrice),
		Sort:     p.Sort,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
}

// parseDecimal returns nil for an empty or malformed value. Binding has
// already rejected malformed values.
func parseDecimal(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// CategoryQuery selects the category tree of one listing kind
type CategoryQuery struct {
	Kind string `form:"kind" binding:"omitempty,oneof=product service"`
}

// CatalogHandler serves the public marketplace catalog
type CatalogHandler struct {
	BaseHandler
	catalogService *catalogapp.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *catalogapp.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// Fetch godoc
// @ID           fetchCatalog
// @Summary      Browse the catalog
// @Description  Published products and services of active companies with facet counts
// @Tags         catalog
// @Produce      json
// @Param        type query string false "product, service or all"
// @Param        category query string false "Category id or slug"
// @Param        company query string false "Company id or slug"
// @Param        q query string false "Text search"
// @Param        min_price query number false "Minimum price"
// @Param        max_price query number false "Maximum price"
// @Param        sort query string false "newest, price_asc, price_desc or name"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[catalogapp.CatalogResult]
// @Failure      400 {object} ErrorResponse
// @Router       /catalog [get]
func (h *CatalogHandler) Fetch(c *gin.Context) {
	var params CatalogQueryParams
	if !h.bindQuery(c, &params) {
		return
	}
	result, err := h.catalogService.Fetch(c.Request.Context(), params.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result, result.Total, result.Page, result.PageSize)
}

// Get godoc
// @ID           getCatalogListing
// @Summary      Catalog listing
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Listing ID"
// @Success      200 {object} APIResponse[catalogapp.ListingDTO]
// @Failure      404 {object} ErrorResponse
// @Router       /catalog/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	listing, err := h.catalogService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, listing)
}

// Categories godoc
// @ID           listCategories
// @Summary      Categories
// @Tags         catalog
// @Produce      json
// @Param        kind query string false "product or service"
// @Success      200 {object} APIResponse[[]catalogapp.CategoryDTO]
// @Router       /categories [get]
func (h *CatalogHandler) Categories(c *gin.Context) {
	var q CategoryQuery
	if !h.bindQuery(c, &q) {
		return
	}
	categories, err := h.catalogService.Categories(c.Request.Context(), q.Kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, categories)
}
