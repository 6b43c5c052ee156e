package handler

import (
	catalogapp "github.com/b2bmarket/backend/internal/application/catalog"
	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ListingRequest creates or replaces a product or service. Price accepts a
// JSON number or a decimal string.
type ListingRequest struct {
	Name         string           `json:"name" binding:"required,max=200"`
	Description  string           `json:"description" binding:"max=10000"`
	Price        *decimal.Decimal `json:"price" binding:"required"`
	Currency     string           `json:"currency" binding:"omitempty,len=3"`
	Unit         string           `json:"unit" binding:"max=50"`
	PricingModel string           `json:"pricing_model"`
	CategoryID   string           `json:"category_id"`
	ImageIDs     []string         `json:"image_ids"`
	Tags         []string         `json:"tags" binding:"max=20,dive,max=50"`
	Published    *bool            `json:"published"`
}

func (r ListingRequest) toInput() catalogapp.ListingInput {
	return catalogapp.ListingInput{
		Name:         r.Name,
		Description:  r.Description,
		Price:        r.Price.String(),
		Currency:     r.Currency,
		Unit:         r.Unit,
		PricingModel: r.PricingModel,
		CategoryID:   r.CategoryID,
		ImageIDs:     r.ImageIDs,
		Tags:         r.Tags,
		Published:    r.Published,
	}
}

// OwnListingQuery pages the company's own listings
type OwnListingQuery struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search    string `form:"q"`
	Published *bool  `form:"published"`
}

// ListingHandler manages the signed-in company's products or services. One
// handler is mounted per kind.
type ListingHandler struct {
	BaseHandler
	kind           catalog.Kind
	listingService *catalogapp.ListingService
}

// NewListingHandler creates a listing handler for kind
func NewListingHandler(kind catalog.Kind, listingService *catalogapp.ListingService) *ListingHandler {
	return &ListingHandler{kind: kind, listingService: listingService}
}

// List godoc
// @ID           listOwnListings
// @Summary      Own products or services
// @Description  Mounted as /products and /services
// @Tags         listings
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        q query string false "Name search"
// @Param        published query bool false "Filter by published state"
// @Success      200 {object} APIResponse[[]catalogapp.ListingDTO]
// @Router       /products [get]
// @Router       /services [get]
func (h *ListingHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q OwnListingQuery
	if !h.bindQuery(c, &q) {
		return
	}
	listings, err := h.listingService.List(c.Request.Context(), actor, h.kind, catalogapp.OwnListingFilter{
		Page:      q.Page,
		PageSize:  q.PageSize,
		Search:    q.Search,
		Published: q.Published,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(&h.BaseHandler, c, listings)
}

// Get godoc
// @ID           getOwnListing
// @Summary      Own product or service
// @Tags         listings
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Listing ID"
// @Success      200 {object} APIResponse[catalogapp.ListingDTO]
// @Failure      404 {object} ErrorResponse
// @Router       /products/{id} [get]
// @Router       /services/{id} [get]
func (h *ListingHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	listing, err := h.listingService.Get(c.Request.Context(), actor, h.kind, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, listing)
}

// Create godoc
// @ID           createListing
// @Summary      Create a product or service
// @Description  The company must be active. New listings are unpublished unless published is set.
// @Tags         listings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ListingRequest true "Listing"
// @Success      201 {object} APIResponse[catalogapp.ListingDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /products [post]
// @Router       /services [post]
func (h *ListingHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req ListingRequest
	if !h.bindJSON(c, &req) {
		return
	}
	listing, err := h.listingService.Create(c.Request.Context(), actor, h.kind, req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, listing)
}

// Update godoc
// @ID           updateListing
// @Summary      Replace a product or service
// @Tags         listings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Listing ID"
// @Param        request body ListingRequest true "Listing"
// @Success      200 {object} APIResponse[catalogapp.ListingDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /products/{id} [put]
// @Router       /services/{id} [put]
func (h *ListingHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req ListingRequest
	if !h.bindJSON(c, &req) {
		return
	}
	listing, err := h.listingService.Update(c.Request.Context(), actor, h.kind, c.Param("id"), req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, listing)
}

// Delete godoc
// @ID           deleteListing
// @Summary      Delete a product or service
// @Tags         listings
// @Security     BearerAuth
// @Param        id path string true "Listing ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /products/{id} [delete]
// @Router       /services/{id} [delete]
func (h *ListingHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.listingService.Delete(c.Request.Context(), actor, h.kind, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
