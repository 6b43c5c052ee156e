package handler

import (
	"fmt"
	"net/http"

	appcompany "github.com/b2bmarket/backend/internal/application/company"
	"github.com/b2bmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// CompanyHandler serves the company directory, public company lookups and
// the signed-in company's own profile
type CompanyHandler struct {
	BaseHandler
	companyService *appcompany.CompanyService
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(companyService *appcompany.CompanyService) *CompanyHandler {
	return &CompanyHandler{companyService: companyService}
}

// List godoc
// @ID           listCompanies
// @Summary      Company directory
// @Description  Active companies, optionally filtered by name and category
// @Tags         companies
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        q query string false "Name search"
// @Param        category query string false "Category id or slug"
// @Success      200 {object} APIResponse[[]appcompany.CompanyDTO]
// @Router       /companies [get]
func (h *CompanyHandler) List(c *gin.Context) {
	var filter appcompany.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	companies, err := h.companyService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(&h.BaseHandler, c, companies)
}

// Get godoc
// @ID           getCompany
// @Summary      Look up a company
// @Description  Finds a company by id or slug. Pending companies are only visible to themselves.
// @Tags         companies
// @Produce      json
// @Param        ref path string true "Company id or slug"
// @Success      200 {object} APIResponse[appcompany.CompanyDTO]
// @Failure      404 {object} ErrorResponse
// @Router       /companies/{ref} [get]
func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.companyService.Lookup(c.Request.Context(), middleware.GetCompanyID(c), c.Param("ref"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, company)
}

// Brochure godoc
// @ID           getCompanyBrochure
// @Summary      Company brochure
// @Description  Renders the company page as a PDF
// @Tags         companies
// @Produce      application/pdf
// @Param        ref path string true "Company id or slug"
// @Success      200 {file} file
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /companies/{ref}/brochure.pdf [get]
func (h *CompanyHandler) Brochure(c *gin.Context) {
	brochure, err := h.companyService.Brochure(c.Request.Context(), middleware.GetCompanyID(c), c.Param("ref"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", brochure.Filename))
	c.Data(http.StatusOK, "application/pdf", brochure.Data)
}

// GetProfile godoc
// @ID           getProfile
// @Summary      Own company profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[appcompany.CompanyDTO]
// @Router       /profile [get]
func (h *CompanyHandler) GetProfile(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	profile, err := h.companyService.GetProfile(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}

// UpdateProfile godoc
// @ID           updateProfile
// @Summary      Update own company profile
// @Description  Admins only. Renaming the company changes its slug.
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body appcompany.UpdateProfileInput true "Profile"
// @Success      200 {object} APIResponse[appcompany.CompanyDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /profile [put]
func (h *CompanyHandler) UpdateProfile(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var input appcompany.UpdateProfileInput
	if !h.bindJSON(c, &input) {
		return
	}
	profile, err := h.companyService.UpdateProfile(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}
