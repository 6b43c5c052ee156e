package company

import (
	"context"
	"errors"

	catalogapp "github.com/b2bmarket/backend/internal/application/catalog"
	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/media"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/domain/shared/valueobject"
	"github.com/b2bmarket/backend/internal/infrastructure/pdf"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

var (
	ErrInvalidAddress = shared.NewDomainError("INVALID_ADDRESS", "Address is invalid")
	ErrInvalidLogo    = shared.NewDomainError("INVALID_LOGO", "Logo must be an image uploaded by your company")
)

// PageRenderer renders a company page as a standalone HTML document
type PageRenderer interface {
	RenderCompanyPage(page *Page) (string, error)
}

// CompanyService serves company profiles and the company directory
type CompanyService struct {
	companies  company.Repository
	categories catalog.CategoryRepository
	listings   catalog.ListingRepository
	assets     media.Repository
	pdf        pdf.Renderer
	pages      PageRenderer
	logger     *zap.Logger
}

// NewCompanyService creates a new company service
func NewCompanyService(
	companies company.Repository,
	categories catalog.CategoryRepository,
	listings catalog.ListingRepository,
	assets media.Repository,
	renderer pdf.Renderer,
	pages PageRenderer,
	logger *zap.Logger,
) *CompanyService {
	return &CompanyService{
		companies:  companies,
		categories: categories,
		listings:   listings,
		assets:     assets,
		pdf:        renderer,
		pages:      pages,
		logger:     logger,
	}
}

// find resolves ref as an id first, then as a slug.
func (s *CompanyService) find(ctx context.Context, ref string) (*company.Company, error) {
	c, err := s.companies.FindByID(ctx, ref)
	if errors.Is(err, shared.ErrNotFound) {
		return s.companies.FindBySlug(ctx, ref)
	}
	return c, err
}

// visible loads a company as seen by viewerCompanyID. Companies that are not
// active are only visible to themselves.
func (s *CompanyService) visible(ctx context.Context, viewerCompanyID, ref string) (*company.Company, error) {
	c, err := s.find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !c.CanTransact() && c.ID != viewerCompanyID {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (s *CompanyService) logoURL(ctx context.Context, c *company.Company) string {
	if c.LogoAssetID == "" {
		return ""
	}
	a, err := s.assets.FindByID(ctx, c.LogoAssetID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Failed to load company logo", zap.String("company_id", c.ID), zap.Error(err))
		}
		return ""
	}
	return a.URL
}

func (s *CompanyService) toDTO(ctx context.Context, c *company.Company) *CompanyDTO {
	dto := ToCompanyDTO(c, s.logoURL(ctx, c))
	return &dto
}

// Lookup returns a company by id or slug. viewerCompanyID may be empty for
// anonymous visitors.
func (s *CompanyService) Lookup(ctx context.Context, viewerCompanyID, ref string) (*CompanyDTO, error) {
	c, err := s.visible(ctx, viewerCompanyID, ref)
	if err != nil {
		return nil, err
	}
	return s.toDTO(ctx, c), nil
}

// List returns active companies ordered by name. The category filter takes an
// id or a slug.
func (s *CompanyService) List(ctx context.Context, filter ListFilter) (shared.Paginated[CompanyDTO], error) {
	categoryID := filter.Category
	if categoryID != "" {
		if cat, err := s.categories.FindBySlug(ctx, categoryID); err == nil {
			categoryID = cat.ID
		} else if !errors.Is(err, shared.ErrNotFound) {
			return shared.Paginated[CompanyDTO]{}, err
		}
	}

	page, err := s.companies.List(ctx, company.Filter{
		Pagination: shared.NewPagination(filter.Page, filter.PageSize),
		Search:     filter.Search,
		Status:     company.StatusActive,
		CategoryID: categoryID,
	})
	if err != nil {
		return shared.Paginated[CompanyDTO]{}, err
	}
	items := make([]CompanyDTO, len(page.Items))
	for i, c := range page.Items {
		items[i] = *s.toDTO(ctx, c)
	}
	return shared.Paginated[CompanyDTO]{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// GetProfile returns the actor's own company, whatever its status
func (s *CompanyService) GetProfile(ctx context.Context, actor *identity.User) (*CompanyDTO, error) {
	c, err := s.companies.FindByID(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(ctx, c), nil
}

// UpdateProfile replaces the actor company's profile. Admins only.
func (s *CompanyService) UpdateProfile(ctx context.Context, actor *identity.User, input UpdateProfileInput) (*CompanyDTO, error) {
	if !actor.IsAdmin() {
		return nil, identity.ErrAdminRequired
	}
	c, err := s.companies.FindByID(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	if err := c.Rename(input.Name); err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, c); err != nil {
		return nil, err
	}
	if err := c.UpdateDetails(company.Details{
		Description: input.Description,
		Phone:       input.Phone,
		Website:     input.Website,
		VATNumber:   input.VATNumber,
	}); err != nil {
		return nil, err
	}
	if input.Address != nil {
		addr, err := parseAddress(*input.Address)
		if err != nil {
			return nil, err
		}
		c.SetAddress(addr)
	}
	if input.LogoID != nil {
		if err := s.ensureOwnAsset(ctx, c.ID, *input.LogoID); err != nil {
			return nil, err
		}
		c.SetLogo(*input.LogoID)
	}
	if input.CategoryIDs != nil {
		for _, id := range input.CategoryIDs {
			if _, err := s.categories.FindByID(ctx, id); err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return nil, catalogapp.ErrUnknownCategory
				}
				return nil, err
			}
		}
		c.SetCategories(input.CategoryIDs)
	}

	if err := s.companies.Update(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("Company profile updated", zap.String("company_id", c.ID), zap.String("updated_by", actor.ID))
	return s.toDTO(ctx, c), nil
}

func (s *CompanyService) ensureSlugFree(ctx context.Context, c *company.Company) error {
	other, err := s.companies.FindBySlug(ctx, c.Slug)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if other.ID != c.ID {
		return company.ErrSlugTaken
	}
	return nil
}

func (s *CompanyService) ensureOwnAsset(ctx context.Context, companyID, assetID string) error {
	if assetID == "" {
		return nil
	}
	a, err := s.assets.FindByID(ctx, assetID)
	if errors.Is(err, shared.ErrNotFound) {
		return ErrInvalidLogo
	}
	if err != nil {
		return err
	}
	if a.CompanyID != companyID {
		return ErrInvalidLogo
	}
	return nil
}

// parseAddress builds an address; an all-blank input clears it.
func parseAddress(in AddressDTO) (valueobject.Address, error) {
	if in == (AddressDTO{}) {
		return valueobject.EmptyAddress(), nil
	}
	addr, err := valueobject.NewAddress(in.Street, in.City, in.Country,
		valueobject.WithPostalCode(in.PostalCode),
		valueobject.WithRegion(in.Region),
	)
	if err != nil {
		return valueobject.Address{}, shared.NewDomainError(ErrInvalidAddress.Code, "Invalid address: "+err.Error())
	}
	return addr, nil
}

// Page collects a company's public page: profile, categories and published
// listings split by kind.
func (s *CompanyService) Page(ctx context.Context, viewerCompanyID, ref string) (*Page, error) {
	c, err := s.visible(ctx, viewerCompanyID, ref)
	if err != nil {
		return nil, err
	}

	published := true
	listings, err := s.listings.ListByCompany(ctx, c.ID, catalog.ListingFilter{
		Pagination: shared.NewPagination(1, shared.MaxPageSize),
		Published:  &published,
	})
	if err != nil {
		return nil, err
	}

	page := &Page{
		Company:    *s.toDTO(ctx, c),
		Categories: []catalogapp.CategoryDTO{},
		Products:   []catalogapp.ListingDTO{},
		Services:   []catalogapp.ListingDTO{},
	}
	for _, l := range listings.Items {
		dto := catalogapp.ToListingDTO(l)
		if l.Kind == catalog.KindService {
			page.Services = append(page.Services, dto)
		} else {
			page.Products = append(page.Products, dto)
		}
	}
	for _, id := range c.CategoryIDs {
		cat, err := s.categories.FindByID(ctx, id)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		page.Categories = append(page.Categories, catalogapp.ToCategoryDTO(cat))
	}
	return page, nil
}

// Brochure renders the company page to PDF
func (s *CompanyService) Brochure(ctx context.Context, viewerCompanyID, ref string) (*Brochure, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "company", "brochure")
	defer span.End()

	page, err := s.Page(ctx, viewerCompanyID, ref)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCompanyID, page.Company.ID)

	html, err := s.pages.RenderCompanyPage(page)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	data, err := s.pdf.Render(ctx, html)
	if err != nil {
		telemetry.RecordError(span, err)
		if !errors.Is(err, pdf.ErrDisabled) {
			s.logger.Error("Failed to render brochure", zap.String("company_id", page.Company.ID), zap.Error(err))
		}
		return nil, err
	}
	return &Brochure{Filename: page.Company.Slug + ".pdf", Data: data}, nil
}
