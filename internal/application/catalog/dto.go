package catalog

import (
	"time"

	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CategoryDTO represents a category
type CategoryDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Kind        string `json:"kind"`
}

// CategoryRefDTO is the category embedded in a listing
type CategoryRefDTO struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// CompanyRefDTO is the company embedded in a listing
type CompanyRefDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ImageDTO is an image attached to a listing
type ImageDTO struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ListingDTO represents a product or service
type ListingDTO struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Unit         string          `json:"unit,omitempty"`
	PricingModel string          `json:"pricing_model,omitempty"`
	CategoryID   string          `json:"category_id,omitempty"`
	Category     *CategoryRefDTO `json:"category,omitempty"`
	CompanyID    string          `json:"company_id"`
	Company      *CompanyRefDTO  `json:"company,omitempty"`
	ImageIDs     []string        `json:"image_ids"`
	Images       []ImageDTO      `json:"images"`
	Tags         []string        `json:"tags"`
	Published    bool            `json:"published"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ListingInput creates or replaces a listing. A nil Published keeps the
// current state; new listings start unpublished.
type ListingInput struct {
	Name         string
	Description  string
	Price        string
	Currency     string
	Unit         string
	PricingModel string
	CategoryID   string
	ImageIDs     []string
	Tags         []string
	Published    *bool
}

// OwnListingFilter narrows the listings of the actor's company
type OwnListingFilter struct {
	Page      int
	PageSize  int
	Search    string
	Published *bool
}

// Sort orders of the public catalog
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
)

// CatalogQuery filters the public catalog
type CatalogQuery struct {
	Type     string // product, service or all
	Category string // id or slug
	Company  string // id or slug
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
	Page     int
	PageSize int
}

// FacetCount is one bucket of a facet
type FacetCount struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Facets are the counts of the filtered catalog before paging
type Facets struct {
	Kinds      []FacetCount `json:"kinds"`
	Categories []FacetCount `json:"categories"`
	Companies  []FacetCount `json:"companies"`
}

// CatalogResult is one page of the catalog plus facets
type CatalogResult struct {
	Items      []ListingDTO `json:"items"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
	Facets     Facets       `json:"facets"`
}

// ToCategoryDTO converts a domain category
func ToCategoryDTO(c *catalog.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Title:       c.Title,
		Slug:        c.Slug,
		Description: c.Description,
		Kind:        string(c.Kind),
	}
}

// ToListingDTO converts a domain listing
func ToListingDTO(l *catalog.Listing) ListingDTO {
	dto := ListingDTO{
		ID:           l.ID,
		Kind:         string(l.Kind),
		Name:         l.Name,
		Slug:         l.Slug,
		Description:  l.Description,
		Price:        l.Price.Amount(),
		Currency:     string(l.Price.Currency()),
		Unit:         l.Unit,
		PricingModel: string(l.PricingModel),
		CategoryID:   l.CategoryID,
		CompanyID:    l.CompanyID,
		ImageIDs:     l.ImageAssetIDs,
		Images:       make([]ImageDTO, 0, len(l.Images)),
		Tags:         l.Tags,
		Published:    l.Published,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
	if l.Category != nil {
		dto.Category = &CategoryRefDTO{ID: l.Category.ID, Title: l.Category.Title, Slug: l.Category.Slug}
	}
	if l.Company != nil {
		dto.Company = &CompanyRefDTO{ID: l.Company.ID, Name: l.Company.Name, Slug: l.Company.Slug}
	}
	for _, img := range l.Images {
		dto.Images = append(dto.Images, ImageDTO{ID: img.ID, URL: img.URL})
	}
	if dto.ImageIDs == nil {
		dto.ImageIDs = []string{}
	}
	if dto.Tags == nil {
		dto.Tags = []string{}
	}
	return dto
}

// ToListingDTOs converts a slice of listings
func ToListingDTOs(listings []*catalog.Listing) []ListingDTO {
	out := make([]ListingDTO, len(listings))
	for i, l := range listings {
		out[i] = ToListingDTO(l)
	}
	return out
}
