// Package catalog models what companies offer: products and services, and the
// categories they are filed under.
package catalog

import (
	"strings"
	"unicode/utf8"

	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Kind distinguishes products from services. It is also the document type.
type Kind string

const (
	KindProduct Kind = "product"
	KindService Kind = "service"
)

// IsValid reports whether k is a listing kind
func (k Kind) IsValid() bool {
	return k == KindProduct || k == KindService
}

// PricingModel states how a service is charged
type PricingModel string

const (
	PricingFixed  PricingModel = "fixed"
	PricingHourly PricingModel = "hourly"
	PricingDaily  PricingModel = "daily"
	PricingQuote  PricingModel = "quote"
)

// IsValid reports whether p is a known pricing model
func (p PricingModel) IsValid() bool {
	switch p {
	case PricingFixed, PricingHourly, PricingDaily, PricingQuote:
		return true
	}
	return false
}

const (
	maxNameLength        = 200
	maxDescriptionLength = 10000
	maxTags              = 20
	maxImages            = 10
)

var (
	ErrInvalidListingName = shared.NewDomainError("INVALID_LISTING_NAME", "Name is required and cannot exceed 200 characters")
	ErrInvalidKind        = shared.NewDomainError("INVALID_KIND", "Kind must be product or service")
	ErrInvalidPrice       = shared.NewDomainError("INVALID_PRICE", "Price must be a non-negative amount")
	ErrInvalidPricing     = shared.NewDomainError("INVALID_PRICING_MODEL", "Pricing model must be fixed, hourly, daily or quote")
	ErrCategoryMismatch   = shared.NewDomainError("CATEGORY_MISMATCH", "Category does not accept this kind of listing")
	ErrTooManyImages      = shared.NewDomainError("TOO_MANY_IMAGES", "A listing can have at most 10 images")
)

// CompanySummary is the denormalized company embedded in catalog reads
type CompanySummary struct {
	ID     string
	Name   string
	Slug   string
	Status string
}

// CategorySummary is the denormalized category embedded in catalog reads
type CategorySummary struct {
	ID    string
	Title string
	Slug  string
}

// ImageSummary is an image asset resolved on reads
type ImageSummary struct {
	ID  string
	URL string
}

// Listing is a product or a service offered by a company
type Listing struct {
	shared.AggregateRoot
	Kind          Kind
	Name          string
	Slug          string
	Description   string
	Price         valueobject.Money
	Unit          string       // products: "piece", "kg", ...
	PricingModel  PricingModel // services
	CategoryID    string
	CompanyID     string
	ImageAssetIDs []string
	Tags          []string
	Published     bool

	// Populated on catalog reads only.
	Company  *CompanySummary
	Category *CategorySummary
	Images   []ImageSummary
}

// NewListing creates an unpublished listing
func NewListing(kind Kind, companyID, name string, price valueobject.Money) (*Listing, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	l := &Listing{
		Kind:          kind,
		CompanyID:     companyID,
		ImageAssetIDs: []string{},
		Tags:          []string{},
	}
	if kind == KindService {
		l.PricingModel = PricingFixed
	}
	if err := l.Rename(name); err != nil {
		return nil, err
	}
	if err := l.SetPrice(price); err != nil {
		return nil, err
	}
	return l, nil
}

// Rename changes the name and slug
func (l *Listing) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return ErrInvalidListingName
	}
	l.Name = name
	l.Slug = shared.Slugify(name)
	l.Touch()
	return nil
}

// SetDescription replaces the description
func (l *Listing) SetDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 10000 characters")
	}
	l.Description = strings.TrimSpace(description)
	l.Touch()
	return nil
}

// SetPrice replaces the price
func (l *Listing) SetPrice(price valueobject.Money) error {
	if price.Currency() == "" || price.Amount().IsNegative() {
		return ErrInvalidPrice
	}
	l.Price = price
	l.Touch()
	return nil
}

// SetUnit sets the sales unit of a product
func (l *Listing) SetUnit(unit string) {
	l.Unit = strings.TrimSpace(unit)
	l.Touch()
}

// SetPricingModel sets how a service is charged
func (l *Listing) SetPricingModel(p PricingModel) error {
	if l.Kind != KindService {
		return shared.NewDomainError("PRICING_MODEL_SERVICE_ONLY", "Only services have a pricing model")
	}
	if !p.IsValid() {
		return ErrInvalidPricing
	}
	l.PricingModel = p
	l.Touch()
	return nil
}

// AssignCategory files the listing under c
func (l *Listing) AssignCategory(c *Category) error {
	if !c.Accepts(l.Kind) {
		return ErrCategoryMismatch
	}
	l.CategoryID = c.ID
	l.Touch()
	return nil
}

// SetImages replaces the image assets
func (l *Listing) SetImages(assetIDs []string) error {
	ids := dedupe(assetIDs)
	if len(ids) > maxImages {
		return ErrTooManyImages
	}
	l.ImageAssetIDs = ids
	l.Touch()
	return nil
}

// SetTags replaces the search tags; tags are lowercased.
func (l *Listing) SetTags(tags []string) {
	normalized := make([]string, 0, len(tags))
	for _, t := range tags {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(t)))
	}
	out := dedupe(normalized)
	if len(out) > maxTags {
		out = out[:maxTags]
	}
	l.Tags = out
	l.Touch()
}

// Publish makes the listing visible in the catalog
func (l *Listing) Publish() {
	l.Published = true
	l.Touch()
}

// Unpublish hides the listing from the catalog
func (l *Listing) Unpublish() {
	l.Published = false
	l.Touch()
}

// IsOwnedBy reports whether companyID owns the listing
func (l *Listing) IsOwnedBy(companyID string) bool {
	return l.CompanyID == companyID
}

// PriceBetween reports whether the price falls in [min, max]; nil bounds are open.
func (l *Listing) PriceBetween(min, max *decimal.Decimal) bool {
	return l.Price.Between(min, max)
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it != "" && !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}
