package catalog

import (
	"strings"

	"github.com/b2bmarket/backend/internal/domain/shared"
)

// CategoryKind limits which listings a category accepts
type CategoryKind string

const (
	CategoryKindProduct CategoryKind = "product"
	CategoryKindService CategoryKind = "service"
	CategoryKindBoth    CategoryKind = "both"
)

// IsValid reports whether k is known
func (k CategoryKind) IsValid() bool {
	return k == CategoryKindProduct || k == CategoryKindService || k == CategoryKindBoth
}

// Category groups listings. Categories are maintained by operators.
type Category struct {
	shared.Entity
	Title       string
	Slug        string
	Description string
	Kind        CategoryKind
}

// NewCategory creates a category; an empty slug is derived from the title.
func NewCategory(title, slug string, kind CategoryKind) (*Category, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Category title is required")
	}
	if kind == "" {
		kind = CategoryKindBoth
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATEGORY_KIND", "Category kind must be product, service or both")
	}
	if slug == "" {
		slug = title
	}
	slug = shared.Slugify(slug)
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Category slug is empty")
	}
	return &Category{Title: title, Slug: slug, Kind: kind}, nil
}

// Accepts reports whether listings of kind may be filed here
func (c *Category) Accepts(kind Kind) bool {
	switch c.Kind {
	case CategoryKindBoth:
		return true
	case CategoryKindProduct:
		return kind == KindProduct
	case CategoryKindService:
		return kind == KindService
	}
	return false
}
