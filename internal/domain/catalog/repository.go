package catalog

import (
	"context"

	"github.com/b2bmarket/backend/internal/domain/shared"
)

// ListingRepository persists products and services
type ListingRepository interface {
	Create(ctx context.Context, l *Listing) error
	Update(ctx context.Context, l *Listing) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Listing, error)
	ListByCompany(ctx context.Context, companyID string, filter ListingFilter) (shared.Paginated[*Listing], error)
	// ListPublished returns every published listing of the given kinds with
	// company and category summaries filled in.
	ListPublished(ctx context.Context, kinds ...Kind) ([]*Listing, error)
	// FindPublished returns one listing with summaries filled in.
	FindPublished(ctx context.Context, id string) (*Listing, error)
}

// ListingFilter narrows ListByCompany
type ListingFilter struct {
	shared.Pagination
	Kind      Kind
	Search    string
	Published *bool
}

// CategoryRepository persists categories
type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	FindByID(ctx context.Context, id string) (*Category, error)
	FindBySlug(ctx context.Context, slug string) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
}
