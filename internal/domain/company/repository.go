package company

import (
	"context"

	"github.com/b2bmarket/backend/internal/domain/shared"
)

// Repository persists companies
type Repository interface {
	Create(ctx context.Context, c *Company) error
	Update(ctx context.Context, c *Company) error
	// UpdateIfUnchanged fails with shared.ErrStaleWrite when the company was
	// written since c was loaded.
	UpdateIfUnchanged(ctx context.Context, c *Company) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Company, error)
	FindBySlug(ctx context.Context, slug string) (*Company, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter Filter) (shared.Paginated[*Company], error)
}

// Filter narrows List
type Filter struct {
	shared.Pagination
	Search     string
	Status     Status
	CategoryID string
}
