package identity

import (
	"context"

	"github.com/b2bmarket/backend/internal/domain/shared"
)

// UserRepository persists users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByAccountID(ctx context.Context, accountID string) (*User, error)
	ListByCompany(ctx context.Context, companyID string, filter UserFilter) (shared.Paginated[*User], error)
	// ListAdmins returns the active admins of a company.
	ListAdmins(ctx context.Context, companyID string) ([]*User, error)
}

// UserFilter narrows ListByCompany
type UserFilter struct {
	shared.Pagination
	Search string
	Role   Role
	Status UserStatus
}
