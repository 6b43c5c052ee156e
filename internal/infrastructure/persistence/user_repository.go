package persistence

import (
	"context"

	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/docstore"
)

// UserRepository stores users as "user" documents referencing their company
type UserRepository struct {
	store docstore.Store
}

// NewUserRepository creates a user repository
func NewUserRepository(store docstore.Store) *UserRepository {
	return &UserRepository{store: store}
}

func userFields(u *identity.User) docstore.Document {
	return docstore.Document{
		"name":      u.Name,
		"email":     u.Email,
		"role":      string(u.Role),
		"status":    string(u.Status),
		"company":   refOrNil(u.CompanyID),
		"accountId": u.AccountID,
		"invitedBy": refOrNil(u.InvitedBy),
		"invitedAt": timeOrNil(u.InvitedAt),
		"joinedAt":  timeOrNil(u.JoinedAt),
	}
}

func userFromDoc(d docstore.Document) *identity.User {
	u := &identity.User{
		Name:      d.String("name"),
		Email:     d.String("email"),
		Role:      identity.Role(d.String("role")),
		Status:    identity.UserStatus(d.String("status")),
		CompanyID: d.RefID("company"),
		AccountID: d.String("accountId"),
		InvitedBy: d.RefID("invitedBy"),
		InvitedAt: timePtr(d, "invitedAt"),
		JoinedAt:  timePtr(d, "joinedAt"),
	}
	u.Entity = entityFrom(d)
	return u
}

// Create implements identity.UserRepository
func (r *UserRepository) Create(ctx context.Context, u *identity.User) error {
	doc := userFields(u)
	doc[docstore.FieldType] = TypeUser
	return create(ctx, r.store, &u.Entity, doc)
}

// Update implements identity.UserRepository
func (r *UserRepository) Update(ctx context.Context, u *identity.User) error {
	return update(ctx, r.store, &u.Entity, userFields(u))
}

// Delete implements identity.UserRepository
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := getTyped(ctx, r.store, id, TypeUser); err != nil {
		return err
	}
	return mapStoreError(r.store.Delete(ctx, id))
}

// FindByID implements identity.UserRepository
func (r *UserRepository) FindByID(ctx context.Context, id string) (*identity.User, error) {
	doc, err := getTyped(ctx, r.store, id, TypeUser)
	if err != nil {
		return nil, err
	}
	return userFromDoc(doc), nil
}

// FindByEmail implements identity.UserRepository
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	doc, err := findOne(ctx, r.store, docstore.Query{
		Type:    TypeUser,
		Filters: []docstore.Filter{docstore.Eq("email", email)},
	})
	if err != nil {
		return nil, err
	}
	return userFromDoc(doc), nil
}

// FindByAccountID implements identity.UserRepository
func (r *UserRepository) FindByAccountID(ctx context.Context, accountID string) (*identity.User, error) {
	doc, err := findOne(ctx, r.store, docstore.Query{
		Type:    TypeUser,
		Filters: []docstore.Filter{docstore.Eq("accountId", accountID)},
	})
	if err != nil {
		return nil, err
	}
	return userFromDoc(doc), nil
}

// ListByCompany implements identity.UserRepository
func (r *UserRepository) ListByCompany(ctx context.Context, companyID string, f identity.UserFilter) (shared.Paginated[*identity.User], error) {
	q := docstore.Query{
		Type:    TypeUser,
		Filters: []docstore.Filter{docstore.RefTo("company", companyID)},
		Order:   []docstore.Order{{Field: "name"}},
	}
	if f.Role != "" {
		q.Filters = append(q.Filters, docstore.Eq("role", string(f.Role)))
	}
	if f.Status != "" {
		q.Filters = append(q.Filters, docstore.Eq("status", string(f.Status)))
	}
	if f.Search != "" {
		q.Search = &docstore.Search{Fields: []string{"name", "email"}, Term: f.Search}
	}
	return paginate(ctx, r.store, q, f.Pagination, userFromDoc)
}

// ListAdmins implements identity.UserRepository
func (r *UserRepository) ListAdmins(ctx context.Context, companyID string) ([]*identity.User, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Type: TypeUser,
		Filters: []docstore.Filter{
			docstore.RefTo("company", companyID),
			docstore.Eq("role", string(identity.RoleAdmin)),
			docstore.Eq("status", string(identity.UserStatusActive)),
		},
		Order: []docstore.Order{{Field: docstore.FieldCreatedAt}},
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	out := make([]*identity.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, userFromDoc(d))
	}
	return out, nil
}

var _ identity.UserRepository = (*UserRepository)(nil)
