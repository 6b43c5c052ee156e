package persistence

import (
	"context"
	"errors"

	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/domain/shared/valueobject"
	"github.com/b2bmarket/backend/internal/infrastructure/docstore"
)

// CompanyRepository stores companies as "company" documents
type CompanyRepository struct {
	store docstore.Store
}

// NewCompanyRepository creates a company repository
func NewCompanyRepository(store docstore.Store) *CompanyRepository {
	return &CompanyRepository{store: store}
}

func companyFields(c *company.Company) docstore.Document {
	return docstore.Document{
		"name":        c.Name,
		"slug":        c.Slug,
		"description": c.Description,
		"email":       c.Email,
		"phone":       c.Phone,
		"website":     c.Website,
		"vatNumber":   c.VATNumber,
		"address":     c.Address.ToMap(),
		"logo":        refOrNil(c.LogoAssetID),
		"categories":  docstore.Refs(c.CategoryIDs),
		"status":      string(c.Status),
		"activatedAt": timeOrNil(c.ActivatedAt),
	}
}

func companyFromDoc(d docstore.Document) *company.Company {
	c := &company.Company{
		Name:        d.String("name"),
		Slug:        d.String("slug"),
		Description: d.String("description"),
		Email:       d.String("email"),
		Phone:       d.String("phone"),
		Website:     d.String("website"),
		VATNumber:   d.String("vatNumber"),
		Address:     valueobject.AddressFromMap(d.Map("address")),
		LogoAssetID: d.RefID("logo"),
		CategoryIDs: nonNil(d.RefIDs("categories")),
		Status:      company.Status(d.String("status")),
		ActivatedAt: timePtr(d, "activatedAt"),
	}
	c.Entity = entityFrom(d)
	return c
}

// Create implements company.Repository
func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) error {
	doc := companyFields(c)
	doc[docstore.FieldType] = TypeCompany
	return create(ctx, r.store, &c.Entity, doc)
}

// Update implements company.Repository
func (r *CompanyRepository) Update(ctx context.Context, c *company.Company) error {
	return update(ctx, r.store, &c.Entity, companyFields(c))
}

// UpdateIfUnchanged implements company.Repository
func (r *CompanyRepository) UpdateIfUnchanged(ctx context.Context, c *company.Company) error {
	return updateIfUnchanged(ctx, r.store, &c.Entity, companyFields(c))
}

// Delete implements company.Repository
func (r *CompanyRepository) Delete(ctx context.Context, id string) error {
	if _, err := getTyped(ctx, r.store, id, TypeCompany); err != nil {
		return err
	}
	return mapStoreError(r.store.Delete(ctx, id))
}

// FindByID implements company.Repository
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*company.Company, error) {
	doc, err := getTyped(ctx, r.store, id, TypeCompany)
	if err != nil {
		return nil, err
	}
	return companyFromDoc(doc), nil
}

// FindBySlug implements company.Repository
func (r *CompanyRepository) FindBySlug(ctx context.Context, slug string) (*company.Company, error) {
	doc, err := findOne(ctx, r.store, docstore.Query{
		Type:    TypeCompany,
		Filters: []docstore.Filter{docstore.Eq("slug", slug)},
	})
	if err != nil {
		return nil, err
	}
	return companyFromDoc(doc), nil
}

// ExistsBySlug implements company.Repository
func (r *CompanyRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	_, err := r.FindBySlug(ctx, slug)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// List implements company.Repository
func (r *CompanyRepository) List(ctx context.Context, f company.Filter) (shared.Paginated[*company.Company], error) {
	q := docstore.Query{
		Type:  TypeCompany,
		Order: []docstore.Order{{Field: "name"}},
	}
	if f.Status != "" {
		q.Filters = append(q.Filters, docstore.Eq("status", string(f.Status)))
	}
	if f.CategoryID != "" {
		q.Filters = append(q.Filters, docstore.Contains("categories", f.CategoryID))
	}
	if f.Search != "" {
		q.Search = &docstore.Search{Fields: []string{"name", "description", "address.city"}, Term: f.Search}
	}
	return paginate(ctx, r.store, q, f.Pagination, companyFromDoc)
}

var _ company.Repository = (*CompanyRepository)(nil)
