package persistence

import (
	"context"

	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/domain/shared/valueobject"
	"github.com/b2bmarket/backend/internal/infrastructure/docstore"
)

// listingExpand is dereferenced on every catalog read
var listingExpand = []string{"company", "category", "images"}

// ListingRepository stores products and services as "product" and "service"
// documents. The kind is the document type.
type ListingRepository struct {
	store docstore.Store
}

// NewListingRepository creates a listing repository
func NewListingRepository(store docstore.Store) *ListingRepository {
	return &ListingRepository{store: store}
}

func listingType(kind catalog.Kind) string {
	if kind == catalog.KindService {
		return TypeService
	}
	return TypeProduct
}

func listingFields(l *catalog.Listing) docstore.Document {
	return docstore.Document{
		"name":         l.Name,
		"slug":         l.Slug,
		"description":  l.Description,
		"price":        l.Price.Amount().String(),
		"currency":     string(l.Price.Currency()),
		"unit":         l.Unit,
		"pricingModel": string(l.PricingModel),
		"category":     refOrNil(l.CategoryID),
		"company":      refOrNil(l.CompanyID),
		"images":       docstore.Refs(l.ImageAssetIDs),
		"tags":         nonNil(l.Tags),
		"published":    l.Published,
	}
}

func listingFromDoc(d docstore.Document) *catalog.Listing {
	kind := catalog.KindProduct
	if d.Type() == TypeService {
		kind = catalog.KindService
	}
	currency, err := valueobject.ParseCurrency(d.String("currency"))
	if err != nil {
		currency = valueobject.DefaultCurrency
	}
	price, err := valueobject.NewMoneyFromString(d.String("price"), currency)
	if err != nil {
		price = valueobject.Zero(currency)
	}

	l := &catalog.Listing{
		Kind:          kind,
		Name:          d.String("name"),
		Slug:          d.String("slug"),
		Description:   d.String("description"),
		Price:         price,
		Unit:          d.String("unit"),
		PricingModel:  catalog.PricingModel(d.String("pricingModel")),
		CategoryID:    d.RefID("category"),
		CompanyID:     d.RefID("company"),
		ImageAssetIDs: nonNil(d.RefIDs("images")),
		Tags:          nonNil(d.Strings("tags")),
		Published:     d.Bool("published"),
	}
	l.Entity = entityFrom(d)

	if c, ok := d.Expanded("company"); ok {
		l.Company = &catalog.CompanySummary{
			ID:     c.ID(),
			Name:   c.String("name"),
			Slug:   c.String("slug"),
			Status: c.String("status"),
		}
	}
	if c, ok := d.Expanded("category"); ok {
		l.Category = &catalog.CategorySummary{
			ID:    c.ID(),
			Title: c.String("title"),
			Slug:  c.String("slug"),
		}
	}
	l.Images = imagesFromDoc(d)
	return l
}

// imagesFromDoc returns the expanded image assets; unresolved refs are
// skipped.
func imagesFromDoc(d docstore.Document) []catalog.ImageSummary {
	items, _ := d["images"].([]any)
	out := make([]catalog.ImageSummary, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		img := docstore.Document(m)
		if img.Type() != TypeAsset {
			continue
		}
		out = append(out, catalog.ImageSummary{ID: img.ID(), URL: img.String("url")})
	}
	return out
}

// Create implements catalog.ListingRepository
func (r *ListingRepository) Create(ctx context.Context, l *catalog.Listing) error {
	doc := listingFields(l)
	doc[docstore.FieldType] = listingType(l.Kind)
	return create(ctx, r.store, &l.Entity, doc)
}

// Update implements catalog.ListingRepository
func (r *ListingRepository) Update(ctx context.Context, l *catalog.Listing) error {
	return update(ctx, r.store, &l.Entity, listingFields(l))
}

// Delete implements catalog.ListingRepository
func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	if _, err := getTyped(ctx, r.store, id, TypeProduct, TypeService); err != nil {
		return err
	}
	return mapStoreError(r.store.Delete(ctx, id))
}

// FindByID implements catalog.ListingRepository
func (r *ListingRepository) FindByID(ctx context.Context, id string) (*catalog.Listing, error) {
	doc, err := getTyped(ctx, r.store, id, TypeProduct, TypeService)
	if err != nil {
		return nil, err
	}
	if err := docstore.Expand(ctx, r.store, []docstore.Document{doc}, []string{"category", "images"}); err != nil {
		return nil, mapStoreError(err)
	}
	return listingFromDoc(doc), nil
}

// ListByCompany implements catalog.ListingRepository. Without a kind it
// returns the products first, then the services.
func (r *ListingRepository) ListByCompany(ctx context.Context, companyID string, f catalog.ListingFilter) (shared.Paginated[*catalog.Listing], error) {
	build := func(kind catalog.Kind) docstore.Query {
		q := docstore.Query{
			Type:    listingType(kind),
			Filters: []docstore.Filter{docstore.RefTo("company", companyID)},
			Order:   []docstore.Order{{Field: docstore.FieldCreatedAt, Desc: true}},
			Expand:  []string{"category", "images"},
		}
		if f.Published != nil {
			q.Filters = append(q.Filters, docstore.Eq("published", *f.Published))
		}
		if f.Search != "" {
			q.Search = &docstore.Search{Fields: []string{"name", "description"}, Term: f.Search}
		}
		return q
	}
	if f.Kind != "" {
		return paginate(ctx, r.store, build(f.Kind), f.Pagination, listingFromDoc)
	}

	var all []*catalog.Listing
	for _, kind := range []catalog.Kind{catalog.KindProduct, catalog.KindService} {
		docs, err := r.store.Query(ctx, build(kind))
		if err != nil {
			return shared.Paginated[*catalog.Listing]{}, mapStoreError(err)
		}
		for _, d := range docs {
			all = append(all, listingFromDoc(d))
		}
	}
	total := int64(len(all))
	start := min(f.Pagination.Offset(), len(all))
	end := min(start+f.Pagination.Limit(), len(all))
	return shared.NewPaginated(all[start:end], total, f.Pagination), nil
}

// ListPublished implements catalog.ListingRepository
func (r *ListingRepository) ListPublished(ctx context.Context, kinds ...catalog.Kind) ([]*catalog.Listing, error) {
	if len(kinds) == 0 {
		kinds = []catalog.Kind{catalog.KindProduct, catalog.KindService}
	}
	var out []*catalog.Listing
	for _, kind := range kinds {
		docs, err := r.store.Query(ctx, docstore.Query{
			Type:    listingType(kind),
			Filters: []docstore.Filter{docstore.Eq("published", true)},
			Order:   []docstore.Order{{Field: docstore.FieldCreatedAt, Desc: true}},
			Expand:  listingExpand,
		})
		if err != nil {
			return nil, mapStoreError(err)
		}
		for _, d := range docs {
			out = append(out, listingFromDoc(d))
		}
	}
	return out, nil
}

// FindPublished implements catalog.ListingRepository
func (r *ListingRepository) FindPublished(ctx context.Context, id string) (*catalog.Listing, error) {
	doc, err := getTyped(ctx, r.store, id, TypeProduct, TypeService)
	if err != nil {
		return nil, err
	}
	if !doc.Bool("published") {
		return nil, shared.ErrNotFound
	}
	if err := docstore.Expand(ctx, r.store, []docstore.Document{doc}, listingExpand); err != nil {
		return nil, mapStoreError(err)
	}
	return listingFromDoc(doc), nil
}

var _ catalog.ListingRepository = (*ListingRepository)(nil)

// CategoryRepository stores categories as "category" documents
type CategoryRepository struct {
	store docstore.Store
}

// NewCategoryRepository creates a category repository
func NewCategoryRepository(store docstore.Store) *CategoryRepository {
	return &CategoryRepository{store: store}
}

func categoryFields(c *catalog.Category) docstore.Document {
	return docstore.Document{
		"title":       c.Title,
		"slug":        c.Slug,
		"description": c.Description,
		"kind":        string(c.Kind),
	}
}

func categoryFromDoc(d docstore.Document) *catalog.Category {
	kind := catalog.CategoryKind(d.String("kind"))
	if kind == "" {
		kind = catalog.CategoryKindBoth
	}
	c := &catalog.Category{
		Title:       d.String("title"),
		Slug:        d.String("slug"),
		Description: d.String("description"),
		Kind:        kind,
	}
	c.Entity = entityFrom(d)
	return c
}

// Create implements catalog.CategoryRepository
func (r *CategoryRepository) Create(ctx context.Context, c *catalog.Category) error {
	doc := categoryFields(c)
	doc[docstore.FieldType] = TypeCategory
	return create(ctx, r.store, &c.Entity, doc)
}

// Update implements catalog.CategoryRepository
func (r *CategoryRepository) Update(ctx context.Context, c *catalog.Category) error {
	return update(ctx, r.store, &c.Entity, categoryFields(c))
}

// FindByID implements catalog.CategoryRepository
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*catalog.Category, error) {
	doc, err := getTyped(ctx, r.store, id, TypeCategory)
	if err != nil {
		return nil, err
	}
	return categoryFromDoc(doc), nil
}

// FindBySlug implements catalog.CategoryRepository
func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Category, error) {
	doc, err := findOne(ctx, r.store, docstore.Query{
		Type:    TypeCategory,
		Filters: []docstore.Filter{docstore.Eq("slug", slug)},
	})
	if err != nil {
		return nil, err
	}
	return categoryFromDoc(doc), nil
}

// List implements catalog.CategoryRepository
func (r *CategoryRepository) List(ctx context.Context) ([]*catalog.Category, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Type:  TypeCategory,
		Order: []docstore.Order{{Field: "title"}},
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	out := make([]*catalog.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, categoryFromDoc(d))
	}
	return out, nil
}

var _ catalog.CategoryRepository = (*CategoryRepository)(nil)
