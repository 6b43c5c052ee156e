// Package catalog holds the public catalog and the listing management use
// cases.
package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var (
	ErrInvalidType       = shared.NewDomainError("INVALID_TYPE", "Type must be product, service or all")
	ErrInvalidSort       = shared.NewDomainError("INVALID_SORT", "Sort must be newest, price_asc, price_desc or name")
	ErrInvalidPriceRange = shared.NewDomainError("INVALID_PRICE_RANGE", "Minimum price cannot exceed maximum price")
)

// CatalogService serves the public catalog. Listings are loaded with their
// company and category already dereferenced and filtered in memory, so
// facets can be counted over the whole filtered set.
type CatalogService struct {
	listings   catalog.ListingRepository
	categories catalog.CategoryRepository
	logger     *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(listings catalog.ListingRepository, categories catalog.CategoryRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		listings:   listings,
		categories: categories,
		logger:     logger,
	}
}

func kindsFor(t string) ([]catalog.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "all":
		return []catalog.Kind{catalog.KindProduct, catalog.KindService}, nil
	case string(catalog.KindProduct):
		return []catalog.Kind{catalog.KindProduct}, nil
	case string(catalog.KindService):
		return []catalog.Kind{catalog.KindService}, nil
	}
	return nil, ErrInvalidType
}

// Fetch returns one page of published listings of active companies
func (s *CatalogService) Fetch(ctx context.Context, q CatalogQuery) (*CatalogResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog", "fetch",
		"type", q.Type, "category", q.Category, "company", q.Company, "sort", q.Sort)
	defer span.End()

	kinds, err := kindsFor(q.Type)
	if err != nil {
		return nil, err
	}
	sortBy := q.Sort
	if sortBy == "" {
		sortBy = SortNewest
	}
	switch sortBy {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortName:
	default:
		return nil, ErrInvalidSort
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, ErrInvalidPriceRange
	}

	all, err := s.listings.ListPublished(ctx, kinds...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	match := newMatcher(q)
	filtered := make([]*catalog.Listing, 0, len(all))
	for _, l := range all {
		if match.matches(l) {
			filtered = append(filtered, l)
		}
	}
	sortListings(filtered, sortBy)

	p := shared.NewPagination(q.Page, q.PageSize)
	start := min(p.Offset(), len(filtered))
	end := min(start+p.Limit(), len(filtered))
	page := shared.NewPaginated(ToListingDTOs(filtered[start:end]), int64(len(filtered)), p)

	telemetry.SetAttributes(span, "results", len(filtered))
	return &CatalogResult{
		Items:      page.Items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		Facets:     countFacets(filtered),
	}, nil
}

// matcher applies the catalog filters to one listing
type matcher struct {
	query CatalogQuery
	terms []string
	fold  cases.Caser
}

func newMatcher(q CatalogQuery) *matcher {
	m := &matcher{query: q, fold: cases.Fold()}
	m.terms = strings.Fields(m.fold.String(q.Search))
	return m
}

func (m *matcher) matches(l *catalog.Listing) bool {
	if l.Company == nil || l.Company.Status != string(company.StatusActive) {
		return false
	}
	if ref := m.query.Category; ref != "" {
		if l.Category == nil || (l.Category.ID != ref && l.Category.Slug != ref) {
			return false
		}
	}
	if ref := m.query.Company; ref != "" && l.Company.ID != ref && l.Company.Slug != ref {
		return false
	}
	if !l.PriceBetween(m.query.MinPrice, m.query.MaxPrice) {
		return false
	}
	if len(m.terms) == 0 {
		return true
	}
	text := m.fold.String(l.Name + "\n" + l.Description + "\n" + strings.Join(l.Tags, "\n"))
	for _, term := range m.terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

func sortListings(listings []*catalog.Listing, sortBy string) {
	coll := collate.New(language.English, collate.IgnoreCase, collate.Loose)
	byName := func(a, b *catalog.Listing) bool {
		return coll.CompareString(a.Name, b.Name) < 0
	}
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i], listings[j]
		switch sortBy {
		case SortPriceAsc:
			if c := a.Price.Amount().Cmp(b.Price.Amount()); c != 0 {
				return c < 0
			}
			return byName(a, b)
		case SortPriceDesc:
			if c := a.Price.Amount().Cmp(b.Price.Amount()); c != 0 {
				return c > 0
			}
			return byName(a, b)
		case SortName:
			return byName(a, b)
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
}

func countFacets(listings []*catalog.Listing) Facets {
	kinds := newFacetCounter()
	categories := newFacetCounter()
	companies := newFacetCounter()
	for _, l := range listings {
		label := "Products"
		if l.Kind == catalog.KindService {
			label = "Services"
		}
		kinds.add(string(l.Kind), label)
		if l.Category != nil {
			categories.add(l.Category.ID, l.Category.Title)
		}
		if l.Company != nil {
			companies.add(l.Company.ID, l.Company.Name)
		}
	}
	return Facets{
		Kinds:      kinds.result(),
		Categories: categories.result(),
		Companies:  companies.result(),
	}
}

type facetCounter struct {
	index map[string]int
	items []FacetCount
}

func newFacetCounter() *facetCounter {
	return &facetCounter{index: map[string]int{}, items: []FacetCount{}}
}

func (f *facetCounter) add(value, label string) {
	if i, ok := f.index[value]; ok {
		f.items[i].Count++
		return
	}
	f.index[value] = len(f.items)
	f.items = append(f.items, FacetCount{Value: value, Label: label, Count: 1})
}

// result orders buckets by count, then label
func (f *facetCounter) result() []FacetCount {
	sort.SliceStable(f.items, func(i, j int) bool {
		if f.items[i].Count != f.items[j].Count {
			return f.items[i].Count > f.items[j].Count
		}
		return f.items[i].Label < f.items[j].Label
	})
	return f.items
}

// Get returns one published listing of an active company
func (s *CatalogService) Get(ctx context.Context, id string) (*ListingDTO, error) {
	l, err := s.listings.FindPublished(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Company == nil || l.Company.Status != string(company.StatusActive) {
		return nil, shared.ErrNotFound
	}
	dto := ToListingDTO(l)
	return &dto, nil
}

// Categories lists the categories, optionally only those accepting kind
func (s *CatalogService) Categories(ctx context.Context, kind string) ([]CategoryDTO, error) {
	all, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryDTO, 0, len(all))
	for _, c := range all {
		if kind != "" && !c.Accepts(catalog.Kind(kind)) {
			continue
		}
		out = append(out, ToCategoryDTO(c))
	}
	return out, nil
}
