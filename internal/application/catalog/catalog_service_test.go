package catalog

import (
	"context"
	"testing"

	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/domain/shared/valueobject"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"github.com/b2bmarket/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func names(items []ListingDTO) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

type catalogFixture struct {
	env        *testutil.Env
	catalog    *CatalogService
	listings   *ListingService
	tools      *catalog.Category
	consulting *catalog.Category
	ids        map[string]string
}

func newListingService(env *testutil.Env) *ListingService {
	return NewListingService(env.Listings, env.Categories, env.Companies, env.Assets, telemetry.NopMarketMetrics(), env.Logger)
}

// newCatalogFixture publishes four listings of two active companies, one
// draft and one listing of a pending company.
func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	ctx := context.Background()
	env := testutil.NewEnv(t)
	f := &catalogFixture{
		env:        env,
		catalog:    NewCatalogService(env.Listings, env.Categories, env.Logger),
		listings:   newListingService(env),
		tools:      env.CreateCategory(t, "Tools", catalog.CategoryKindProduct),
		consulting: env.CreateCategory(t, "Consulting", catalog.CategoryKindService),
		ids:        map[string]string{},
	}
	env.CreateCategory(t, "General", catalog.CategoryKindBoth)

	acme := env.CreateCompany(t, "Acme Tools", company.StatusActive)
	acmeUser := env.CreateUser(t, acme.ID, "Ada", "ada@acme.test", identity.RoleAdmin)
	globex := env.CreateCompany(t, "Globex", company.StatusActive)
	globexUser := env.CreateUser(t, globex.ID, "Gus", "gus@globex.test", identity.RoleAdmin)

	create := func(actor *identity.User, kind catalog.Kind, name, price string, category *catalog.Category, published bool, tags ...string) {
		dto, err := f.listings.Create(ctx, actor, kind, ListingInput{
			Name:       name,
			Price:      price,
			CategoryID: category.ID,
			Tags:       tags,
			Published:  boolPtr(published),
		})
		require.NoError(t, err)
		f.ids[name] = dto.ID
	}
	create(acmeUser, catalog.KindProduct, "Hammer", "10", f.tools, true, "Steel")
	create(acmeUser, catalog.KindProduct, "Anvil", "120", f.tools, true)
	create(acmeUser, catalog.KindProduct, "Draft", "3", f.tools, false)
	create(globexUser, catalog.KindService, "Consulting", "200", f.consulting, true)
	create(globexUser, catalog.KindProduct, "Bolt", "1", f.tools, true)

	initech := env.CreateCompany(t, "Initech", company.StatusPending)
	stapler, err := catalog.NewListing(catalog.KindProduct, initech.ID, "Stapler", valueobject.Zero(valueobject.EUR))
	require.NoError(t, err)
	require.NoError(t, stapler.AssignCategory(f.tools))
	stapler.Publish()
	require.NoError(t, env.Listings.Create(ctx, stapler))
	f.ids["Stapler"] = stapler.ID
	return f
}

func TestCatalogService_Fetch(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)

	t.Run("defaults to newest published listings of active companies", func(t *testing.T) {
		res, err := f.catalog.Fetch(ctx, CatalogQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), res.Total)
		assert.Equal(t, []string{"Bolt", "Consulting", "Anvil", "Hammer"}, names(res.Items))

		bolt := res.Items[0]
		require.NotNil(t, bolt.Company)
		assert.Equal(t, "globex", bolt.Company.Slug)
		require.NotNil(t, bolt.Category)
		assert.Equal(t, "Tools", bolt.Category.Title)

		assert.Equal(t, []FacetCount{
			{Value: "product", Label: "Products", Count: 3},
			{Value: "service", Label: "Services", Count: 1},
		}, res.Facets.Kinds)
		require.Len(t, res.Facets.Companies, 2)
		assert.Equal(t, "Acme Tools", res.Facets.Companies[0].Label)
		assert.Equal(t, 2, res.Facets.Companies[0].Count)
		require.Len(t, res.Facets.Categories, 2)
		assert.Equal(t, FacetCount{Value: f.tools.ID, Label: "Tools", Count: 3}, res.Facets.Categories[0])
	})

	tests := []struct {
		name  string
		query CatalogQuery
		want  []string
	}{
		{"services only", CatalogQuery{Type: "service"}, []string{"Consulting"}},
		{"category by slug", CatalogQuery{Category: "tools", Sort: SortName}, []string{"Anvil", "Bolt", "Hammer"}},
		{"category by id and company by slug", CatalogQuery{Category: f.tools.ID, Company: "globex"}, []string{"Bolt"}},
		{"search matches tags case-insensitively", CatalogQuery{Search: "STEEL"}, []string{"Hammer"}},
		{"search matches names", CatalogQuery{Search: "consult"}, []string{"Consulting"}},
		{"price range", CatalogQuery{MinPrice: decPtr("5"), MaxPrice: decPtr("100")}, []string{"Hammer"}},
		{"price ascending", CatalogQuery{Sort: SortPriceAsc}, []string{"Bolt", "Hammer", "Anvil", "Consulting"}},
		{"price descending", CatalogQuery{Sort: SortPriceDesc}, []string{"Consulting", "Anvil", "Hammer", "Bolt"}},
		{"name", CatalogQuery{Sort: SortName}, []string{"Anvil", "Bolt", "Consulting", "Hammer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.catalog.Fetch(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(res.Items))
		})
	}

	t.Run("facets count the filtered set before paging", func(t *testing.T) {
		res, err := f.catalog.Fetch(ctx, CatalogQuery{Page: 2, PageSize: 3})
		require.NoError(t, err)
		assert.Equal(t, []string{"Hammer"}, names(res.Items))
		assert.Equal(t, 2, res.TotalPages)
		assert.Equal(t, 3, res.Facets.Kinds[0].Count)
	})

	t.Run("page size is capped", func(t *testing.T) {
		res, err := f.catalog.Fetch(ctx, CatalogQuery{PageSize: 1000})
		require.NoError(t, err)
		assert.Equal(t, shared.MaxPageSize, res.PageSize)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		_, err := f.catalog.Fetch(ctx, CatalogQuery{Type: "vehicle"})
		assert.ErrorIs(t, err, ErrInvalidType)
		_, err = f.catalog.Fetch(ctx, CatalogQuery{Sort: "popular"})
		assert.ErrorIs(t, err, ErrInvalidSort)
		_, err = f.catalog.Fetch(ctx, CatalogQuery{MinPrice: decPtr("10"), MaxPrice: decPtr("1")})
		assert.ErrorIs(t, err, ErrInvalidPriceRange)
	})
}

func TestCatalogService_Get(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)

	got, err := f.catalog.Get(ctx, f.ids["Anvil"])
	require.NoError(t, err)
	assert.Equal(t, "Anvil", got.Name)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(120)))

	_, err = f.catalog.Get(ctx, f.ids["Draft"])
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.catalog.Get(ctx, f.ids["Stapler"])
	assert.ErrorIs(t, err, shared.ErrNotFound, "listings of inactive companies are hidden")
}

func TestCatalogService_Categories(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)

	all, err := f.catalog.Categories(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	services, err := f.catalog.Categories(ctx, "service")
	require.NoError(t, err)
	var slugs []string
	for _, c := range services {
		slugs = append(slugs, c.Slug)
	}
	assert.ElementsMatch(t, []string{"consulting", "general"}, slugs)
}
