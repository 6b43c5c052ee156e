package company

import (
	"context"
	"testing"

	catalogapp "github.com/b2bmarket/backend/internal/application/catalog"
	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/media"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/domain/shared/valueobject"
	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"github.com/b2bmarket/backend/internal/infrastructure/pdf"
	"github.com/b2bmarket/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPages struct {
	last *Page
}

func (p *stubPages) RenderCompanyPage(page *Page) (string, error) {
	p.last = page
	return "<h1>" + page.Company.Name + "</h1>", nil
}

type stubPDF struct {
	html string
}

func (r *stubPDF) Render(_ context.Context, html string) ([]byte, error) {
	r.html = html
	return []byte("%PDF-1.7 stub"), nil
}

func (r *stubPDF) Close() error { return nil }

func strPtr(s string) *string { return &s }

func newCompanyService(env *testutil.Env, renderer pdf.Renderer, pages PageRenderer) *CompanyService {
	return NewCompanyService(env.Companies, env.Categories, env.Listings, env.Assets, renderer, pages, env.Logger)
}

func createLogo(t *testing.T, env *testutil.Env, companyID, userID string) *media.Asset {
	t.Helper()
	a, err := media.NewImageAsset(companyID, userID, "image/png", "logo.png", 512, 0)
	require.NoError(t, err)
	a.Path = "images/" + companyID + "/logo.png"
	a.URL = "https://cdn.market.test/" + a.Path
	require.NoError(t, env.Assets.Create(context.Background(), a))
	return a
}

func TestCompanyService_Lookup(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := newCompanyService(env, &stubPDF{}, &stubPages{})
	acme := env.CreateCompany(t, "Acme Tools", company.StatusActive)
	initech := env.CreateCompany(t, "Initech", company.StatusPending)

	byID, err := svc.Lookup(ctx, "", acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme-tools", byID.Slug)
	assert.True(t, byID.Active)

	bySlug, err := svc.Lookup(ctx, "", "acme-tools")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, bySlug.ID)

	_, err = svc.Lookup(ctx, acme.ID, "initech")
	assert.ErrorIs(t, err, shared.ErrNotFound, "pending companies are hidden from others")

	own, err := svc.Lookup(ctx, initech.ID, "initech")
	require.NoError(t, err)
	assert.Equal(t, string(company.StatusPending), own.Status)

	_, err = svc.Lookup(ctx, "", "no-such-company")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCompanyService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := newCompanyService(env, &stubPDF{}, &stubPages{})
	tools := env.CreateCategory(t, "Tools", catalog.CategoryKindProduct)
	acme := env.CreateCompany(t, "Acme Tools", company.StatusActive)
	ada := env.CreateUser(t, acme.ID, "Ada", "ada@acme.test", identity.RoleAdmin)
	member := env.CreateUser(t, acme.ID, "Max", "max@acme.test", identity.RoleMember)
	globex := env.CreateCompany(t, "Globex", company.StatusActive)
	gus := env.CreateUser(t, globex.ID, "Gus", "gus@globex.test", identity.RoleAdmin)
	logo := createLogo(t, env, acme.ID, ada.ID)
	foreignLogo := createLogo(t, env, globex.ID, gus.ID)

	tests := []struct {
		name  string
		actor *identity.User
		input UpdateProfileInput
		want  error
	}{
		{"members cannot edit", member, UpdateProfileInput{Name: "Acme Tools"}, identity.ErrAdminRequired},
		{"name of another company", ada, UpdateProfileInput{Name: "GLOBEX"}, company.ErrSlugTaken},
		{"blank name", ada, UpdateProfileInput{Name: "  "}, company.ErrInvalidName},
		{"bad website", ada, UpdateProfileInput{Name: "Acme Tools", Website: "ftp://acme.test"}, company.ErrInvalidWebsite},
		{"bad address", ada, UpdateProfileInput{Name: "Acme Tools", Address: &AddressDTO{City: "Berlin", Country: "Germany"}}, ErrInvalidAddress},
		{"foreign logo", ada, UpdateProfileInput{Name: "Acme Tools", LogoID: &foreignLogo.ID}, ErrInvalidLogo},
		{"unknown category", ada, UpdateProfileInput{Name: "Acme Tools", CategoryIDs: []string{"nope"}}, catalogapp.ErrUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(ctx, tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	got, err := svc.UpdateProfile(ctx, ada, UpdateProfileInput{
		Name:        "Acme Hardware",
		Description: "Tools since 1949",
		Website:     "https://acme.test",
		VATNumber:   "de 123 456 789",
		Address:     &AddressDTO{Street: "Hauptstr. 1", City: "Berlin", PostalCode: "10115", Country: "de"},
		LogoID:      &logo.ID,
		CategoryIDs: []string{tools.ID, tools.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "acme-hardware", got.Slug)
	assert.Equal(t, "DE123456789", got.VATNumber)
	require.NotNil(t, got.Address)
	assert.Equal(t, "DE", got.Address.Country)
	assert.Equal(t, logo.URL, got.LogoURL)
	assert.Equal(t, []string{tools.ID}, got.CategoryIDs)

	t.Run("nil fields are kept and an empty logo id removes the logo", func(t *testing.T) {
		got, err := svc.UpdateProfile(ctx, ada, UpdateProfileInput{Name: "Acme Hardware", LogoID: strPtr("")})
		require.NoError(t, err)
		assert.Empty(t, got.LogoURL)
		assert.NotNil(t, got.Address)
		assert.Equal(t, []string{tools.ID}, got.CategoryIDs)
	})

	profile, err := svc.GetProfile(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, "Acme Hardware", profile.Name)
}

func TestCompanyService_List(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := newCompanyService(env, &stubPDF{}, &stubPages{})
	tools := env.CreateCategory(t, "Tools", catalog.CategoryKindProduct)

	acme := env.CreateCompany(t, "Acme Tools", company.StatusActive)
	acme.SetCategories([]string{tools.ID})
	require.NoError(t, env.Companies.Update(ctx, acme))
	env.CreateCompany(t, "Globex", company.StatusActive)
	env.CreateCompany(t, "Initech", company.StatusPending)

	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
	require.Len(t, all.Items, 2)
	assert.Equal(t, "Acme Tools", all.Items[0].Name)

	byCategory, err := svc.List(ctx, ListFilter{Category: "tools"})
	require.NoError(t, err)
	require.Len(t, byCategory.Items, 1)
	assert.Equal(t, acme.ID, byCategory.Items[0].ID)

	bySearch, err := svc.List(ctx, ListFilter{Search: "glob"})
	require.NoError(t, err)
	require.Len(t, bySearch.Items, 1)
	assert.Equal(t, "Globex", bySearch.Items[0].Name)
}

func TestCompanyService_PageAndBrochure(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	pages := &stubPages{}
	renderer := &stubPDF{}
	svc := newCompanyService(env, renderer, pages)
	tools := env.CreateCategory(t, "Tools", catalog.CategoryKindProduct)
	advice := env.CreateCategory(t, "Advice", catalog.CategoryKindService)

	acme := env.CreateCompany(t, "Acme Tools", company.StatusActive)
	acme.SetCategories([]string{tools.ID, "deleted-category"})
	require.NoError(t, env.Companies.Update(ctx, acme))

	add := func(kind catalog.Kind, name string, category *catalog.Category, published bool) {
		l, err := catalog.NewListing(kind, acme.ID, name, valueobject.Zero(valueobject.EUR))
		require.NoError(t, err)
		require.NoError(t, l.AssignCategory(category))
		if published {
			l.Publish()
		}
		require.NoError(t, env.Listings.Create(ctx, l))
	}
	add(catalog.KindProduct, "Hammer", tools, true)
	add(catalog.KindProduct, "Prototype", tools, false)
	add(catalog.KindService, "Workshop", advice, true)

	page, err := svc.Page(ctx, "", "acme-tools")
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Hammer", page.Products[0].Name)
	require.Len(t, page.Services, 1)
	assert.Equal(t, "Workshop", page.Services[0].Name)
	require.Len(t, page.Categories, 1)
	assert.Equal(t, "Tools", page.Categories[0].Title)

	brochure, err := svc.Brochure(ctx, "", acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme-tools.pdf", brochure.Filename)
	assert.Equal(t, []byte("%PDF-1.7 stub"), brochure.Data)
	assert.Equal(t, "<h1>Acme Tools</h1>", renderer.html)
	require.NotNil(t, pages.last)
	assert.Equal(t, acme.ID, pages.last.Company.ID)

	t.Run("disabled renderer", func(t *testing.T) {
		disabled := newCompanyService(env, pdf.New(config.PDFConfig{}, env.Logger), pages)
		_, err := disabled.Brochure(ctx, "", acme.ID)
		assert.ErrorIs(t, err, pdf.ErrDisabled)
	})
}
