package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	catalogapp "github.com/b2bmarket/backend/internal/application/catalog"
	appcompany "github.com/b2bmarket/backend/internal/application/company"
	appidentity "github.com/b2bmarket/backend/internal/application/identity"
	appmessaging "github.com/b2bmarket/backend/internal/application/messaging"
	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/notification"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/auth"
	"github.com/b2bmarket/backend/internal/infrastructure/cache"
	"github.com/b2bmarket/backend/internal/infrastructure/docstore"
	"github.com/b2bmarket/backend/internal/infrastructure/event"
	"github.com/b2bmarket/backend/internal/infrastructure/idp"
	"github.com/b2bmarket/backend/internal/infrastructure/mail"
	"github.com/b2bmarket/backend/internal/infrastructure/persistence"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"github.com/b2bmarket/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const webhookSecret = "whsec-integration"

type marketplace struct {
	companies     company.Repository
	categories    catalog.CategoryRepository
	notifications notification.Repository
	mailer        *testutil.CaptureMailer
	auth          *appidentity.AuthService
	catalog       *catalogapp.CatalogService
	listings      *catalogapp.ListingService
	activation    *appcompany.ActivationService
	messages      *appmessaging.MessageService
}

// newMarketplace wires the services over postgres the way the server does
func newMarketplace(t *testing.T, tdb *TestDB) *marketplace {
	t.Helper()
	log := zap.NewNop()
	metrics := telemetry.NopMarketMetrics()

	kv := cache.NewMemoryKV()
	t.Cleanup(func() { _ = kv.Close() })

	store := docstore.NewSQLStore(tdb.DB, docstore.WithSQLLogger(log))
	users := persistence.NewUserRepository(store)
	companies := persistence.NewCompanyRepository(store)
	listings := persistence.NewListingRepository(store)
	categories := persistence.NewCategoryRepository(store)
	notifications := persistence.NewNotificationRepository(store)
	assets := persistence.NewAssetRepository(store)

	provider := idp.NewLocalProvider(tdb.DB, auth.NewJWTService(testutil.JWTConfig()), auth.NewTokenBlacklist(kv),
		idp.NewTokenStore(kv), testutil.IdentityConfig(), idp.WithBcryptCost(bcrypt.MinCost))

	templates, err := mail.LoadTemplates()
	require.NoError(t, err)
	mailer := &testutil.CaptureMailer{}
	links := mail.Links{BaseURL: testutil.BaseURL}

	idempotency := cache.NewIdempotencyStore(kv)
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewIdempotentHandler(
		appcompany.NewActivationNotifier(users, notifications, mailer, templates, links, log), idempotency, log))
	bus.Subscribe(event.NewIdempotentHandler(
		appmessaging.NewMessageNotifier(companies, users, notifications, mailer, templates, links, log), idempotency, log))

	return &marketplace{
		companies:     companies,
		categories:    categories,
		notifications: notifications,
		mailer:        mailer,
		auth: appidentity.NewAuthService(provider, users, companies, mailer, templates, links,
			testutil.IdentityConfig(), metrics, log),
		catalog:    catalogapp.NewCatalogService(listings, categories, log),
		listings:   catalogapp.NewListingService(listings, categories, companies, assets, metrics, log),
		activation: appcompany.NewActivationService(companies, bus, idempotency, webhookSecret, metrics, log),
		messages:   appmessaging.NewMessageService(persistence.NewMessageRepository(store), companies, listings, bus, metrics, log),
	}
}

// register signs a company up and returns its admin as the session resolves it
func (m *marketplace) register(t *testing.T, companyName, email string) *identity.User {
	t.Helper()
	ctx := context.Background()
	result, err := m.auth.Register(ctx, appidentity.RegisterInput{
		CompanyName: companyName,
		Name:        "Admin of " + companyName,
		Email:       email,
		Password:    testutil.TestPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, string(company.StatusPending), result.Company.Status)

	user, _, err := m.auth.Authenticate(ctx, result.Tokens.AccessToken)
	require.NoError(t, err)
	return user
}

func TestMarketplaceOnPostgres(t *testing.T) {
	tdb := NewTestDB(t)
	m := newMarketplace(t, tdb)
	ctx := context.Background()

	acme := m.register(t, "Acme Industrial", "ada@acme.test")
	globex := m.register(t, "Globex Logistics", "grace@globex.test")

	tools, err := catalog.NewCategory("Tools", "", catalog.CategoryKindProduct)
	require.NoError(t, err)
	require.NoError(t, m.categories.Create(ctx, tools))

	t.Run("pending companies cannot list", func(t *testing.T) {
		_, err := m.listings.Create(ctx, acme, catalog.KindProduct, catalogapp.ListingInput{
			Name: "Claw Hammer", Price: "24.90", Currency: "EUR", CategoryID: tools.ID,
		})
		assert.ErrorIs(t, err, shared.ErrCompanyInactive)
	})

	t.Run("operator activation notifies the company", func(t *testing.T) {
		activated, err := m.activation.Activate(ctx, acme.CompanyID)
		require.NoError(t, err)
		assert.True(t, activated.Active)

		unread, err := m.notifications.CountUnread(ctx, acme.CompanyID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), unread)
		assert.NotEmpty(t, m.mailer.SentTo("ada@acme.test"))
	})

	t.Run("webhook confirms a backoffice activation once", func(t *testing.T) {
		c, err := m.companies.FindByID(ctx, globex.CompanyID)
		require.NoError(t, err)
		c.Status = company.StatusActive
		require.NoError(t, m.companies.Update(ctx, c))

		body := []byte(fmt.Sprintf(`{"_id":"evt-1","companyId":%q}`, globex.CompanyID))
		delivery := appcompany.WebhookDelivery{ID: "evt-1", Signature: appcompany.Sign(webhookSecret, body), Body: body}

		result, err := m.activation.HandleWebhook(ctx, delivery)
		require.NoError(t, err)
		assert.False(t, result.Duplicate)

		result, err = m.activation.HandleWebhook(ctx, delivery)
		require.NoError(t, err)
		assert.True(t, result.Duplicate)

		stored, err := m.companies.FindByID(ctx, globex.CompanyID)
		require.NoError(t, err)
		require.NotNil(t, stored.ActivatedAt)
		assert.WithinDuration(t, time.Now(), *stored.ActivatedAt, time.Minute)
		assert.NotEmpty(t, m.mailer.SentTo("grace@globex.test"))
	})

	var hammerID string
	t.Run("published listings reach the catalog", func(t *testing.T) {
		published := true
		hammer, err := m.listings.Create(ctx, acme, catalog.KindProduct, catalogapp.ListingInput{
			Name:        "Claw Hammer",
			Description: "Forged steel head",
			Price:       "24.90",
			Currency:    "EUR",
			Unit:        "piece",
			CategoryID:  tools.ID,
			Tags:        []string{"steel"},
			Published:   &published,
		})
		require.NoError(t, err)
		hammerID = hammer.ID

		_, err = m.listings.Create(ctx, acme, catalog.KindProduct, catalogapp.ListingInput{
			Name: "Prototype Saw", Price: "99", Currency: "EUR", CategoryID: tools.ID,
		})
		require.NoError(t, err)

		result, err := m.catalog.Fetch(ctx, catalogapp.CatalogQuery{Type: "product", Search: "hammer"})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "Claw Hammer", result.Items[0].Name)
		assert.Equal(t, int64(1), result.Total)

		all, err := m.catalog.Fetch(ctx, catalogapp.CatalogQuery{Type: "all", Company: "acme-industrial"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), all.Total, "drafts stay out of the catalog")
	})

	t.Run("messages notify the recipient company", func(t *testing.T) {
		before, err := m.notifications.CountUnread(ctx, acme.CompanyID)
		require.NoError(t, err)

		sent, err := m.messages.Send(ctx, globex, appmessaging.SendMessageInput{
			To:        "acme-industrial",
			Subject:   "Bulk order",
			Body:      "Can you quote 500 hammers?",
			ListingID: hammerID,
		})
		require.NoError(t, err)
		assert.Equal(t, acme.CompanyID, sent.ToCompanyID)

		inbox, err := m.messages.Inbox(ctx, acme, appmessaging.MailboxQuery{})
		require.NoError(t, err)
		require.Len(t, inbox.Items, 1)
		assert.Equal(t, "Bulk order", inbox.Items[0].Subject)

		after, err := m.notifications.CountUnread(ctx, acme.CompanyID)
		require.NoError(t, err)
		assert.Equal(t, before+1, after)
	})

	t.Run("tables truncate between scenarios", func(t *testing.T) {
		tdb.CleanTables(t)
		_, err := m.companies.FindByID(ctx, acme.CompanyID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
