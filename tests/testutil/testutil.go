// Package testutil provides the shared fixtures of the marketplace tests: an
// in-memory document store with every repository, a local identity provider
// and a mailer that records what it sends.
package testutil

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/auth"
	"github.com/b2bmarket/backend/internal/infrastructure/cache"
	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"github.com/b2bmarket/backend/internal/infrastructure/docstore"
	"github.com/b2bmarket/backend/internal/infrastructure/event"
	"github.com/b2bmarket/backend/internal/infrastructure/idp"
	"github.com/b2bmarket/backend/internal/infrastructure/mail"
	"github.com/b2bmarket/backend/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestPassword is the password of every fixture user
const TestPassword = "correct-horse-battery"

// BaseURL is the public URL used in fixture links
const BaseURL = "https://market.test"

// NewSQLiteDB opens a private in-memory SQLite database
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// IdentityConfig is the provider configuration used by fixtures
func IdentityConfig() config.IdentityConfig {
	return config.IdentityConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
		RecoveryTokenTTL: time.Hour,
		InviteTokenTTL:   72 * time.Hour,
	}
}

// JWTConfig is the token configuration used by fixtures
func JWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "marketplace-test",
		MaxRefreshCount:        5,
	}
}

// Env wires the infrastructure a service test needs
type Env struct {
	DB            *gorm.DB
	KV            *cache.MemoryKV
	Store         docstore.Store // what the repositories use
	Backend       *docstore.SQLStore
	Users         *persistence.UserRepository
	Companies     *persistence.CompanyRepository
	Listings      *persistence.ListingRepository
	Categories    *persistence.CategoryRepository
	Messages      *persistence.MessageRepository
	Notifications *persistence.NotificationRepository
	Assets        *persistence.AssetRepository
	JWT           *auth.JWTService
	Provider      *idp.LocalProvider
	Bus           *event.InMemoryEventBus
	Idempotency   *cache.IdempotencyStore
	Mailer        *CaptureMailer
	Templates     *mail.Templates
	Logger        *zap.Logger
}

type envOptions struct {
	cacheTTL time.Duration
}

// EnvOption configures NewEnv
type EnvOption func(*envOptions)

// WithReadCache puts a docstore.CachedStore on the Env's KV in front of the
// SQL backend, as the server runs by default. Env.Backend stays uncached.
func WithReadCache(ttl time.Duration) EnvOption {
	return func(o *envOptions) {
		o.cacheTTL = ttl
	}
}

// NewEnv builds a fresh Env. Document timestamps advance by one second per
// write so "newest first" orderings are deterministic.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()
	var o envOptions
	for _, opt := range opts {
		opt(&o)
	}
	db := NewSQLiteDB(t)
	logger := zap.NewNop()

	kv := cache.NewMemoryKV()
	t.Cleanup(func() { _ = kv.Close() })

	var tick atomic.Int64
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	sqlStore := docstore.NewSQLStore(db, docstore.WithClock(func() time.Time {
		return base.Add(time.Duration(tick.Add(1)) * time.Second)
	}))
	require.NoError(t, sqlStore.AutoMigrate())
	var store docstore.Store = sqlStore
	if o.cacheTTL > 0 {
		store = docstore.NewCachedStore(sqlStore, kv, o.cacheTTL, logger)
	}

	jwtService := auth.NewJWTService(JWTConfig())
	provider := idp.NewLocalProvider(db, jwtService, auth.NewTokenBlacklist(kv), idp.NewTokenStore(kv),
		IdentityConfig(), idp.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, provider.AutoMigrate())

	templates, err := mail.LoadTemplates()
	require.NoError(t, err)

	return &Env{
		DB:            db,
		KV:            kv,
		Store:         store,
		Backend:       sqlStore,
		Users:         persistence.NewUserRepository(store),
		Companies:     persistence.NewCompanyRepository(store),
		Listings:      persistence.NewListingRepository(store),
		Categories:    persistence.NewCategoryRepository(store),
		Messages:      persistence.NewMessageRepository(store),
		Notifications: persistence.NewNotificationRepository(store),
		Assets:        persistence.NewAssetRepository(store),
		JWT:           jwtService,
		Provider:      provider,
		Bus:           event.NewInMemoryEventBus(logger),
		Idempotency:   cache.NewIdempotencyStore(kv),
		Mailer:        &CaptureMailer{},
		Templates:     templates,
		Logger:        logger,
	}
}

// CreateCompany stores a company with the given status
func (e *Env) CreateCompany(t *testing.T, name string, status company.Status) *company.Company {
	t.Helper()
	c, err := company.NewCompany(name, "office@"+shared.Slugify(name)+".test")
	require.NoError(t, err)
	if status == company.StatusActive {
		require.NoError(t, c.Activate())
		c.PullDomainEvents()
	} else {
		c.Status = status
	}
	require.NoError(t, e.Companies.Create(context.Background(), c))
	return c
}

// CreateUser stores an active user with a provider account using TestPassword
func (e *Env) CreateUser(t *testing.T, companyID, name, email string, role identity.Role) *identity.User {
	t.Helper()
	ctx := context.Background()
	account, err := e.Provider.SignUp(ctx, email, TestPassword)
	require.NoError(t, err)
	u, err := identity.NewUser(companyID, account.ID, name, email, role)
	require.NoError(t, err)
	require.NoError(t, e.Users.Create(ctx, u))
	return u
}

// CreateCategory stores a category
func (e *Env) CreateCategory(t *testing.T, title string, kind catalog.CategoryKind) *catalog.Category {
	t.Helper()
	c, err := catalog.NewCategory(title, "", kind)
	require.NoError(t, err)
	require.NoError(t, e.Categories.Create(context.Background(), c))
	return c
}

// CaptureMailer records sent email instead of delivering it
type CaptureMailer struct {
	mu   sync.Mutex
	sent []mail.Email
	err  error
}

// Send implements mail.Mailer
func (m *CaptureMailer) Send(_ context.Context, email mail.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

// SetError makes every following Send fail with err
func (m *CaptureMailer) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Sent returns a copy of every email sent so far
func (m *CaptureMailer) Sent() []mail.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Email, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentTo returns the emails addressed to addr
func (m *CaptureMailer) SentTo(addr string) []mail.Email {
	var out []mail.Email
	for _, e := range m.Sent() {
		for _, to := range e.To {
			if to == addr {
				out = append(out, e)
			}
		}
	}
	return out
}

var tokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

// TokenFromEmail extracts the one-time token from the link in an email
func TokenFromEmail(t *testing.T, email mail.Email) string {
	t.Helper()
	m := tokenPattern.FindStringSubmatch(email.Text)
	require.Len(t, m, 2, "no token link in %q", email.Text)
	return m[1]
}
