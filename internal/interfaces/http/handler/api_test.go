package handler_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	catalogapp "github.com/b2bmarket/backend/internal/application/catalog"
	appcompany "github.com/b2bmarket/backend/internal/application/company"
	appidentity "github.com/b2bmarket/backend/internal/application/identity"
	appmedia "github.com/b2bmarket/backend/internal/application/media"
	appmessaging "github.com/b2bmarket/backend/internal/application/messaging"
	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"github.com/b2bmarket/backend/internal/infrastructure/mail"
	"github.com/b2bmarket/backend/internal/infrastructure/storage"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"github.com/b2bmarket/backend/internal/interfaces/http/handler"
	"github.com/b2bmarket/backend/internal/interfaces/http/middleware"
	"github.com/b2bmarket/backend/internal/interfaces/http/router"
	"github.com/b2bmarket/backend/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "whsec-test"

var cookies = config.CookieConfig{
	Name:        "market_session",
	RefreshName: "market_refresh",
	Path:        "/",
	SameSite:    "lax",
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type api struct {
	env    *testutil.Env
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	middleware.SetupValidator()
	env := testutil.NewEnv(t)
	log := env.Logger
	metrics := telemetry.NopMarketMetrics()
	links := mail.Links{BaseURL: testutil.BaseURL}

	store, err := storage.NewLocalStorage(t.TempDir(), testutil.BaseURL+"/files")
	require.NoError(t, err)

	authService := appidentity.NewAuthService(env.Provider, env.Users, env.Companies, env.Mailer, env.Templates,
		links, testutil.IdentityConfig(), metrics, log)
	userService := appidentity.NewUserService(env.Users, env.Companies, env.Provider, env.Mailer, env.Templates,
		links, testutil.IdentityConfig().InviteTokenTTL, log)
	listingService := catalogapp.NewListingService(env.Listings, env.Categories, env.Companies, env.Assets, metrics, log)
	companyService := appcompany.NewCompanyService(env.Companies, env.Categories, env.Listings, env.Assets, nil, nil, log)
	activationService := appcompany.NewActivationService(env.Companies, env.Bus, env.Idempotency, webhookSecret, metrics, log)
	messageService := appmessaging.NewMessageService(env.Messages, env.Companies, env.Listings, env.Bus, metrics, log)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := router.NewRouter(engine)
	router.RegisterAPI(r, router.Handlers{
		Auth:          handler.NewAuthHandler(authService, cookies),
		Users:         handler.NewUserHandler(userService),
		Companies:     handler.NewCompanyHandler(companyService),
		Catalog:       handler.NewCatalogHandler(catalogapp.NewCatalogService(env.Listings, env.Categories, log)),
		Products:      handler.NewListingHandler(catalog.KindProduct, listingService),
		Services:      handler.NewListingHandler(catalog.KindService, listingService),
		Messages:      handler.NewMessageHandler(messageService),
		Notifications: handler.NewNotificationHandler(appmessaging.NewNotificationService(env.Notifications, log)),
		Uploads:       handler.NewUploadHandler(appmedia.NewUploadService(env.Assets, store, 1024, log)),
		Webhooks:      handler.NewWebhookHandler(activationService),
	}, nil)
	engine.Use(middleware.Session(middleware.SessionConfig{
		Authenticator: authService,
		CookieName:    cookies.Name,
		SkipRoutes:    r.PublicRoutes(),
	}))
	r.Setup()

	return &api{env: env, engine: engine}
}

func (a *api) serve(t *testing.T, req testutil.Request) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.Do(t, a.engine, req)
}

// login signs in a fixture user and returns the access token
func (a *api) login(t *testing.T, email string) string {
	t.Helper()
	w := a.serve(t, testutil.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/login",
		Body:   map[string]string{"email": email, "password": testutil.TestPassword},
	})
	result := testutil.DecodeData[appidentity.AuthResult](t, w, http.StatusOK)
	return result.Tokens.AccessToken
}

// member creates a company with an admin and returns the admin's token
func (a *api) member(t *testing.T, name, email string, status company.Status) (*company.Company, string) {
	t.Helper()
	c := a.env.CreateCompany(t, name, status)
	a.env.CreateUser(t, c.ID, "Admin of "+name, email, identity.RoleAdmin)
	return c, a.login(t, email)
}

func TestAPI_RegisterAndSession(t *testing.T) {
	a := newAPI(t)

	w := a.serve(t, testutil.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/register",
		Body: map[string]string{
			"company_name": "Acme Industrial",
			"name":         "Ada Admin",
			"email":        "ada@acme.test",
			"password":     "correct-horse-battery",
		},
	})
	result := testutil.DecodeData[appidentity.AuthResult](t, w, http.StatusCreated)
	assert.Equal(t, "pending", result.Company.Status)
	assert.Equal(t, "admin", result.User.Role)
	require.NotEmpty(t, result.Tokens.AccessToken)

	session := testutil.CookieNamed(w, cookies.Name)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.NotNil(t, testutil.CookieNamed(w, cookies.RefreshName))

	t.Run("bearer token", func(t *testing.T) {
		w := a.serve(t, testutil.Request{Path: "/api/v1/auth/session", Token: result.Tokens.AccessToken})
		got := testutil.DecodeData[appidentity.SessionDTO](t, w, http.StatusOK)
		assert.Equal(t, "ada@acme.test", got.User.Email)
		assert.Equal(t, "acme-industrial", got.Company.Slug)
	})

	t.Run("session cookie", func(t *testing.T) {
		w := a.serve(t, testutil.Request{Path: "/api/v1/me", Cookies: []*http.Cookie{session}})
		got := testutil.DecodeData[appidentity.UserDTO](t, w, http.StatusOK)
		assert.Equal(t, "Ada Admin", got.Name)
	})

	t.Run("email already taken", func(t *testing.T) {
		w := a.serve(t, testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/auth/register",
			Body: map[string]string{
				"company_name": "Other Co",
				"name":         "Ada Again",
				"email":        "ADA@acme.test",
				"password":     "correct-horse-battery",
			},
		})
		testutil.AssertError(t, w, http.StatusConflict, "EMAIL_TAKEN")
	})

	t.Run("pending company cannot publish", func(t *testing.T) {
		w := a.serve(t, testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/products",
			Token:  result.Tokens.AccessToken,
			Body:   map[string]any{"name": "Bolts", "price": 10, "currency": "EUR"},
		})
		testutil.AssertError(t, w, http.StatusForbidden, "COMPANY_INACTIVE")
	})

	t.Run("logout revokes the session", func(t *testing.T) {
		w := a.serve(t, testutil.Request{Method: http.MethodPost, Path: "/api/v1/auth/logout", Token: result.Tokens.AccessToken})
		assert.Equal(t, http.StatusNoContent, w.Code)
		cleared := testutil.CookieNamed(w, cookies.Name)
		require.NotNil(t, cleared)
		assert.Empty(t, cleared.Value)

		w = a.serve(t, testutil.Request{Path: "/api/v1/auth/session", Token: result.Tokens.AccessToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAPI_Authentication(t *testing.T) {
	a := newAPI(t)
	a.member(t, "Acme Industrial", "ada@acme.test", company.StatusActive)

	tests := []struct {
		name   string
		req    testutil.Request
		status int
		code   string
	}{
		{
			name:   "wrong password",
			req:    testutil.Request{Method: http.MethodPost, Path: "/api/v1/auth/login", Body: map[string]string{"email": "ada@acme.test", "password": "not-the-password"}},
			status: http.StatusUnauthorized,
			code:   "INVALID_CREDENTIALS",
		},
		{
			name:   "unknown email",
			req:    testutil.Request{Method: http.MethodPost, Path: "/api/v1/auth/login", Body: map[string]string{"email": "nobody@acme.test", "password": "whatever-it-is"}},
			status: http.StatusUnauthorized,
			code:   "INVALID_CREDENTIALS",
		},
		{
			name:   "malformed email",
			req:    testutil.Request{Method: http.MethodPost, Path: "/api/v1/auth/login", Body: map[string]string{"email": "ada", "password": "x"}},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "no session",
			req:    testutil.Request{Path: "/api/v1/me"},
			status: http.StatusUnauthorized,
			code:   "SESSION_INVALID",
		},
		{
			name:   "garbage token",
			req:    testutil.Request{Path: "/api/v1/me", Token: "not-a-jwt"},
			status: http.StatusUnauthorized,
			code:   "SESSION_INVALID",
		},
		{
			name:   "refresh without a token",
			req:    testutil.Request{Method: http.MethodPost, Path: "/api/v1/auth/refresh"},
			status: http.StatusUnauthorized,
			code:   "SESSION_INVALID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertError(t, a.serve(t, tt.req), tt.status, tt.code)
		})
	}
}

func TestAPI_PasswordRecovery(t *testing.T) {
	a := newAPI(t)
	a.member(t, "Acme Industrial", "ada@acme.test", company.StatusActive)

	forgot := func(email string) {
		w := a.serve(t, testutil.Request{Method: http.MethodPost, Path: "/api/v1/auth/password/forgot", Body: map[string]string{"email": email}})
		assert.Equal(t, http.StatusAccepted, w.Code)
	}
	forgot("nobody@acme.test")
	assert.Empty(t, a.env.Mailer.Sent())

	forgot("ada@acme.test")
	sent := a.env.Mailer.SentTo("ada@acme.test")
	require.Len(t, sent, 1)
	token := testutil.TokenFromEmail(t, sent[0])

	w := a.serve(t, testutil.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/password/reset",
		Body:   map[string]string{"token": token, "new_password": "a-brand-new-secret"},
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = a.serve(t, testutil.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/login",
		Body:   map[string]string{"email": "ada@acme.test", "password": "a-brand-new-secret"},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.serve(t, testutil.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/password/reset",
		Body:   map[string]string{"token": token, "new_password": "yet-another-secret"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "recovery tokens are single use")
}

func TestAPI_ListingsAndCatalog(t *testing.T) {
	a := newAPI(t)
	acme, token := a.member(t, "Acme Industrial", "ada@acme.test", company.StatusActive)
	hardware := a.env.CreateCategory(t, "Hardware", catalog.CategoryKindProduct)

	w := a.serve(t, testutil.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/products",
		Token:  token,
		Body: map[string]any{
			"name":        "Steel Bolts M8",
			"description": "Zinc plated",
			"price":       "12.50",
			"currency":    "EUR",
			"unit":        "box",
			"category_id": hardware.ID,
			"tags":        []string{"fasteners"},
			"published":   true,
		},
	})
	created := testutil.DecodeData[catalogapp.ListingDTO](t, w, http.StatusCreated)
	assert.Equal(t, "product", created.Kind)
	assert.Equal(t, acme.ID, created.CompanyID)
	assert.True(t, created.Published)

	t.Run("kind is fixed by the route", func(t *testing.T) {
		w := a.serve(t, testutil.Request{Path: "/api/v1/services/" + created.ID, Token: token})
		testutil.AssertError(t, w, http.StatusNotFound, "NOT_FOUND")
	})

	t.Run("public catalog", func(t *testing.T) {
		w := a.serve(t, testutil.Request{Path: "/api/v1/catalog?type=product&q=bolts"})
		require.Equal(t, http.StatusOK, w.Code)
		env := testutil.DecodeEnvelope(t, w)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(1), env.Meta.Total)

		w = a.serve(t, testutil.Request{Path: "/api/v1/catalog/" + created.ID})
		got := testutil.DecodeData[catalogapp.ListingDTO](t, w, http.StatusOK)
		require.NotNil(t, got.Company)
		assert.Equal(t, "acme-industrial", got.Company.Slug)
	})

	t.Run("catalog rejects an unknown type", func(t *testing.T) {
		w := a.serve(t, testutil.Request{Path: "/api/v1/catalog?type=boats"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("other companies cannot edit", func(t *testing.T) {
		_, other := a.member(t, "Globex", "hank@globex.test", company.StatusActive)
		w := a.serve(t, testutil.Request{Method: http.MethodDelete, Path: "/api/v1/products/" + created.ID, Token: other})
		testutil.AssertError(t, w, http.StatusNotFound, "NOT_FOUND")
	})

	t.Run("owner deletes", func(t *testing.T) {
		w := a.serve(t, testutil.Request{Method: http.MethodDelete, Path: "/api/v1/products/" + created.ID, Token: token})
		assert.Equal(t, http.StatusNoContent, w.Code)
		w = a.serve(t, testutil.Request{Path: "/api/v1/catalog/" + created.ID})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAPI_Messaging(t *testing.T) {
	a := newAPI(t)
	_, acme := a.member(t, "Acme Industrial", "ada@acme.test", company.StatusActive)
	globex, hank := a.member(t, "Globex", "hank@globex.test", company.StatusActive)

	w := a.serve(t, testutil.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/messages",
		Token:  acme,
		Body:   map[string]string{"to": globex.Slug, "subject": "Bulk order", "body": "Can you ship 500 units?"},
	})
	sent := testutil.DecodeData[appmessaging.MessageDTO](t, w, http.StatusCreated)
	assert.Equal(t, globex.ID, sent.ToCompanyID)
	assert.False(t, sent.Read)

	w = a.serve(t, testutil.Request{Path: "/api/v1/messages/unread-count", Token: hank})
	assert.Equal(t, int64(1), testutil.DecodeData[appmessaging.UnreadCountDTO](t, w, http.StatusOK).Count)

	w = a.serve(t, testutil.Request{Path: "/api/v1/messages/inbox", Token: hank})
	inbox := testutil.DecodeData[[]appmessaging.MessageDTO](t, w, http.StatusOK)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Bulk order", inbox[0].Subject)

	w = a.serve(t, testutil.Request{Method: http.MethodPatch, Path: "/api/v1/messages/" + sent.ID + "/read", Token: hank})
	assert.True(t, testutil.DecodeData[appmessaging.MessageDTO](t, w, http.StatusOK).Read)

	t.Run("sender cannot mark read", func(t *testing.T) {
		w := a.serve(t, testutil.Request{Method: http.MethodPatch, Path: "/api/v1/messages/" + sent.ID + "/read", Token: acme})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no messages to yourself", func(t *testing.T) {
		w := a.serve(t, testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/messages",
			Token:  hank,
			Body:   map[string]string{"to": globex.ID, "subject": "Hi", "body": "Me again"},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestAPI_Webhook(t *testing.T) {
	a := newAPI(t)
	pending := a.env.CreateCompany(t, "Initech", company.StatusPending)

	post := func(body []byte, signature, id string) *httptest.ResponseRecorder {
		return a.serve(t, testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/webhooks/company-activated",
			Body:   bytes.NewReader(body),
			Headers: map[string]string{
				handler.WebhookSignatureHeader: signature,
				handler.WebhookIDHeader:        id,
			},
		})
	}

	body := []byte(`{"companyId":"` + pending.ID + `"}`)
	testutil.AssertError(t, post(body, "deadbeef", "d-1"), http.StatusUnauthorized, "INVALID_SIGNATURE")

	// The backoffice flips the status before it notifies.
	stored, err := a.env.Companies.FindByID(context.Background(), pending.ID)
	require.NoError(t, err)
	stored.Status = company.StatusActive
	require.NoError(t, a.env.Companies.Update(context.Background(), stored))

	signature := "sha256=" + appcompany.Sign(webhookSecret, body)
	res := testutil.DecodeData[appcompany.WebhookResult](t, post(body, signature, "d-2"), http.StatusOK)
	assert.Equal(t, pending.ID, res.CompanyID)
	assert.False(t, res.Duplicate)

	res = testutil.DecodeData[appcompany.WebhookResult](t, post(body, signature, "d-2"), http.StatusOK)
	assert.True(t, res.Duplicate)

	activated, err := a.env.Companies.FindByID(context.Background(), pending.ID)
	require.NoError(t, err)
	require.NotNil(t, activated.ActivatedAt)
	assert.WithinDuration(t, time.Now(), *activated.ActivatedAt, time.Minute)
}

func TestAPI_Uploads(t *testing.T) {
	a := newAPI(t)
	_, token := a.member(t, "Acme Industrial", "ada@acme.test", company.StatusActive)

	upload := func(name string, content []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())
		return a.serve(t, testutil.Request{
			Method:  http.MethodPost,
			Path:    "/api/v1/uploads/images",
			Token:   token,
			Body:    &buf,
			Headers: map[string]string{"Content-Type": mw.FormDataContentType()},
		})
	}

	asset := testutil.DecodeData[appmedia.AssetDTO](t, upload("logo.txt", pngHeader), http.StatusCreated)
	assert.Equal(t, "image/png", asset.MimeType)

	testutil.AssertError(t, upload("notes.png", []byte("just some text")), http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE")
	testutil.AssertError(t, upload("huge.png", append(append([]byte{}, pngHeader...), make([]byte, 2048)...)), http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE")

	w := a.serve(t, testutil.Request{Method: http.MethodDelete, Path: "/api/v1/uploads/images/" + asset.ID, Token: token})
	assert.Equal(t, http.StatusNoContent, w.Code)
}
