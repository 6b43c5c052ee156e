package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/infrastructure/idp"
	"github.com/b2bmarket/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (*identity.User, *idp.Principal, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*identity.User)
	principal, _ := args.Get(1).(*idp.Principal)
	return user, principal, args.Error(2)
}

func newSessionRouter(auth Authenticator) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), Session(SessionConfig{
		Authenticator: auth,
		CookieName:    "market_session",
		SkipPaths:     []string{"/api/v1/auth/login"},
		SkipRoutes:    []string{"GET /api/v1/companies"},
	}))
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"company_id": GetCompanyID(c),
			"logged":     logger.GetCompanyID(c.Request.Context()),
		})
	}
	router.POST("/api/v1/auth/login", handler)
	router.GET("/api/v1/companies", handler)
	router.POST("/api/v1/companies", handler)
	router.GET("/api/v1/profile", handler)
	return router
}

func doRequest(router http.Handler, method, path string, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSession(t *testing.T) {
	user := &identity.User{CompanyID: "c-1"}
	user.ID = "u-1"
	auth := &mockAuthenticator{}
	auth.On("Authenticate", mock.Anything, "good").Return(user, &idp.Principal{AccountID: "a-1"}, nil)
	auth.On("Authenticate", mock.Anything, "revoked").Return(nil, nil, idp.ErrSessionInvalid)
	auth.On("Authenticate", mock.Anything, "broken").Return(nil, nil, errors.New("redis down"))
	router := newSessionRouter(auth)

	bearer := func(token string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set(AuthHeaderKey, BearerPrefix+token) }
	}

	t.Run("bearer token", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/profile", bearer("good"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"company_id": "c-1", "logged": "c-1"}`, w.Body.String())
	})

	t.Run("session cookie", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/profile", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "market_session", Value: "good"})
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/profile", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"SESSION_INVALID"`)
	})

	t.Run("non bearer scheme", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/profile", func(r *http.Request) {
			r.Header.Set(AuthHeaderKey, "Basic Zm9vOmJhcg==")
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/profile", bearer("revoked"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"SESSION_INVALID"`)
	})

	t.Run("lookup failure", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/profile", bearer("broken"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
	})

	t.Run("public path is anonymous without token", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/v1/auth/login", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"company_id": "", "logged": ""}`, w.Body.String())
	})

	t.Run("public path still identifies the caller", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/companies", bearer("good"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"company_id": "c-1", "logged": "c-1"}`, w.Body.String())
	})

	t.Run("public path ignores invalid token", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/companies", bearer("revoked"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("public routes are per method", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/v1/companies", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
