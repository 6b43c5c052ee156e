package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(body string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, body)
	}
}

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	catalog := NewDomainGroup("catalog", "/catalog").GET("", ok("catalog"))
	messages := NewDomainGroup("messages", "/messages").
		GET("/inbox", ok("inbox")).
		POST("", ok("sent")).
		PATCH("/:id/read", ok("read")).
		DELETE("/:id", ok("deleted"))
	r.Register(catalog).Register(messages).Setup()

	tests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/v1/catalog", "catalog"},
		{http.MethodGet, "/api/v1/messages/inbox", "inbox"},
		{http.MethodPost, "/api/v1/messages", "sent"},
		{http.MethodPatch, "/api/v1/messages/m-1/read", "read"},
		{http.MethodDelete, "/api/v1/messages/m-1", "deleted"},
	}
	for _, tt := range tests {
		w := serve(engine, tt.method, tt.path)
		assert.Equal(t, http.StatusOK, w.Code, "%s %s", tt.method, tt.path)
		assert.Equal(t, tt.body, w.Body.String())
	}
}

func TestRouterUse(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", ok("up"))

	r := NewRouter(engine)
	r.Use(func(c *gin.Context) {
		c.Header("X-API", "1")
		c.Next()
	})
	r.Register(NewDomainGroup("profile", "/profile").GET("", ok("profile"))).Setup()

	assert.Equal(t, "1", serve(engine, http.MethodGet, "/api/v1/profile").Header().Get("X-API"))
	assert.Empty(t, serve(engine, http.MethodGet, "/health").Header().Get("X-API"))
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("catalog", "/catalog")
		assert.Equal(t, "catalog", g.Name())
		assert.Equal(t, "/catalog", g.Prefix())
	})

	t.Run("group middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("auth", "/auth").Use(func(c *gin.Context) {
			c.Header("X-Limited", "yes")
			c.Next()
		})
		g.POST("/login", ok("in"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodPost, "/api/v1/auth/login")
		assert.Equal(t, "yes", w.Header().Get("X-Limited"))
	})

	t.Run("subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("uploads", "/uploads")
		g.Group("images", "/images").POST("", ok("uploaded"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodPost, "/api/v1/uploads/images")
		assert.Equal(t, "uploaded", w.Body.String())
	})
}

func TestPublicRoutes(t *testing.T) {
	r := NewRouter(gin.New())

	auth := NewDomainGroup("auth", "/auth").
		Public(http.MethodPost, "/login", ok("")).
		POST("/logout", ok(""))
	companies := NewDomainGroup("companies", "/companies").
		Public(http.MethodGet, "", ok("")).
		Public(http.MethodGet, "/:ref", ok(""))
	companies.Group("brochures", "/:ref").Public(http.MethodGet, "/brochure.pdf", ok(""))

	r.Register(auth).Register(companies)

	assert.Equal(t, []string{
		"POST /api/v1/auth/login",
		"GET /api/v1/companies",
		"GET /api/v1/companies/:ref",
		"GET /api/v1/companies/:ref/brochure.pdf",
	}, r.PublicRoutes())
}

func TestPublicRoutes_MatchGinFullPath(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	var fullPath string
	r.Register(NewDomainGroup("catalog", "/catalog").Public(http.MethodGet, "/:id", func(c *gin.Context) {
		fullPath = c.FullPath()
	}))
	r.Setup()

	serve(engine, http.MethodGet, "/api/v1/catalog/l-1")
	assert.Equal(t, []string{"GET " + fullPath}, r.PublicRoutes())
}
