package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/idp"
	"github.com/b2bmarket/backend/internal/infrastructure/logger"
	"github.com/b2bmarket/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Session context keys
const (
	ActorKey      = "session_actor"
	PrincipalKey  = "session_principal"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// Authenticator resolves an access token to the acting user
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*identity.User, *idp.Principal, error)
}

// SessionConfig holds configuration for the session middleware
type SessionConfig struct {
	Authenticator Authenticator
	// CookieName is the access token cookie read when there is no bearer header.
	CookieName string
	// SkipPaths and SkipPathPrefixes are public. A valid token on a public
	// path still identifies the caller.
	SkipPaths        []string
	SkipPathPrefixes []string
	// SkipRoutes are public "METHOD /route" pairs matched against the route
	// pattern, e.g. "GET /api/v1/catalog/:id".
	SkipRoutes []string
	Logger     *zap.Logger
}

func (cfg SessionConfig) isPublic(c *gin.Context) bool {
	path := c.Request.URL.Path
	for _, p := range cfg.SkipPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	route := c.Request.Method + " " + c.FullPath()
	for _, r := range cfg.SkipRoutes {
		if route == r {
			return true
		}
	}
	return false
}

// Session authenticates requests with a bearer token or the session cookie.
// Public paths pass through; every other path needs a valid session.
func Session(cfg SessionConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		public := cfg.isPublic(c)
		token := TokenFromRequest(c, cfg.CookieName)

		if token == "" {
			if public {
				c.Next()
				return
			}
			abortUnauthorized(c, idp.ErrSessionInvalid, "Authentication required")
			return
		}

		user, principal, err := cfg.Authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			if public {
				c.Next()
				return
			}
			var de *shared.DomainError
			if !errors.As(err, &de) {
				log.Error("Session lookup failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
			} else {
				log.Debug("Session rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			}
			abortUnauthorized(c, err, "Session is invalid or has expired")
			return
		}

		c.Set(ActorKey, user)
		c.Set(PrincipalKey, principal)
		c.Set(logger.GinUserIDKey, user.ID)
		c.Set(logger.GinCompanyIDKey, user.CompanyID)
		c.Request = c.Request.WithContext(logger.WithPrincipal(c.Request.Context(), user.ID, user.CompanyID))
		c.Next()
	}
}

// TokenFromRequest returns the bearer token, or the session cookie value
func TokenFromRequest(c *gin.Context, cookieName string) string {
	if header := c.GetHeader(AuthHeaderKey); header != "" {
		if strings.HasPrefix(header, BearerPrefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	token, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return token
}

func abortUnauthorized(c *gin.Context, err error, message string) {
	code := dto.ErrCodeUnauthorized
	var de *shared.DomainError
	if errors.As(err, &de) && dto.GetHTTPStatus(de.Code) == http.StatusUnauthorized {
		code = de.Code
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetActor returns the authenticated user, or nil on anonymous requests
func GetActor(c *gin.Context) *identity.User {
	if v, ok := c.Get(ActorKey); ok {
		if u, ok := v.(*identity.User); ok {
			return u
		}
	}
	return nil
}

// GetPrincipal returns the verified token identity, or nil
func GetPrincipal(c *gin.Context) *idp.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*idp.Principal); ok {
			return p
		}
	}
	return nil
}

// GetCompanyID returns the actor's company id, or "" for anonymous requests
func GetCompanyID(c *gin.Context) string {
	if u := GetActor(c); u != nil {
		return u.CompanyID
	}
	return ""
}
