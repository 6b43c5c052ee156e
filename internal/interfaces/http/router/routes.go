package router

import (
	"net/http"

	"github.com/b2bmarket/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers are the API handlers mounted by RegisterAPI
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Companies     *handler.CompanyHandler
	Catalog       *handler.CatalogHandler
	Products      *handler.ListingHandler
	Services      *handler.ListingHandler
	Messages      *handler.MessageHandler
	Notifications *handler.NotificationHandler
	Uploads       *handler.UploadHandler
	Webhooks      *handler.WebhookHandler
}

// RegisterAPI registers the marketplace API. authLimit, when set, guards
// the credential endpoints.
func RegisterAPI(r *Router, h Handlers, authLimit gin.HandlerFunc) {
	limited := func(hf gin.HandlerFunc) []gin.HandlerFunc {
		if authLimit == nil {
			return []gin.HandlerFunc{hf}
		}
		return []gin.HandlerFunc{authLimit, hf}
	}

	auth := NewDomainGroup("auth", "/auth").
		Public(http.MethodPost, "/register", limited(h.Auth.Register)...).
		Public(http.MethodPost, "/login", limited(h.Auth.Login)...).
		Public(http.MethodPost, "/refresh", h.Auth.Refresh).
		Public(http.MethodPost, "/password/forgot", limited(h.Auth.ForgotPassword)...).
		Public(http.MethodPost, "/password/reset", limited(h.Auth.ResetPassword)...).
		Public(http.MethodPost, "/invitations/accept", limited(h.Auth.AcceptInvite)...).
		POST("/logout", h.Auth.Logout).
		GET("/session", h.Auth.Session).
		PUT("/password", h.Auth.ChangePassword)

	catalog := NewDomainGroup("catalog", "/catalog").
		Public(http.MethodGet, "", h.Catalog.Fetch).
		Public(http.MethodGet, "/:id", h.Catalog.Get)

	categories := NewDomainGroup("categories", "/categories").
		Public(http.MethodGet, "", h.Catalog.Categories)

	companies := NewDomainGroup("companies", "/companies").
		Public(http.MethodGet, "", h.Companies.List).
		Public(http.MethodGet, "/:ref", h.Companies.Get).
		Public(http.MethodGet, "/:ref/brochure.pdf", h.Companies.Brochure)

	profile := NewDomainGroup("profile", "/profile").
		GET("", h.Companies.GetProfile).
		PUT("", h.Companies.UpdateProfile)

	me := NewDomainGroup("me", "/me").
		GET("", h.Users.GetMe).
		PUT("", h.Users.UpdateMe)

	users := NewDomainGroup("users", "/users").
		GET("", h.Users.List).
		POST("/invite", h.Users.Invite).
		PUT("/:id", h.Users.Update).
		DELETE("/:id", h.Users.Delete)

	messages := NewDomainGroup("messages", "/messages").
		POST("", h.Messages.Send).
		GET("/inbox", h.Messages.Inbox).
		GET("/outbox", h.Messages.Outbox).
		GET("/unread-count", h.Messages.UnreadCount).
		GET("/:id", h.Messages.Get).
		PATCH("/:id/read", h.Messages.MarkRead).
		DELETE("/:id", h.Messages.Delete)

	notifications := NewDomainGroup("notifications", "/notifications").
		GET("", h.Notifications.List).
		PATCH("/:id/read", h.Notifications.MarkRead).
		POST("/read-all", h.Notifications.MarkAllRead)

	uploads := NewDomainGroup("uploads", "/uploads")
	uploads.Group("images", "/images").
		POST("", h.Uploads.UploadImage).
		DELETE("/:id", h.Uploads.DeleteImage)

	webhooks := NewDomainGroup("webhooks", "/webhooks").
		Public(http.MethodPost, "/company-activated", h.Webhooks.CompanyActivated)

	r.Register(auth).
		Register(catalog).
		Register(categories).
		Register(companies).
		Register(profile).
		Register(me).
		Register(users).
		Register(listingGroup("products", "/products", h.Products)).
		Register(listingGroup("services", "/services", h.Services)).
		Register(messages).
		Register(notifications).
		Register(uploads).
		Register(webhooks)
}

func listingGroup(name, prefix string, h *handler.ListingHandler) *DomainGroup {
	return NewDomainGroup(name, prefix).
		GET("", h.List).
		POST("", h.Create).
		GET("/:id", h.Get).
		PUT("/:id", h.Update).
		DELETE("/:id", h.Delete)
}
