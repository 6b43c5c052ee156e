package handler

import (
	"net/http"
	"strings"
	"time"

	appidentity "github.com/b2bmarket/backend/internal/application/identity"
	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"github.com/b2bmarket/backend/internal/infrastructure/idp"
	"github.com/b2bmarket/backend/internal/interfaces/http/dto"
	"github.com/b2bmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRequest opens a company account with its first admin
type RegisterRequest struct {
	CompanyName  string `json:"company_name" binding:"required,max=200"`
	CompanyEmail string `json:"company_email" binding:"omitempty,email"`
	Name         string `json:"name" binding:"required,max=100"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required"`
}

// LoginRequest holds credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token. The refresh cookie is used when
// the body has none.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest starts account recovery
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes account recovery
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePasswordRequest changes the signed-in user's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// AcceptInviteRequest activates an invited user
type AcceptInviteRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// MessageData is a plain acknowledgement
type MessageData struct {
	Message string `json:"message" example:"If the address is registered, a reset link is on its way"`
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService *appidentity.AuthService
	cookies     config.CookieConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *appidentity.AuthService, cookies config.CookieConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
	}
}

// Register godoc
// @ID           registerCompany
// @Summary      Register a company
// @Description  Creates a company, its first admin and a session. The company stays pending until activated.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Company and admin"
// @Success      201 {object} APIResponse[appidentity.AuthResult]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Register(c.Request.Context(), appidentity.RegisterInput{
		CompanyName:  req.CompanyName,
		CompanyEmail: req.CompanyEmail,
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.setSessionCookies(c, result.Tokens)
	h.Created(c, result)
}

// Login godoc
// @ID           login
// @Summary      Sign in
// @Description  Authenticates with email and password and opens a session. The tokens are also set as HttpOnly cookies.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} APIResponse[appidentity.AuthResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), appidentity.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.setSessionCookies(c, result.Tokens)
	h.Success(c, result)
}

// Refresh godoc
// @ID           refreshSession
// @Summary      Refresh a session
// @Description  Exchanges a refresh token for a new token pair. Refresh tokens are single use.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Refresh token"
// @Success      200 {object} APIResponse[appidentity.AuthResult]
// @Failure      401 {object} ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		token, _ = c.Cookie(h.cookies.RefreshName)
	}
	if token == "" {
		h.HandleError(c, idp.ErrSessionInvalid)
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.setSessionCookies(c, result.Tokens)
	h.Success(c, result)
}

// Logout godoc
// @ID           logout
// @Summary      Sign out
// @Description  Revokes the current session tokens and clears the session cookies
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	tokens := []string{middleware.TokenFromRequest(c, h.cookies.Name)}
	if refresh, err := c.Cookie(h.cookies.RefreshName); err == nil && refresh != "" {
		tokens = append(tokens, refresh)
	}

	if err := h.authService.Logout(c.Request.Context(), tokens...); err != nil {
		h.HandleError(c, err)
		return
	}

	h.clearSessionCookies(c)
	h.NoContent(c)
}

// Session godoc
// @ID           getSession
// @Summary      Current session
// @Description  Returns the signed-in user and their company
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[appidentity.SessionDTO]
// @Failure      401 {object} ErrorResponse
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	session, err := h.authService.Session(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// ChangePassword godoc
// @ID           changePassword
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Security     BearerAuth
// @Param        request body ChangePasswordRequest true "Current and new password"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), actor, appidentity.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ForgotPassword godoc
// @ID           forgotPassword
// @Summary      Request a password reset
// @Description  Mails a reset link. The answer is the same whether or not the address is registered.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Account email"
// @Success      202 {object} APIResponse[MessageData]
// @Failure      400 {object} ErrorResponse
// @Router       /auth/password/forgot [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(MessageData{Message: "If the address is registered, a reset link is on its way"}))
}

// ResetPassword godoc
// @ID           resetPassword
// @Summary      Reset a password
// @Tags         auth
// @Accept       json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Router       /auth/password/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	err := h.authService.ResetPassword(c.Request.Context(), appidentity.ResetPasswordInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AcceptInvite godoc
// @ID           acceptInvitation
// @Summary      Accept an invitation
// @Description  Sets the invited user's password and opens a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body AcceptInviteRequest true "Invitation token and password"
// @Success      200 {object} APIResponse[appidentity.AuthResult]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /auth/invitations/accept [post]
func (h *AuthHandler) AcceptInvite(c *gin.Context) {
	var req AcceptInviteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.authService.AcceptInvite(c.Request.Context(), appidentity.AcceptInviteInput{
		Token:    req.Token,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.setSessionCookies(c, result.Tokens)
	h.Success(c, result)
}

func (h *AuthHandler) setSessionCookies(c *gin.Context, tokens appidentity.TokensDTO) {
	now := time.Now()
	h.setCookie(c, h.cookies.Name, tokens.AccessToken, int(tokens.AccessTokenExpiresAt.Sub(now).Seconds()))
	h.setCookie(c, h.cookies.RefreshName, tokens.RefreshToken, int(tokens.RefreshTokenExpiresAt.Sub(now).Seconds()))
}

func (h *AuthHandler) clearSessionCookies(c *gin.Context) {
	h.setCookie(c, h.cookies.Name, "", -1)
	h.setCookie(c, h.cookies.RefreshName, "", -1)
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, maxAge int) {
	if name == "" {
		return
	}
	c.SetSameSite(sameSite(h.cookies.SameSite))
	c.SetCookie(name, value, maxAge, h.cookies.Path, h.cookies.Domain, h.cookies.Secure, true)
}

func sameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
