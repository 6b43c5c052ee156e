// Package identity holds the authentication and user management use cases.
package identity

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"github.com/b2bmarket/backend/internal/infrastructure/idp"
	"github.com/b2bmarket/backend/internal/infrastructure/mail"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AuthService handles registration, sessions and password recovery
type AuthService struct {
	provider  idp.Provider
	users     identity.UserRepository
	companies company.Repository
	mailer    mail.Mailer
	templates *mail.Templates
	links     mail.Links
	cfg       config.IdentityConfig
	metrics   *telemetry.MarketMetrics
	logger    *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	provider idp.Provider,
	users identity.UserRepository,
	companies company.Repository,
	mailer mail.Mailer,
	templates *mail.Templates,
	links mail.Links,
	cfg config.IdentityConfig,
	metrics *telemetry.MarketMetrics,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		provider:  provider,
		users:     users,
		companies: companies,
		mailer:    mailer,
		templates: templates,
		links:     links,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// Register creates a pending company, its first admin and the admin's
// account, then signs the admin in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email, err := identity.NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if _, err := identity.ValidateName(input.Name); err != nil {
		return nil, err
	}
	if err := ensureEmailFree(ctx, s.users, email); err != nil {
		return nil, err
	}

	companyEmail := input.CompanyEmail
	if strings.TrimSpace(companyEmail) == "" {
		companyEmail = email
	}
	c, err := company.NewCompany(input.CompanyName, companyEmail)
	if err != nil {
		return nil, err
	}
	taken, err := s.companies.ExistsBySlug(ctx, c.Slug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, company.ErrSlugTaken
	}

	account, err := s.provider.SignUp(ctx, email, input.Password)
	if err != nil {
		return nil, err
	}
	if err := s.companies.Create(ctx, c); err != nil {
		s.rollbackAccount(ctx, account.ID)
		return nil, err
	}
	user, err := identity.NewUser(c.ID, account.ID, input.Name, email, identity.RoleAdmin)
	if err != nil {
		s.rollbackCompany(ctx, c.ID)
		s.rollbackAccount(ctx, account.ID)
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.rollbackCompany(ctx, c.ID)
		s.rollbackAccount(ctx, account.ID)
		return nil, err
	}

	s.metrics.RecordRegistration(ctx)
	s.logger.Info("Company registered",
		zap.String("company_id", c.ID),
		zap.String("slug", c.Slug),
		zap.String("user_id", user.ID),
	)

	session, err := s.provider.SignIn(ctx, email, input.Password)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		SessionDTO: SessionDTO{User: ToUserDTO(user), Company: toCompanySummary(c)},
		Tokens:     toTokensDTO(session),
	}, nil
}

// ensureEmailFree returns ErrEmailTaken when a user already has email
func ensureEmailFree(ctx context.Context, users identity.UserRepository, email string) error {
	_, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return identity.ErrEmailTaken
	case errors.Is(err, shared.ErrNotFound):
		return nil
	default:
		return err
	}
}

// rollbackCompany removes a company whose registration failed, releasing
// its slug.
func (s *AuthService) rollbackCompany(ctx context.Context, companyID string) {
	if err := s.companies.Delete(ctx, companyID); err != nil {
		s.logger.Error("Failed to roll back company", zap.String("company_id", companyID), zap.Error(err))
	}
}

func (s *AuthService) rollbackAccount(ctx context.Context, accountID string) {
	if err := s.provider.DeleteAccount(ctx, accountID); err != nil {
		s.logger.Error("Failed to roll back account", zap.String("account_id", accountID), zap.Error(err))
	}
}

// Login authenticates with email and password
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	session, err := s.provider.SignIn(ctx, input.Email, input.Password)
	if err != nil {
		s.logger.Info("Login failed", zap.String("email", strings.ToLower(strings.TrimSpace(input.Email))), zap.Error(err))
		return nil, err
	}
	sess, err := s.sessionFor(ctx, session.AccountID)
	if err != nil {
		// An account without a user document cannot act for any company.
		if errors.Is(err, shared.ErrNotFound) {
			_ = s.provider.SignOut(ctx, session.Tokens.AccessToken, session.Tokens.RefreshToken)
			return nil, idp.ErrInvalidCredentials
		}
		return nil, err
	}
	s.logger.Info("User logged in", zap.String("user_id", sess.User.ID))
	return &AuthResult{SessionDTO: *sess, Tokens: toTokensDTO(session)}, nil
}

// Logout revokes the given tokens
func (s *AuthService) Logout(ctx context.Context, tokens ...string) error {
	return s.provider.SignOut(ctx, tokens...)
}

// Authenticate resolves an access token to the acting user
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*identity.User, *idp.Principal, error) {
	principal, err := s.provider.Verify(ctx, accessToken)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.FindByAccountID(ctx, principal.AccountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, idp.ErrSessionInvalid
		}
		return nil, nil, err
	}
	return user, principal, nil
}

// Session returns the current user and company
func (s *AuthService) Session(ctx context.Context, actor *identity.User) (*SessionDTO, error) {
	return s.sessionFor(ctx, actor.AccountID)
}

func (s *AuthService) sessionFor(ctx context.Context, accountID string) (*SessionDTO, error) {
	user, err := s.users.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	c, err := s.companies.FindByID(ctx, user.CompanyID)
	if err != nil {
		return nil, err
	}
	return &SessionDTO{User: ToUserDTO(user), Company: toCompanySummary(c)}, nil
}

// Refresh exchanges a refresh token for a new session
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	session, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessionFor(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, idp.ErrSessionInvalid
		}
		return nil, err
	}
	return &AuthResult{SessionDTO: *sess, Tokens: toTokensDTO(session)}, nil
}

// ForgotPassword emails a recovery link. The result is the same whether or
// not the address has an account.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	token, err := s.provider.RequestRecovery(ctx, email)
	if err != nil {
		s.logger.Error("Failed to issue recovery token", zap.Error(err))
		return nil
	}
	if token == "" {
		return nil
	}
	to := strings.ToLower(strings.TrimSpace(email))
	msg, err := s.templates.Render(mail.TemplateRecovery, map[string]any{
		"Link":      s.links.URL("/reset-password", url.Values{"token": {token}}),
		"ExpiresIn": s.cfg.RecoveryTokenTTL.String(),
	}, to)
	if err != nil {
		s.logger.Error("Failed to render recovery email", zap.Error(err))
		return nil
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to send recovery email", zap.Error(err))
	}
	return nil
}

// ResetPassword sets a new password from a recovery token
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	accountID, err := s.provider.Recover(ctx, input.Token, input.NewPassword)
	if err != nil {
		return err
	}
	s.logger.Info("Password reset", zap.String("account_id", accountID))
	return nil
}

// ChangePassword changes the signed-in user's password. Other sessions are
// invalidated by the provider.
func (s *AuthService) ChangePassword(ctx context.Context, actor *identity.User, input ChangePasswordInput) error {
	if err := s.provider.ChangePassword(ctx, actor.AccountID, input.CurrentPassword, input.NewPassword); err != nil {
		return err
	}
	s.logger.Info("Password changed", zap.String("user_id", actor.ID))
	return nil
}

// AcceptInvite sets the invited user's password, activates the user and
// signs them in.
func (s *AuthService) AcceptInvite(ctx context.Context, input AcceptInviteInput) (*AuthResult, error) {
	accountID, err := s.provider.AcceptInvite(ctx, input.Token, input.Password)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, idp.ErrInvalidToken
		}
		return nil, err
	}
	if err := user.AcceptInvitation(); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("Invitation accepted", zap.String("user_id", user.ID), zap.String("company_id", user.CompanyID))

	session, err := s.provider.SignIn(ctx, user.Email, input.Password)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessionFor(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{SessionDTO: *sess, Tokens: toTokensDTO(session)}, nil
}
