// Package idp is the identity provider: it owns credentials, issues session
// tokens and runs email-based account recovery. Marketplace users reference
// their account by id and never see password data.
package idp

import (
	"context"
	"time"

	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/auth"
)

var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrAccountLocked      = shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed attempts, try again later")
	ErrEmailTaken         = shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
	ErrWeakPassword       = shared.NewDomainError("WEAK_PASSWORD", "Password must be between 8 and 72 characters")
	ErrInvalidToken       = shared.NewDomainError("INVALID_TOKEN", "The link is invalid or has expired")
	ErrSessionInvalid     = shared.NewDomainError("SESSION_INVALID", "Session is invalid or has expired")
)

// Account is the provider's view of a login
type Account struct {
	ID    string
	Email string
	// Pending accounts were created by an invitation and have no password yet.
	Pending     bool
	LastLoginAt *time.Time
}

// Session is returned by sign-in and refresh
type Session struct {
	AccountID string
	Email     string
	Tokens    *auth.TokenPair
}

// Principal is the verified identity behind an access token
type Principal struct {
	AccountID string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// Provider is the identity provider contract used by the application layer
type Provider interface {
	// SignUp creates an account. An empty password creates a pending account
	// that can only be activated through an invitation.
	SignUp(ctx context.Context, email, password string) (*Account, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Verify(ctx context.Context, accessToken string) (*Principal, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	// SignOut revokes every valid token passed in.
	SignOut(ctx context.Context, tokens ...string) error
	ChangePassword(ctx context.Context, accountID, current, next string) error
	// RequestRecovery returns a one-time recovery token for email.
	RequestRecovery(ctx context.Context, email string) (string, error)
	Recover(ctx context.Context, token, newPassword string) (string, error)
	IssueInvite(ctx context.Context, accountID string) (string, error)
	AcceptInvite(ctx context.Context, token, password string) (string, error)
	DeleteAccount(ctx context.Context, accountID string) error
}
