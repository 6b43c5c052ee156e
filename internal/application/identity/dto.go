package identity

import (
	"time"

	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/infrastructure/idp"
)

// RegisterInput contains the input for registering a company and its first
// admin
type RegisterInput struct {
	CompanyName  string
	CompanyEmail string // defaults to Email
	Name         string
	Email        string
	Password     string
}

// LoginInput contains the credentials for login
type LoginInput struct {
	Email    string
	Password string
}

// TokensDTO carries a session's tokens
type TokensDTO struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// UserDTO represents a user
type UserDTO struct {
	ID        string     `json:"id"`
	CompanyID string     `json:"company_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	InvitedBy string     `json:"invited_by,omitempty"`
	InvitedAt *time.Time `json:"invited_at,omitempty"`
	JoinedAt  *time.Time `json:"joined_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CompanySummaryDTO is the company shown with a session
type CompanySummaryDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
	Active bool   `json:"active"`
}

// SessionDTO is the current user and company
type SessionDTO struct {
	User    UserDTO           `json:"user"`
	Company CompanySummaryDTO `json:"company"`
}

// AuthResult is returned by every operation that opens a session
type AuthResult struct {
	SessionDTO
	Tokens TokensDTO `json:"tokens"`
}

// ResetPasswordInput completes an account recovery
type ResetPasswordInput struct {
	Token       string
	NewPassword string
}

// ChangePasswordInput changes the password of the signed-in user
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// AcceptInviteInput activates an invited user
type AcceptInviteInput struct {
	Token    string
	Password string
}

// InviteUserInput invites a user into the admin's company
type InviteUserInput struct {
	Name  string
	Email string
	Role  string // defaults to member
}

// UpdateUserInput changes another user; nil fields are left alone
type UpdateUserInput struct {
	Name *string
	Role *string
}

// UserListFilter narrows List
type UserListFilter struct {
	Page     int
	PageSize int
	Search   string
	Role     string
	Status   string
}

// ToUserDTO converts a domain user
func ToUserDTO(u *identity.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		CompanyID: u.CompanyID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Status:    string(u.Status),
		InvitedBy: u.InvitedBy,
		InvitedAt: u.InvitedAt,
		JoinedAt:  u.JoinedAt,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []*identity.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = ToUserDTO(u)
	}
	return out
}

func toCompanySummary(c *company.Company) CompanySummaryDTO {
	return CompanySummaryDTO{
		ID:     c.ID,
		Name:   c.Name,
		Slug:   c.Slug,
		Status: string(c.Status),
		Active: c.CanTransact(),
	}
}

func toTokensDTO(s *idp.Session) TokensDTO {
	return TokensDTO{
		AccessToken:           s.Tokens.AccessToken,
		RefreshToken:          s.Tokens.RefreshToken,
		AccessTokenExpiresAt:  s.Tokens.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: s.Tokens.RefreshTokenExpiresAt,
		TokenType:             s.Tokens.TokenType,
	}
}
