// Package identity models marketplace users. Credentials live with the
// identity provider; a user links a provider account to a company.
package identity

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/b2bmarket/backend/internal/domain/shared"
)

// Role is a user's permission level inside their company
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleMember
}

// UserStatus tracks whether an invitation was accepted
type UserStatus string

const (
	UserStatusInvited UserStatus = "invited"
	UserStatusActive  UserStatus = "active"
)

const maxNameLength = 200

var (
	ErrInvalidEmail     = shared.NewDomainError("INVALID_EMAIL", "Email address is invalid")
	ErrInvalidRole      = shared.NewDomainError("INVALID_ROLE", "Role must be admin or member")
	ErrInvalidName      = shared.NewDomainError("INVALID_NAME", "Name is required and cannot exceed 200 characters")
	ErrEmailTaken       = shared.NewDomainError("EMAIL_TAKEN", "A user with this email already exists")
	ErrLastAdmin        = shared.NewDomainError("LAST_ADMIN", "A company needs at least one admin")
	ErrAdminRequired    = shared.NewDomainError("ADMIN_REQUIRED", "Only company admins can perform this action")
	ErrCannotDeleteSelf = shared.NewDomainError("CANNOT_DELETE_SELF", "Users cannot delete themselves")
)

// User is a person acting for a company
type User struct {
	shared.AggregateRoot
	Name      string
	Email     string
	Role      Role
	Status    UserStatus
	CompanyID string
	AccountID string // identity provider account
	InvitedBy string // user id, empty for the registering admin
	InvitedAt *time.Time
	JoinedAt  *time.Time
}

// NewUser creates an active user, used when a company registers.
func NewUser(companyID, accountID, name, email string, role Role) (*User, error) {
	u, err := newUser(companyID, accountID, name, email, role)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u.Status = UserStatusActive
	u.JoinedAt = &now
	return u, nil
}

// NewInvitedUser creates a user that still has to accept the invitation
func NewInvitedUser(companyID, accountID, name, email string, role Role, invitedBy string) (*User, error) {
	u, err := newUser(companyID, accountID, name, email, role)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u.Status = UserStatusInvited
	u.InvitedBy = invitedBy
	u.InvitedAt = &now
	return u, nil
}

func newUser(companyID, accountID, name, email string, role Role) (*User, error) {
	if companyID == "" || accountID == "" {
		return nil, shared.NewDomainError("INVALID_USER", "User needs a company and an account")
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	u := &User{
		Email:     email,
		Role:      role,
		CompanyID: companyID,
		AccountID: accountID,
	}
	if err := u.Rename(name); err != nil {
		return nil, err
	}
	return u, nil
}

// NormalizeEmail validates and lowercases an address
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// ValidateName trims a display name and checks its length
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// Rename changes the display name
func (u *User) Rename(name string) error {
	name, err := ValidateName(name)
	if err != nil {
		return err
	}
	u.Name = name
	u.Touch()
	return nil
}

// ChangeRole sets the role
func (u *User) ChangeRole(role Role) error {
	if !role.IsValid() {
		return ErrInvalidRole
	}
	u.Role = role
	u.Touch()
	return nil
}

// AcceptInvitation activates an invited user
func (u *User) AcceptInvitation() error {
	if u.Status != UserStatusInvited {
		return shared.NewDomainError("INVITATION_ACCEPTED", "Invitation was already accepted")
	}
	now := time.Now().UTC()
	u.Status = UserStatusActive
	u.JoinedAt = &now
	u.Touch()
	return nil
}

// IsAdmin reports whether the user administers their company
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsActive reports whether the user accepted their invitation
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
