package identity

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/idp"
	"github.com/b2bmarket/backend/internal/infrastructure/mail"
	"go.uber.org/zap"
)

// UserService manages the users of a company
type UserService struct {
	users     identity.UserRepository
	companies company.Repository
	provider  idp.Provider
	mailer    mail.Mailer
	templates *mail.Templates
	links     mail.Links
	inviteTTL time.Duration
	logger    *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	users identity.UserRepository,
	companies company.Repository,
	provider idp.Provider,
	mailer mail.Mailer,
	templates *mail.Templates,
	links mail.Links,
	inviteTTL time.Duration,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:     users,
		companies: companies,
		provider:  provider,
		mailer:    mailer,
		templates: templates,
		links:     links,
		inviteTTL: inviteTTL,
		logger:    logger,
	}
}

// List returns the users of the actor's company
func (s *UserService) List(ctx context.Context, actor *identity.User, filter UserListFilter) (shared.Paginated[UserDTO], error) {
	page, err := s.users.ListByCompany(ctx, actor.CompanyID, identity.UserFilter{
		Pagination: shared.NewPagination(filter.Page, filter.PageSize),
		Search:     filter.Search,
		Role:       identity.Role(filter.Role),
		Status:     identity.UserStatus(filter.Status),
	})
	if err != nil {
		return shared.Paginated[UserDTO]{}, err
	}
	return shared.Paginated[UserDTO]{
		Items:      ToUserDTOs(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// Invite creates an invited user with a pending account and emails the
// invitation link. Only admins of active companies can invite.
func (s *UserService) Invite(ctx context.Context, actor *identity.User, input InviteUserInput) (*UserDTO, error) {
	if !actor.IsAdmin() {
		return nil, identity.ErrAdminRequired
	}
	c, err := s.companies.FindByID(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	if err := c.EnsureCanTransact(); err != nil {
		return nil, err
	}

	email, err := identity.NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	role := identity.RoleMember
	if input.Role != "" {
		role = identity.Role(input.Role)
	}
	if err := ensureEmailFree(ctx, s.users, email); err != nil {
		return nil, err
	}

	account, err := s.provider.SignUp(ctx, email, "")
	if err != nil {
		return nil, err
	}
	user, err := identity.NewInvitedUser(c.ID, account.ID, input.Name, email, role, actor.ID)
	if err == nil {
		err = s.users.Create(ctx, user)
	}
	if err != nil {
		if derr := s.provider.DeleteAccount(ctx, account.ID); derr != nil {
			s.logger.Error("Failed to roll back invited account", zap.String("account_id", account.ID), zap.Error(derr))
		}
		return nil, err
	}

	token, err := s.provider.IssueInvite(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	msg, err := s.templates.Render(mail.TemplateInvite, map[string]any{
		"Name":        user.Name,
		"InviterName": actor.Name,
		"CompanyName": c.Name,
		"Link":        s.links.URL("/accept-invite", url.Values{"token": {token}}),
		"ExpiresIn":   s.inviteTTL.String(),
	}, user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to send invitation", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("User invited",
		zap.String("user_id", user.ID),
		zap.String("company_id", c.ID),
		zap.String("invited_by", actor.ID),
	)
	dto := ToUserDTO(user)
	return &dto, nil
}

// findInCompany loads a user of the actor's company; users of other
// companies are reported as not found.
func (s *UserService) findInCompany(ctx context.Context, actor *identity.User, id string) (*identity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.CompanyID != actor.CompanyID {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

// Update changes a user's name or role. Admins may change anyone in their
// company, members only their own name.
func (s *UserService) Update(ctx context.Context, actor *identity.User, id string, input UpdateUserInput) (*UserDTO, error) {
	user, err := s.findInCompany(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != user.ID {
		return nil, shared.ErrForbidden
	}

	if input.Name != nil {
		if err := user.Rename(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Role != nil && identity.Role(*input.Role) != user.Role {
		if !actor.IsAdmin() {
			return nil, identity.ErrAdminRequired
		}
		role := identity.Role(*input.Role)
		if user.IsAdmin() && role != identity.RoleAdmin {
			if err := s.ensureAnotherAdmin(ctx, user); err != nil {
				return nil, err
			}
		}
		if err := user.ChangeRole(role); err != nil {
			return nil, err
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("User updated", zap.String("user_id", user.ID), zap.String("updated_by", actor.ID))
	dto := ToUserDTO(user)
	return &dto, nil
}

// ensureAnotherAdmin fails with ErrLastAdmin if user is the company's only
// active admin.
func (s *UserService) ensureAnotherAdmin(ctx context.Context, user *identity.User) error {
	admins, err := s.users.ListAdmins(ctx, user.CompanyID)
	if err != nil {
		return err
	}
	for _, a := range admins {
		if a.ID != user.ID {
			return nil
		}
	}
	return identity.ErrLastAdmin
}

// Delete removes a user and their account. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actor *identity.User, id string) error {
	if !actor.IsAdmin() {
		return identity.ErrAdminRequired
	}
	if actor.ID == id {
		return identity.ErrCannotDeleteSelf
	}
	user, err := s.findInCompany(ctx, actor, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		if err := s.ensureAnotherAdmin(ctx, user); err != nil {
			return err
		}
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}
	if err := s.provider.DeleteAccount(ctx, user.AccountID); err != nil {
		s.logger.Error("Failed to delete account of removed user",
			zap.String("user_id", user.ID),
			zap.String("account_id", user.AccountID),
			zap.Error(err),
		)
	}
	s.logger.Info("User deleted", zap.String("user_id", user.ID), zap.String("deleted_by", actor.ID))
	return nil
}

// GetMe returns the actor's current user record
func (s *UserService) GetMe(ctx context.Context, actor *identity.User) (*UserDTO, error) {
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, idp.ErrSessionInvalid
		}
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// UpdateMe renames the actor
func (s *UserService) UpdateMe(ctx context.Context, actor *identity.User, name string) (*UserDTO, error) {
	return s.Update(ctx, actor, actor.ID, UpdateUserInput{Name: &name})
}
