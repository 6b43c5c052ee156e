package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/idp"
	"github.com/b2bmarket/backend/internal/infrastructure/mail"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"github.com/b2bmarket/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(env *testutil.Env) *AuthService {
	return NewAuthService(env.Provider, env.Users, env.Companies, env.Mailer, env.Templates,
		mail.Links{BaseURL: testutil.BaseURL}, testutil.IdentityConfig(), telemetry.NopMarketMetrics(), env.Logger)
}

func registerInput() RegisterInput {
	return RegisterInput{
		CompanyName: "Acme Tools",
		Name:        "Ada Admin",
		Email:       "Ada@Acme.test",
		Password:    testutil.TestPassword,
	}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := newAuthService(env)

	result, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	assert.Equal(t, "ada@acme.test", result.User.Email)
	assert.Equal(t, string(identity.RoleAdmin), result.User.Role)
	assert.Equal(t, string(identity.UserStatusActive), result.User.Status)
	assert.Equal(t, "acme-tools", result.Company.Slug)
	assert.Equal(t, string(company.StatusPending), result.Company.Status)
	assert.False(t, result.Company.Active)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)

	stored, err := env.Companies.FindByID(ctx, result.Company.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@acme.test", stored.Email, "company email defaults to the admin's")

	t.Run("email already registered", func(t *testing.T) {
		input := registerInput()
		input.CompanyName = "Other Co"
		_, err := svc.Register(ctx, input)
		assert.ErrorIs(t, err, identity.ErrEmailTaken)
	})

	t.Run("company name already used", func(t *testing.T) {
		input := registerInput()
		input.Email = "bob@acme.test"
		_, err := svc.Register(ctx, input)
		assert.ErrorIs(t, err, company.ErrSlugTaken)
	})

	t.Run("weak password leaves nothing behind", func(t *testing.T) {
		input := RegisterInput{CompanyName: "Globex", Name: "Gus", Email: "gus@globex.test", Password: "short"}
		_, err := svc.Register(ctx, input)
		assert.ErrorIs(t, err, idp.ErrWeakPassword)

		exists, err := env.Companies.ExistsBySlug(ctx, "globex")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("blank admin name leaves nothing behind", func(t *testing.T) {
		input := RegisterInput{CompanyName: "Globex", Name: "   ", Email: "gus@globex.test", Password: testutil.TestPassword}
		_, err := svc.Register(ctx, input)
		assert.ErrorIs(t, err, identity.ErrInvalidName)

		input.Name = "Gus"
		result, err := svc.Register(ctx, input)
		require.NoError(t, err, "the company name is still free")
		assert.Equal(t, "globex", result.Company.Slug)
	})
}

type failingUserRepository struct {
	identity.UserRepository
}

func (failingUserRepository) Create(context.Context, *identity.User) error {
	return errors.New("disk full")
}

func TestAuthService_RegisterRollsBackCompanyAndAccount(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	failing := NewAuthService(env.Provider, failingUserRepository{env.Users}, env.Companies, env.Mailer, env.Templates,
		mail.Links{BaseURL: testutil.BaseURL}, testutil.IdentityConfig(), telemetry.NopMarketMetrics(), env.Logger)

	_, err := failing.Register(ctx, registerInput())
	require.Error(t, err)

	page, err := env.Companies.List(ctx, company.Filter{Pagination: shared.NewPagination(1, 10)})
	require.NoError(t, err)
	assert.Zero(t, page.Total, "no pending company is left behind")

	result, err := newAuthService(env).Register(ctx, registerInput())
	require.NoError(t, err, "slug and email are free for a retry")
	assert.Equal(t, "acme-tools", result.Company.Slug)
}

func TestAuthService_LoginLogout(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := newAuthService(env)
	c := env.CreateCompany(t, "Acme Tools", company.StatusActive)
	user := env.CreateUser(t, c.ID, "Ada", "ada@acme.test", identity.RoleAdmin)

	_, err := svc.Login(ctx, LoginInput{Email: "ada@acme.test", Password: "wrong-password"})
	assert.ErrorIs(t, err, idp.ErrInvalidCredentials)

	result, err := svc.Login(ctx, LoginInput{Email: " ADA@acme.test ", Password: testutil.TestPassword})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.True(t, result.Company.Active)

	actor, principal, err := svc.Authenticate(ctx, result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.ID)
	assert.Equal(t, user.AccountID, principal.AccountID)

	session, err := svc.Session(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, c.ID, session.Company.ID)

	require.NoError(t, svc.Logout(ctx, result.Tokens.AccessToken, result.Tokens.RefreshToken))
	_, _, err = svc.Authenticate(ctx, result.Tokens.AccessToken)
	assert.ErrorIs(t, err, idp.ErrSessionInvalid)
	_, err = svc.Refresh(ctx, result.Tokens.RefreshToken)
	assert.ErrorIs(t, err, idp.ErrSessionInvalid)
}

func TestAuthService_LoginWithoutUser(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := newAuthService(env)

	_, err := env.Provider.SignUp(ctx, "orphan@acme.test", testutil.TestPassword)
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "orphan@acme.test", Password: testutil.TestPassword})
	assert.ErrorIs(t, err, idp.ErrInvalidCredentials)
}

func TestAuthService_RefreshIsSingleUse(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := newAuthService(env)

	registered, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, registered.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, refreshed.User.ID)
	assert.NotEqual(t, registered.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)

	_, err = svc.Refresh(ctx, registered.Tokens.RefreshToken)
	assert.ErrorIs(t, err, idp.ErrSessionInvalid)
}

func TestAuthService_PasswordRecovery(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := newAuthService(env)
	c := env.CreateCompany(t, "Acme Tools", company.StatusActive)
	env.CreateUser(t, c.ID, "Ada", "ada@acme.test", identity.RoleAdmin)

	require.NoError(t, svc.ForgotPassword(ctx, "nobody@acme.test"))
	assert.Empty(t, env.Mailer.Sent(), "unknown addresses get no email and no error")

	require.NoError(t, svc.ForgotPassword(ctx, "ada@acme.test"))
	sent := env.Mailer.SentTo("ada@acme.test")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, testutil.BaseURL+"/reset-password?token=")
	token := testutil.TokenFromEmail(t, sent[0])

	require.NoError(t, svc.ResetPassword(ctx, ResetPasswordInput{Token: token, NewPassword: "a-brand-new-secret"}))
	assert.ErrorIs(t, svc.ResetPassword(ctx, ResetPasswordInput{Token: token, NewPassword: "another-secret-1"}), idp.ErrInvalidToken)

	_, err := svc.Login(ctx, LoginInput{Email: "ada@acme.test", Password: testutil.TestPassword})
	assert.ErrorIs(t, err, idp.ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginInput{Email: "ada@acme.test", Password: "a-brand-new-secret"})
	assert.NoError(t, err)
}

func TestAuthService_ForgotPasswordHidesMailFailures(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := newAuthService(env)
	c := env.CreateCompany(t, "Acme Tools", company.StatusActive)
	env.CreateUser(t, c.ID, "Ada", "ada@acme.test", identity.RoleAdmin)

	env.Mailer.SetError(assert.AnError)
	assert.NoError(t, svc.ForgotPassword(ctx, "ada@acme.test"))
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := newAuthService(env)
	c := env.CreateCompany(t, "Acme Tools", company.StatusActive)
	user := env.CreateUser(t, c.ID, "Ada", "ada@acme.test", identity.RoleAdmin)

	err := svc.ChangePassword(ctx, user, ChangePasswordInput{CurrentPassword: "wrong-password", NewPassword: "next-password-1"})
	assert.ErrorIs(t, err, idp.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, user, ChangePasswordInput{
		CurrentPassword: testutil.TestPassword,
		NewPassword:     "next-password-1",
	}))
	_, err = svc.Login(ctx, LoginInput{Email: "ada@acme.test", Password: "next-password-1"})
	assert.NoError(t, err)
}
