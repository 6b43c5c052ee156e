package idp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/b2bmarket/backend/internal/infrastructure/auth"
	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// DefaultBcryptCost is used for new password hashes
	DefaultBcryptCost = 12

	minPasswordLength = 8
	maxPasswordLength = 72
)

// accountModel is the idp_accounts row
type accountModel struct {
	ID                string     `gorm:"column:id;primaryKey;size:64"`
	Email             string     `gorm:"column:email;size:255;not null;uniqueIndex:idx_idp_accounts_email"`
	PasswordHash      string     `gorm:"column:password_hash;size:255"`
	FailedAttempts    int        `gorm:"column:failed_attempts;not null;default:0"`
	LockedUntil       *time.Time `gorm:"column:locked_until"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
	PasswordChangedAt *time.Time `gorm:"column:password_changed_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for gorm
func (accountModel) TableName() string {
	return "idp_accounts"
}

func (m *accountModel) toAccount() *Account {
	return &Account{
		ID:          m.ID,
		Email:       m.Email,
		Pending:     m.PasswordHash == "",
		LastLoginAt: m.LastLoginAt,
	}
}

// LocalProvider keeps accounts in the SQL database and issues JWT sessions
type LocalProvider struct {
	db        *gorm.DB
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	tokens    *TokenStore
	cfg       config.IdentityConfig
	cost      int
	now       func() time.Time
	logger    *zap.Logger
}

// LocalProviderOption configures a LocalProvider
type LocalProviderOption func(*LocalProvider)

// WithBcryptCost overrides the hashing cost (tests use bcrypt.MinCost)
func WithBcryptCost(cost int) LocalProviderOption {
	return func(p *LocalProvider) {
		p.cost = cost
	}
}

// WithProviderClock overrides the time source
func WithProviderClock(now func() time.Time) LocalProviderOption {
	return func(p *LocalProvider) {
		p.now = now
	}
}

// WithProviderLogger sets the logger
func WithProviderLogger(logger *zap.Logger) LocalProviderOption {
	return func(p *LocalProvider) {
		p.logger = logger
	}
}

// NewLocalProvider creates the provider
func NewLocalProvider(
	db *gorm.DB,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	tokens *TokenStore,
	cfg config.IdentityConfig,
	opts ...LocalProviderOption,
) *LocalProvider {
	p := &LocalProvider{
		db:        db,
		jwt:       jwtService,
		blacklist: blacklist,
		tokens:    tokens,
		cfg:       cfg,
		cost:      DefaultBcryptCost,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AutoMigrate creates idp_accounts. Postgres deployments run cmd/migrate.
func (p *LocalProvider) AutoMigrate() error {
	return p.db.AutoMigrate(&accountModel{})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func (p *LocalProvider) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

func (p *LocalProvider) find(ctx context.Context, query string, arg any) (*accountModel, error) {
	var m accountModel
	err := p.db.WithContext(ctx).Where(query, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return &m, nil
}

// SignUp implements Provider
func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*Account, error) {
	email = normalizeEmail(email)
	existing, err := p.find(ctx, "email = ?", email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	var hash string
	if password != "" {
		if err := validatePassword(password); err != nil {
			return nil, err
		}
		if hash, err = p.hash(password); err != nil {
			return nil, err
		}
	}
	now := p.now().UTC()
	m := &accountModel{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return m.toAccount(), nil
}

// SignIn implements Provider. Failed attempts are counted per account and
// lock it for the configured duration once the limit is reached.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	m, err := p.find(ctx, "email = ?", normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if m == nil || m.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	now := p.now().UTC()
	if m.LockedUntil != nil && now.Before(*m.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)) != nil {
		updates := map[string]any{"failed_attempts": m.FailedAttempts + 1, "updated_at": now}
		locked := m.FailedAttempts+1 >= p.cfg.MaxLoginAttempts && p.cfg.MaxLoginAttempts > 0
		if locked {
			updates["locked_until"] = now.Add(p.cfg.LockDuration)
			updates["failed_attempts"] = 0
		}
		if err := p.db.WithContext(ctx).Model(m).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to record login attempt: %w", err)
		}
		if locked {
			p.logger.Warn("Account locked after failed logins", zap.String("account_id", m.ID))
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	if err := p.db.WithContext(ctx).Model(m).Updates(map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
		"updated_at":      now,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	return p.issue(m.ID, m.Email)
}

func (p *LocalProvider) issue(accountID, email string) (*Session, error) {
	pair, err := p.jwt.GenerateTokenPair(auth.GenerateTokenInput{AccountID: accountID, Email: email})
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return &Session{AccountID: accountID, Email: email, Tokens: pair}, nil
}

func (p *LocalProvider) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	revoked, err := p.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrSessionInvalid
	}
	invalidated, err := p.blacklist.IsUserTokenInvalidated(ctx, claims.AccountID, claims.GetIssuedAtTime())
	if err != nil {
		return err
	}
	if invalidated {
		return ErrSessionInvalid
	}
	return nil
}

// Verify implements Provider
func (p *LocalProvider) Verify(ctx context.Context, accessToken string) (*Principal, error) {
	claims, err := p.jwt.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	if err := p.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	principal := &Principal{
		AccountID: claims.AccountID,
		Email:     claims.Email,
		TokenID:   claims.ID,
	}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	return principal, nil
}

// Refresh implements Provider. The used refresh token is revoked.
func (p *LocalProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := p.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	if err := p.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	m, err := p.find(ctx, "id = ?", claims.AccountID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrSessionInvalid
	}
	pair, _, err := p.jwt.RefreshTokenPair(refreshToken)
	if errors.Is(err, auth.ErrMaxRefreshExceeded) {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	if err := p.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		return nil, err
	}
	return &Session{AccountID: m.ID, Email: m.Email, Tokens: pair}, nil
}

// SignOut implements Provider
func (p *LocalProvider) SignOut(ctx context.Context, tokens ...string) error {
	for _, token := range tokens {
		if token == "" {
			continue
		}
		claims, err := p.jwt.ValidateAccessToken(token)
		if err != nil {
			claims, err = p.jwt.ValidateRefreshToken(token)
		}
		if err != nil {
			continue
		}
		if err := p.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
			return err
		}
	}
	return nil
}

func (p *LocalProvider) setPassword(ctx context.Context, accountID, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := p.hash(password)
	if err != nil {
		return err
	}
	now := p.now().UTC()
	res := p.db.WithContext(ctx).Model(&accountModel{}).Where("id = ?", accountID).Updates(map[string]any{
		"password_hash":       hash,
		"password_changed_at": now,
		"failed_attempts":     0,
		"locked_until":        nil,
		"updated_at":          now,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidToken
	}
	return p.blacklist.AddUserTokensToBlacklist(ctx, accountID, p.jwt.GetRefreshTokenExpiration())
}

// ChangePassword implements Provider. Existing sessions are invalidated.
func (p *LocalProvider) ChangePassword(ctx context.Context, accountID, current, next string) error {
	m, err := p.find(ctx, "id = ?", accountID)
	if err != nil {
		return err
	}
	if m == nil || bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	return p.setPassword(ctx, accountID, next)
}

// RequestRecovery implements Provider. Unknown emails yield an empty token
// and no error so callers cannot probe for accounts.
func (p *LocalProvider) RequestRecovery(ctx context.Context, email string) (string, error) {
	m, err := p.find(ctx, "email = ?", normalizeEmail(email))
	if err != nil || m == nil {
		return "", err
	}
	return p.tokens.Issue(ctx, PurposeRecovery, m.ID, p.cfg.RecoveryTokenTTL)
}

// Recover implements Provider
func (p *LocalProvider) Recover(ctx context.Context, token, newPassword string) (string, error) {
	if err := validatePassword(newPassword); err != nil {
		return "", err
	}
	accountID, err := p.tokens.Consume(ctx, PurposeRecovery, token)
	if err != nil {
		return "", err
	}
	return accountID, p.setPassword(ctx, accountID, newPassword)
}

// IssueInvite implements Provider
func (p *LocalProvider) IssueInvite(ctx context.Context, accountID string) (string, error) {
	return p.tokens.Issue(ctx, PurposeInvite, accountID, p.cfg.InviteTokenTTL)
}

// AcceptInvite implements Provider
func (p *LocalProvider) AcceptInvite(ctx context.Context, token, password string) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", err
	}
	accountID, err := p.tokens.Consume(ctx, PurposeInvite, token)
	if err != nil {
		return "", err
	}
	return accountID, p.setPassword(ctx, accountID, password)
}

// DeleteAccount implements Provider
func (p *LocalProvider) DeleteAccount(ctx context.Context, accountID string) error {
	if err := p.db.WithContext(ctx).Where("id = ?", accountID).Delete(&accountModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return p.blacklist.AddUserTokensToBlacklist(ctx, accountID, p.jwt.GetRefreshTokenExpiration())
}

var _ Provider = (*LocalProvider)(nil)
