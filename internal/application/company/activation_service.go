package company

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Webhook delivery outcomes
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
)

var (
	ErrInvalidSignature = shared.NewDomainError("INVALID_SIGNATURE", "Webhook signature is missing or invalid")
	ErrInvalidPayload   = shared.NewDomainError("INVALID_PAYLOAD", "Webhook payload must name a company")
)

// WebhookDelivery is one inbound activation notification
type WebhookDelivery struct {
	ID        string // X-Webhook-Id; the body hash is used when empty
	Signature string // X-Webhook-Signature, hex HMAC-SHA256 with optional "sha256=" prefix
	Body      []byte
}

// WebhookResult reports what a delivery did
type WebhookResult struct {
	CompanyID string `json:"company_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

type activationPayload struct {
	ID        string `json:"_id"`
	CompanyID string `json:"companyId"`
}

func (p activationPayload) companyID() string {
	if p.CompanyID != "" {
		return p.CompanyID
	}
	return p.ID
}

// CacheInvalidator retires cached reads so that writes made outside this
// process become visible.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// ActivationService confirms company activations coming from the operator
// backoffice webhook or the CLI.
type ActivationService struct {
	companies   company.Repository
	publisher   shared.EventPublisher
	idempotency shared.IdempotencyStore
	cache       CacheInvalidator
	secret      []byte
	metrics     *telemetry.MarketMetrics
	logger      *zap.Logger
}

// ActivationOption configures an ActivationService
type ActivationOption func(*ActivationService)

// WithCacheInvalidator makes every activation drop cached reads before it
// loads the company. The backoffice writes to the store directly, so without
// it a cached pending company hides the activation.
func WithCacheInvalidator(inv CacheInvalidator) ActivationOption {
	return func(s *ActivationService) {
		s.cache = inv
	}
}

// NewActivationService creates a new activation service
func NewActivationService(
	companies company.Repository,
	publisher shared.EventPublisher,
	idempotency shared.IdempotencyStore,
	secret string,
	metrics *telemetry.MarketMetrics,
	logger *zap.Logger,
	opts ...ActivationOption,
) *ActivationService {
	s := &ActivationService{
		companies:   companies,
		publisher:   publisher,
		idempotency: idempotency,
		secret:      []byte(secret),
		metrics:     metrics,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign returns the hex signature of body, as the sender computes it
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *ActivationService) verify(signature string, body []byte) bool {
	if len(s.secret) == 0 {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// HandleWebhook verifies and applies an activation delivery. Each delivery id
// is processed once; a failed delivery releases its id so the sender can
// retry.
func (s *ActivationService) HandleWebhook(ctx context.Context, d WebhookDelivery) (*WebhookResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "activation", "webhook", "delivery_id", d.ID)
	defer span.End()

	if !s.verify(d.Signature, d.Body) {
		s.metrics.RecordWebhookDelivery(ctx, OutcomeRejected)
		s.logger.Warn("Rejected webhook with bad signature", zap.String("delivery_id", d.ID))
		return nil, ErrInvalidSignature
	}

	var payload activationPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil || payload.companyID() == "" {
		s.metrics.RecordWebhookDelivery(ctx, OutcomeRejected)
		return nil, ErrInvalidPayload
	}
	companyID := payload.companyID()
	telemetry.SetAttributes(span, telemetry.SpanAttrCompanyID, companyID)

	key := deliveryKey(d)
	isNew, err := s.idempotency.MarkProcessed(ctx, key, shared.DefaultIdempotencyTTL)
	if err != nil {
		s.logger.Warn("Idempotency check failed, processing anyway", zap.String("delivery_id", d.ID), zap.Error(err))
	} else if !isNew {
		s.metrics.RecordWebhookDelivery(ctx, OutcomeDuplicate)
		s.logger.Info("Skipped duplicate webhook", zap.String("delivery_id", d.ID))
		return &WebhookResult{CompanyID: companyID, Duplicate: true}, nil
	}

	if err := s.confirm(ctx, companyID); err != nil {
		if ferr := s.idempotency.Forget(ctx, key); ferr != nil {
			s.logger.Warn("Failed to release webhook key", zap.String("delivery_id", d.ID), zap.Error(ferr))
		}
		s.metrics.RecordWebhookDelivery(ctx, OutcomeRejected)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordWebhookDelivery(ctx, OutcomeProcessed)
	return &WebhookResult{CompanyID: companyID}, nil
}

func deliveryKey(d WebhookDelivery) string {
	if d.ID != "" {
		return "webhook:" + d.ID
	}
	sum := sha256.Sum256(d.Body)
	return "webhook:" + hex.EncodeToString(sum[:])
}

// load reads the company past any cached copy.
func (s *ActivationService) load(ctx context.Context, companyID string) (*company.Company, error) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("Reading company without dropping cached reads",
				zap.String("company_id", companyID), zap.Error(err))
		}
	}
	return s.companies.FindByID(ctx, companyID)
}

// confirm re-reads the company, which the backoffice has already switched to
// active, and records the activation.
func (s *ActivationService) confirm(ctx context.Context, companyID string) error {
	c, err := s.load(ctx, companyID)
	if err != nil {
		return err
	}
	if err := c.ConfirmActivation(); err != nil {
		return err
	}
	if !c.HasDomainEvents() {
		return nil
	}
	return s.save(ctx, c)
}

// Activate switches a company to active and records the activation. It is the
// operator path used by the CLI.
func (s *ActivationService) Activate(ctx context.Context, companyID string) (*CompanyDTO, error) {
	c, err := s.load(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := c.Activate(); err != nil {
		return nil, err
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	dto := ToCompanyDTO(c, "")
	return &dto, nil
}

// save persists c and publishes its pending events. A concurrent write to
// the company since it was loaded fails the save, so two deliveries cannot
// both stamp the activation. Handler failures are logged: the activation
// itself already succeeded.
func (s *ActivationService) save(ctx context.Context, c *company.Company) error {
	if err := s.companies.UpdateIfUnchanged(ctx, c); err != nil {
		return err
	}
	events := c.PullDomainEvents()
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to deliver activation events", zap.String("company_id", c.ID), zap.Error(err))
	}
	s.logger.Info("Company activated", zap.String("company_id", c.ID), zap.String("slug", c.Slug))
	return nil
}
