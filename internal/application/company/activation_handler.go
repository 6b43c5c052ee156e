package company

import (
	"context"
	"errors"
	"fmt"

	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/notification"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/mail"
	"go.uber.org/zap"
)

// ActivationNotifier tells a newly activated company that it can trade: an
// in-app notification plus an email to each of its admins.
type ActivationNotifier struct {
	users         identity.UserRepository
	notifications notification.Repository
	mailer        mail.Mailer
	templates     *mail.Templates
	links         mail.Links
	logger        *zap.Logger
}

// NewActivationNotifier creates the CompanyActivated handler
func NewActivationNotifier(
	users identity.UserRepository,
	notifications notification.Repository,
	mailer mail.Mailer,
	templates *mail.Templates,
	links mail.Links,
	logger *zap.Logger,
) *ActivationNotifier {
	return &ActivationNotifier{
		users:         users,
		notifications: notifications,
		mailer:        mailer,
		templates:     templates,
		links:         links,
		logger:        logger,
	}
}

// EventTypes implements shared.EventHandler
func (h *ActivationNotifier) EventTypes() []string {
	return []string{company.EventTypeCompanyActivated}
}

// Handle implements shared.EventHandler
func (h *ActivationNotifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*company.CompanyActivatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	n, err := notification.New(e.AggregateID(), notification.KindActivation,
		"Your company is now active",
		e.Name+" can now publish products and services and message other companies.",
		"/profile",
	)
	if err != nil {
		return err
	}
	if err := h.notifications.Create(ctx, n); err != nil {
		return err
	}

	admins, err := h.users.ListAdmins(ctx, e.AggregateID())
	if err != nil {
		return err
	}
	var errs []error
	for _, admin := range admins {
		msg, err := h.templates.Render(mail.TemplateActivation, map[string]any{
			"Name":        admin.Name,
			"CompanyName": e.Name,
			"Link":        h.links.URL("/profile", nil),
		}, admin.Email)
		if err == nil {
			err = h.mailer.Send(ctx, msg)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", admin.Email, err))
		}
	}
	h.logger.Info("Activation notified",
		zap.String("company_id", e.AggregateID()),
		zap.Int("admins", len(admins)),
		zap.Int("failed", len(errs)),
	)
	return errors.Join(errs...)
}
