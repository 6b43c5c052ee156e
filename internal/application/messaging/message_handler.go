package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/messaging"
	"github.com/b2bmarket/backend/internal/domain/notification"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/mail"
	"go.uber.org/zap"
)

// MessageNotifier handles MessageSent: the recipient company gets a
// notification and its admins an email.
type MessageNotifier struct {
	companies     company.Repository
	users         identity.UserRepository
	notifications notification.Repository
	mailer        mail.Mailer
	templates     *mail.Templates
	links         mail.Links
	logger        *zap.Logger
}

// NewMessageNotifier creates the MessageSent handler
func NewMessageNotifier(
	companies company.Repository,
	users identity.UserRepository,
	notifications notification.Repository,
	mailer mail.Mailer,
	templates *mail.Templates,
	links mail.Links,
	logger *zap.Logger,
) *MessageNotifier {
	return &MessageNotifier{
		companies:     companies,
		users:         users,
		notifications: notifications,
		mailer:        mailer,
		templates:     templates,
		links:         links,
		logger:        logger,
	}
}

// EventTypes implements shared.EventHandler
func (h *MessageNotifier) EventTypes() []string {
	return []string{messaging.EventTypeMessageSent}
}

// Handle implements shared.EventHandler
func (h *MessageNotifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*messaging.MessageSentEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	from, err := h.companies.FindByID(ctx, e.FromCompanyID)
	if err != nil {
		return err
	}
	to, err := h.companies.FindByID(ctx, e.ToCompanyID)
	if err != nil {
		return err
	}

	path := "/messages/" + e.MessageID
	n, err := notification.New(to.ID, notification.KindMessage, "New message from "+from.Name, e.Subject, path)
	if err != nil {
		return err
	}
	if err := h.notifications.Create(ctx, n); err != nil {
		return err
	}

	admins, err := h.users.ListAdmins(ctx, to.ID)
	if err != nil {
		return err
	}
	var errs []error
	for _, admin := range admins {
		msg, err := h.templates.Render(mail.TemplateNewMessage, map[string]any{
			"FromCompany": from.Name,
			"ToCompany":   to.Name,
			"Subject":     e.Subject,
			"Link":        h.links.URL(path, nil),
		}, admin.Email)
		if err == nil {
			err = h.mailer.Send(ctx, msg)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", admin.Email, err))
		}
	}
	if len(errs) > 0 {
		h.logger.Warn("Some message emails failed",
			zap.String("message_id", e.MessageID),
			zap.Int("failed", len(errs)),
		)
	}
	return errors.Join(errs...)
}
