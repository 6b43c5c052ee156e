package messaging

import (
	"context"
	"errors"

	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/messaging"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

var (
	ErrInvalidRecipient = shared.NewDomainError("INVALID_RECIPIENT", "Recipient company does not exist or is not active")
	ErrInvalidListing   = shared.NewDomainError("INVALID_LISTING", "Listing must belong to the recipient company")
)

// MessageService sends and reads messages between companies
type MessageService struct {
	messages  messaging.Repository
	companies company.Repository
	listings  catalog.ListingRepository
	publisher shared.EventPublisher
	metrics   *telemetry.MarketMetrics
	logger    *zap.Logger
}

// NewMessageService creates a new message service
func NewMessageService(
	messages messaging.Repository,
	companies company.Repository,
	listings catalog.ListingRepository,
	publisher shared.EventPublisher,
	metrics *telemetry.MarketMetrics,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		messages:  messages,
		companies: companies,
		listings:  listings,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *MessageService) findRecipient(ctx context.Context, ref string) (*company.Company, error) {
	c, err := s.companies.FindByID(ctx, ref)
	if errors.Is(err, shared.ErrNotFound) {
		c, err = s.companies.FindBySlug(ctx, ref)
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil, ErrInvalidRecipient
	}
	if err != nil {
		return nil, err
	}
	if !c.CanTransact() {
		return nil, ErrInvalidRecipient
	}
	return c, nil
}

// Send stores a message from the actor's company and notifies the recipient.
// Both companies must be active; a referenced listing must belong to the
// recipient.
func (s *MessageService) Send(ctx context.Context, actor *identity.User, input SendMessageInput) (*MessageDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "message", "send", telemetry.SpanAttrCompanyID, actor.CompanyID)
	defer span.End()

	dto, err := s.send(ctx, actor, input)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrMessageID, dto.ID)
	return dto, nil
}

func (s *MessageService) send(ctx context.Context, actor *identity.User, input SendMessageInput) (*MessageDTO, error) {
	from, err := s.companies.FindByID(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	if err := from.EnsureCanTransact(); err != nil {
		return nil, err
	}
	to, err := s.findRecipient(ctx, input.To)
	if err != nil {
		return nil, err
	}
	if input.ListingID != "" {
		l, err := s.listings.FindByID(ctx, input.ListingID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidListing
		}
		if err != nil {
			return nil, err
		}
		if l.CompanyID != to.ID {
			return nil, ErrInvalidListing
		}
	}

	m, err := messaging.NewMessage(actor.ID, from.ID, to.ID, input.Subject, input.Body, input.ListingID)
	if err != nil {
		return nil, err
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	m.RecordSent()
	if err := s.publisher.Publish(ctx, m.PullDomainEvents()...); err != nil {
		s.logger.Error("Failed to deliver message notifications", zap.String("message_id", m.ID), zap.Error(err))
	}
	s.metrics.RecordMessageSent(ctx)
	s.logger.Info("Message sent",
		zap.String("message_id", m.ID),
		zap.String("from_company_id", from.ID),
		zap.String("to_company_id", to.ID),
	)

	m.Sender = &messaging.Participant{ID: actor.ID, Name: actor.Name, Email: actor.Email}
	m.FromCompany = &messaging.Participant{ID: from.ID, Name: from.Name, Slug: from.Slug}
	m.ToCompany = &messaging.Participant{ID: to.ID, Name: to.Name, Slug: to.Slug}
	dto := ToMessageDTO(m)
	return &dto, nil
}

// Inbox returns the messages received by the actor's company, newest first
func (s *MessageService) Inbox(ctx context.Context, actor *identity.User, q MailboxQuery) (shared.Paginated[MessageDTO], error) {
	return s.mailbox(ctx, s.messages.Inbox, actor, q)
}

// Outbox returns the messages sent by the actor's company, newest first
func (s *MessageService) Outbox(ctx context.Context, actor *identity.User, q MailboxQuery) (shared.Paginated[MessageDTO], error) {
	return s.mailbox(ctx, s.messages.Outbox, actor, q)
}

type mailboxFunc func(ctx context.Context, companyID string, filter messaging.MailboxFilter) (shared.Paginated[*messaging.Message], error)

func (s *MessageService) mailbox(ctx context.Context, list mailboxFunc, actor *identity.User, q MailboxQuery) (shared.Paginated[MessageDTO], error) {
	page, err := list(ctx, actor.CompanyID, messaging.MailboxFilter{
		Pagination:    shared.NewPagination(q.Page, q.PageSize),
		UnreadOnly:    q.UnreadOnly,
		WithCompanyID: q.With,
	})
	if err != nil {
		return shared.Paginated[MessageDTO]{}, err
	}
	return shared.Paginated[MessageDTO]{
		Items:      ToMessageDTOs(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// find loads a message visible to the actor's company. Messages of other
// companies and deleted messages are reported as not found.
func (s *MessageService) find(ctx context.Context, actor *identity.User, id string) (*messaging.Message, error) {
	m, err := s.messages.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.EnsureVisibleTo(actor.CompanyID); err != nil {
		return nil, shared.ErrNotFound
	}
	return m, nil
}

// Get returns a message. Reading it as the recipient marks it read.
func (s *MessageService) Get(ctx context.Context, actor *identity.User, id string) (*MessageDTO, error) {
	m, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if m.IsRecipient(actor.CompanyID) {
		if err := s.markRead(ctx, m, actor.CompanyID); err != nil {
			return nil, err
		}
	}
	dto := ToMessageDTO(m)
	return &dto, nil
}

// MarkRead flags a received message read
func (s *MessageService) MarkRead(ctx context.Context, actor *identity.User, id string) (*MessageDTO, error) {
	m, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.markRead(ctx, m, actor.CompanyID); err != nil {
		return nil, err
	}
	dto := ToMessageDTO(m)
	return &dto, nil
}

func (s *MessageService) markRead(ctx context.Context, m *messaging.Message, companyID string) error {
	changed, err := m.MarkRead(companyID)
	if err != nil || !changed {
		return err
	}
	return s.messages.Update(ctx, m)
}

// Delete hides a message from both mailboxes. Either participant may delete.
func (s *MessageService) Delete(ctx context.Context, actor *identity.User, id string) error {
	m, err := s.find(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := m.Delete(actor.CompanyID); err != nil {
		return err
	}
	if err := s.messages.Update(ctx, m); err != nil {
		return err
	}
	s.logger.Info("Message deleted", zap.String("message_id", m.ID), zap.String("deleted_by", actor.ID))
	return nil
}

// UnreadCount returns the number of unread inbox messages
func (s *MessageService) UnreadCount(ctx context.Context, actor *identity.User) (*UnreadCountDTO, error) {
	n, err := s.messages.CountUnread(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	return &UnreadCountDTO{Count: n}, nil
}
