package messaging

import (
	"context"

	"github.com/b2bmarket/backend/internal/domain/shared"
)

// Repository persists messages. Lists and lookups fill the participant
// summaries; deleted messages never appear in mailboxes.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	Update(ctx context.Context, m *Message) error
	FindByID(ctx context.Context, id string) (*Message, error)
	Inbox(ctx context.Context, companyID string, filter MailboxFilter) (shared.Paginated[*Message], error)
	Outbox(ctx context.Context, companyID string, filter MailboxFilter) (shared.Paginated[*Message], error)
	CountUnread(ctx context.Context, companyID string) (int64, error)
}

// MailboxFilter narrows Inbox and Outbox
type MailboxFilter struct {
	shared.Pagination
	UnreadOnly bool
	// WithCompanyID restricts to the conversation with one other company.
	WithCompanyID string
}
