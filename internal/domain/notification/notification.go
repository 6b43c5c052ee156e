// Package notification models the in-app notices a company receives.
package notification

import (
	"context"
	"time"

	"github.com/b2bmarket/backend/internal/domain/shared"
)

// Kind says what triggered the notification
type Kind string

const (
	KindMessage    Kind = "message"
	KindActivation Kind = "activation"
)

// Notification is addressed to a whole company
type Notification struct {
	shared.Entity
	CompanyID string
	Kind      Kind
	Title     string
	Body      string
	Link      string
	Read      bool
	ReadAt    *time.Time
}

// New creates an unread notification
func New(companyID string, kind Kind, title, body, link string) (*Notification, error) {
	if companyID == "" || title == "" {
		return nil, shared.NewDomainError("INVALID_NOTIFICATION", "Notification needs a company and a title")
	}
	if kind != KindMessage && kind != KindActivation {
		return nil, shared.NewDomainError("INVALID_NOTIFICATION_KIND", "Unknown notification kind")
	}
	return &Notification{
		CompanyID: companyID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		Link:      link,
	}, nil
}

// MarkRead flags the notification read; it reports whether it changed.
func (n *Notification) MarkRead() bool {
	if n.Read {
		return false
	}
	now := time.Now().UTC()
	n.Read = true
	n.ReadAt = &now
	n.Touch()
	return true
}

// Repository persists notifications
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	Update(ctx context.Context, n *Notification) error
	FindByID(ctx context.Context, id string) (*Notification, error)
	ListByCompany(ctx context.Context, companyID string, filter Filter) (shared.Paginated[*Notification], error)
	CountUnread(ctx context.Context, companyID string) (int64, error)
}

// Filter narrows ListByCompany
type Filter struct {
	shared.Pagination
	UnreadOnly bool
}
