package persistence

import (
	"context"

	"github.com/b2bmarket/backend/internal/domain/notification"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/docstore"
)

// NotificationRepository stores notifications as "notification" documents
type NotificationRepository struct {
	store docstore.Store
}

// NewNotificationRepository creates a notification repository
func NewNotificationRepository(store docstore.Store) *NotificationRepository {
	return &NotificationRepository{store: store}
}

func notificationFields(n *notification.Notification) docstore.Document {
	return docstore.Document{
		"company": refOrNil(n.CompanyID),
		"kind":    string(n.Kind),
		"title":   n.Title,
		"body":    n.Body,
		"link":    n.Link,
		"read":    n.Read,
		"readAt":  timeOrNil(n.ReadAt),
	}
}

func notificationFromDoc(d docstore.Document) *notification.Notification {
	n := &notification.Notification{
		CompanyID: d.RefID("company"),
		Kind:      notification.Kind(d.String("kind")),
		Title:     d.String("title"),
		Body:      d.String("body"),
		Link:      d.String("link"),
		Read:      d.Bool("read"),
		ReadAt:    timePtr(d, "readAt"),
	}
	n.Entity = entityFrom(d)
	return n
}

// Create implements notification.Repository
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	doc := notificationFields(n)
	doc[docstore.FieldType] = TypeNotification
	return create(ctx, r.store, &n.Entity, doc)
}

// Update implements notification.Repository
func (r *NotificationRepository) Update(ctx context.Context, n *notification.Notification) error {
	return update(ctx, r.store, &n.Entity, notificationFields(n))
}

// FindByID implements notification.Repository
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*notification.Notification, error) {
	doc, err := getTyped(ctx, r.store, id, TypeNotification)
	if err != nil {
		return nil, err
	}
	return notificationFromDoc(doc), nil
}

func unreadQuery(companyID string, unreadOnly bool) docstore.Query {
	q := docstore.Query{
		Type:    TypeNotification,
		Filters: []docstore.Filter{docstore.RefTo("company", companyID)},
		Order:   []docstore.Order{{Field: docstore.FieldCreatedAt, Desc: true}},
	}
	if unreadOnly {
		q.Filters = append(q.Filters, docstore.Neq("read", true))
	}
	return q
}

// ListByCompany implements notification.Repository
func (r *NotificationRepository) ListByCompany(ctx context.Context, companyID string, f notification.Filter) (shared.Paginated[*notification.Notification], error) {
	return paginate(ctx, r.store, unreadQuery(companyID, f.UnreadOnly), f.Pagination, notificationFromDoc)
}

// CountUnread implements notification.Repository
func (r *NotificationRepository) CountUnread(ctx context.Context, companyID string) (int64, error) {
	n, err := r.store.Count(ctx, unreadQuery(companyID, true))
	return n, mapStoreError(err)
}

var _ notification.Repository = (*NotificationRepository)(nil)
