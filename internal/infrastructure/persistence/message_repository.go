package persistence

import (
	"context"

	"github.com/b2bmarket/backend/internal/domain/messaging"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/docstore"
)

var messageExpand = []string{"sender", "fromCompany", "toCompany"}

// MessageRepository stores messages as "message" documents
type MessageRepository struct {
	store docstore.Store
}

// NewMessageRepository creates a message repository
func NewMessageRepository(store docstore.Store) *MessageRepository {
	return &MessageRepository{store: store}
}

func messageFields(m *messaging.Message) docstore.Document {
	return docstore.Document{
		"subject":     m.Subject,
		"body":        m.Body,
		"sender":      refOrNil(m.SenderID),
		"fromCompany": refOrNil(m.FromCompanyID),
		"toCompany":   refOrNil(m.ToCompanyID),
		"listing":     refOrNil(m.ListingID),
		"read":        m.Read,
		"readAt":      timeOrNil(m.ReadAt),
		"deleted":     m.Deleted,
	}
}

func participantFrom(d docstore.Document, key string) *messaging.Participant {
	p, ok := d.Expanded(key)
	if !ok {
		return nil
	}
	return &messaging.Participant{
		ID:    p.ID(),
		Name:  p.String("name"),
		Email: p.String("email"),
		Slug:  p.String("slug"),
	}
}

func messageFromDoc(d docstore.Document) *messaging.Message {
	m := &messaging.Message{
		Subject:       d.String("subject"),
		Body:          d.String("body"),
		SenderID:      d.RefID("sender"),
		FromCompanyID: d.RefID("fromCompany"),
		ToCompanyID:   d.RefID("toCompany"),
		ListingID:     d.RefID("listing"),
		Read:          d.Bool("read"),
		ReadAt:        timePtr(d, "readAt"),
		Deleted:       d.Bool("deleted"),
		Sender:        participantFrom(d, "sender"),
		FromCompany:   participantFrom(d, "fromCompany"),
		ToCompany:     participantFrom(d, "toCompany"),
	}
	m.Entity = entityFrom(d)
	return m
}

// Create implements messaging.Repository
func (r *MessageRepository) Create(ctx context.Context, m *messaging.Message) error {
	doc := messageFields(m)
	doc[docstore.FieldType] = TypeMessage
	return create(ctx, r.store, &m.Entity, doc)
}

// Update implements messaging.Repository
func (r *MessageRepository) Update(ctx context.Context, m *messaging.Message) error {
	return update(ctx, r.store, &m.Entity, messageFields(m))
}

// FindByID implements messaging.Repository. Deleted messages are returned so
// the caller can decide visibility.
func (r *MessageRepository) FindByID(ctx context.Context, id string) (*messaging.Message, error) {
	doc, err := getTyped(ctx, r.store, id, TypeMessage)
	if err != nil {
		return nil, err
	}
	if err := docstore.Expand(ctx, r.store, []docstore.Document{doc}, messageExpand); err != nil {
		return nil, mapStoreError(err)
	}
	return messageFromDoc(doc), nil
}

func (r *MessageRepository) mailbox(own, other string, companyID string, f messaging.MailboxFilter) docstore.Query {
	q := docstore.Query{
		Type: TypeMessage,
		Filters: []docstore.Filter{
			docstore.RefTo(own, companyID),
			docstore.Neq("deleted", true),
		},
		Order:  []docstore.Order{{Field: docstore.FieldCreatedAt, Desc: true}},
		Expand: messageExpand,
	}
	if f.UnreadOnly {
		q.Filters = append(q.Filters, docstore.Neq("read", true))
	}
	if f.WithCompanyID != "" {
		q.Filters = append(q.Filters, docstore.RefTo(other, f.WithCompanyID))
	}
	return q
}

// Inbox implements messaging.Repository
func (r *MessageRepository) Inbox(ctx context.Context, companyID string, f messaging.MailboxFilter) (shared.Paginated[*messaging.Message], error) {
	return paginate(ctx, r.store, r.mailbox("toCompany", "fromCompany", companyID, f), f.Pagination, messageFromDoc)
}

// Outbox implements messaging.Repository
func (r *MessageRepository) Outbox(ctx context.Context, companyID string, f messaging.MailboxFilter) (shared.Paginated[*messaging.Message], error) {
	return paginate(ctx, r.store, r.mailbox("fromCompany", "toCompany", companyID, f), f.Pagination, messageFromDoc)
}

// CountUnread implements messaging.Repository
func (r *MessageRepository) CountUnread(ctx context.Context, companyID string) (int64, error) {
	q := r.mailbox("toCompany", "fromCompany", companyID, messaging.MailboxFilter{UnreadOnly: true})
	n, err := r.store.Count(ctx, q)
	return n, mapStoreError(err)
}

var _ messaging.Repository = (*MessageRepository)(nil)
