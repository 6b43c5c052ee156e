package messaging

import "github.com/b2bmarket/backend/internal/domain/shared"

const AggregateTypeMessage = "message"

const EventTypeMessageSent = "MessageSent"

// MessageSentEvent is raised after a message is stored. CompanyID is the
// recipient company.
type MessageSentEvent struct {
	shared.BaseDomainEvent
	MessageID     string `json:"message_id"`
	Subject       string `json:"subject"`
	SenderID      string `json:"sender_id"`
	FromCompanyID string `json:"from_company_id"`
	ToCompanyID   string `json:"to_company_id"`
}

// NewMessageSentEvent creates the event for m
func NewMessageSentEvent(m *Message) *MessageSentEvent {
	return &MessageSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMessageSent, AggregateTypeMessage, m.ID, m.ToCompanyID),
		MessageID:       m.ID,
		Subject:         m.Subject,
		SenderID:        m.SenderID,
		FromCompanyID:   m.FromCompanyID,
		ToCompanyID:     m.ToCompanyID,
	}
}
