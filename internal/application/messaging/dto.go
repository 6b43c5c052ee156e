package messaging

import (
	"time"

	"github.com/b2bmarket/backend/internal/domain/messaging"
	"github.com/b2bmarket/backend/internal/domain/notification"
)

// ParticipantDTO is a sender or company shown with a message
type ParticipantDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug,omitempty"`
	Email string `json:"email,omitempty"`
}

// MessageDTO represents a message
type MessageDTO struct {
	ID            string          `json:"id"`
	Subject       string          `json:"subject"`
	Body          string          `json:"body"`
	SenderID      string          `json:"sender_id"`
	Sender        *ParticipantDTO `json:"sender,omitempty"`
	FromCompanyID string          `json:"from_company_id"`
	FromCompany   *ParticipantDTO `json:"from_company,omitempty"`
	ToCompanyID   string          `json:"to_company_id"`
	ToCompany     *ParticipantDTO `json:"to_company,omitempty"`
	ListingID     string          `json:"listing_id,omitempty"`
	Read          bool            `json:"read"`
	ReadAt        *time.Time      `json:"read_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SendMessageInput is a new message. To takes a company id or slug.
type SendMessageInput struct {
	To        string `json:"to" binding:"required"`
	Subject   string `json:"subject" binding:"required,max=200"`
	Body      string `json:"body" binding:"required,max=20000"`
	ListingID string `json:"listing_id"`
}

// MailboxQuery pages a mailbox
type MailboxQuery struct {
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	UnreadOnly bool   `form:"unread"`
	With       string `form:"with"`
}

// UnreadCountDTO is the number of unread inbox messages
type UnreadCountDTO struct {
	Count int64 `json:"count"`
}

// NotificationDTO represents a notification
type NotificationDTO struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	Link      string     `json:"link,omitempty"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NotificationQuery pages notifications
type NotificationQuery struct {
	Page       int  `form:"page"`
	PageSize   int  `form:"page_size"`
	UnreadOnly bool `form:"unread"`
}

func toParticipantDTO(p *messaging.Participant) *ParticipantDTO {
	if p == nil {
		return nil
	}
	return &ParticipantDTO{ID: p.ID, Name: p.Name, Slug: p.Slug, Email: p.Email}
}

// ToMessageDTO converts a message
func ToMessageDTO(m *messaging.Message) MessageDTO {
	return MessageDTO{
		ID:            m.ID,
		Subject:       m.Subject,
		Body:          m.Body,
		SenderID:      m.SenderID,
		Sender:        toParticipantDTO(m.Sender),
		FromCompanyID: m.FromCompanyID,
		FromCompany:   toParticipantDTO(m.FromCompany),
		ToCompanyID:   m.ToCompanyID,
		ToCompany:     toParticipantDTO(m.ToCompany),
		ListingID:     m.ListingID,
		Read:          m.Read,
		ReadAt:        m.ReadAt,
		CreatedAt:     m.CreatedAt,
	}
}

// ToMessageDTOs converts messages
func ToMessageDTOs(messages []*messaging.Message) []MessageDTO {
	out := make([]MessageDTO, len(messages))
	for i, m := range messages {
		out[i] = ToMessageDTO(m)
	}
	return out
}

// ToNotificationDTO converts a notification
func ToNotificationDTO(n *notification.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Body:      n.Body,
		Link:      n.Link,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
