// Package messaging models company-to-company messages.
package messaging

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/b2bmarket/backend/internal/domain/shared"
)

const (
	maxSubjectLength = 200
	maxBodyLength    = 20000
)

var (
	ErrInvalidSubject = shared.NewDomainError("INVALID_SUBJECT", "Subject is required and cannot exceed 200 characters")
	ErrInvalidBody    = shared.NewDomainError("INVALID_BODY", "Message body is required and cannot exceed 20000 characters")
	ErrNotParticipant = shared.NewDomainError("NOT_PARTICIPANT", "Only the sending or receiving company can access this message")
)

// Participant is the denormalized sender or company shown with a message
type Participant struct {
	ID    string
	Name  string
	Email string
	Slug  string
}

// Message is sent by a user on behalf of their company to another company.
// Deleting a message only flags it; it disappears from both mailboxes.
type Message struct {
	shared.AggregateRoot
	Subject       string
	Body          string
	SenderID      string
	FromCompanyID string
	ToCompanyID   string
	ListingID     string
	Read          bool
	ReadAt        *time.Time
	Deleted       bool

	// Populated on reads only.
	Sender      *Participant
	FromCompany *Participant
	ToCompany   *Participant
}

// NewMessage creates a message and raises MessageSent. A company cannot
// message itself.
func NewMessage(senderID, fromCompanyID, toCompanyID, subject, body, listingID string) (*Message, error) {
	if fromCompanyID == "" || toCompanyID == "" || senderID == "" {
		return nil, shared.NewDomainError("INVALID_MESSAGE", "Message needs a sender and both companies")
	}
	if fromCompanyID == toCompanyID {
		return nil, shared.ErrSelfMessage
	}
	subject = strings.TrimSpace(subject)
	if subject == "" || utf8.RuneCountInString(subject) > maxSubjectLength {
		return nil, ErrInvalidSubject
	}
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > maxBodyLength {
		return nil, ErrInvalidBody
	}
	return &Message{
		Subject:       subject,
		Body:          body,
		SenderID:      senderID,
		FromCompanyID: fromCompanyID,
		ToCompanyID:   toCompanyID,
		ListingID:     listingID,
	}, nil
}

// RecordSent raises MessageSent once the message has its id
func (m *Message) RecordSent() {
	m.AddDomainEvent(NewMessageSentEvent(m))
}

// IsParticipant reports whether companyID sent or received the message
func (m *Message) IsParticipant(companyID string) bool {
	return companyID != "" && (companyID == m.FromCompanyID || companyID == m.ToCompanyID)
}

// IsRecipient reports whether companyID received the message
func (m *Message) IsRecipient(companyID string) bool {
	return companyID == m.ToCompanyID
}

// EnsureVisibleTo checks participation and the deleted flag
func (m *Message) EnsureVisibleTo(companyID string) error {
	if !m.IsParticipant(companyID) {
		return ErrNotParticipant
	}
	if m.Deleted {
		return shared.ErrNotFound
	}
	return nil
}

// MarkRead flags the message read by the recipient. It reports whether
// anything changed.
func (m *Message) MarkRead(companyID string) (bool, error) {
	if !m.IsRecipient(companyID) {
		return false, shared.NewDomainError("NOT_RECIPIENT", "Only the receiving company can mark a message read")
	}
	if m.Read {
		return false, nil
	}
	now := time.Now().UTC()
	m.Read = true
	m.ReadAt = &now
	m.Touch()
	return true, nil
}

// Delete soft-deletes the message for both participants
func (m *Message) Delete(companyID string) error {
	if err := m.EnsureVisibleTo(companyID); err != nil {
		return err
	}
	m.Deleted = true
	m.Touch()
	return nil
}
