package company

import "github.com/b2bmarket/backend/internal/domain/shared"

const AggregateTypeCompany = "company"

const EventTypeCompanyActivated = "CompanyActivated"

// CompanyActivatedEvent is raised once, when a company becomes active
type CompanyActivatedEvent struct {
	shared.BaseDomainEvent
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Email string `json:"email"`
}

// NewCompanyActivatedEvent creates the event for c
func NewCompanyActivatedEvent(c *Company) *CompanyActivatedEvent {
	return &CompanyActivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCompanyActivated, AggregateTypeCompany, c.ID, c.ID),
		Name:            c.Name,
		Slug:            c.Slug,
		Email:           c.Email,
	}
}
