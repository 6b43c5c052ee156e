// Package company models the businesses that trade on the marketplace.
package company

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/domain/shared/valueobject"
)

// Status is the company lifecycle state. New companies wait for an operator
// to activate them; only active companies can transact.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended:
		return true
	}
	return false
}

const (
	maxNameLength        = 200
	maxDescriptionLength = 5000
)

var (
	ErrInvalidName    = shared.NewDomainError("INVALID_COMPANY_NAME", "Company name is required and cannot exceed 200 characters")
	ErrInvalidWebsite = shared.NewDomainError("INVALID_WEBSITE", "Website must be an http or https URL")
	ErrSlugTaken      = shared.NewDomainError("SLUG_TAKEN", "Another company already uses this name")
	ErrNotActive      = shared.NewDomainError("COMPANY_NOT_ACTIVE", "Company is not active")
)

// Company is a registered business
type Company struct {
	shared.AggregateRoot
	Name        string
	Slug        string
	Description string
	Email       string
	Phone       string
	Website     string
	VATNumber   string
	Address     valueobject.Address
	LogoAssetID string
	CategoryIDs []string
	Status      Status
	ActivatedAt *time.Time
}

// NewCompany creates a pending company
func NewCompany(name, email string) (*Company, error) {
	c := &Company{
		Email:       strings.ToLower(strings.TrimSpace(email)),
		Status:      StatusPending,
		CategoryIDs: []string{},
	}
	if err := c.Rename(name); err != nil {
		return nil, err
	}
	return c, nil
}

// Rename changes the name and derives a new slug
func (c *Company) Rename(name string) error {
	name = strings.TrimSpace(name)
	slug := shared.Slugify(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength || slug == "" {
		return ErrInvalidName
	}
	c.Name = name
	c.Slug = slug
	c.Touch()
	return nil
}

// Details are the free-form profile fields
type Details struct {
	Description string
	Phone       string
	Website     string
	VATNumber   string
}

// UpdateDetails replaces the free-form profile fields
func (c *Company) UpdateDetails(d Details) error {
	if utf8.RuneCountInString(d.Description) > maxDescriptionLength {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 5000 characters")
	}
	website := strings.TrimSpace(d.Website)
	if website != "" {
		u, err := url.Parse(website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidWebsite
		}
	}
	c.Description = strings.TrimSpace(d.Description)
	c.Phone = strings.TrimSpace(d.Phone)
	c.Website = website
	c.VATNumber = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(d.VATNumber), " ", ""))
	c.Touch()
	return nil
}

// SetAddress replaces the postal address
func (c *Company) SetAddress(addr valueobject.Address) {
	c.Address = addr
	c.Touch()
}

// SetLogo points the logo at an uploaded asset; empty removes it
func (c *Company) SetLogo(assetID string) {
	c.LogoAssetID = assetID
	c.Touch()
}

// SetCategories replaces the categories the company trades in
func (c *Company) SetCategories(ids []string) {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	c.CategoryIDs = out
	c.Touch()
}

// CanTransact reports whether the company's users may publish, message and
// invite.
func (c *Company) CanTransact() bool {
	return c.Status == StatusActive
}

// EnsureCanTransact returns ErrCompanyInactive unless the company is active
func (c *Company) EnsureCanTransact() error {
	if !c.CanTransact() {
		return shared.ErrCompanyInactive
	}
	return nil
}

// Activate moves the company to active and records the activation.
func (c *Company) Activate() error {
	if c.Status == StatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Company is already active")
	}
	c.Status = StatusActive
	return c.ConfirmActivation()
}

// ConfirmActivation stamps the activation time of a company whose status was
// already set to active and raises CompanyActivated. Calling it again is a
// no-op so repeated notifications do not send repeated emails.
func (c *Company) ConfirmActivation() error {
	if c.Status != StatusActive {
		return ErrNotActive
	}
	if c.ActivatedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	c.ActivatedAt = &now
	c.Touch()
	c.AddDomainEvent(NewCompanyActivatedEvent(c))
	return nil
}

// Suspend blocks the company from transacting
func (c *Company) Suspend() {
	c.Status = StatusSuspended
	c.Touch()
}
