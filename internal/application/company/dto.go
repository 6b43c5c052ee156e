package company

import (
	"time"

	catalogapp "github.com/b2bmarket/backend/internal/application/catalog"
	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/shared/valueobject"
)

// AddressDTO is a postal address
type AddressDTO struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code,omitempty"`
	Region     string `json:"region,omitempty"`
	Country    string `json:"country"`
}

// CompanyDTO represents a company profile
type CompanyDTO struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone,omitempty"`
	Website     string      `json:"website,omitempty"`
	VATNumber   string      `json:"vat_number,omitempty"`
	Address     *AddressDTO `json:"address,omitempty"`
	LogoID      string      `json:"logo_id,omitempty"`
	LogoURL     string      `json:"logo_url,omitempty"`
	CategoryIDs []string    `json:"category_ids"`
	Status      string      `json:"status"`
	Active      bool        `json:"active"`
	ActivatedAt *time.Time  `json:"activated_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// UpdateProfileInput replaces the editable profile fields. A nil Address,
// LogoID or CategoryIDs leaves the stored value unchanged; an empty LogoID
// removes the logo.
type UpdateProfileInput struct {
	Name        string      `json:"name" binding:"required,max=200"`
	Description string      `json:"description" binding:"max=5000"`
	Phone       string      `json:"phone" binding:"max=50"`
	Website     string      `json:"website" binding:"max=500"`
	VATNumber   string      `json:"vat_number" binding:"max=50"`
	Address     *AddressDTO `json:"address"`
	LogoID      *string     `json:"logo_id"`
	CategoryIDs []string    `json:"category_ids"`
}

// ListFilter narrows the company directory
type ListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Search   string `form:"q"`
	Category string `form:"category"`
}

// Page is everything shown on a company's public page and brochure
type Page struct {
	Company    CompanyDTO               `json:"company"`
	Categories []catalogapp.CategoryDTO `json:"categories"`
	Products   []catalogapp.ListingDTO  `json:"products"`
	Services   []catalogapp.ListingDTO  `json:"services"`
}

// Brochure is a rendered company brochure
type Brochure struct {
	Filename string
	Data     []byte
}

// ToCompanyDTO converts a company; logoURL is resolved by the caller.
func ToCompanyDTO(c *company.Company, logoURL string) CompanyDTO {
	dto := CompanyDTO{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Email:       c.Email,
		Phone:       c.Phone,
		Website:     c.Website,
		VATNumber:   c.VATNumber,
		LogoID:      c.LogoAssetID,
		LogoURL:     logoURL,
		CategoryIDs: c.CategoryIDs,
		Status:      string(c.Status),
		Active:      c.CanTransact(),
		ActivatedAt: c.ActivatedAt,
		CreatedAt:   c.CreatedAt,
	}
	if dto.CategoryIDs == nil {
		dto.CategoryIDs = []string{}
	}
	if !c.Address.IsEmpty() {
		dto.Address = toAddressDTO(c.Address)
	}
	return dto
}

func toAddressDTO(a valueobject.Address) *AddressDTO {
	return &AddressDTO{
		Street:     a.Street(),
		City:       a.City(),
		PostalCode: a.PostalCode(),
		Region:     a.Region(),
		Country:    a.Country(),
	}
}
