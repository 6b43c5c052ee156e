package valueobject

import (
	"fmt"
	"strings"
)

// Address is an immutable postal address of a company
type Address struct {
	street     string
	city       string
	postalCode string
	region     string
	country    string
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithPostalCode sets the postal code for the address
func WithPostalCode(postalCode string) AddressOption {
	return func(a *Address) {
		a.postalCode = strings.TrimSpace(postalCode)
	}
}

// WithRegion sets the state or region
func WithRegion(region string) AddressOption {
	return func(a *Address) {
		a.region = strings.TrimSpace(region)
	}
}

// NewAddress creates an address. City and country are required.
func NewAddress(street, city, country string, opts ...AddressOption) (Address, error) {
	addr := Address{
		street:  strings.TrimSpace(street),
		city:    strings.TrimSpace(city),
		country: strings.ToUpper(strings.TrimSpace(country)),
	}
	for _, opt := range opts {
		opt(&addr)
	}

	if addr.city == "" {
		return Address{}, fmt.Errorf("city cannot be empty")
	}
	if len(addr.country) != 2 {
		return Address{}, fmt.Errorf("country must be an ISO 3166 alpha-2 code")
	}
	if len(addr.street) > 200 {
		return Address{}, fmt.Errorf("street cannot exceed 200 characters")
	}
	if len(addr.postalCode) > 20 {
		return Address{}, fmt.Errorf("postal code cannot exceed 20 characters")
	}
	return addr, nil
}

// EmptyAddress returns an empty address
func EmptyAddress() Address {
	return Address{}
}

func (a Address) Street() string     { return a.street }
func (a Address) City() string       { return a.city }
func (a Address) PostalCode() string { return a.postalCode }
func (a Address) Region() string     { return a.region }
func (a Address) Country() string    { return a.country }

// IsEmpty returns true if no part of the address is set
func (a Address) IsEmpty() bool {
	return a.street == "" && a.city == "" && a.postalCode == "" && a.region == "" && a.country == ""
}

// String renders the address on one line
func (a Address) String() string {
	var parts []string
	if a.street != "" {
		parts = append(parts, a.street)
	}
	cityLine := strings.TrimSpace(a.postalCode + " " + a.city)
	if cityLine != "" {
		parts = append(parts, cityLine)
	}
	if a.region != "" {
		parts = append(parts, a.region)
	}
	if a.country != "" {
		parts = append(parts, a.country)
	}
	return strings.Join(parts, ", ")
}

// ToMap converts the address into its document form
func (a Address) ToMap() map[string]any {
	if a.IsEmpty() {
		return nil
	}
	return map[string]any{
		"street":     a.street,
		"city":       a.city,
		"postalCode": a.postalCode,
		"region":     a.region,
		"country":    a.country,
	}
}

// AddressFromMap reads an address from its document form. Missing or
// malformed input yields an empty address.
func AddressFromMap(m map[string]any) Address {
	if m == nil {
		return Address{}
	}
	get := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return Address{
		street:     get("street"),
		city:       get("city"),
		postalCode: get("postalCode"),
		region:     get("region"),
		country:    get("country"),
	}
}
