package catalog

import (
	"strings"
	"testing"

	"github.com/b2bmarket/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(t *testing.T, amount string) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoneyFromString(amount, valueobject.EUR)
	require.NoError(t, err)
	return m
}

func TestNewListing(t *testing.T) {
	l, err := NewListing(KindProduct, "company-1", " Hex Bolt M8 ", price(t, "0.35"))
	require.NoError(t, err)

	assert.Equal(t, "Hex Bolt M8", l.Name)
	assert.Equal(t, "hex-bolt-m8", l.Slug)
	assert.False(t, l.Published)
	assert.Empty(t, l.PricingModel)
	assert.True(t, l.IsOwnedBy("company-1"))

	s, err := NewListing(KindService, "company-1", "Welding", price(t, "60"))
	require.NoError(t, err)
	assert.Equal(t, PricingFixed, s.PricingModel)
}

func TestNewListing_Validation(t *testing.T) {
	_, err := NewListing("tool", "company-1", "x", price(t, "1"))
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = NewListing(KindProduct, "company-1", "", price(t, "1"))
	assert.ErrorIs(t, err, ErrInvalidListingName)

	_, err = NewListing(KindProduct, "company-1", "Bolt", price(t, "-1"))
	assert.ErrorIs(t, err, ErrInvalidPrice)

	name := strings.Repeat("ö", maxNameLength)
	l, err := NewListing(KindProduct, "company-1", name, price(t, "1"))
	require.NoError(t, err)
	require.NoError(t, l.SetDescription(strings.Repeat("é", maxDescriptionLength)))
	assert.Error(t, l.SetDescription(strings.Repeat("é", maxDescriptionLength+1)))

	_, err = NewListing(KindProduct, "company-1", name+"ö", price(t, "1"))
	assert.ErrorIs(t, err, ErrInvalidListingName)
}

func TestPricingModel(t *testing.T) {
	p, err := NewListing(KindProduct, "c", "Bolt", price(t, "1"))
	require.NoError(t, err)
	assert.Error(t, p.SetPricingModel(PricingHourly))

	s, err := NewListing(KindService, "c", "Welding", price(t, "1"))
	require.NoError(t, err)
	require.NoError(t, s.SetPricingModel(PricingHourly))
	assert.ErrorIs(t, s.SetPricingModel("weekly"), ErrInvalidPricing)
}

func TestAssignCategory(t *testing.T) {
	l, err := NewListing(KindService, "c", "Welding", price(t, "1"))
	require.NoError(t, err)

	products, err := NewCategory("Fasteners", "", CategoryKindProduct)
	require.NoError(t, err)
	products.ID = "cat-p"
	both, err := NewCategory("Metalwork", "metal-work", "")
	require.NoError(t, err)
	both.ID = "cat-b"

	assert.ErrorIs(t, l.AssignCategory(products), ErrCategoryMismatch)
	require.NoError(t, l.AssignCategory(both))
	assert.Equal(t, "cat-b", l.CategoryID)
	assert.Equal(t, CategoryKindBoth, both.Kind)
	assert.Equal(t, "metal-work", both.Slug)
}

func TestTagsAndImages(t *testing.T) {
	l, err := NewListing(KindProduct, "c", "Bolt", price(t, "1"))
	require.NoError(t, err)

	l.SetTags([]string{" Steel", "steel", "ZINC", ""})
	assert.Equal(t, []string{"steel", "zinc"}, l.Tags)

	require.NoError(t, l.SetImages([]string{"a", "a", "b"}))
	assert.Equal(t, []string{"a", "b"}, l.ImageAssetIDs)

	many := make([]string, 11)
	for i := range many {
		many[i] = string(rune('a' + i))
	}
	assert.ErrorIs(t, l.SetImages(many), ErrTooManyImages)
}

func TestPriceBetween(t *testing.T) {
	l, err := NewListing(KindProduct, "c", "Bolt", price(t, "10"))
	require.NoError(t, err)

	lo := decimal.NewFromInt(5)
	hi := decimal.NewFromInt(9)
	assert.True(t, l.PriceBetween(&lo, nil))
	assert.False(t, l.PriceBetween(&lo, &hi))
	assert.True(t, l.PriceBetween(nil, nil))
}
