package company

import (
	"strings"
	"testing"

	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompany(t *testing.T) {
	c, err := NewCompany("  Müller Stahlbau GmbH ", "Info@Mueller.DE")
	require.NoError(t, err)

	assert.Equal(t, "Müller Stahlbau GmbH", c.Name)
	assert.Equal(t, "muller-stahlbau-gmbh", c.Slug)
	assert.Equal(t, "info@mueller.de", c.Email)
	assert.Equal(t, StatusPending, c.Status)
	assert.False(t, c.CanTransact())
	assert.ErrorIs(t, c.EnsureCanTransact(), shared.ErrCompanyInactive)
}

func TestNewCompany_InvalidName(t *testing.T) {
	_, err := NewCompany("   ", "a@b.de")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = NewCompany("!!!", "a@b.de")
	assert.ErrorIs(t, err, ErrInvalidName, "names without a slug are rejected")

	name := strings.Repeat("ü", maxNameLength)
	c, err := NewCompany(name, "a@b.de")
	require.NoError(t, err, "the limit counts characters, not bytes")
	assert.Equal(t, name, c.Name)

	_, err = NewCompany(name+"ü", "a@b.de")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestActivate_RaisesEventOnce(t *testing.T) {
	c, err := NewCompany("Acme", "ops@acme.test")
	require.NoError(t, err)
	c.ID = "company-1"

	require.NoError(t, c.Activate())
	assert.True(t, c.CanTransact())
	require.NotNil(t, c.ActivatedAt)

	events := c.PullDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeCompanyActivated, events[0].EventType())
	assert.Equal(t, "company-1", events[0].CompanyID())

	require.NoError(t, c.ConfirmActivation())
	assert.Empty(t, c.PullDomainEvents())

	assert.Error(t, c.Activate())
}

func TestConfirmActivation_RequiresActiveStatus(t *testing.T) {
	c, err := NewCompany("Acme", "ops@acme.test")
	require.NoError(t, err)

	assert.ErrorIs(t, c.ConfirmActivation(), ErrNotActive)

	c.Status = StatusActive
	require.NoError(t, c.ConfirmActivation())
	assert.Len(t, c.PullDomainEvents(), 1)
}

func TestUpdateDetails(t *testing.T) {
	c, err := NewCompany("Acme", "ops@acme.test")
	require.NoError(t, err)

	require.NoError(t, c.UpdateDetails(Details{
		Description: " Industrial fasteners ",
		Website:     "https://acme.test",
		VATNumber:   "de 123 456 789",
	}))
	assert.Equal(t, "Industrial fasteners", c.Description)
	assert.Equal(t, "DE123456789", c.VATNumber)

	assert.ErrorIs(t, c.UpdateDetails(Details{Website: "ftp://acme.test"}), ErrInvalidWebsite)
	assert.ErrorIs(t, c.UpdateDetails(Details{Website: "acme.test"}), ErrInvalidWebsite)
}

func TestSetCategories_Dedupes(t *testing.T) {
	c, err := NewCompany("Acme", "ops@acme.test")
	require.NoError(t, err)

	c.SetCategories([]string{"a", "", "b", "a"})
	assert.Equal(t, []string{"a", "b"}, c.CategoryIDs)
}

func TestSuspend(t *testing.T) {
	c, err := NewCompany("Acme", "ops@acme.test")
	require.NoError(t, err)
	require.NoError(t, c.Activate())

	c.Suspend()
	assert.False(t, c.CanTransact())
}
