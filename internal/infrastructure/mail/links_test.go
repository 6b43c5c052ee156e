package mail

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinks_URL(t *testing.T) {
	l := Links{BaseURL: "https://market.test/"}
	assert.Equal(t, "https://market.test/dashboard", l.URL("/dashboard", nil))
	assert.Equal(t, "https://market.test/reset-password?token=a%2Bb", l.URL("/reset-password", url.Values{"token": {"a+b"}}))
}
