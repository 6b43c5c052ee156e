package mail

import (
	"net/url"
	"strings"
)

// Links builds the absolute URLs placed in emails
type Links struct {
	BaseURL string
}

// URL joins path and an optional query onto the base URL
func (l Links) URL(path string, query url.Values) string {
	u := strings.TrimRight(l.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
