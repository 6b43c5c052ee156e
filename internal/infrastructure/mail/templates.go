package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template names
const (
	TemplateActivation = "activation"
	TemplateInvite     = "invite"
	TemplateRecovery   = "recovery"
	TemplateNewMessage = "new_message"
)

// Templates renders the email templates. Each email has a text template
// defining "subject" and "text", and an HTML template for the body.
type Templates struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// LoadTemplates parses the embedded templates
func LoadTemplates() (*Templates, error) {
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html templates: %w", err)
	}
	return &Templates{text: text, html: html}, nil
}

// Render builds an email addressed to to
func (t *Templates) Render(name string, data any, to ...string) (Email, error) {
	var subject, text, html bytes.Buffer
	if err := t.text.ExecuteTemplate(&subject, name+".subject", data); err != nil {
		return Email{}, fmt.Errorf("failed to render %s subject: %w", name, err)
	}
	if err := t.text.ExecuteTemplate(&text, name+".text", data); err != nil {
		return Email{}, fmt.Errorf("failed to render %s text: %w", name, err)
	}
	if err := t.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return Email{}, fmt.Errorf("failed to render %s html: %w", name, err)
	}
	return Email{
		To:      to,
		Subject: subject.String(),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
