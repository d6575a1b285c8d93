// Package templates renders the localized campaign emails.
package templates

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"ResumeMailer/internal/models"
)

//go:embed files/layout.html
var layoutFS embed.FS

var ErrUnknownTemplate = errors.New("unknown email template")

type RenderInput struct {
	Campaign models.Campaign
	Locale   models.Locale
	Variant  string
	UserID   string
	Name     string

	// Abandoned resume fields.
	ResumeID     string
	ResumeTitle  string
	Completion   int
	LastEditedAt *time.Time

	// Re-engagement fields.
	InactiveDays int
}

type RenderedEmail struct {
	Subject string
	HTML    string
}

type Renderer struct {
	BaseURL string
	layout  *template.Template
}

func New(baseURL string) (*Renderer, error) {
	layout, err := template.ParseFS(layoutFS, "files/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	// Fail at startup rather than per job if any copy is malformed.
	for campaign, variants := range catalog {
		for variant, locales := range variants {
			for locale, msg := range locales {
				for _, s := range msg.fields() {
					if _, err := texttemplate.New("").Parse(s); err != nil {
						return nil, fmt.Errorf("template %s/%s/%s: %w", campaign, variant, locale, err)
					}
				}
			}
		}
	}

	return &Renderer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		layout:  layout,
	}, nil
}

func (m message) fields() []string {
	return append([]string{m.Subject, m.Heading, m.Action, m.Path}, m.Paragraphs...)
}

type copyData struct {
	DisplayName  string
	ResumeID     string
	ResumeTitle  string
	Completion   int
	InactiveDays int
}

type layoutData struct {
	Locale         models.Locale
	Dir            string
	Align          string
	Subject        string
	Heading        string
	Paragraphs     []string
	Progress       string
	Action         string
	ActionURL      string
	Footer         string
	Unsubscribe    string
	UnsubscribeURL string
}

func (r *Renderer) Render(ctx context.Context, in RenderInput) (*RenderedEmail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	variant := in.Variant
	if in.Campaign == models.CampaignAbandonedResume && variant == "" {
		variant = abandonedVariant
	}

	locales, ok := catalog[in.Campaign][variant]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownTemplate, in.Campaign, variant)
	}

	locale := models.ParseLocale(string(in.Locale))
	msg, ok := locales[locale]
	if !ok {
		locale = models.LocaleEnglish
		msg = locales[locale]
	}
	ch := chromes[locale]

	data := copyData{
		DisplayName:  strings.TrimSpace(in.Name),
		ResumeID:     in.ResumeID,
		ResumeTitle:  in.ResumeTitle,
		Completion:   in.Completion,
		InactiveDays: in.InactiveDays,
	}
	if data.DisplayName == "" {
		data.DisplayName = ch.Friend
	}

	var x executor
	subject := x.exec(msg.Subject, data)
	ld := layoutData{
		Locale:         locale,
		Dir:            "ltr",
		Align:          "left",
		Subject:        subject,
		Heading:        x.exec(msg.Heading, data),
		Paragraphs:     []string{x.exec(ch.Greeting, data)},
		Action:         x.exec(msg.Action, data),
		Footer:         ch.Footer,
		Unsubscribe:    ch.Unsubscribe,
		UnsubscribeURL: r.BaseURL + "/settings/email?user=" + url.QueryEscape(in.UserID),
	}
	if locale.RTL() {
		ld.Dir = "rtl"
		ld.Align = "right"
	}
	for _, p := range msg.Paragraphs {
		ld.Paragraphs = append(ld.Paragraphs, x.exec(p, data))
	}
	if in.Campaign == models.CampaignAbandonedResume && in.Completion > 0 {
		ld.Progress = x.exec(ch.Progress, data)
	}

	pathData := data
	pathData.ResumeID = url.PathEscape(in.ResumeID)
	ld.ActionURL = r.BaseURL + x.exec(msg.Path, pathData)

	if x.err != nil {
		return nil, fmt.Errorf("render %s/%s: %w", in.Campaign, variant, x.err)
	}

	var body bytes.Buffer
	if err := r.layout.Execute(&body, ld); err != nil {
		return nil, fmt.Errorf("template execution error: %w", err)
	}

	return &RenderedEmail{Subject: subject, HTML: body.String()}, nil
}

// executor evaluates copy strings, keeping the first error.
type executor struct {
	err error
}

func (x *executor) exec(s string, data copyData) string {
	if x.err != nil {
		return ""
	}
	t, err := texttemplate.New("").Option("missingkey=error").Parse(s)
	if err != nil {
		x.err = err
		return ""
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		x.err = err
		return ""
	}
	return buf.String()
}
