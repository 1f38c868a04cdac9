package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/prn-tf/overflow-admin/internal/richtext"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	dateLayout        = "January 2, 2006 at 3:04 PM MST"
	dateLayoutSeconds = "January 2, 2006 at 3:04:05 PM MST"

	// testBanThreshold separates seconds-scale test bans from real bans when
	// choosing the wording of the ban email.
	testBanThreshold = 10 * time.Second
)

// SiteInfo is rendered into every template.
type SiteInfo struct {
	SiteName     string
	ClientURL    string
	SupportEmail string
}

// Renderer turns notices into a subject line and an HTML body.
type Renderer struct {
	site     SiteInfo
	location *time.Location
	tmpl     *template.Template
}

// NewRenderer parses the embedded templates. Dates are rendered in UTC.
func NewRenderer(site SiteInfo) (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification templates: %w", err)
	}
	return &Renderer{site: site, location: time.UTC, tmpl: tmpl}, nil
}

type banView struct {
	SiteInfo
	UserName      string
	Reason        string
	BannedAt      string
	ExpiresAt     string
	Permanent     bool
	Test          bool
	Heading       string
	Adverb        string
	DurationLabel string
}

type unbanView struct {
	SiteInfo
	UserName   string
	UnbannedAt string
	Automatic  bool
}

type contentHiddenView struct {
	SiteInfo
	UserName string
	Kind     string
	Preview  template.HTML
	Reason   string
}

// Render executes the template for kind with the matching notice.
func (r *Renderer) Render(kind TemplateKind, notice any) (subject, body string, err error) {
	var name string
	var data any

	switch kind {
	case TemplateBan:
		n, ok := notice.(BanNotice)
		if !ok {
			return "", "", fmt.Errorf("template %s: unexpected notice %T", kind, notice)
		}
		name, data = "ban.html", r.banView(n)
		subject = fmt.Sprintf("Account Banned - %s", r.site.SiteName)
	case TemplateUnban:
		n, ok := notice.(UnbanNotice)
		if !ok {
			return "", "", fmt.Errorf("template %s: unexpected notice %T", kind, notice)
		}
		name, data = "unban.html", unbanView{
			SiteInfo:   r.site,
			UserName:   n.UserName,
			UnbannedAt: n.UnbannedAt.In(r.location).Format(dateLayout),
			Automatic:  n.Automatic,
		}
		subject = fmt.Sprintf("Account Restored - %s", r.site.SiteName)
	case TemplateContentHidden:
		n, ok := notice.(ContentHiddenNotice)
		if !ok {
			return "", "", fmt.Errorf("template %s: unexpected notice %T", kind, notice)
		}
		name, data = "content_hidden.html", contentHiddenView{
			SiteInfo: r.site,
			UserName: n.UserName,
			Kind:     string(n.Kind),
			Preview:  richtext.Preview(n.Content),
			Reason:   n.Reason,
		}
		subject = fmt.Sprintf("Your %s has been hidden - %s", n.Kind, r.site.SiteName)
	default:
		return "", "", fmt.Errorf("unknown template kind %d", int(kind))
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", "", fmt.Errorf("failed to render %s: %w", kind, err)
	}
	return subject, buf.String(), nil
}

func (r *Renderer) banView(n BanNotice) banView {
	v := banView{
		SiteInfo: r.site,
		UserName: n.UserName,
		Reason:   n.Reason,
		BannedAt: n.BannedAt.In(r.location).Format(dateLayout),
	}

	switch {
	case n.ExpiresAt == nil:
		v.Permanent = true
		v.Heading, v.Adverb, v.DurationLabel = "Permanently", "permanently", "Permanent"
	case n.ExpiresAt.Sub(n.BannedAt) <= testBanThreshold:
		secs := int(n.ExpiresAt.Sub(n.BannedAt).Round(time.Second) / time.Second)
		v.Test = true
		v.ExpiresAt = n.ExpiresAt.In(r.location).Format(dateLayoutSeconds)
		v.Heading, v.Adverb = "Test", "temporarily (test ban)"
		v.DurationLabel = fmt.Sprintf("Test (%d seconds)", secs)
	default:
		v.ExpiresAt = n.ExpiresAt.In(r.location).Format(dateLayout)
		v.Heading, v.Adverb, v.DurationLabel = "Temporarily", "temporarily", "Temporary"
	}

	return v
}
