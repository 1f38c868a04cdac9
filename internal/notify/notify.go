// Package notify delivers moderation notifications to users.
//
// Delivery is best-effort: callers go through a Dispatcher, which sends in the
// background and only logs and counts failures.
package notify

import (
	"context"
	"time"

	"github.com/prn-tf/overflow-admin/internal/domain"
)

// Notifier sends one notification per call.
type Notifier interface {
	SendBan(ctx context.Context, n BanNotice) error
	SendUnban(ctx context.Context, n UnbanNotice) error
	SendContentHidden(ctx context.Context, n ContentHiddenNotice) error
}

// TemplateKind identifies a notification template.
type TemplateKind int

const (
	TemplateBan TemplateKind = iota
	TemplateUnban
	TemplateContentHidden
)

// String returns the label used in logs and metrics.
func (k TemplateKind) String() string {
	switch k {
	case TemplateBan:
		return "ban"
	case TemplateUnban:
		return "unban"
	case TemplateContentHidden:
		return "content_hidden"
	}
	return "unknown"
}

// BanNotice tells a user that they were banned.
type BanNotice struct {
	To        string
	UserName  string
	Reason    string
	BannedAt  time.Time
	ExpiresAt *time.Time // nil for a permanent ban
}

// UnbanNotice tells a user that their account was restored.
type UnbanNotice struct {
	To         string
	UserName   string
	UnbannedAt time.Time

	// Automatic is true when the ban expired rather than being lifted by an admin.
	Automatic bool
}

// ContentHiddenNotice tells an author that moderators hid their content.
type ContentHiddenNotice struct {
	To       string
	UserName string
	Kind     domain.ContentKind

	// Content is the stored title or body; rendered as a rich-text preview.
	Content string
	Reason  string
}
