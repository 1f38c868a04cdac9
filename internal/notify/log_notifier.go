package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the log instead of sending them.
// It is used when mail delivery is disabled.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "log_notifier").Logger()}
}

// SendBan logs a ban notice.
func (l *LogNotifier) SendBan(ctx context.Context, n BanNotice) error {
	event := l.logger.Info().
		Str("template", TemplateBan.String()).
		Str("to", n.To).
		Str("reason", n.Reason).
		Time("banned_at", n.BannedAt)
	if n.ExpiresAt != nil {
		event = event.Time("expires_at", *n.ExpiresAt)
	}
	event.Msg("notification (mail disabled)")
	return nil
}

// SendUnban logs an unban notice.
func (l *LogNotifier) SendUnban(ctx context.Context, n UnbanNotice) error {
	l.logger.Info().
		Str("template", TemplateUnban.String()).
		Str("to", n.To).
		Bool("automatic", n.Automatic).
		Time("unbanned_at", n.UnbannedAt).
		Msg("notification (mail disabled)")
	return nil
}

// SendContentHidden logs a content-hidden notice.
func (l *LogNotifier) SendContentHidden(ctx context.Context, n ContentHiddenNotice) error {
	l.logger.Info().
		Str("template", TemplateContentHidden.String()).
		Str("to", n.To).
		Str("kind", string(n.Kind)).
		Str("reason", n.Reason).
		Msg("notification (mail disabled)")
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
