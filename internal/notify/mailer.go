package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/prn-tf/overflow-admin/internal/config"
)

// sender is the part of *mail.Client the Mailer uses.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer sends notifications over SMTP.
type Mailer struct {
	client     sender
	renderer   *Renderer
	from       string
	fromName   string
	maxRetries int
	logger     zerolog.Logger

	// newBackOff is replaced in tests to avoid real sleeps.
	newBackOff func() backoff.BackOff
}

// NewMailer creates a Mailer from the mail configuration.
func NewMailer(cfg config.MailConfig, renderer *Renderer, logger zerolog.Logger) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.TLS {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return newMailer(client, cfg, renderer, logger), nil
}

func newMailer(client sender, cfg config.MailConfig, renderer *Renderer, logger zerolog.Logger) *Mailer {
	return &Mailer{
		client:     client,
		renderer:   renderer,
		from:       cfg.From,
		fromName:   cfg.FromName,
		maxRetries: cfg.MaxRetries,
		logger:     logger.With().Str("component", "mailer").Logger(),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

// SendBan emails a ban notice.
func (m *Mailer) SendBan(ctx context.Context, n BanNotice) error {
	return m.send(ctx, TemplateBan, n.To, n)
}

// SendUnban emails an unban notice.
func (m *Mailer) SendUnban(ctx context.Context, n UnbanNotice) error {
	return m.send(ctx, TemplateUnban, n.To, n)
}

// SendContentHidden emails a content-hidden notice.
func (m *Mailer) SendContentHidden(ctx context.Context, n ContentHiddenNotice) error {
	return m.send(ctx, TemplateContentHidden, n.To, n)
}

func (m *Mailer) send(ctx context.Context, kind TemplateKind, to string, notice any) error {
	subject, body, err := m.renderer.Render(kind, notice)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	attempt := 0
	operation := func() error {
		attempt++
		err := m.client.DialAndSendWithContext(ctx, msg)
		if err == nil {
			return nil
		}

		var sendErr *mail.SendError
		if errors.As(err, &sendErr) && !sendErr.IsTemp() {
			return backoff.Permanent(err)
		}

		m.logger.Warn().
			Err(err).
			Str("template", kind.String()).
			Int("attempt", attempt).
			Msg("mail send failed, retrying")
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(m.newBackOff(), uint64(max(m.maxRetries, 0))), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return fmt.Errorf("failed to send %s email after %d attempt(s): %w", kind, attempt, err)
	}

	m.logger.Debug().
		Str("template", kind.String()).
		Int("attempts", attempt).
		Msg("mail sent")
	return nil
}

var _ Notifier = (*Mailer)(nil)
