package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"

	"github.com/prn-tf/overflow-admin/internal/metrics"
)

// Dispatcher sends notifications in the background. Its Send methods return
// immediately with a nil error; failures and panics in the underlying
// Notifier are logged and counted, never returned to the caller.
type Dispatcher struct {
	notifier Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	timeout  time.Duration

	wg sync.WaitGroup
}

// NewDispatcher wraps notifier. Each send gets its own timeout, detached from
// the caller's cancellation so a finished request does not abort its email.
func NewDispatcher(notifier Notifier, m *metrics.Metrics, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Dispatcher{
		notifier: notifier,
		metrics:  m,
		logger:   logger.With().Str("component", "notify_dispatcher").Logger(),
		timeout:  timeout,
	}
}

// SendBan queues a ban notice.
func (d *Dispatcher) SendBan(ctx context.Context, n BanNotice) error {
	d.dispatch(ctx, TemplateBan, n.To, func(ctx context.Context) error {
		return d.notifier.SendBan(ctx, n)
	})
	return nil
}

// SendUnban queues an unban notice.
func (d *Dispatcher) SendUnban(ctx context.Context, n UnbanNotice) error {
	d.dispatch(ctx, TemplateUnban, n.To, func(ctx context.Context) error {
		return d.notifier.SendUnban(ctx, n)
	})
	return nil
}

// SendContentHidden queues a content-hidden notice.
func (d *Dispatcher) SendContentHidden(ctx context.Context, n ContentHiddenNotice) error {
	d.dispatch(ctx, TemplateContentHidden, n.To, func(ctx context.Context) error {
		return d.notifier.SendContentHidden(ctx, n)
	})
	return nil
}

// Wait blocks until every queued send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(parent context.Context, kind TemplateKind, to string, send func(context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.timeout)
		defer cancel()

		var err error
		var pc panics.Catcher
		pc.Try(func() { err = send(ctx) })
		if r := pc.Recovered(); r != nil {
			err = r.AsError()
		}

		if d.metrics != nil {
			d.metrics.RecordNotification(kind.String(), err)
		}

		if err != nil {
			d.logger.Error().
				Err(err).
				Str("template", kind.String()).
				Str("to", to).
				Msg("notification failed")
			return
		}

		d.logger.Debug().
			Str("template", kind.String()).
			Str("to", to).
			Msg("notification sent")
	}()
}

var _ Notifier = (*Dispatcher)(nil)
