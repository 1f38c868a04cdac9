package service

import (
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
)

// bestEffort runs a notification send. Errors and panics are logged with the
// recipient and dropped; they never reach the moderation caller.
func bestEffort(logger zerolog.Logger, operation, to string, send func() error) {
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = send() })
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}

	if err != nil {
		logger.Warn().
			Err(err).
			Str("operation", operation).
			Str("to", to).
			Msg("notification failed")
	}
}
