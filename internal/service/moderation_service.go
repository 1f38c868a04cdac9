package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/prn-tf/overflow-admin/internal/domain"
	"github.com/prn-tf/overflow-admin/internal/metrics"
	"github.com/prn-tf/overflow-admin/internal/notify"
	"github.com/prn-tf/overflow-admin/internal/repository"
)

// ModerationService handles the ban lifecycle of users.
type ModerationService struct {
	userRepo repository.UserRepository
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	config   ModerationConfig

	// now is the clock; tests replace it.
	now func() time.Time
}

// ModerationConfig contains moderation configuration.
type ModerationConfig struct {
	// TestBanDuration is the length of a test ban.
	TestBanDuration time.Duration

	// MaxReasonLength bounds ban reasons, in characters.
	MaxReasonLength int

	// BatchSize caps how many expired bans one sweep reverts.
	BatchSize int

	// NotifyOnAutoUnban emails users whose ban expired.
	NotifyOnAutoUnban bool
}

// DefaultModerationConfig returns sensible defaults.
func DefaultModerationConfig() ModerationConfig {
	return ModerationConfig{
		TestBanDuration:   5 * time.Second,
		MaxReasonLength:   500,
		BatchSize:         500,
		NotifyOnAutoUnban: true,
	}
}

// NewModerationService creates a new ModerationService.
func NewModerationService(
	userRepo repository.UserRepository,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config ModerationConfig,
) *ModerationService {
	return &ModerationService{
		userRepo: userRepo,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With().Str("service", "moderation").Logger(),
		config:   config,
		now:      time.Now,
	}
}

// BanInput contains the data needed to ban a user.
type BanInput struct {
	UserID    string
	Reason    string
	SendEmail bool

	// DurationDays of 0 bans permanently.
	DurationDays int

	// TestBan overrides DurationDays with the configured test ban duration.
	TestBan bool
}

// BanOutput contains the result of a ban.
type BanOutput struct {
	Message string
	User    *domain.User
}

// Ban bans a user. The user must exist, must not be banned already and must
// not be an admin.
func (s *ModerationService) Ban(ctx context.Context, input BanInput) (*BanOutput, error) {
	reason, err := s.validateReason(input.Reason)
	if err != nil {
		return nil, err
	}
	if input.DurationDays < 0 || input.DurationDays > domain.MaxBanDurationDays {
		return nil, domain.ErrInvalidDuration
	}

	user, err := s.getUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned() {
		return nil, domain.WithResource(domain.ErrAlreadyBanned, user.ID)
	}
	if user.IsAdmin() {
		return nil, domain.WithResource(domain.ErrCannotBanAdmin, user.ID)
	}

	now := s.now().UTC()
	update := domain.BanUpdate{Reason: reason, BannedAt: now}
	durationLabel := metrics.DurationPermanent

	switch {
	case input.TestBan:
		expires := now.Add(s.config.TestBanDuration)
		update.ExpiresAt = &expires
		durationLabel = metrics.DurationTest
	case input.DurationDays > 0:
		expires := now.AddDate(0, 0, input.DurationDays)
		update.ExpiresAt = &expires
		durationLabel = metrics.DurationTemporary
	}

	applied, err := s.userRepo.ApplyBan(ctx, user.ID, update)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to apply ban")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !applied {
		// Someone else banned the user (or changed the role) since we read it.
		return nil, domain.WithResource(domain.ErrAlreadyBanned, user.ID)
	}

	user.Status = domain.UserStatusBanned
	user.BanReason = &reason
	user.BannedAt = &now
	user.BanExpiresAt = update.ExpiresAt
	user.UpdatedAt = now

	if s.metrics != nil {
		s.metrics.RecordBan(durationLabel)
	}

	event := s.logger.Info().
		Str("user_id", user.ID).
		Str("duration", durationLabel).
		Bool("send_email", input.SendEmail)
	if update.ExpiresAt != nil {
		event = event.Time("expires_at", *update.ExpiresAt)
	}
	event.Msg("user banned")

	if input.SendEmail {
		notice := notify.BanNotice{
			To:        user.Email,
			UserName:  user.Name,
			Reason:    reason,
			BannedAt:  now,
			ExpiresAt: update.ExpiresAt,
		}
		bestEffort(s.logger, "ban", user.Email, func() error {
			return s.notifier.SendBan(ctx, notice)
		})
	}

	return &BanOutput{
		Message: "User banned successfully",
		User:    user.Public(),
	}, nil
}

// UnbanInput contains the data needed to unban a user.
type UnbanInput struct {
	UserID    string
	SendEmail bool
}

// UnbanOutput contains the result of an unban.
type UnbanOutput struct {
	Message string
	User    *domain.User
}

// Unban lifts a user's ban. The user must currently be banned.
func (s *ModerationService) Unban(ctx context.Context, input UnbanInput) (*UnbanOutput, error) {
	user, err := s.getUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsBanned() {
		return nil, domain.WithResource(domain.ErrNotBanned, user.ID)
	}

	now := s.now().UTC()
	cleared, err := s.userRepo.ClearBan(ctx, user.ID, domain.UnbanUpdate{UnbannedAt: now})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to clear ban")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !cleared {
		// The expiry sweep or another admin got there first.
		return nil, domain.WithResource(domain.ErrNotBanned, user.ID)
	}

	markUnbanned(user, now)

	if s.metrics != nil {
		s.metrics.RecordUnban(metrics.SourceManual)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Bool("send_email", input.SendEmail).
		Msg("user unbanned")

	if input.SendEmail {
		s.sendUnban(ctx, user, now, false)
	}

	return &UnbanOutput{
		Message: "User unbanned successfully",
		User:    user.Public(),
	}, nil
}

// AutoUnbanResult contains the result of an expiry sweep.
type AutoUnbanResult struct {
	// Count is the number of users unbanned.
	Count int

	// UnbannedUsers lists the IDs of the users unbanned.
	UnbannedUsers []string

	// Skipped counts expired bans that were already lifted by the time we
	// tried to clear them.
	Skipped int

	// Errors is the number of users that could not be processed.
	Errors int

	// Duration is how long the sweep took.
	Duration time.Duration
}

// AutoUnbanExpired lifts every temporary ban whose expiry has passed.
// A failure on one user is logged and counted; the sweep continues.
func (s *ModerationService) AutoUnbanExpired(ctx context.Context) (*AutoUnbanResult, error) {
	start := time.Now()
	now := s.now().UTC()
	result := &AutoUnbanResult{UnbannedUsers: make([]string, 0)}

	expired, err := s.userRepo.ListExpiredBans(ctx, now, s.config.BatchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list expired bans")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	for _, user := range expired {
		if ctx.Err() != nil {
			break
		}

		cleared, err := s.userRepo.ClearBan(ctx, user.ID, domain.UnbanUpdate{
			UnbannedAt:    now,
			ExpiredBefore: &now,
		})
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("user_id", user.ID).
				Msg("failed to lift expired ban")
			result.Errors++
			continue
		}
		if !cleared {
			s.logger.Debug().
				Str("user_id", user.ID).
				Msg("expired ban already lifted")
			result.Skipped++
			continue
		}

		markUnbanned(user, now)
		result.Count++
		result.UnbannedUsers = append(result.UnbannedUsers, user.ID)

		if s.config.NotifyOnAutoUnban {
			s.sendUnban(ctx, user, now, true)
		}
	}

	result.Duration = time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordAutoUnbanRun(result.Duration, result.Count, result.Errors)
	}

	if result.Count > 0 || result.Errors > 0 {
		s.logger.Info().
			Int("count", result.Count).
			Strs("unbanned_users", result.UnbannedUsers).
			Int("skipped", result.Skipped).
			Int("errors", result.Errors).
			Dur("duration", result.Duration).
			Msg("expired bans lifted")
	} else {
		s.logger.Debug().Msg("no expired bans")
	}

	if len(expired) == s.config.BatchSize && s.config.BatchSize > 0 {
		s.logger.Info().Msg("more expired bans remain for next run")
	}

	return result, nil
}

// ListTemporaryBans returns banned users with an expiry, soonest first.
func (s *ModerationService) ListTemporaryBans(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.ListTemporaryBans(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list temporary bans")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	out := make([]*domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// GetUser returns the public projection of a user.
func (s *ModerationService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *ModerationService) getUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", id).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

func (s *ModerationService) validateReason(reason string) (string, error) {
	return validateReason(reason, s.config.MaxReasonLength)
}

func (s *ModerationService) sendUnban(ctx context.Context, user *domain.User, at time.Time, automatic bool) {
	notice := notify.UnbanNotice{
		To:         user.Email,
		UserName:   user.Name,
		UnbannedAt: at,
		Automatic:  automatic,
	}
	bestEffort(s.logger, "unban", user.Email, func() error {
		return s.notifier.SendUnban(ctx, notice)
	})
}

// markUnbanned mirrors the store's unban transition on an in-memory copy.
func markUnbanned(user *domain.User, at time.Time) {
	user.Status = domain.UserStatusActive
	user.BanReason = nil
	user.BannedAt = nil
	user.BanExpiresAt = nil
	user.UnbannedAt = &at
	user.UpdatedAt = at
}

// validateReason trims reason and checks it is non-empty and at most maxLen
// characters long.
func validateReason(reason string, maxLen int) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", domain.ErrInvalidReason
	}
	if maxLen > 0 && utf8.RuneCountInString(reason) > maxLen {
		return "", domain.NewDomainError(domain.ErrInvalidReason, fmt.Sprintf("reason must be at most %d characters", maxLen), "")
	}
	return reason, nil
}
