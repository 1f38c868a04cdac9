package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/overflow-admin/internal/domain"
	"github.com/prn-tf/overflow-admin/internal/metrics"
	"github.com/prn-tf/overflow-admin/internal/notify"
	"github.com/prn-tf/overflow-admin/internal/repository"
)

// VisibilityService hides and unhides questions, answers and replies.
type VisibilityService struct {
	contentRepo     repository.ContentRepository
	userRepo        repository.UserRepository
	notifier        notify.Notifier
	metrics         *metrics.Metrics
	logger          zerolog.Logger
	maxReasonLength int

	now func() time.Time
}

// NewVisibilityService creates a new VisibilityService.
func NewVisibilityService(
	contentRepo repository.ContentRepository,
	userRepo repository.UserRepository,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger zerolog.Logger,
	maxReasonLength int,
) *VisibilityService {
	return &VisibilityService{
		contentRepo:     contentRepo,
		userRepo:        userRepo,
		notifier:        notifier,
		metrics:         m,
		logger:          logger.With().Str("service", "visibility").Logger(),
		maxReasonLength: maxReasonLength,
		now:             time.Now,
	}
}

// HideInput contains the data needed to hide content.
type HideInput struct {
	Kind      domain.ContentKind
	ContentID string
	Reason    string
	SendEmail bool
}

// Hide marks content hidden. Hiding hidden content overwrites the reason and
// timestamp.
func (s *VisibilityService) Hide(ctx context.Context, input HideInput) (*domain.Content, error) {
	if !input.Kind.IsValid() {
		return nil, domain.ErrInvalidContentKind
	}
	reason, err := validateReason(input.Reason, s.maxReasonLength)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	content, err := s.contentRepo.UpdateVisibility(ctx, input.Kind, input.ContentID, domain.VisibilityUpdate{
		Reason:   &reason,
		HiddenAt: &now,
	})
	if err != nil {
		return nil, s.wrapErr(err, input.Kind, input.ContentID, "failed to hide content")
	}

	if s.metrics != nil {
		s.metrics.RecordVisibilityChange(string(input.Kind), "hide")
	}

	s.logger.Info().
		Str("kind", string(input.Kind)).
		Str("content_id", content.ID).
		Bool("send_email", input.SendEmail).
		Msg("content hidden")

	if input.SendEmail {
		s.notifyAuthor(ctx, content, reason)
	}

	return content, nil
}

// Unhide clears the hidden state of content. Authors are not notified.
func (s *VisibilityService) Unhide(ctx context.Context, kind domain.ContentKind, id string) (*domain.Content, error) {
	if !kind.IsValid() {
		return nil, domain.ErrInvalidContentKind
	}

	content, err := s.contentRepo.UpdateVisibility(ctx, kind, id, domain.VisibilityUpdate{})
	if err != nil {
		return nil, s.wrapErr(err, kind, id, "failed to unhide content")
	}

	if s.metrics != nil {
		s.metrics.RecordVisibilityChange(string(kind), "unhide")
	}

	s.logger.Info().
		Str("kind", string(kind)).
		Str("content_id", content.ID).
		Msg("content unhidden")

	return content, nil
}

func (s *VisibilityService) notifyAuthor(ctx context.Context, content *domain.Content, reason string) {
	author, err := s.userRepo.GetByID(ctx, content.AuthorID)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("author_id", content.AuthorID).
			Msg("cannot notify author of hidden content")
		return
	}

	notice := notify.ContentHiddenNotice{
		To:       author.Email,
		UserName: author.Name,
		Kind:     content.Kind,
		Content:  content.PreviewSource(),
		Reason:   reason,
	}
	bestEffort(s.logger, "content_hidden", author.Email, func() error {
		return s.notifier.SendContentHidden(ctx, notice)
	})
}

func (s *VisibilityService) wrapErr(err error, kind domain.ContentKind, id, msg string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	s.logger.Error().Err(err).Str("kind", string(kind)).Str("content_id", id).Msg(msg)
	return fmt.Errorf("%w: %v", ErrInternalError, err)
}
