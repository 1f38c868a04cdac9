package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"

	"github.com/prn-tf/overflow-admin/internal/lock"
	"github.com/prn-tf/overflow-admin/internal/metrics"
)

// autoUnbanner is the part of ModerationService the scheduler drives.
type autoUnbanner interface {
	AutoUnbanExpired(ctx context.Context) (*AutoUnbanResult, error)
}

// ExpiryScheduler periodically lifts expired temporary bans.
type ExpiryScheduler struct {
	moderation autoUnbanner
	locker     lock.Locker
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	config     SchedulerConfig

	// Control
	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// SchedulerConfig contains expiry scheduler configuration.
type SchedulerConfig struct {
	// Interval is how often to sweep for expired bans.
	Interval time.Duration

	// RunOnStart sweeps once immediately when the scheduler starts.
	RunOnStart bool

	// TickTimeout bounds a single sweep.
	TickTimeout time.Duration
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:    10 * time.Second,
		RunOnStart:  true,
		TickTimeout: time.Minute,
	}
}

// NewExpiryScheduler creates a new scheduler. It does nothing until Start.
func NewExpiryScheduler(
	moderation autoUnbanner,
	locker lock.Locker,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config SchedulerConfig,
) *ExpiryScheduler {
	if config.TickTimeout <= 0 {
		config.TickTimeout = time.Minute
	}
	return &ExpiryScheduler{
		moderation: moderation,
		locker:     locker,
		metrics:    m,
		logger:     logger.With().Str("service", "expiry_scheduler").Logger(),
		config:     config,
	}
}

// Start begins the sweep loop. Calling Start on a running scheduler is a no-op.
func (s *ExpiryScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	stop, done := s.stopChan, s.doneChan
	s.mu.Unlock()

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Bool("run_on_start", s.config.RunOnStart).
		Msg("Starting expiry scheduler")

	go s.runLoop(stop, done)
}

// Stop stops the loop and waits for an in-flight sweep to finish.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stopChan, s.doneChan
	s.mu.Unlock()

	close(stop)
	<-done

	s.logger.Info().Msg("Expiry scheduler stopped")
}

// Running reports whether the loop is active.
func (s *ExpiryScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runLoop is the main scheduler loop.
func (s *ExpiryScheduler) runLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	if s.config.RunOnStart {
		s.runOnce()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce()
		case <-stop:
			return
		}
	}
}

// runOnce is called by the scheduler loop.
func (s *ExpiryScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.TickTimeout)
	defer cancel()
	s.Tick(ctx)
}

// TickResult contains the result of one sweep attempt.
type TickResult struct {
	// Result is nil when the sweep was skipped or failed.
	Result *AutoUnbanResult

	// Skipped is true when another process held the sweep lock.
	Skipped bool

	// Err is the failure that ended the sweep, if any.
	Err error
}

// Tick runs one sweep now. The timer loop and manual triggers share this path.
// Failures, including panics, are logged and returned in the result; they
// never stop the scheduler.
func (s *ExpiryScheduler) Tick(ctx context.Context) TickResult {
	lockKey := lock.Keys.AutoUnban()
	lockTTL := s.config.TickTimeout
	if lockTTL < s.config.Interval {
		lockTTL = s.config.Interval
	}

	acquired, err := s.locker.Acquire(ctx, lockKey, lockTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to acquire auto-unban lock")
		s.recordFailure()
		return TickResult{Err: err}
	}
	if !acquired {
		s.logger.Debug().Msg("Auto-unban lock held by another process, skipping run")
		if s.metrics != nil {
			s.metrics.AutoUnbanSkippedRuns.Inc()
		}
		return TickResult{Skipped: true}
	}
	defer func() {
		if _, err := s.locker.Release(context.WithoutCancel(ctx), lockKey); err != nil {
			s.logger.Error().Err(err).Msg("Failed to release auto-unban lock")
		}
	}()

	var result *AutoUnbanResult
	var pc panics.Catcher
	pc.Try(func() { result, err = s.moderation.AutoUnbanExpired(ctx) })
	if r := pc.Recovered(); r != nil {
		err = fmt.Errorf("auto-unban panicked: %w", r.AsError())
	}

	if err != nil {
		s.logger.Error().Err(err).Msg("Auto-unban run failed")
		s.recordFailure()
		return TickResult{Err: err}
	}

	return TickResult{Result: result}
}

func (s *ExpiryScheduler) recordFailure() {
	if s.metrics != nil {
		s.metrics.AutoUnbanErrors.Inc()
	}
}
