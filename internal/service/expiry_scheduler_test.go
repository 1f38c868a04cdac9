package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/overflow-admin/internal/domain"
	"github.com/prn-tf/overflow-admin/internal/lock"
	"github.com/prn-tf/overflow-admin/internal/metrics"
)

// stubSweeper counts AutoUnbanExpired calls and runs fn if set.
type stubSweeper struct {
	calls atomic.Int32
	fn    func() (*AutoUnbanResult, error)
}

func (s *stubSweeper) AutoUnbanExpired(ctx context.Context) (*AutoUnbanResult, error) {
	s.calls.Add(1)
	if s.fn != nil {
		return s.fn()
	}
	return &AutoUnbanResult{}, nil
}

func TestExpiryScheduler_Tick(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	f.addUser("u1", domain.RoleUser)
	_, err := f.svc.Ban(ctx, BanInput{UserID: "u1", Reason: "spam", TestBan: true})
	require.NoError(t, err)
	f.clock.Advance(10 * time.Second)

	locker := lock.NewMemoryLocker()
	s := NewExpiryScheduler(f.svc, locker, f.metrics, zerolog.Nop(), DefaultSchedulerConfig())

	res := s.Tick(ctx)
	require.NoError(t, res.Err)
	assert.False(t, res.Skipped)
	require.NotNil(t, res.Result)
	assert.Equal(t, []string{"u1"}, res.Result.UnbannedUsers)
	assert.Equal(t, domain.UserStatusActive, f.repo.snapshot("u1").Status)

	held, err := locker.IsHeld(ctx, lock.Keys.AutoUnban())
	require.NoError(t, err)
	assert.False(t, held, "lock must be released after a tick")

	res = s.Tick(ctx)
	require.NoError(t, res.Err)
	assert.Zero(t, res.Result.Count)
}

func TestExpiryScheduler_Tick_SkipsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	locker := lock.NewMemoryLocker()
	acquired, err := locker.Acquire(ctx, lock.Keys.AutoUnban(), time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	sweeper := &stubSweeper{}
	m := metrics.NewMetrics()
	s := NewExpiryScheduler(sweeper, locker, m, zerolog.Nop(), DefaultSchedulerConfig())

	res := s.Tick(ctx)
	assert.True(t, res.Skipped)
	assert.Nil(t, res.Result)
	assert.Zero(t, sweeper.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AutoUnbanSkippedRuns))
}

func TestExpiryScheduler_Tick_Failures(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (*AutoUnbanResult, error)
	}{
		{name: "error", fn: func() (*AutoUnbanResult, error) { return nil, errStoreDown }},
		{name: "panic", fn: func() (*AutoUnbanResult, error) { panic("boom") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			locker := lock.NewMemoryLocker()
			m := metrics.NewMetrics()
			s := NewExpiryScheduler(&stubSweeper{fn: tt.fn}, locker, m, zerolog.Nop(), DefaultSchedulerConfig())

			res := s.Tick(ctx)
			require.Error(t, res.Err)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.AutoUnbanErrors))

			held, err := locker.IsHeld(ctx, lock.Keys.AutoUnban())
			require.NoError(t, err)
			assert.False(t, held)
		})
	}
}

func TestExpiryScheduler_StartStop(t *testing.T) {
	var failures atomic.Int32
	sweeper := &stubSweeper{fn: func() (*AutoUnbanResult, error) {
		// Every other run fails; the loop must keep going.
		if failures.Add(1)%2 == 0 {
			return nil, errors.New("flaky store")
		}
		return &AutoUnbanResult{}, nil
	}}

	s := NewExpiryScheduler(sweeper, lock.NewMemoryLocker(), nil, zerolog.Nop(), SchedulerConfig{
		Interval:   5 * time.Millisecond,
		RunOnStart: true,
	})

	assert.False(t, s.Running())
	s.Start()
	s.Start()
	assert.True(t, s.Running())

	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.Running())
	after := sweeper.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, sweeper.calls.Load(), "no runs after Stop")

	// Stopping twice and restarting are both fine.
	s.Stop()
	s.Start()
	require.Eventually(t, func() bool { return sweeper.calls.Load() > after }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestExpiryScheduler_RunOnStartDisabled(t *testing.T) {
	sweeper := &stubSweeper{}
	s := NewExpiryScheduler(sweeper, lock.NewMemoryLocker(), nil, zerolog.Nop(), SchedulerConfig{
		Interval: time.Hour,
	})

	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	assert.Zero(t, sweeper.calls.Load())
}
