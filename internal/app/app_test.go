package app

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/overflow-admin/internal/config"
	"github.com/prn-tf/overflow-admin/internal/domain"
	"github.com/prn-tf/overflow-admin/internal/lock"
	"github.com/prn-tf/overflow-admin/internal/service"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
		Mail:     config.MailConfig{Timeout: time.Second, MaxRetries: 1},
		Moderation: config.ModerationConfig{
			SchedulerInterval: time.Hour,
			BatchSize:         100,
			TestBanDuration:   time.Second,
			NotifyOnAutoUnban: true,
			MaxReasonLength:   500,
		},
	}
}

func TestNew_SQLiteMemoryLocker(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.IsType(t, &lock.MemoryLocker{}, a.Locker)
	require.NoError(t, a.DB.Health(ctx))

	pending, err := a.DB.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	out, err := a.Users.Create(ctx, service.CreateUserInput{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "password123",
		Status:   domain.UserStatusActive,
	})
	require.NoError(t, err)

	_, err = a.Moderation.Ban(ctx, service.BanInput{UserID: out.User.ID, Reason: "spam", TestBan: true, SendEmail: true})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		res := a.Scheduler.Tick(ctx)
		return res.Err == nil && res.Result != nil && res.Result.Count == 1
	}, 5*time.Second, 100*time.Millisecond)

	u, err := a.Users.GetByID(ctx, out.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusActive, u.Status)
}

func TestNew_RedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port, PoolSize: 2, DialTimeout: time.Second}

	ctx := context.Background()
	a, err := New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.IsType(t, &lock.RedisLocker{}, a.Locker)

	res := a.Scheduler.Tick(ctx)
	require.NoError(t, res.Err)
	assert.False(t, mr.Exists(lock.Keys.AutoUnban()))
}

func TestNew_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1, DialTimeout: 100 * time.Millisecond}

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
