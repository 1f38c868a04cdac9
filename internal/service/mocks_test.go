package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/overflow-admin/internal/domain"
	"github.com/prn-tf/overflow-admin/internal/notify"
	"github.com/prn-tf/overflow-admin/internal/repository"
)

// MockUserRepository is an in-memory repository.UserRepository with the same
// conditional-update semantics as the SQL stores.
type MockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User

	getErr   error
	listErr  error
	clearErr map[string]error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:    make(map[string]*domain.User),
		clearErr: make(map[string]error),
	}
}

func (m *MockUserRepository) add(u *domain.User) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	c := *u
	m.users[u.ID] = &c
	return u
}

func (m *MockUserRepository) snapshot(id string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *m.users[id]
	return &c
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	c := *user
	m.users[user.ID] = &c
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.WithResource(domain.ErrUserNotFound, id)
	}
	c := *u
	return &c, nil
}

func (m *MockUserRepository) GetByEmailOrID(ctx context.Context, key string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == key || u.Email == key {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.WithResource(domain.ErrUserNotFound, key)
}

func (m *MockUserRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		c := *u
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })

	end := opts.Offset + opts.Limit
	if end > len(all) {
		end = len(all)
	}
	start := opts.Offset
	if start > end {
		start = end
	}
	return &repository.ListResult[domain.User]{
		Items:  all[start:end],
		Total:  int64(len(all)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockUserRepository) ApplyBan(ctx context.Context, id string, update domain.BanUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Status == domain.UserStatusBanned || u.Role == domain.RoleAdmin {
		return false, nil
	}
	reason := update.Reason
	bannedAt := update.BannedAt
	u.Status = domain.UserStatusBanned
	u.BanReason = &reason
	u.BannedAt = &bannedAt
	u.BanExpiresAt = update.ExpiresAt
	u.UpdatedAt = bannedAt
	return true, nil
}

func (m *MockUserRepository) ClearBan(ctx context.Context, id string, update domain.UnbanUpdate) (bool, error) {
	if err := m.clearErr[id]; err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Status != domain.UserStatusBanned {
		return false, nil
	}
	if update.ExpiredBefore != nil && (u.BanExpiresAt == nil || u.BanExpiresAt.After(*update.ExpiredBefore)) {
		return false, nil
	}
	at := update.UnbannedAt
	u.Status = domain.UserStatusActive
	u.BanReason = nil
	u.BannedAt = nil
	u.BanExpiresAt = nil
	u.UnbannedAt = &at
	u.UpdatedAt = at
	return true, nil
}

func (m *MockUserRepository) ListExpiredBans(ctx context.Context, now time.Time, limit int) ([]*domain.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := m.filter(func(u *domain.User) bool { return u.BanExpired(now) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockUserRepository) ListTemporaryBans(ctx context.Context) ([]*domain.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.filter(func(u *domain.User) bool { return u.IsBanned() && u.BanExpiresAt != nil }), nil
}

// filter returns copies of matching banned users ordered by expiry.
func (m *MockUserRepository) filter(keep func(*domain.User) bool) []*domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for _, u := range m.users {
		if keep(u) {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BanExpiresAt.Before(*out[j].BanExpiresAt) })
	return out
}

// MockContentRepository is an in-memory repository.ContentRepository.
type MockContentRepository struct {
	mu        sync.Mutex
	content   map[domain.ContentKind]map[string]*domain.Content
	updateErr error
}

func NewMockContentRepository() *MockContentRepository {
	m := &MockContentRepository{content: make(map[domain.ContentKind]map[string]*domain.Content)}
	for _, k := range domain.ContentKinds {
		m.content[k] = make(map[string]*domain.Content)
	}
	return m
}

func (m *MockContentRepository) Create(ctx context.Context, c *domain.Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	cp := *c
	m.content[c.Kind][c.ID] = &cp
	return nil
}

func (m *MockContentRepository) GetByID(ctx context.Context, kind domain.ContentKind, id string) (*domain.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.content[kind][id]
	if !ok {
		return nil, domain.WithResource(domain.ErrContentNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (m *MockContentRepository) UpdateVisibility(ctx context.Context, kind domain.ContentKind, id string, update domain.VisibilityUpdate) (*domain.Content, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.content[kind][id]
	if !ok {
		return nil, domain.WithResource(domain.ErrContentNotFound, id)
	}
	c.IsHidden = update.Reason != nil
	c.HideReason = update.Reason
	c.HiddenAt = update.HiddenAt
	cp := *c
	return &cp, nil
}

// recordingNotifier records sends and can be told to fail or panic.
type recordingNotifier struct {
	mu      sync.Mutex
	bans    []notify.BanNotice
	unbans  []notify.UnbanNotice
	hidden  []notify.ContentHiddenNotice
	err     error
	panicky bool
}

func (n *recordingNotifier) fail() error {
	if n.panicky {
		panic("notifier exploded")
	}
	return n.err
}

func (n *recordingNotifier) SendBan(ctx context.Context, b notify.BanNotice) error {
	n.mu.Lock()
	n.bans = append(n.bans, b)
	n.mu.Unlock()
	return n.fail()
}

func (n *recordingNotifier) SendUnban(ctx context.Context, u notify.UnbanNotice) error {
	n.mu.Lock()
	n.unbans = append(n.unbans, u)
	n.mu.Unlock()
	return n.fail()
}

func (n *recordingNotifier) SendContentHidden(ctx context.Context, h notify.ContentHiddenNotice) error {
	n.mu.Lock()
	n.hidden = append(n.hidden, h)
	n.mu.Unlock()
	return n.fail()
}

func (n *recordingNotifier) counts() (bans, unbans, hidden int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.bans), len(n.unbans), len(n.hidden)
}

var errStoreDown = errors.New("store unavailable")

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
