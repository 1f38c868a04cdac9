// Package repository defines data access interfaces for Overflow Admin.
// These interfaces abstract database operations, allowing for different implementations
// (PostgreSQL, SQLite, in-memory for testing) while keeping the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/prn-tf/overflow-admin/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access, including the
// moderation fields that make up a ban record.
type UserRepository interface {
	// Create creates a new user. An empty ID is filled with a fresh UUID.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmailOrID retrieves a user whose email or ID equals the key.
	GetByEmailOrID(ctx context.Context, key string) (*domain.User, error)

	// List returns users with pagination, newest first.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)

	// ApplyBan atomically moves a non-banned, non-admin user into the banned state.
	// Returns false when no row matched the precondition.
	ApplyBan(ctx context.Context, id string, update domain.BanUpdate) (bool, error)

	// ClearBan atomically moves a banned user back to active.
	// Returns false when no row matched (already unbanned, or not expired yet when
	// update.ExpiredBefore is set).
	ClearBan(ctx context.Context, id string, update domain.UnbanUpdate) (bool, error)

	// ListExpiredBans returns banned users whose non-null expiry is at or before now.
	ListExpiredBans(ctx context.Context, now time.Time, limit int) ([]*domain.User, error)

	// ListTemporaryBans returns banned users with an expiry, soonest first.
	ListTemporaryBans(ctx context.Context) ([]*domain.User, error)
}

// =============================================================================
// Content Repository
// =============================================================================

// ContentRepository defines access to questions, answers and replies.
// Each kind lives in its own table; the kind selects it.
type ContentRepository interface {
	// Create creates new content. An empty ID is filled with a fresh UUID.
	Create(ctx context.Context, content *domain.Content) error

	// GetByID retrieves content of the given kind.
	GetByID(ctx context.Context, kind domain.ContentKind, id string) (*domain.Content, error)

	// UpdateVisibility writes the hide/unhide fields and returns the updated content.
	UpdateVisibility(ctx context.Context, kind domain.ContentKind, id string, update domain.VisibilityUpdate) (*domain.Content, error)
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	Limit  int
	Offset int
}

// ListResult contains a paginated list result.
type ListResult[T any] struct {
	Items  []*T
	Total  int64
	Offset int
	Limit  int
}

// HasMore returns true if there are more items after this page.
func (r *ListResult[T]) HasMore() bool {
	return int64(r.Offset+len(r.Items)) < r.Total
}
