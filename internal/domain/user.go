// Package domain contains the core business entities for Overflow Admin.
// These are pure Go structs with no external dependencies, representing
// the users and content that moderators act upon.
package domain

import (
	"time"
)

// MaxBanDurationDays is the longest temporary ban, in days. Longer bans
// should be permanent.
const MaxBanDurationDays = 36500

// UserStatus is the account state of a user.
type UserStatus string

const (
	// UserStatusActive is a normal account.
	UserStatusActive UserStatus = "active"

	// UserStatusInactive is an account disabled by its owner or an admin.
	UserStatusInactive UserStatus = "inactive"

	// UserStatusPending is an account that has not completed signup.
	UserStatusPending UserStatus = "pending"

	// UserStatusBanned is an account under a moderation ban.
	UserStatusBanned UserStatus = "banned"
)

// IsValid returns true if the status is a known value.
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusPending, UserStatusBanned:
		return true
	}
	return false
}

// UserRole is the authorization role of a user.
type UserRole string

const (
	// RoleAdmin can moderate users and content. Admins can never be banned.
	RoleAdmin UserRole = "admin"

	// RoleUser is a regular forum member.
	RoleUser UserRole = "user"
)

// IsValid returns true if the role is a known value.
func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User represents a registered forum member together with its moderation state.
type User struct {
	// ID is the unique identifier for the user (UUID string).
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Email is the unique email address for the user.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// Role is admin or user.
	Role UserRole `json:"role"`

	// Status is the single source of truth for whether the user may act.
	Status UserStatus `json:"status"`

	// BanReason is set iff Status is banned.
	BanReason *string `json:"banReason,omitempty"`

	// BannedAt is set iff Status is banned.
	BannedAt *time.Time `json:"bannedAt,omitempty"`

	// BanExpiresAt is nil for a permanent ban. Only ever set while banned.
	BanExpiresAt *time.Time `json:"banExpiresAt,omitempty"`

	// UnbannedAt records the most recent unban. Audit only.
	UnbannedAt *time.Time `json:"unbannedAt,omitempty"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUser creates a new User with default values.
func NewUser(name, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		Status:       UserStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsBanned returns true if the user is currently banned.
func (u *User) IsBanned() bool {
	return u.Status == UserStatusBanned
}

// IsPermanentlyBanned returns true for a ban without expiry.
func (u *User) IsPermanentlyBanned() bool {
	return u.IsBanned() && u.BanExpiresAt == nil
}

// BanExpired reports whether a temporary ban has passed its expiry at now.
func (u *User) BanExpired(now time.Time) bool {
	return u.IsBanned() && u.BanExpiresAt != nil && !u.BanExpiresAt.After(now)
}

// CanAuthenticate returns true if the user is allowed to authenticate.
func (u *User) CanAuthenticate() bool {
	return u.Status == UserStatusActive
}

// Public returns a copy of the user without secret fields.
func (u *User) Public() *User {
	c := *u
	c.PasswordHash = ""
	return &c
}

// BanUpdate holds the fields written by a ban transition.
type BanUpdate struct {
	Reason    string
	BannedAt  time.Time
	ExpiresAt *time.Time
}

// UnbanUpdate holds the fields written by an unban transition.
type UnbanUpdate struct {
	UnbannedAt time.Time

	// ExpiredBefore, when non-nil, additionally scopes the update to bans whose
	// expiry is at or before this instant. Used by the expiry sweep.
	ExpiredBefore *time.Time
}
