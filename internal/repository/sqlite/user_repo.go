package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/overflow-admin/internal/domain"
	"github.com/prn-tf/overflow-admin/internal/repository"
)

// userRepository implements repository.UserRepository for SQLite.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role, status,
	ban_reason, banned_at, ban_expires_at, unbanned_at, created_at, updated_at`

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		strings.ToLower(user.Email),
		user.PasswordHash,
		string(user.Role),
		string(user.Status),
		nullString(user.BanReason),
		nullTime(user.BannedAt),
		nullTime(user.BanExpiresAt),
		nullTime(user.UnbannedAt),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email already exists", domain.ErrUserAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.WithResource(domain.ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetByEmailOrID retrieves a user whose email or ID equals the key.
func (r *userRepository) GetByEmailOrID(ctx context.Context, key string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? OR email = ? LIMIT 1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, key, strings.ToLower(key)))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.WithResource(domain.ErrUserNotFound, key)
		}
		return nil, fmt.Errorf("failed to get user by email or ID: %w", err)
	}

	return user, nil
}

// List returns users with pagination, newest first.
func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id LIMIT ? OFFSET ?`

	users, err := r.queryUsers(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &repository.ListResult[domain.User]{
		Items:  users,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// ApplyBan moves a user into the banned state if the user is neither banned
// nor an admin at the moment of the write.
func (r *userRepository) ApplyBan(ctx context.Context, id string, update domain.BanUpdate) (bool, error) {
	query := `
		UPDATE users
		SET status = 'banned', ban_reason = ?, banned_at = ?, ban_expires_at = ?, updated_at = ?
		WHERE id = ? AND status <> 'banned' AND role <> 'admin'
	`

	result, err := r.db.ExecContext(ctx, query,
		update.Reason,
		formatTime(update.BannedAt),
		nullTime(update.ExpiresAt),
		formatTime(update.BannedAt),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to apply ban: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// ClearBan moves a banned user back to active.
func (r *userRepository) ClearBan(ctx context.Context, id string, update domain.UnbanUpdate) (bool, error) {
	query := `
		UPDATE users
		SET status = 'active', ban_reason = NULL, banned_at = NULL, ban_expires_at = NULL,
			unbanned_at = ?, updated_at = ?
		WHERE id = ? AND status = 'banned'
	`
	args := []any{
		formatTime(update.UnbannedAt),
		formatTime(update.UnbannedAt),
		id,
	}

	if update.ExpiredBefore != nil {
		query += ` AND ban_expires_at IS NOT NULL AND ban_expires_at <= ?`
		args = append(args, formatTime(*update.ExpiredBefore))
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to clear ban: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// ListExpiredBans returns banned users whose expiry is at or before now.
func (r *userRepository) ListExpiredBans(ctx context.Context, now time.Time, limit int) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE status = 'banned' AND ban_expires_at IS NOT NULL AND ban_expires_at <= ?
		ORDER BY ban_expires_at ASC
		LIMIT ?
	`

	users, err := r.queryUsers(ctx, query, formatTime(now), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired bans: %w", err)
	}

	return users, nil
}

// ListTemporaryBans returns banned users with an expiry, soonest first.
func (r *userRepository) ListTemporaryBans(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE status = 'banned' AND ban_expires_at IS NOT NULL
		ORDER BY ban_expires_at ASC
	`

	users, err := r.queryUsers(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list temporary bans: %w", err)
	}

	return users, nil
}

func (r *userRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var role, status string
	var banReason, bannedAt, banExpiresAt, unbannedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&role,
		&status,
		&banReason,
		&bannedAt,
		&banExpiresAt,
		&unbannedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = domain.UserRole(role)
	user.Status = domain.UserStatus(status)
	user.BanReason = stringPtr(banReason)
	user.BannedAt = timePtr(bannedAt)
	user.BanExpiresAt = timePtr(banExpiresAt)
	user.UnbannedAt = timePtr(unbannedAt)
	user.CreatedAt = parseTime(createdAt)
	user.UpdatedAt = parseTime(updatedAt)

	return user, nil
}
