package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/overflow-admin/internal/domain"
	"github.com/prn-tf/overflow-admin/internal/repository"
)

// userRepository implements repository.UserRepository.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new PostgreSQL user repository.
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		user.ID,
		user.Name,
		strings.ToLower(user.Email),
		user.PasswordHash,
		string(user.Role),
		string(user.Status),
		user.BanReason,
		user.BannedAt,
		user.BanExpiresAt,
		user.UnbannedAt,
		user.CreatedAt,
		user.UpdatedAt,
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
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.WithResource(domain.ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetByEmailOrID retrieves a user whose email or ID equals the key.
func (r *userRepository) GetByEmailOrID(ctx context.Context, key string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 OR email = $2 LIMIT 1`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, key, strings.ToLower(key)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`

	users, err := queryUsers(ctx, r.db.Pool, query, opts.Limit, opts.Offset)
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
		SET status = 'banned', ban_reason = $1, banned_at = $2, ban_expires_at = $3, updated_at = $2
		WHERE id = $4 AND status <> 'banned' AND role <> 'admin'
	`

	tag, err := r.db.Pool.Exec(ctx, query, update.Reason, update.BannedAt, update.ExpiresAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to apply ban: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ClearBan moves a banned user back to active.
func (r *userRepository) ClearBan(ctx context.Context, id string, update domain.UnbanUpdate) (bool, error) {
	query := `
		UPDATE users
		SET status = 'active', ban_reason = NULL, banned_at = NULL, ban_expires_at = NULL,
			unbanned_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'banned'
	`
	args := []any{update.UnbannedAt, id}

	if update.ExpiredBefore != nil {
		query += ` AND ban_expires_at IS NOT NULL AND ban_expires_at <= $3`
		args = append(args, *update.ExpiredBefore)
	}

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to clear ban: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListExpiredBans returns banned users whose expiry is at or before now.
func (r *userRepository) ListExpiredBans(ctx context.Context, now time.Time, limit int) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE status = 'banned' AND ban_expires_at IS NOT NULL AND ban_expires_at <= $1
		ORDER BY ban_expires_at ASC
		LIMIT $2
	`

	users, err := queryUsers(ctx, r.db.Pool, query, now, limit)
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

	users, err := queryUsers(ctx, r.db.Pool, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list temporary bans: %w", err)
	}

	return users, nil
}

func queryUsers(ctx context.Context, q Querier, query string, args ...any) ([]*domain.User, error) {
	rows, err := q.Query(ctx, query, args...)
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

// scanUser reads one row; pgx.Rows satisfies pgx.Row.
func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	var role, status string

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&role,
		&status,
		&user.BanReason,
		&user.BannedAt,
		&user.BanExpiresAt,
		&user.UnbannedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = domain.UserRole(role)
	user.Status = domain.UserStatus(status)

	return user, nil
}
