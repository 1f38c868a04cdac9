package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/overflow-admin/internal/domain"
	"github.com/prn-tf/overflow-admin/internal/repository"
)

// contentRepository implements repository.ContentRepository.
type contentRepository struct {
	db *DB
}

// NewContentRepository creates a new PostgreSQL content repository.
func NewContentRepository(db *DB) repository.ContentRepository {
	return &contentRepository{db: db}
}

const contentColumns = `id, author_id, title, body, is_hidden, hide_reason, hidden_at, created_at, updated_at`

func contentTable(kind domain.ContentKind) (string, error) {
	table := kind.Table()
	if table == "" {
		return "", domain.NewDomainError(domain.ErrInvalidContentKind, fmt.Sprintf("unknown kind %q", kind), "")
	}
	return table, nil
}

// Create creates new content.
func (r *contentRepository) Create(ctx context.Context, content *domain.Content) error {
	table, err := contentTable(content.Kind)
	if err != nil {
		return err
	}
	if content.ID == "" {
		content.ID = uuid.NewString()
	}

	query := `INSERT INTO ` + table + ` (` + contentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.Pool.Exec(ctx, query,
		content.ID,
		content.AuthorID,
		content.Title,
		content.Body,
		content.IsHidden,
		content.HideReason,
		content.HiddenAt,
		content.CreatedAt,
		content.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.WithResource(domain.ErrUserNotFound, content.AuthorID)
		}
		return fmt.Errorf("failed to create %s: %w", content.Kind, err)
	}

	return nil
}

// GetByID retrieves content of the given kind.
func (r *contentRepository) GetByID(ctx context.Context, kind domain.ContentKind, id string) (*domain.Content, error) {
	table, err := contentTable(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + contentColumns + ` FROM ` + table + ` WHERE id = $1`

	content, err := scanContent(r.db.Pool.QueryRow(ctx, query, id), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.WithResource(domain.ErrContentNotFound, id)
		}
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}

	return content, nil
}

// UpdateVisibility writes the hide/unhide fields and returns the updated row.
func (r *contentRepository) UpdateVisibility(ctx context.Context, kind domain.ContentKind, id string, update domain.VisibilityUpdate) (*domain.Content, error) {
	table, err := contentTable(kind)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if update.HiddenAt != nil {
		now = *update.HiddenAt
	}

	query := `
		UPDATE ` + table + `
		SET is_hidden = $1, hide_reason = $2, hidden_at = $3, updated_at = $4
		WHERE id = $5
		RETURNING ` + contentColumns

	content, err := scanContent(r.db.Pool.QueryRow(ctx, query,
		update.Reason != nil,
		update.Reason,
		update.HiddenAt,
		now,
		id,
	), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.WithResource(domain.ErrContentNotFound, id)
		}
		return nil, fmt.Errorf("failed to update %s visibility: %w", kind, err)
	}

	return content, nil
}

func scanContent(row pgx.Row, kind domain.ContentKind) (*domain.Content, error) {
	content := &domain.Content{Kind: kind}

	err := row.Scan(
		&content.ID,
		&content.AuthorID,
		&content.Title,
		&content.Body,
		&content.IsHidden,
		&content.HideReason,
		&content.HiddenAt,
		&content.CreatedAt,
		&content.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return content, nil
}
