package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/overflow-admin/internal/domain"
	"github.com/prn-tf/overflow-admin/internal/repository"
)

// contentRepository implements repository.ContentRepository for SQLite.
// Questions, answers and replies share a column layout; the kind picks the table.
type contentRepository struct {
	db *DB
}

// NewContentRepository creates a new SQLite content repository.
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

	query := `INSERT INTO ` + table + ` (` + contentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		content.ID,
		content.AuthorID,
		content.Title,
		content.Body,
		boolToInt(content.IsHidden),
		nullString(content.HideReason),
		nullTime(content.HiddenAt),
		formatTime(content.CreatedAt),
		formatTime(content.UpdatedAt),
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

	query := `SELECT ` + contentColumns + ` FROM ` + table + ` WHERE id = ?`

	content, err := scanContent(r.db.QueryRowContext(ctx, query, id), kind)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.WithResource(domain.ErrContentNotFound, id)
		}
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}

	return content, nil
}

// UpdateVisibility writes the hide/unhide fields and returns the updated row.
// The write and the re-read share a transaction so the caller sees its own update.
func (r *contentRepository) UpdateVisibility(ctx context.Context, kind domain.ContentKind, id string, update domain.VisibilityUpdate) (*domain.Content, error) {
	table, err := contentTable(kind)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if update.HiddenAt != nil {
		now = *update.HiddenAt
	}

	var content *domain.Content
	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE ` + table + `
			SET is_hidden = ?, hide_reason = ?, hidden_at = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := tx.ExecContext(ctx, query,
			boolToInt(update.Reason != nil),
			nullString(update.Reason),
			nullTime(update.HiddenAt),
			formatTime(now),
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to update %s visibility: %w", kind, err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return domain.WithResource(domain.ErrContentNotFound, id)
		}

		query = `SELECT ` + contentColumns + ` FROM ` + table + ` WHERE id = ?`
		content, err = scanContent(tx.QueryRowContext(ctx, query, id), kind)
		if err != nil {
			return fmt.Errorf("failed to reload %s: %w", kind, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return content, nil
}

func scanContent(row rowScanner, kind domain.ContentKind) (*domain.Content, error) {
	content := &domain.Content{Kind: kind}
	var isHidden int
	var hideReason, hiddenAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&content.ID,
		&content.AuthorID,
		&content.Title,
		&content.Body,
		&isHidden,
		&hideReason,
		&hiddenAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	content.IsHidden = isHidden != 0
	content.HideReason = stringPtr(hideReason)
	content.HiddenAt = timePtr(hiddenAt)
	content.CreatedAt = parseTime(createdAt)
	content.UpdatedAt = parseTime(updatedAt)

	return content, nil
}
