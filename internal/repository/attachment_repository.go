package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/parts-inventory-api/internal/models"
	"github.com/noah-isme/parts-inventory-api/pkg/database"
)

const attachmentColumns = `id, set_id, type, title, storage_key, filename, content_type, size_bytes, url, created_at`

// AttachmentRepository persists attachment sets and their attachments.
type AttachmentRepository struct {
	db *sqlx.DB
}

// NewAttachmentRepository constructs the repository.
func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// CreateSet inserts an empty set.
func (r *AttachmentRepository) CreateSet(ctx context.Context, set *models.AttachmentSet) error {
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attachment_sets (id, cover_attachment_id, created_at) VALUES ($1, $2, $3)`
	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, set.ID, set.CoverAttachmentID, set.CreatedAt); err != nil {
		return fmt.Errorf("create attachment set: %w", err)
	}
	return nil
}

// GetSet returns the set or sql.ErrNoRows.
func (r *AttachmentRepository) GetSet(ctx context.Context, id string) (*models.AttachmentSet, error) {
	const query = `SELECT id, cover_attachment_id, created_at FROM attachment_sets WHERE id = $1`
	var set models.AttachmentSet
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &set, query, id); err != nil {
		return nil, err
	}
	return &set, nil
}

// LockSet reads the set with a row lock so cover decisions are serialised per set.
func (r *AttachmentRepository) LockSet(ctx context.Context, id string) (*models.AttachmentSet, error) {
	const query = `SELECT id, cover_attachment_id, created_at FROM attachment_sets WHERE id = $1 FOR UPDATE`
	var set models.AttachmentSet
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &set, query, id); err != nil {
		return nil, err
	}
	return &set, nil
}

// SetCover points the set's cover at attachmentID, or clears it when nil.
func (r *AttachmentRepository) SetCover(ctx context.Context, setID string, attachmentID *string) error {
	const query = `UPDATE attachment_sets SET cover_attachment_id = $2 WHERE id = $1`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, setID, attachmentID)
	if err != nil {
		return fmt.Errorf("set cover of %s: %w", setID, err)
	}
	return expectAffected(res, "set cover")
}

// DeleteSet removes the set; its attachments cascade.
func (r *AttachmentRepository) DeleteSet(ctx context.Context, id string) error {
	const query = `DELETE FROM attachment_sets WHERE id = $1`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete attachment set %s: %w", id, err)
	}
	return expectAffected(res, "delete attachment set")
}

// Create inserts an attachment row.
func (r *AttachmentRepository) Create(ctx context.Context, att *models.Attachment) error {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attachments (` + attachmentColumns + `)
	VALUES (:id, :set_id, :type, :title, :storage_key, :filename, :content_type, :size_bytes, :url, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), query, att); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// GetByID returns the attachment or sql.ErrNoRows.
func (r *AttachmentRepository) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	const query = `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = $1`
	var att models.Attachment
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &att, query, id); err != nil {
		return nil, err
	}
	return &att, nil
}

// ListBySet returns the set's attachments in creation order.
func (r *AttachmentRepository) ListBySet(ctx context.Context, setID string) ([]models.Attachment, error) {
	const query = `SELECT ` + attachmentColumns + ` FROM attachments WHERE set_id = $1 ORDER BY created_at, id`
	items := make([]models.Attachment, 0)
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &items, query, setID); err != nil {
		return nil, fmt.Errorf("list attachments of %s: %w", setID, err)
	}
	return items, nil
}

// FirstImage returns the earliest IMAGE attachment of the set, or nil when there is none.
func (r *AttachmentRepository) FirstImage(ctx context.Context, setID string) (*models.Attachment, error) {
	const query = `SELECT ` + attachmentColumns + ` FROM attachments
	WHERE set_id = $1 AND type = 'IMAGE' ORDER BY created_at, id LIMIT 1`
	var att models.Attachment
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &att, query, setID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find first image of %s: %w", setID, err)
	}
	return &att, nil
}

// UpdateTitle renames an attachment.
func (r *AttachmentRepository) UpdateTitle(ctx context.Context, id, title string) error {
	const query = `UPDATE attachments SET title = $2 WHERE id = $1`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, id, title)
	if err != nil {
		return fmt.Errorf("update attachment title %s: %w", id, err)
	}
	return expectAffected(res, "update attachment title")
}

// Delete removes an attachment row. Stored content is left untouched.
func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM attachments WHERE id = $1`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete attachment %s: %w", id, err)
	}
	return expectAffected(res, "delete attachment")
}
