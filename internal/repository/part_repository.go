package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/parts-inventory-api/internal/models"
	"github.com/noah-isme/parts-inventory-api/pkg/database"
)

const partColumns = `id, key, name, description, manufacturer, part_type, tags, attachment_set_id, created_at, updated_at`

// PartRepository persists parts.
type PartRepository struct {
	db *sqlx.DB
}

// NewPartRepository constructs the repository.
func NewPartRepository(db *sqlx.DB) *PartRepository {
	return &PartRepository{db: db}
}

// KeyExists reports whether the key is taken.
func (r *PartRepository) KeyExists(ctx context.Context, key string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM parts WHERE key = $1)`
	var exists bool
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &exists, query, key); err != nil {
		return false, fmt.Errorf("check part key %s: %w", key, err)
	}
	return exists, nil
}

// Create inserts a part row.
func (r *PartRepository) Create(ctx context.Context, part *models.Part) error {
	if part.ID == "" {
		part.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if part.CreatedAt.IsZero() {
		part.CreatedAt = now
	}
	part.UpdatedAt = now
	if part.Tags == nil {
		part.Tags = []string{}
	}
	const query = `INSERT INTO parts (` + partColumns + `)
	VALUES (:id, :key, :name, :description, :manufacturer, :part_type, :tags, :attachment_set_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), query, part); err != nil {
		return fmt.Errorf("create part: %w", err)
	}
	return nil
}

// GetByKey returns the part or sql.ErrNoRows.
func (r *PartRepository) GetByKey(ctx context.Context, key string) (*models.Part, error) {
	const query = `SELECT ` + partColumns + ` FROM parts WHERE key = $1`
	var part models.Part
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &part, query, key); err != nil {
		return nil, err
	}
	return &part, nil
}

// List returns parts matching the filter ordered by key.
func (r *PartRepository) List(ctx context.Context, filter models.PartFilter) ([]models.Part, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + partColumns + ` FROM parts`)
	args := make([]interface{}, 0, 3)
	conditions := make([]string, 0, 3)

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR key ILIKE $%d OR description ILIKE $%d)", len(args), len(args), len(args)))
	}
	if filter.PartType != "" {
		args = append(args, filter.PartType)
		conditions = append(conditions, fmt.Sprintf("part_type = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY key")

	parts := make([]models.Part, 0)
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &parts, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	return parts, nil
}

// Update stores the editable fields.
func (r *PartRepository) Update(ctx context.Context, part *models.Part) error {
	part.UpdatedAt = time.Now().UTC()
	if part.Tags == nil {
		part.Tags = []string{}
	}
	const query = `UPDATE parts SET name = :name, description = :description, manufacturer = :manufacturer,
	part_type = :part_type, tags = :tags, updated_at = :updated_at WHERE key = :key`
	res, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), query, part)
	if err != nil {
		return fmt.Errorf("update part %s: %w", part.Key, err)
	}
	return expectAffected(res, "update part")
}

// Delete removes the part; its stock entries cascade.
func (r *PartRepository) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM parts WHERE key = $1`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete part %s: %w", key, err)
	}
	return expectAffected(res, "delete part")
}
