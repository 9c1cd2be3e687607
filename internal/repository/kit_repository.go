package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/parts-inventory-api/internal/models"
	"github.com/noah-isme/parts-inventory-api/pkg/database"
)

// KitRepository persists kits.
type KitRepository struct {
	db *sqlx.DB
}

// NewKitRepository constructs the repository.
func NewKitRepository(db *sqlx.DB) *KitRepository {
	return &KitRepository{db: db}
}

// Create inserts a kit row.
func (r *KitRepository) Create(ctx context.Context, kit *models.Kit) error {
	if kit.ID == "" {
		kit.ID = uuid.NewString()
	}
	if kit.CreatedAt.IsZero() {
		kit.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO kits (id, name, description, attachment_set_id, created_at)
	VALUES (:id, :name, :description, :attachment_set_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), query, kit); err != nil {
		return fmt.Errorf("create kit: %w", err)
	}
	return nil
}

// GetByID returns the kit or sql.ErrNoRows.
func (r *KitRepository) GetByID(ctx context.Context, id string) (*models.Kit, error) {
	const query = `SELECT id, name, description, attachment_set_id, created_at FROM kits WHERE id = $1`
	var kit models.Kit
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &kit, query, id); err != nil {
		return nil, err
	}
	return &kit, nil
}

// List returns kits ordered by name.
func (r *KitRepository) List(ctx context.Context) ([]models.Kit, error) {
	const query = `SELECT id, name, description, attachment_set_id, created_at FROM kits ORDER BY name, id`
	kits := make([]models.Kit, 0)
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &kits, query); err != nil {
		return nil, fmt.Errorf("list kits: %w", err)
	}
	return kits, nil
}

// Delete removes the kit row.
func (r *KitRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM kits WHERE id = $1`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete kit %s: %w", id, err)
	}
	return expectAffected(res, "delete kit")
}
