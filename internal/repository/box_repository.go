package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/parts-inventory-api/internal/models"
	"github.com/noah-isme/parts-inventory-api/pkg/database"
)

// BoxRepository persists boxes and their location grid.
type BoxRepository struct {
	db *sqlx.DB
}

// NewBoxRepository constructs the repository.
func NewBoxRepository(db *sqlx.DB) *BoxRepository {
	return &BoxRepository{db: db}
}

// Create inserts the box row and lets Postgres allocate the box number.
func (r *BoxRepository) Create(ctx context.Context, box *models.Box) error {
	now := time.Now().UTC()
	if box.CreatedAt.IsZero() {
		box.CreatedAt = now
	}
	box.UpdatedAt = now
	const query = `INSERT INTO boxes (description, capacity, created_at, updated_at)
	VALUES ($1, $2, $3, $4) RETURNING box_no`
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &box.BoxNo, query, box.Description, box.Capacity, box.CreatedAt, box.UpdatedAt); err != nil {
		return fmt.Errorf("create box: %w", err)
	}
	return nil
}

// AddLocations inserts locations from..to (inclusive) for the box.
func (r *BoxRepository) AddLocations(ctx context.Context, boxNo, from, to int) error {
	if from > to {
		return nil
	}
	const query = `INSERT INTO locations (box_no, loc_no)
	SELECT $1, gs FROM generate_series($2::int, $3::int) AS gs`
	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, boxNo, from, to); err != nil {
		return fmt.Errorf("add locations to box %d: %w", boxNo, err)
	}
	return nil
}

// RemoveLocations deletes locations from..to (inclusive) of the box.
func (r *BoxRepository) RemoveLocations(ctx context.Context, boxNo, from, to int) error {
	if from > to {
		return nil
	}
	const query = `DELETE FROM locations WHERE box_no = $1 AND loc_no BETWEEN $2 AND $3`
	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, boxNo, from, to); err != nil {
		return fmt.Errorf("remove locations from box %d: %w", boxNo, err)
	}
	return nil
}

// GetByNo returns the box or sql.ErrNoRows.
func (r *BoxRepository) GetByNo(ctx context.Context, boxNo int) (*models.Box, error) {
	const query = `SELECT box_no, description, capacity, created_at, updated_at FROM boxes WHERE box_no = $1`
	var box models.Box
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &box, query, boxNo); err != nil {
		return nil, err
	}
	return &box, nil
}

// LockByNo reads the box with a row lock, serialising concurrent resizes and deletes.
func (r *BoxRepository) LockByNo(ctx context.Context, boxNo int) (*models.Box, error) {
	const query = `SELECT box_no, description, capacity, created_at, updated_at FROM boxes WHERE box_no = $1 FOR UPDATE`
	var box models.Box
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &box, query, boxNo); err != nil {
		return nil, err
	}
	return &box, nil
}

// List returns every box with its occupied location count.
func (r *BoxRepository) List(ctx context.Context) ([]models.BoxSummary, error) {
	const query = `SELECT b.box_no, b.description, b.capacity, b.created_at, b.updated_at,
       COUNT(DISTINCT s.loc_no) AS occupied_locations
	FROM boxes b
	LEFT JOIN stock_entries s ON s.box_no = b.box_no
	GROUP BY b.box_no
	ORDER BY b.box_no`
	var boxes []models.BoxSummary
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &boxes, query); err != nil {
		return nil, fmt.Errorf("list boxes: %w", err)
	}
	return boxes, nil
}

// Update stores description and capacity.
func (r *BoxRepository) Update(ctx context.Context, box *models.Box) error {
	box.UpdatedAt = time.Now().UTC()
	const query = `UPDATE boxes SET description = $2, capacity = $3, updated_at = $4 WHERE box_no = $1`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, box.BoxNo, box.Description, box.Capacity, box.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update box %d: %w", box.BoxNo, err)
	}
	return expectAffected(res, "update box")
}

// Delete removes the box; its locations cascade.
func (r *BoxRepository) Delete(ctx context.Context, boxNo int) error {
	const query = `DELETE FROM boxes WHERE box_no = $1`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, boxNo)
	if err != nil {
		return fmt.Errorf("delete box %d: %w", boxNo, err)
	}
	return expectAffected(res, "delete box")
}

// CountStockFrom counts stock rows in the box at locations >= fromLoc.
func (r *BoxRepository) CountStockFrom(ctx context.Context, boxNo, fromLoc int) (int, error) {
	const query = `SELECT COUNT(*) FROM stock_entries WHERE box_no = $1 AND loc_no >= $2`
	var count int
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &count, query, boxNo, fromLoc); err != nil {
		return 0, fmt.Errorf("count stock in box %d: %w", boxNo, err)
	}
	return count, nil
}

func expectAffected(res sql.Result, action string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", action, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
