package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/parts-inventory-api/internal/models"
	"github.com/noah-isme/parts-inventory-api/pkg/database"
)

const stockColumns = `part_key, box_no, loc_no, quantity, updated_at`

// StockRepository persists stock entries and quantity history.
type StockRepository struct {
	db *sqlx.DB
}

// NewStockRepository constructs the repository.
func NewStockRepository(db *sqlx.DB) *StockRepository {
	return &StockRepository{db: db}
}

// PartExists reports whether a part with the key is registered.
func (r *StockRepository) PartExists(ctx context.Context, partKey string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM parts WHERE key = $1)`
	var exists bool
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &exists, query, partKey); err != nil {
		return false, fmt.Errorf("check part %s: %w", partKey, err)
	}
	return exists, nil
}

// LocationExists reports whether the box has the location.
func (r *StockRepository) LocationExists(ctx context.Context, boxNo, locNo int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM locations WHERE box_no = $1 AND loc_no = $2)`
	var exists bool
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &exists, query, boxNo, locNo); err != nil {
		return false, fmt.Errorf("check location %d-%d: %w", boxNo, locNo, err)
	}
	return exists, nil
}

// Get returns the entry or sql.ErrNoRows.
func (r *StockRepository) Get(ctx context.Context, partKey string, boxNo, locNo int) (*models.StockEntry, error) {
	const query = `SELECT ` + stockColumns + ` FROM stock_entries WHERE part_key = $1 AND box_no = $2 AND loc_no = $3`
	var entry models.StockEntry
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &entry, query, partKey, boxNo, locNo); err != nil {
		return nil, err
	}
	return &entry, nil
}

// LockForUpdate reads the entry holding a row lock until the surrounding transaction ends.
func (r *StockRepository) LockForUpdate(ctx context.Context, partKey string, boxNo, locNo int) (*models.StockEntry, error) {
	const query = `SELECT ` + stockColumns + ` FROM stock_entries WHERE part_key = $1 AND box_no = $2 AND loc_no = $3 FOR UPDATE`
	var entry models.StockEntry
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &entry, query, partKey, boxNo, locNo); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Increment adds qty to the entry, creating it when absent, and returns the new row.
func (r *StockRepository) Increment(ctx context.Context, partKey string, boxNo, locNo, qty int) (*models.StockEntry, error) {
	const query = `INSERT INTO stock_entries (part_key, box_no, loc_no, quantity, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (part_key, box_no, loc_no)
	DO UPDATE SET quantity = stock_entries.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	RETURNING ` + stockColumns
	var entry models.StockEntry
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &entry, query, partKey, boxNo, locNo, qty, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("increment stock %s at %d-%d: %w", partKey, boxNo, locNo, err)
	}
	return &entry, nil
}

// SetQuantity overwrites the quantity of an existing entry.
func (r *StockRepository) SetQuantity(ctx context.Context, partKey string, boxNo, locNo, qty int) error {
	const query = `UPDATE stock_entries SET quantity = $4, updated_at = $5 WHERE part_key = $1 AND box_no = $2 AND loc_no = $3`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, partKey, boxNo, locNo, qty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update stock %s at %d-%d: %w", partKey, boxNo, locNo, err)
	}
	return expectAffected(res, "update stock")
}

// Delete removes the entry.
func (r *StockRepository) Delete(ctx context.Context, partKey string, boxNo, locNo int) error {
	const query = `DELETE FROM stock_entries WHERE part_key = $1 AND box_no = $2 AND loc_no = $3`
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, partKey, boxNo, locNo)
	if err != nil {
		return fmt.Errorf("delete stock %s at %d-%d: %w", partKey, boxNo, locNo, err)
	}
	return expectAffected(res, "delete stock")
}

// AppendHistory records one signed change.
func (r *StockRepository) AppendHistory(ctx context.Context, entry *models.QuantityHistory) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO quantity_history (part_key, box_no, loc_no, delta, operation, created_at)
	VALUES (:part_key, :box_no, :loc_no, :delta, :operation, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), query, entry); err != nil {
		return fmt.Errorf("append quantity history: %w", err)
	}
	return nil
}

// TotalQuantity sums the part's quantity over all locations; zero when it has none.
func (r *StockRepository) TotalQuantity(ctx context.Context, partKey string) (int, error) {
	const query = `SELECT COALESCE(SUM(quantity), 0) FROM stock_entries WHERE part_key = $1`
	var total int
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &total, query, partKey); err != nil {
		return 0, fmt.Errorf("sum stock for %s: %w", partKey, err)
	}
	return total, nil
}

// ListByPart returns the part's entries ordered by box then location.
func (r *StockRepository) ListByPart(ctx context.Context, partKey string) ([]models.StockEntry, error) {
	const query = `SELECT ` + stockColumns + ` FROM stock_entries WHERE part_key = $1 ORDER BY box_no, loc_no`
	entries := make([]models.StockEntry, 0)
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &entries, query, partKey); err != nil {
		return nil, fmt.Errorf("list stock for %s: %w", partKey, err)
	}
	return entries, nil
}

// ListByBox returns every entry stored in the box ordered by location then part key.
func (r *StockRepository) ListByBox(ctx context.Context, boxNo int) ([]models.StockEntry, error) {
	const query = `SELECT ` + stockColumns + ` FROM stock_entries WHERE box_no = $1 ORDER BY loc_no, part_key`
	entries := make([]models.StockEntry, 0)
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &entries, query, boxNo); err != nil {
		return nil, fmt.Errorf("list stock in box %d: %w", boxNo, err)
	}
	return entries, nil
}

// FirstFreeLocation returns the lowest location holding no stock, optionally restricted
// to one box. It returns nil when every candidate location is occupied.
func (r *StockRepository) FirstFreeLocation(ctx context.Context, boxNo *int) (*models.LocationRef, error) {
	query := `SELECT l.box_no, l.loc_no FROM locations l
	WHERE NOT EXISTS (SELECT 1 FROM stock_entries s WHERE s.box_no = l.box_no AND s.loc_no = l.loc_no)`
	args := make([]interface{}, 0, 1)
	if boxNo != nil {
		args = append(args, *boxNo)
		query += ` AND l.box_no = $1`
	}
	query += ` ORDER BY l.box_no, l.loc_no LIMIT 1`

	var ref models.LocationRef
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &ref, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find free location: %w", err)
	}
	return &ref, nil
}

// History returns the part's quantity history, newest first.
func (r *StockRepository) History(ctx context.Context, partKey string, limit int) ([]models.QuantityHistory, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const query = `SELECT id, part_key, box_no, loc_no, delta, operation, created_at
	FROM quantity_history WHERE part_key = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	entries := make([]models.QuantityHistory, 0)
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &entries, query, partKey, limit); err != nil {
		return nil, fmt.Errorf("list history for %s: %w", partKey, err)
	}
	return entries, nil
}
