package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/parts-inventory-api/internal/models"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
)

type stockStore interface {
	PartExists(ctx context.Context, partKey string) (bool, error)
	LocationExists(ctx context.Context, boxNo, locNo int) (bool, error)
	LockForUpdate(ctx context.Context, partKey string, boxNo, locNo int) (*models.StockEntry, error)
	Increment(ctx context.Context, partKey string, boxNo, locNo, qty int) (*models.StockEntry, error)
	SetQuantity(ctx context.Context, partKey string, boxNo, locNo, qty int) error
	Delete(ctx context.Context, partKey string, boxNo, locNo int) error
	AppendHistory(ctx context.Context, entry *models.QuantityHistory) error
	TotalQuantity(ctx context.Context, partKey string) (int, error)
	ListByPart(ctx context.Context, partKey string) ([]models.StockEntry, error)
	FirstFreeLocation(ctx context.Context, boxNo *int) (*models.LocationRef, error)
	History(ctx context.Context, partKey string, limit int) ([]models.QuantityHistory, error)
}

type stockMetrics interface {
	RecordStockMutation(operation string)
}

// StockService is the stock ledger. Every mutation runs in one transaction and never
// leaves a row at zero quantity.
type StockService struct {
	repo    stockStore
	tx      transactor
	metrics stockMetrics
	logger  *zap.Logger
}

// NewStockService constructs the ledger. metrics may be nil.
func NewStockService(repo stockStore, tx transactor, metrics stockMetrics, logger *zap.Logger) *StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockService{repo: repo, tx: tx, metrics: metrics, logger: logger}
}

// AddStock increments the quantity of the part at the location, creating the entry when needed.
func (s *StockService) AddStock(ctx context.Context, partKey string, boxNo, locNo, qty int) (*models.StockEntry, error) {
	if qty <= 0 {
		return nil, appErrors.InvalidOperation("add stock", "quantity must be positive")
	}

	var entry *models.StockEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.repo.PartExists(ctx, partKey)
		if err != nil {
			return appErrors.WrapInvalid(err, "add stock")
		}
		if !exists {
			return appErrors.NotFound("Part", partKey)
		}
		if err := s.requireLocation(ctx, boxNo, locNo, "add stock"); err != nil {
			return err
		}
		entry, err = s.repo.Increment(ctx, partKey, boxNo, locNo, qty)
		if err != nil {
			return appErrors.WrapInvalid(err, "add stock")
		}
		return s.appendHistory(ctx, partKey, boxNo, locNo, qty, models.StockOperationAdd)
	})
	if err != nil {
		return nil, err
	}

	s.recordMutation(models.StockOperationAdd)
	s.logger.Info("stock added",
		zap.String("part_key", partKey),
		zap.String("location", entry.Location().String()),
		zap.Int("quantity", qty),
		zap.Int("resulting_quantity", entry.Quantity),
	)
	return entry, nil
}

// RemoveStock decrements the quantity at the location. The entry is deleted when it
// reaches zero, in which case nil is returned.
func (s *StockService) RemoveStock(ctx context.Context, partKey string, boxNo, locNo, qty int) (*models.StockEntry, error) {
	if qty <= 0 {
		return nil, appErrors.InvalidOperation("remove stock", "quantity must be positive")
	}

	var remaining *models.StockEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		source, err := s.lockSource(ctx, partKey, boxNo, locNo, qty, "remove stock")
		if err != nil {
			return err
		}
		remaining, err = s.decrement(ctx, source, qty, "remove stock")
		if err != nil {
			return err
		}
		return s.appendHistory(ctx, partKey, boxNo, locNo, -qty, models.StockOperationRemove)
	})
	if err != nil {
		return nil, err
	}

	s.recordMutation(models.StockOperationRemove)
	s.logger.Info("stock removed",
		zap.String("part_key", partKey),
		zap.String("location", models.LocationRef{BoxNo: boxNo, LocNo: locNo}.String()),
		zap.Int("quantity", qty),
		zap.Bool("entry_deleted", remaining == nil),
	)
	return remaining, nil
}

// MoveStock transfers qty of a part between two locations. Both ends are validated before
// either is touched. Moving onto the same location is validated and then changes nothing.
func (s *StockService) MoveStock(ctx context.Context, partKey string, srcBox, srcLoc, dstBox, dstLoc, qty int) (*models.MoveResult, error) {
	if qty <= 0 {
		return nil, appErrors.InvalidOperation("move stock", "quantity must be positive")
	}

	sameLocation := srcBox == dstBox && srcLoc == dstLoc
	result := &models.MoveResult{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		source, err := s.lockSource(ctx, partKey, srcBox, srcLoc, qty, "move stock")
		if err != nil {
			return err
		}
		if err := s.requireLocation(ctx, dstBox, dstLoc, "move stock"); err != nil {
			return err
		}
		if sameLocation {
			result.Source = source
			result.Destination = source
			return nil
		}

		result.Source, err = s.decrement(ctx, source, qty, "move stock")
		if err != nil {
			return err
		}
		result.Destination, err = s.repo.Increment(ctx, partKey, dstBox, dstLoc, qty)
		if err != nil {
			return appErrors.WrapInvalid(err, "move stock")
		}
		if err := s.appendHistory(ctx, partKey, srcBox, srcLoc, -qty, models.StockOperationMove); err != nil {
			return err
		}
		return s.appendHistory(ctx, partKey, dstBox, dstLoc, qty, models.StockOperationMove)
	})
	if err != nil {
		return nil, err
	}

	if !sameLocation {
		s.recordMutation(models.StockOperationMove)
	}
	s.logger.Info("stock moved",
		zap.String("part_key", partKey),
		zap.String("from", models.LocationRef{BoxNo: srcBox, LocNo: srcLoc}.String()),
		zap.String("to", models.LocationRef{BoxNo: dstBox, LocNo: dstLoc}.String()),
		zap.Int("quantity", qty),
	)
	return result, nil
}

// TotalQuantity sums the part's stock. Unknown parts have zero.
func (s *StockService) TotalQuantity(ctx context.Context, partKey string) (int, error) {
	total, err := s.repo.TotalQuantity(ctx, partKey)
	if err != nil {
		return 0, appErrors.WrapInvalid(err, "read total quantity")
	}
	return total, nil
}

// LocationsFor lists the part's entries ordered by box then location.
func (s *StockService) LocationsFor(ctx context.Context, partKey string) ([]models.StockEntry, error) {
	entries, err := s.repo.ListByPart(ctx, partKey)
	if err != nil {
		return nil, appErrors.WrapInvalid(err, "list part locations")
	}
	return entries, nil
}

// PartStock combines LocationsFor with the total.
func (s *StockService) PartStock(ctx context.Context, partKey string) (*models.PartStock, error) {
	entries, err := s.LocationsFor(ctx, partKey)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, entry := range entries {
		total += entry.Quantity
	}
	return &models.PartStock{PartKey: partKey, Total: total, Locations: entries}, nil
}

// SuggestLocation returns the lowest unoccupied location, preferring preferredBox when it
// still has room. It returns nil when every location is occupied.
func (s *StockService) SuggestLocation(ctx context.Context, preferredBox *int) (*models.LocationRef, error) {
	if preferredBox != nil {
		ref, err := s.repo.FirstFreeLocation(ctx, preferredBox)
		if err != nil {
			return nil, appErrors.WrapInvalid(err, "suggest location")
		}
		if ref != nil {
			return ref, nil
		}
	}
	ref, err := s.repo.FirstFreeLocation(ctx, nil)
	if err != nil {
		return nil, appErrors.WrapInvalid(err, "suggest location")
	}
	return ref, nil
}

// History returns the part's quantity changes, newest first.
func (s *StockService) History(ctx context.Context, partKey string, limit int) ([]models.QuantityHistory, error) {
	entries, err := s.repo.History(ctx, partKey, limit)
	if err != nil {
		return nil, appErrors.WrapInvalid(err, "read quantity history")
	}
	return entries, nil
}

func (s *StockService) requireLocation(ctx context.Context, boxNo, locNo int, action string) error {
	exists, err := s.repo.LocationExists(ctx, boxNo, locNo)
	if err != nil {
		return appErrors.WrapInvalid(err, action)
	}
	if !exists {
		return appErrors.NotFound("Location", models.LocationRef{BoxNo: boxNo, LocNo: locNo}.String())
	}
	return nil
}

// lockSource loads and locks the entry being drawn from and checks it holds at least qty.
func (s *StockService) lockSource(ctx context.Context, partKey string, boxNo, locNo, qty int, action string) (*models.StockEntry, error) {
	loc := models.LocationRef{BoxNo: boxNo, LocNo: locNo}.String()
	entry, err := s.repo.LockForUpdate(ctx, partKey, boxNo, locNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Part location", fmt.Sprintf("%s at %s", partKey, loc))
		}
		return nil, appErrors.WrapInvalid(err, action)
	}
	if qty > entry.Quantity {
		return nil, appErrors.InsufficientQuantity(qty, entry.Quantity, loc)
	}
	return entry, nil
}

// decrement lowers the locked entry by qty, deleting it at zero.
func (s *StockService) decrement(ctx context.Context, entry *models.StockEntry, qty int, action string) (*models.StockEntry, error) {
	left := entry.Quantity - qty
	if left == 0 {
		if err := s.repo.Delete(ctx, entry.PartKey, entry.BoxNo, entry.LocNo); err != nil {
			return nil, appErrors.WrapInvalid(err, action)
		}
		return nil, nil
	}
	if err := s.repo.SetQuantity(ctx, entry.PartKey, entry.BoxNo, entry.LocNo, left); err != nil {
		return nil, appErrors.WrapInvalid(err, action)
	}
	updated := *entry
	updated.Quantity = left
	return &updated, nil
}

func (s *StockService) appendHistory(ctx context.Context, partKey string, boxNo, locNo, delta int, op models.StockOperation) error {
	err := s.repo.AppendHistory(ctx, &models.QuantityHistory{
		PartKey:   partKey,
		BoxNo:     boxNo,
		LocNo:     locNo,
		Delta:     delta,
		Operation: op,
	})
	if err != nil {
		return appErrors.WrapInvalid(err, "record quantity history")
	}
	return nil
}

func (s *StockService) recordMutation(op models.StockOperation) {
	if s.metrics != nil {
		s.metrics.RecordStockMutation(string(op))
	}
}
