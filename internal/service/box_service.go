package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/parts-inventory-api/internal/dto"
	"github.com/noah-isme/parts-inventory-api/internal/models"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
)

type boxStore interface {
	Create(ctx context.Context, box *models.Box) error
	AddLocations(ctx context.Context, boxNo, from, to int) error
	RemoveLocations(ctx context.Context, boxNo, from, to int) error
	GetByNo(ctx context.Context, boxNo int) (*models.Box, error)
	LockByNo(ctx context.Context, boxNo int) (*models.Box, error)
	List(ctx context.Context) ([]models.BoxSummary, error)
	Update(ctx context.Context, box *models.Box) error
	Delete(ctx context.Context, boxNo int) error
	CountStockFrom(ctx context.Context, boxNo, fromLoc int) (int, error)
}

type boxContentsLister interface {
	ListByBox(ctx context.Context, boxNo int) ([]models.StockEntry, error)
}

// BoxService maintains boxes and their contiguous location grid.
type BoxService struct {
	repo      boxStore
	stock     boxContentsLister
	tx        transactor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBoxService constructs the service.
func NewBoxService(repo boxStore, stock boxContentsLister, tx transactor, validate *validator.Validate, logger *zap.Logger) *BoxService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoxService{repo: repo, stock: stock, tx: tx, validator: validate, logger: logger}
}

// Create allocates the next box number and locations 1..capacity.
func (s *BoxService) Create(ctx context.Context, req dto.CreateBoxRequest) (*models.Box, error) {
	if req.Capacity <= 0 {
		return nil, appErrors.InvalidOperation("create box", "capacity must be positive")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "create box")
	}

	box := &models.Box{Description: req.Description, Capacity: req.Capacity}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, box); err != nil {
			return appErrors.WrapInvalid(err, "create box")
		}
		if err := s.repo.AddLocations(ctx, box.BoxNo, 1, box.Capacity); err != nil {
			return appErrors.WrapInvalid(err, "create box")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("box created", zap.Int("box_no", box.BoxNo), zap.Int("capacity", box.Capacity))
	return box, nil
}

// Resize updates the description and grows or shrinks the location grid from the end.
// Shrinking fails while any removed location still holds stock.
func (s *BoxService) Resize(ctx context.Context, boxNo int, req dto.UpdateBoxRequest) (*models.Box, error) {
	if req.Capacity <= 0 {
		return nil, appErrors.InvalidOperation("resize box", "capacity must be positive")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "resize box")
	}

	var box *models.Box
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		box, err = s.repo.LockByNo(ctx, boxNo)
		if err != nil {
			return s.lookupError(err, boxNo, "resize box")
		}

		oldCapacity := box.Capacity
		switch {
		case req.Capacity > oldCapacity:
			if err := s.repo.AddLocations(ctx, boxNo, oldCapacity+1, req.Capacity); err != nil {
				return appErrors.WrapInvalid(err, "resize box")
			}
		case req.Capacity < oldCapacity:
			occupied, err := s.repo.CountStockFrom(ctx, boxNo, req.Capacity+1)
			if err != nil {
				return appErrors.WrapInvalid(err, "resize box")
			}
			if occupied > 0 {
				return appErrors.InvalidOperation("resize box",
					fmt.Sprintf("locations %d-%d to %d-%d contain parts, which must be moved or removed first", boxNo, req.Capacity+1, boxNo, oldCapacity))
			}
			if err := s.repo.RemoveLocations(ctx, boxNo, req.Capacity+1, oldCapacity); err != nil {
				return appErrors.WrapInvalid(err, "resize box")
			}
		}

		box.Capacity = req.Capacity
		box.Description = req.Description
		if err := s.repo.Update(ctx, box); err != nil {
			return appErrors.WrapInvalid(err, "resize box")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("box resized", zap.Int("box_no", boxNo), zap.Int("capacity", box.Capacity))
	return box, nil
}

// Delete removes an empty box together with its locations.
func (s *BoxService) Delete(ctx context.Context, boxNo int) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockByNo(ctx, boxNo); err != nil {
			return s.lookupError(err, boxNo, "delete box")
		}
		occupied, err := s.repo.CountStockFrom(ctx, boxNo, 1)
		if err != nil {
			return appErrors.WrapInvalid(err, "delete box")
		}
		if occupied > 0 {
			return appErrors.InvalidOperation("delete box",
				fmt.Sprintf("Box %d contains parts, which must be moved or removed first", boxNo))
		}
		if err := s.repo.Delete(ctx, boxNo); err != nil {
			return s.lookupError(err, boxNo, "delete box")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("box deleted", zap.Int("box_no", boxNo))
	return nil
}

// Get returns one box.
func (s *BoxService) Get(ctx context.Context, boxNo int) (*models.Box, error) {
	box, err := s.repo.GetByNo(ctx, boxNo)
	if err != nil {
		return nil, s.lookupError(err, boxNo, "load box")
	}
	return box, nil
}

// List returns all boxes with occupancy.
func (s *BoxService) List(ctx context.Context) ([]models.BoxSummary, error) {
	boxes, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.WrapInvalid(err, "list boxes")
	}
	return boxes, nil
}

// Contents lists the stock stored in a box ordered by location.
func (s *BoxService) Contents(ctx context.Context, boxNo int) ([]models.StockEntry, error) {
	if _, err := s.Get(ctx, boxNo); err != nil {
		return nil, err
	}
	entries, err := s.stock.ListByBox(ctx, boxNo)
	if err != nil {
		return nil, appErrors.WrapInvalid(err, "list box contents")
	}
	return entries, nil
}

func (s *BoxService) lookupError(err error, boxNo int, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NotFound("Box", strconv.Itoa(boxNo))
	}
	return appErrors.WrapInvalid(err, action)
}
