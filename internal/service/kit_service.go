package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/parts-inventory-api/internal/dto"
	"github.com/noah-isme/parts-inventory-api/internal/models"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
)

type kitStore interface {
	Create(ctx context.Context, kit *models.Kit) error
	GetByID(ctx context.Context, id string) (*models.Kit, error)
	List(ctx context.Context) ([]models.Kit, error)
	Delete(ctx context.Context, id string) error
}

// KitService manages kits. Each kit owns one attachment set.
type KitService struct {
	repo        kitStore
	attachments attachmentSetOwner
	tx          transactor
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewKitService constructs the service.
func NewKitService(repo kitStore, attachments attachmentSetOwner, tx transactor, validate *validator.Validate, logger *zap.Logger) *KitService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KitService{repo: repo, attachments: attachments, tx: tx, validator: validate, logger: logger}
}

// Create registers a kit and its attachment set atomically.
func (s *KitService) Create(ctx context.Context, req dto.CreateKitRequest) (*models.Kit, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "create kit")
	}
	kit := &models.Kit{Name: req.Name, Description: req.Description}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		set, err := s.attachments.CreateSet(ctx)
		if err != nil {
			return err
		}
		kit.AttachmentSetID = set.ID
		if err := s.repo.Create(ctx, kit); err != nil {
			return appErrors.WrapInvalid(err, "create kit")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("kit created", zap.String("kit_id", kit.ID))
	return kit, nil
}

// Get returns a kit by id.
func (s *KitService) Get(ctx context.Context, id string) (*models.Kit, error) {
	kit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Kit", id)
		}
		return nil, appErrors.WrapInvalid(err, "load kit")
	}
	return kit, nil
}

// List returns all kits.
func (s *KitService) List(ctx context.Context) ([]models.Kit, error) {
	kits, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.WrapInvalid(err, "list kits")
	}
	return kits, nil
}

// Delete removes the kit and its attachment set.
func (s *KitService) Delete(ctx context.Context, id string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		kit, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, kit.ID); err != nil {
			return appErrors.WrapInvalid(err, "delete kit")
		}
		return s.attachments.DeleteSet(ctx, kit.AttachmentSetID)
	})
}
