package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/parts-inventory-api/internal/dto"
	"github.com/noah-isme/parts-inventory-api/internal/models"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
)

const (
	partKeyAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	defaultPartKeyLen  = 4
	partKeyMaxAttempts = 10
)

type partStore interface {
	KeyExists(ctx context.Context, key string) (bool, error)
	Create(ctx context.Context, part *models.Part) error
	GetByKey(ctx context.Context, key string) (*models.Part, error)
	List(ctx context.Context, filter models.PartFilter) ([]models.Part, error)
	Update(ctx context.Context, part *models.Part) error
	Delete(ctx context.Context, key string) error
}

type attachmentSetOwner interface {
	CreateSet(ctx context.Context) (*models.AttachmentSet, error)
	DeleteSet(ctx context.Context, setID string) error
}

// PartServiceConfig tunes key generation.
type PartServiceConfig struct {
	KeyLength int
}

// PartService manages parts and their owned attachment sets.
type PartService struct {
	repo        partStore
	attachments attachmentSetOwner
	tx          transactor
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         PartServiceConfig
	newKey      func(length int) (string, error)
}

// NewPartService constructs the service.
func NewPartService(repo partStore, attachments attachmentSetOwner, tx transactor, validate *validator.Validate, logger *zap.Logger, cfg PartServiceConfig) *PartService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.KeyLength <= 0 {
		cfg.KeyLength = defaultPartKeyLen
	}
	return &PartService{
		repo:        repo,
		attachments: attachments,
		tx:          tx,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		newKey:      randomPartKey,
	}
}

// Create registers a part under a fresh key together with its attachment set.
func (s *PartService) Create(ctx context.Context, req dto.CreatePartRequest) (*models.Part, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "create part")
	}

	part := &models.Part{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Manufacturer: req.Manufacturer,
		PartType:     req.PartType,
		Tags:         normalizeTags(req.Tags),
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		key, err := s.allocateKey(ctx)
		if err != nil {
			return err
		}
		part.Key = key

		set, err := s.attachments.CreateSet(ctx)
		if err != nil {
			return err
		}
		part.AttachmentSetID = set.ID
		if err := s.repo.Create(ctx, part); err != nil {
			return appErrors.WrapInvalid(err, "create part")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("part created", zap.String("part_key", part.Key), zap.String("name", part.Name))
	return part, nil
}

// Get returns a part by key.
func (s *PartService) Get(ctx context.Context, key string) (*models.Part, error) {
	part, err := s.repo.GetByKey(ctx, strings.ToUpper(key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Part", key)
		}
		return nil, appErrors.WrapInvalid(err, "load part")
	}
	return part, nil
}

// List returns parts matching the query.
func (s *PartService) List(ctx context.Context, query dto.PartQuery) ([]models.Part, error) {
	parts, err := s.repo.List(ctx, models.PartFilter{
		Search:   strings.TrimSpace(query.Search),
		PartType: query.PartType,
		Tag:      strings.ToLower(strings.TrimSpace(query.Tag)),
	})
	if err != nil {
		return nil, appErrors.WrapInvalid(err, "list parts")
	}
	return parts, nil
}

// Update replaces the editable fields of a part.
func (s *PartService) Update(ctx context.Context, key string, req dto.UpdatePartRequest) (*models.Part, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "update part")
	}
	part, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	part.Name = strings.TrimSpace(req.Name)
	part.Description = req.Description
	part.Manufacturer = req.Manufacturer
	part.PartType = req.PartType
	part.Tags = normalizeTags(req.Tags)
	if err := s.repo.Update(ctx, part); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Part", key)
		}
		return nil, appErrors.WrapInvalid(err, "update part")
	}
	return part, nil
}

// Delete removes the part, its stock entries and its attachment set. Quantity history is kept.
func (s *PartService) Delete(ctx context.Context, key string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		part, err := s.Get(ctx, key)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, part.Key); err != nil {
			return appErrors.WrapInvalid(err, "delete part")
		}
		return s.attachments.DeleteSet(ctx, part.AttachmentSetID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("part deleted", zap.String("part_key", key))
	return nil
}

func (s *PartService) allocateKey(ctx context.Context) (string, error) {
	for attempt := 0; attempt < partKeyMaxAttempts; attempt++ {
		key, err := s.newKey(s.cfg.KeyLength)
		if err != nil {
			return "", appErrors.WrapInvalid(err, "generate part key")
		}
		taken, err := s.repo.KeyExists(ctx, key)
		if err != nil {
			return "", appErrors.WrapInvalid(err, "generate part key")
		}
		if !taken {
			return key, nil
		}
		s.logger.Debug("part key collision", zap.String("part_key", key), zap.Int("attempt", attempt+1))
	}
	return "", appErrors.Conflict("Part key", fmt.Sprintf("after %d attempts", partKeyMaxAttempts))
}

func randomPartKey(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	max := big.NewInt(int64(len(partKeyAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(partKeyAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}
