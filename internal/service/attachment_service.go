package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/parts-inventory-api/internal/dto"
	"github.com/noah-isme/parts-inventory-api/internal/models"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
)

const bytesPerMB = 1024 * 1024

type attachmentStore interface {
	CreateSet(ctx context.Context, set *models.AttachmentSet) error
	GetSet(ctx context.Context, id string) (*models.AttachmentSet, error)
	LockSet(ctx context.Context, id string) (*models.AttachmentSet, error)
	SetCover(ctx context.Context, setID string, attachmentID *string) error
	DeleteSet(ctx context.Context, id string) error
	Create(ctx context.Context, att *models.Attachment) error
	GetByID(ctx context.Context, id string) (*models.Attachment, error)
	ListBySet(ctx context.Context, setID string) ([]models.Attachment, error)
	FirstImage(ctx context.Context, setID string) (*models.Attachment, error)
	UpdateTitle(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error
}

type attachmentBlobs interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

type attachmentSigner interface {
	Generate(setID, attachmentID string) (string, time.Time, error)
	Parse(token string) (setID, attachmentID string, expiresAt time.Time, err error)
}

type uploadMetrics interface {
	RecordUpload(result string)
}

// AttachmentServiceConfig holds upload limits and allow-lists.
type AttachmentServiceConfig struct {
	MaxImageSize      int64
	MaxFileSize       int64
	AllowedImageTypes []string
	AllowedFileTypes  []string
	APIPrefix         string
}

// AttachmentService manages attachment sets, their attachments and the cover pointer.
type AttachmentService struct {
	repo      attachmentStore
	blobs     attachmentBlobs
	signer    attachmentSigner
	tx        transactor
	metrics   uploadMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AttachmentServiceConfig
	imageSet  map[string]struct{}
	fileSet   map[string]struct{}
}

// NewAttachmentService constructs the service with defaults. signer and metrics may be nil.
func NewAttachmentService(repo attachmentStore, blobs attachmentBlobs, signer attachmentSigner, tx transactor, metrics uploadMetrics, validate *validator.Validate, logger *zap.Logger, cfg AttachmentServiceConfig) *AttachmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = 10 * bytesPerMB
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 20 * bytesPerMB
	}
	if len(cfg.AllowedImageTypes) == 0 {
		cfg.AllowedImageTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}
	}
	if len(cfg.AllowedFileTypes) == 0 {
		cfg.AllowedFileTypes = []string{"application/pdf"}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &AttachmentService{
		repo:      repo,
		blobs:     blobs,
		signer:    signer,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		imageSet:  toSet(cfg.AllowedImageTypes),
		fileSet:   toSet(cfg.AllowedFileTypes),
	}
}

// CreateSet creates an empty set. Owners call it inside their own creation transaction.
func (s *AttachmentService) CreateSet(ctx context.Context) (*models.AttachmentSet, error) {
	set := &models.AttachmentSet{}
	if err := s.repo.CreateSet(ctx, set); err != nil {
		return nil, appErrors.WrapInvalid(err, "create attachment set")
	}
	return set, nil
}

// DeleteSet removes a set and, by cascade, its attachments. Stored content is kept.
func (s *AttachmentService) DeleteSet(ctx context.Context, setID string) error {
	if err := s.repo.DeleteSet(ctx, setID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NotFound("Attachment set", setID)
		}
		return appErrors.WrapInvalid(err, "delete attachment set")
	}
	return nil
}

// AddFile stores an uploaded file as an IMAGE or PDF attachment. The row, and the cover
// pointer for a set's first image, are committed before the content is uploaded. A failed
// upload leaves the row in place; repeating the upload is safe because keys are derived
// from content.
func (s *AttachmentService) AddFile(ctx context.Context, setID, title string, data []byte, filename string) (*models.Attachment, error) {
	if _, err := s.loadSet(ctx, setID); err != nil {
		return nil, err
	}

	contentType := sniffContentType(data)
	_, allowedImage := s.imageSet[contentType]
	_, allowedFile := s.fileSet[contentType]
	if !allowedImage && !allowedFile {
		return nil, appErrors.InvalidOperation("upload attachment", "file type not allowed: "+contentType)
	}

	isImage := strings.HasPrefix(contentType, "image/")
	limit := s.cfg.MaxFileSize
	if isImage {
		limit = s.cfg.MaxImageSize
	}
	if int64(len(data)) > limit {
		return nil, appErrors.InvalidOperation("upload attachment", "file too large, maximum size: "+formatSizeLimit(limit))
	}

	var kind models.AttachmentType
	switch {
	case isImage:
		kind = models.AttachmentTypeImage
	case contentType == "application/pdf":
		kind = models.AttachmentTypePDF
	default:
		return nil, appErrors.InvalidOperation("upload attachment", "unsupported attachment type: "+contentType)
	}

	key := CASKey(data)
	name := cleanFilename(filename)
	size := int64(len(data))
	att := &models.Attachment{
		SetID:       setID,
		Type:        kind,
		Title:       defaultTitle(title, name),
		StorageKey:  &key,
		Filename:    &name,
		ContentType: &contentType,
		SizeBytes:   &size,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		set, err := s.lockSet(ctx, setID)
		if err != nil {
			return err
		}
		if err := s.repo.Create(ctx, att); err != nil {
			return appErrors.WrapInvalid(err, "upload attachment")
		}
		if kind == models.AttachmentTypeImage && set.CoverAttachmentID == nil {
			if err := s.repo.SetCover(ctx, setID, &att.ID); err != nil {
				return appErrors.WrapInvalid(err, "upload attachment")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uploaded, err := s.blobs.Put(ctx, key, data, contentType)
	if err != nil {
		s.recordUpload(UploadResultFailed)
		s.logger.Warn("attachment content upload failed",
			zap.String("attachment_id", att.ID),
			zap.String("storage_key", key),
			zap.Error(err),
		)
		return nil, err
	}
	if uploaded {
		s.recordUpload(UploadResultUploaded)
	} else {
		s.recordUpload(UploadResultDeduplicated)
	}

	s.logger.Info("attachment stored",
		zap.String("set_id", setID),
		zap.String("attachment_id", att.ID),
		zap.String("type", string(kind)),
		zap.Int64("size_bytes", size),
		zap.Bool("deduplicated", !uploaded),
	)
	return att, nil
}

// AddURL attaches a web link. Links are never sniffed, size-checked or made cover.
func (s *AttachmentService) AddURL(ctx context.Context, setID, title, link string) (*models.Attachment, error) {
	if _, err := s.loadSet(ctx, setID); err != nil {
		return nil, err
	}
	req := dto.AddURLAttachmentRequest{Title: title, URL: strings.TrimSpace(link)}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "add link")
	}

	att := &models.Attachment{
		SetID: setID,
		Type:  models.AttachmentTypeURL,
		Title: defaultTitle(title, hostOf(req.URL)),
		URL:   &req.URL,
	}
	if err := s.repo.Create(ctx, att); err != nil {
		return nil, appErrors.WrapInvalid(err, "add link")
	}
	return att, nil
}

// GetSet returns the set with its attachments.
func (s *AttachmentService) GetSet(ctx context.Context, setID string) (*models.AttachmentSetDetail, error) {
	set, err := s.loadSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListBySet(ctx, setID)
	if err != nil {
		return nil, appErrors.WrapInvalid(err, "list attachments")
	}
	return &models.AttachmentSetDetail{AttachmentSet: *set, Attachments: items}, nil
}

// List returns the set's attachments in creation order.
func (s *AttachmentService) List(ctx context.Context, setID string) ([]models.Attachment, error) {
	if _, err := s.loadSet(ctx, setID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListBySet(ctx, setID)
	if err != nil {
		return nil, appErrors.WrapInvalid(err, "list attachments")
	}
	return items, nil
}

// GetOne returns one attachment, failing with InvalidOperation when it belongs to another set.
func (s *AttachmentService) GetOne(ctx context.Context, setID, attachmentID string) (*models.Attachment, error) {
	att, err := s.repo.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Attachment", attachmentID)
		}
		return nil, appErrors.WrapInvalid(err, "load attachment")
	}
	if att.SetID != setID {
		return nil, appErrors.InvalidOperation("access attachment",
			fmt.Sprintf("attachment %s does not belong to set %s", attachmentID, setID))
	}
	return att, nil
}

// UpdateTitle renames an attachment.
func (s *AttachmentService) UpdateTitle(ctx context.Context, setID, attachmentID, title string) (*models.Attachment, error) {
	req := dto.UpdateAttachmentTitleRequest{Title: strings.TrimSpace(title)}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "rename attachment")
	}
	att, err := s.GetOne(ctx, setID, attachmentID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTitle(ctx, att.ID, req.Title); err != nil {
		return nil, appErrors.WrapInvalid(err, "rename attachment")
	}
	att.Title = req.Title
	return att, nil
}

// Delete removes an attachment. When it was the cover, the earliest remaining image takes
// over, or the cover is cleared. Stored content is never deleted.
func (s *AttachmentService) Delete(ctx context.Context, setID, attachmentID string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		att, err := s.GetOne(ctx, setID, attachmentID)
		if err != nil {
			return err
		}
		set, err := s.lockSet(ctx, setID)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, att.ID); err != nil {
			return appErrors.WrapInvalid(err, "delete attachment")
		}
		if set.CoverAttachmentID == nil || *set.CoverAttachmentID != att.ID {
			return nil
		}

		next, err := s.repo.FirstImage(ctx, setID)
		if err != nil {
			return appErrors.WrapInvalid(err, "delete attachment")
		}
		var cover *string
		if next != nil {
			cover = &next.ID
		}
		if err := s.repo.SetCover(ctx, setID, cover); err != nil {
			return appErrors.WrapInvalid(err, "delete attachment")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("attachment deleted", zap.String("set_id", setID), zap.String("attachment_id", attachmentID))
	return nil
}

// SetCover points the cover at any attachment of the set, or clears it when attachmentID is nil.
func (s *AttachmentService) SetCover(ctx context.Context, setID string, attachmentID *string) (*models.AttachmentSet, error) {
	var set *models.AttachmentSet
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if attachmentID != nil {
			if _, err := s.GetOne(ctx, setID, *attachmentID); err != nil {
				return err
			}
		}
		var err error
		set, err = s.lockSet(ctx, setID)
		if err != nil {
			return err
		}
		if err := s.repo.SetCover(ctx, setID, attachmentID); err != nil {
			return appErrors.WrapInvalid(err, "set cover")
		}
		set.CoverAttachmentID = attachmentID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// FileData returns the stored content of a file attachment, or nil for a link.
func (s *AttachmentService) FileData(ctx context.Context, setID, attachmentID string) (*models.FileData, error) {
	att, err := s.GetOne(ctx, setID, attachmentID)
	if err != nil {
		return nil, err
	}
	if !att.HasFile() {
		return nil, nil
	}
	data, err := s.blobs.Get(ctx, *att.StorageKey)
	if err != nil {
		return nil, err
	}
	file := &models.FileData{Data: data}
	if att.ContentType != nil {
		file.ContentType = *att.ContentType
	}
	if att.Filename != nil {
		file.Filename = *att.Filename
	}
	return file, nil
}

// DownloadURL issues an expiring signed link to a file attachment's content.
func (s *AttachmentService) DownloadURL(ctx context.Context, setID, attachmentID string) (*dto.AttachmentDownloadResponse, error) {
	if s.signer == nil {
		return nil, appErrors.InvalidOperation("create download link", "download signing is not configured")
	}
	att, err := s.GetOne(ctx, setID, attachmentID)
	if err != nil {
		return nil, err
	}
	if !att.HasFile() {
		return nil, appErrors.InvalidOperation("create download link", "attachment has no stored file")
	}
	token, expiresAt, err := s.signer.Generate(att.SetID, att.ID)
	if err != nil {
		return nil, appErrors.WrapInvalid(err, "create download link")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &dto.AttachmentDownloadResponse{
		Attachment:  *att,
		DownloadURL: fmt.Sprintf("%s/attachments/download?token=%s", base, url.QueryEscape(token)),
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}

// DownloadByToken verifies a signed link and returns the referenced content.
func (s *AttachmentService) DownloadByToken(ctx context.Context, token string) (*models.FileData, error) {
	if s.signer == nil {
		return nil, appErrors.InvalidOperation("download attachment", "download signing is not configured")
	}
	setID, attachmentID, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.InvalidOperation("download attachment", "invalid or expired token")
	}
	file, err := s.FileData(ctx, setID, attachmentID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, appErrors.InvalidOperation("download attachment", "attachment has no stored file")
	}
	return file, nil
}

func (s *AttachmentService) loadSet(ctx context.Context, setID string) (*models.AttachmentSet, error) {
	set, err := s.repo.GetSet(ctx, setID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Attachment set", setID)
		}
		return nil, appErrors.WrapInvalid(err, "load attachment set")
	}
	return set, nil
}

func (s *AttachmentService) lockSet(ctx context.Context, setID string) (*models.AttachmentSet, error) {
	set, err := s.repo.LockSet(ctx, setID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Attachment set", setID)
		}
		return nil, appErrors.WrapInvalid(err, "lock attachment set")
	}
	return set, nil
}

func (s *AttachmentService) recordUpload(result string) {
	if s.metrics != nil {
		s.metrics.RecordUpload(result)
	}
}

// sniffContentType detects the media type from content alone, without parameters.
func sniffContentType(data []byte) string {
	detected := mimetype.Detect(data).String()
	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return strings.ToLower(detected)
	}
	return strings.ToLower(mediaType)
}

// formatSizeLimit renders an upload limit for error messages, e.g. "10MB", "1.5MB" or "512KB".
func formatSizeLimit(n int64) string {
	switch {
	case n%bytesPerMB == 0:
		return fmt.Sprintf("%dMB", n/bytesPerMB)
	case n >= bytesPerMB:
		return fmt.Sprintf("%.1fMB", float64(n)/bytesPerMB)
	case n >= 1024:
		return fmt.Sprintf("%dKB", (n+1023)/1024)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}

func cleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return "attachment"
	}
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return "attachment"
	}
	return base
}

func defaultTitle(title, fallback string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return fallback
}

func hostOf(link string) string {
	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" {
		return link
	}
	return parsed.Host
}
