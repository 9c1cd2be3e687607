package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
	"github.com/noah-isme/parts-inventory-api/pkg/storage"
)

// CASKeyPrefix namespaces content-addressed storage keys.
const CASKeyPrefix = "cas/sha256/"

// CASKey derives the storage key of data from its SHA-256 digest.
func CASKey(data []byte) string {
	sum := sha256.Sum256(data)
	return CASKeyPrefix + hex.EncodeToString(sum[:])
}

type blobBackend interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

type blobIndex interface {
	Known(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}

type blobMetrics interface {
	ObserveBlobOperation(operation string, duration time.Duration)
	RecordBlobIndexLookup(hit bool)
}

// BlobStore wraps a blob backend with per-call timeouts, an optional existence index and
// error translation. Every failure it returns is an InvalidOperation.
type BlobStore struct {
	backend blobBackend
	index   blobIndex
	metrics blobMetrics
	timeout time.Duration
	logger  *zap.Logger
}

// NewBlobStore constructs the store. index and metrics may be nil.
func NewBlobStore(backend blobBackend, index blobIndex, metrics blobMetrics, timeout time.Duration, logger *zap.Logger) *BlobStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BlobStore{backend: backend, index: index, metrics: metrics, timeout: timeout, logger: logger}
}

// Exists reports whether content is stored under key.
func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	if s.index != nil {
		known, err := s.index.Known(ctx, key)
		if err != nil {
			s.logger.Warn("blob index lookup failed", zap.String("key", key), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordBlobIndexLookup(known)
		}
		if known {
			return true, nil
		}
	}

	var exists bool
	err := s.call(ctx, "exists", func(ctx context.Context) error {
		var err error
		exists, err = s.backend.Exists(ctx, key)
		return err
	})
	if err != nil {
		return false, appErrors.WrapInvalid(err, "check attachment storage")
	}
	if exists {
		s.remember(ctx, key)
	}
	return exists, nil
}

// Put stores data under key unless it is already present. Repeating a Put is harmless.
// It reports whether an upload actually took place.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (bool, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	err = s.call(ctx, "put", func(ctx context.Context) error {
		return s.backend.Put(ctx, key, data, contentType)
	})
	if err != nil {
		return false, appErrors.WrapInvalid(err, "upload attachment")
	}
	s.remember(ctx, key)
	return true, nil
}

// Get returns the content stored under key.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.call(ctx, "get", func(ctx context.Context) error {
		var err error
		data, err = s.backend.Get(ctx, key)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.InvalidOperation("download attachment", "stored content is missing for "+key)
		}
		return nil, appErrors.WrapInvalid(err, "download attachment")
	}
	return data, nil
}

func (s *BlobStore) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	if s.metrics != nil {
		s.metrics.ObserveBlobOperation(operation, time.Since(start))
	}
	if err != nil {
		s.logger.Warn("blob storage call failed", zap.String("operation", operation), zap.Error(err))
	}
	return err
}

func (s *BlobStore) remember(ctx context.Context, key string) {
	if s.index == nil {
		return
	}
	if err := s.index.Remember(ctx, key); err != nil {
		s.logger.Warn("blob index update failed", zap.String("key", key), zap.Error(err))
	}
}
