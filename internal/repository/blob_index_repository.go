package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	blobIndexPrefix = "blob:exists:"
	blobIndexTTL    = 24 * time.Hour
)

// BlobIndexRepository remembers storage keys already known to exist in blob storage.
// Blobs are never deleted, so a remembered key never goes stale; the TTL only bounds memory.
type BlobIndexRepository struct {
	client *redis.Client
}

// NewBlobIndexRepository constructs the index. A nil client disables it.
func NewBlobIndexRepository(client *redis.Client) *BlobIndexRepository {
	return &BlobIndexRepository{client: client}
}

// Known reports whether key was previously remembered.
func (r *BlobIndexRepository) Known(ctx context.Context, key string) (bool, error) {
	if r == nil || r.client == nil {
		return false, nil
	}
	if err := r.client.Get(ctx, blobIndexPrefix+key).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return true, nil
}

// Remember records that key exists in blob storage.
func (r *BlobIndexRepository) Remember(ctx context.Context, key string) error {
	if r == nil || r.client == nil {
		return nil
	}
	if err := r.client.Set(ctx, blobIndexPrefix+key, "1", blobIndexTTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *BlobIndexRepository) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
