package service

import (
	"bitwise74/image-api/model"
	"bitwise74/image-api/util"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BlobStore is the slice of the object storage client the pipeline
// needs. Implemented by aws.S3Client
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Uploader runs the upload pipeline: key generation, durable store,
// metadata persistence and the completion broadcast
type Uploader struct {
	DB    *gorm.DB
	Store BlobStore
	Hub   *Hub
}

func NewUploader(db *gorm.DB, store BlobStore, hub *Hub) *Uploader {
	return &Uploader{
		DB:    db,
		Store: store,
		Hub:   hub,
	}
}

// ErrNotFound is answered with a 404 by the delete endpoint,
// ErrBadURL with a 400
var (
	ErrNotFound = errors.New("file not found")
	ErrBadURL   = errors.New("invalid image url")
)

// ErrPersist marks a failure after the blob was already stored. The
// object is left in the bucket as an orphan, there is no rollback
type ErrPersist struct {
	Key string
	Err error
}

func (e *ErrPersist) Error() string {
	return fmt.Sprintf("failed to persist metadata for %s, %v", e.Key, e.Err)
}

func (e *ErrPersist) Unwrap() error { return e.Err }

// Do stores a validated file and records it. The returned record's URL
// is the uploading client's authoritative source for its own gallery
// update, the broadcast only reaches other clients.
func (u *Uploader) Do(ctx context.Context, name, contentType string, body io.Reader, size int64) (*model.Image, error) {
	now := time.Now()
	key := util.MakeKey(name, now)

	err := u.Store.Put(ctx, key, contentType, body, size)
	if err != nil {
		return nil, fmt.Errorf("failed to store object, %w", err)
	}

	img := &model.Image{
		Filename:   key,
		URL:        u.Store.URL(key),
		UploadedAt: now.UnixMilli(),
	}

	err = u.DB.Create(img).Error
	if err != nil {
		// Known consistency gap: the blob exists with no metadata row.
		// Logged and left for a later cleanup, not rolled back
		zap.L().Error("Orphaned blob: stored object has no metadata record",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, &ErrPersist{Key: key, Err: err}
	}

	if u.Hub != nil {
		u.Hub.Broadcast("uploadComplete", map[string]string{"url": img.URL})
	}

	return img, nil
}

// DeleteByURL removes the blob and the matching metadata rows. The two
// operations are independent, a failure between them leaves the stores
// out of sync and is only logged
func (u *Uploader) DeleteByURL(ctx context.Context, rawURL string) error {
	key, err := util.KeyFromURL(rawURL)
	if err != nil {
		return fmt.Errorf("%w, %v", ErrBadURL, err)
	}

	exists, err := u.Store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check if object exists, %w", err)
	}

	if !exists {
		return ErrNotFound
	}

	err = u.Store.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to delete object, %w", err)
	}

	err = u.DB.Where("url = ?", rawURL).Delete(model.Image{}).Error
	if err != nil {
		zap.L().Error("Blob deleted but metadata rows survived",
			zap.String("key", key),
			zap.Error(err),
		)
		return &ErrPersist{Key: key, Err: err}
	}

	return nil
}
