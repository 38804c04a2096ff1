package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/quiltline/patternvault-backend/internal/platform/logger"
)

type BucketCategory string

const (
	BucketCategoryPattern   BucketCategory = "pattern"
	BucketCategoryThumbnail BucketCategory = "thumbnail"
)

// ErrObjectExists is returned by collision-safe uploads when the key is
// already taken. Pattern asset keys derive from fresh row identities, so a
// collision means an identity was reused and must surface, never be
// overwritten.
var ErrObjectExists = errors.New("object already exists")

type bucketConfig struct {
	name      string
	cdnDomain string
}

type BucketService interface {
	Upload(ctx context.Context, category BucketCategory, key string, r io.Reader, failOnExists bool) error
	DeleteObjects(ctx context.Context, category BucketCategory, keys []string) error
	PublicURL(category BucketCategory, key string) string
}

type bucketService struct {
	log             *logger.Logger
	storageClient   *storage.Client
	patternBucket   bucketConfig
	thumbnailBucket bucketConfig
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")

	patternBucketName := os.Getenv("PATTERN_GCS_BUCKET_NAME")
	thumbnailBucketName := os.Getenv("THUMBNAIL_GCS_BUCKET_NAME")
	if patternBucketName == "" {
		return nil, fmt.Errorf("missing env var PATTERN_GCS_BUCKET_NAME")
	}
	if thumbnailBucketName == "" {
		return nil, fmt.Errorf("missing env var THUMBNAIL_GCS_BUCKET_NAME")
	}

	ctx := context.Background()
	stClient, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"pattern_bucket", patternBucketName,
		"thumbnail_bucket", thumbnailBucketName,
	)

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		patternBucket: bucketConfig{
			name:      patternBucketName,
			cdnDomain: os.Getenv("PATTERN_CDN_DOMAIN"),
		},
		thumbnailBucket: bucketConfig{
			name:      thumbnailBucketName,
			cdnDomain: os.Getenv("THUMBNAIL_CDN_DOMAIN"),
		},
	}, nil
}

func (bs *bucketService) getBucketConfig(category BucketCategory) (bucketConfig, error) {
	switch category {
	case BucketCategoryPattern:
		return bs.patternBucket, nil
	case BucketCategoryThumbnail:
		return bs.thumbnailBucket, nil
	default:
		return bucketConfig{}, fmt.Errorf("unknown bucket category: %s", category)
	}
}

// Upload writes one object. With failOnExists the write carries a
// DoesNotExist precondition so a concurrent or stale object surfaces as
// ErrObjectExists instead of being overwritten.
func (bs *bucketService) Upload(ctx context.Context, category BucketCategory, key string, r io.Reader, failOnExists bool) error {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := bs.storageClient.Bucket(cfg.name).Object(key)
	if failOnExists {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}
	w := obj.NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("object %q: %w", key, ErrObjectExists)
		}
		return fmt.Errorf("failed to close writer for %q: %w", key, err)
	}
	return nil
}

// DeleteObjects removes the given keys one by one. Missing objects are not an
// error; compensation paths call this for keys that may never have been
// written.
func (bs *bucketService) DeleteObjects(ctx context.Context, category BucketCategory, keys []string) error {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var firstErr error
	for _, key := range keys {
		if key == "" {
			continue
		}
		err := bs.storageClient.Bucket(cfg.name).Object(key).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			bs.log.Warn("Failed to delete object", "bucket", cfg.name, "key", key, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("delete object %q in bucket %q: %w", key, cfg.name, err)
			}
		}
	}
	return firstErr
}

func (bs *bucketService) PublicURL(category BucketCategory, key string) string {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return key
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if cfg.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", cfg.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.name, key)
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(s, ".qli"):
		return "application/octet-stream"
	default:
		return ""
	}
}
