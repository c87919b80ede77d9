package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/joseph-ayodele/phototranslate/internal/common"
)

// ObjectStore is the subset of *minio.Client the archive uses.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, object string, expires time.Duration, params url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

// Archive keeps a copy of every scanned image in an S3-compatible bucket.
type Archive struct {
	store  ObjectStore
	bucket string
	log    *slog.Logger
	now    func() time.Time
}

// NewMinIOArchive connects to MinIO and makes sure the bucket exists.
func NewMinIOArchive(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (*Archive, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: minio endpoint is required", common.ErrInvalidInput)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return NewArchive(ctx, client, cfg.Bucket, logger)
}

// NewArchive wraps store and creates bucket when missing.
func NewArchive(ctx context.Context, store ObjectStore, bucket string, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if bucket == "" {
		bucket = "phototranslate"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := store.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := store.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		logger.Info("storage.bucket.created", "bucket", bucket)
	}
	return &Archive{store: store, bucket: bucket, log: logger, now: time.Now}, nil
}

// Put uploads data under YYYY/MM/<hash><ext> and returns that object path.
func (a *Archive) Put(ctx context.Context, hashHex, name string, data []byte, contentType string) (string, error) {
	now := a.now().UTC()
	object := fmt.Sprintf("%d/%02d/%s%s", now.Year(), now.Month(), strings.ToLower(hashHex), objectExt(name, contentType))

	start := time.Now()
	_, err := a.store.PutObject(ctx, a.bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"original-name": name},
	})
	if err != nil {
		a.log.Error("storage.put.failed", "object", object, "error", err)
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	a.log.Info("storage.put.ok",
		"bucket", a.bucket,
		"object", object,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return object, nil
}

// PresignedURL returns a temporary GET link for an archived object.
func (a *Archive) PresignedURL(ctx context.Context, object string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	u, err := a.store.PresignedGetObject(ctx, a.bucket, strings.TrimPrefix(object, a.bucket+"/"), ttl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

// Delete removes an archived object.
func (a *Archive) Delete(ctx context.Context, object string) error {
	return a.store.RemoveObject(ctx, a.bucket, strings.TrimPrefix(object, a.bucket+"/"), minio.RemoveObjectOptions{})
}

func objectExt(name, contentType string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i < len(name)-1 {
		return strings.ToLower(name[i:])
	}
	return ContentTypeExt(contentType)
}

// ContentTypeExt maps an image MIME type to a file extension.
func ContentTypeExt(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	case "image/heic":
		return ".heic"
	case "image/heif":
		return ".heif"
	default:
		return ".bin"
	}
}
