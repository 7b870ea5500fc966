package minio

import (
	"context"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/pkg/errors"
)

var ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid upload request")

// UploadResult describes a stored object.
type UploadResult struct {
	Bucket     string
	ObjectKey  string
	ETag       string
	Size       int64
	VersionID  string
	UploadedAt time.Time
}

// ObjectKey joins the configured prefix with parts.
func (c *Client) ObjectKey(parts ...string) string {
	return path.Join(append([]string{c.config.Prefix}, parts...)...)
}

// Upload stores data under key. A negative size streams the reader in parts.
func (c *Client) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string, metadata map[string]string) (*UploadResult, error) {
	if key == "" || r == nil {
		return nil, ErrInvalidRequest
	}
	if c.isClosed() {
		return nil, ErrClientClosed
	}

	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	}
	if size < 0 {
		opts.PartSize = c.config.PartSize
	}

	start := time.Now()
	info, err := c.api.PutObject(ctx, c.config.Bucket, key, r, size, opts)
	if err != nil {
		c.logger.Warn("object upload failed",
			logging.String("bucket", c.config.Bucket), logging.String("key", key), logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetail(key)
	}
	logging.LogOperationDuration(c.logger, "minio.put_object", start,
		logging.String("key", key), logging.Int64("size", info.Size))

	return &UploadResult{
		Bucket:     info.Bucket,
		ObjectKey:  info.Key,
		ETag:       info.ETag,
		Size:       info.Size,
		VersionID:  info.VersionID,
		UploadedAt: time.Now(),
	}, nil
}

// UploadFile stores the local file at localPath under key.
func (c *Client) UploadFile(ctx context.Context, key, localPath string, metadata map[string]string) (*UploadResult, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "cannot open file for upload").WithDetail(localPath)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "cannot stat file for upload").WithDetail(localPath)
	}
	return c.Upload(ctx, key, f, st.Size(), contentTypeOf(localPath), metadata)
}

// Exists reports whether key is present. A missing key is not an error.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if c.isClosed() {
		return false, ErrClientClosed
	}
	_, err := c.api.StatObject(ctx, c.config.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeStorageError, "stat failed").WithDetail(key)
	}
	return true, nil
}

func contentTypeOf(name string) string {
	switch ext := filepath.Ext(name); ext {
	case ".csv":
		return "text/csv"
	case "":
		return "application/octet-stream"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
