// Package blob stores exported artifacts (workbooks, drafts) on the local
// filesystem or an S3-compatible bucket.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joseph-ayodele/exposure-tracker/internal/common"
)

type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// Info describes a stored object.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Store is the minimal object store surface. Put overwrites existing keys.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (io.ReadCloser, Info, error)
	Delete(ctx context.Context, key string) error
}

// Open builds the store selected by cfg. An empty driver disables blob storage (nil, nil).
func Open(ctx context.Context, cfg common.BlobConfig) (Store, error) {
	switch Driver(strings.ToLower(cfg.Driver)) {
	case "":
		return nil, nil
	case DriverFilesystem:
		return NewFS(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.Driver)
	}
}

// sanitizeKey rejects empty, absolute and escaping keys.
func sanitizeKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	if k == "" {
		return "", fmt.Errorf("empty blob key: %w", common.ErrInvalidInput)
	}
	if strings.HasPrefix(k, "/") || strings.Contains(k, "..") || strings.Contains(k, `\`) {
		return "", fmt.Errorf("invalid blob key %q: %w", key, common.ErrInvalidInput)
	}
	return k, nil
}
