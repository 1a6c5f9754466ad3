// Package storage stores uploaded product images on the local filesystem or
// in an S3-compatible bucket (Cloudflare R2).
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/google/uuid"
)

// Storage defines the file operations product images need.
type Storage interface {
	// Put stores content under key and returns its public URL.
	Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error)

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for key.
	URL(key string) string

	Exists(ctx context.Context, key string) (bool, error)
}

// Config selects and configures a Storage backend.
type Config struct {
	Provider      string // "local" or "r2"
	LocalPath     string
	LocalURL      string
	R2AccountID   string
	R2AccessKeyID string
	R2SecretKey   string
	R2BucketName  string
	R2PublicURL   string
}

// NewStorage creates a Storage implementation based on configuration.
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocalStorage(cfg.LocalPath, cfg.LocalURL)
	case "r2":
		return NewR2Storage(R2Config{
			AccountID:   cfg.R2AccountID,
			AccessKeyID: cfg.R2AccessKeyID,
			SecretKey:   cfg.R2SecretKey,
			BucketName:  cfg.R2BucketName,
			PublicURL:   cfg.R2PublicURL,
		})
	default:
		return nil, domain.Errorf(domain.EINVALID, "storage.new", "unknown storage provider: %s", cfg.Provider)
	}
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ProductImageKey returns a fresh object key for an uploaded image,
// keeping the original file extension: products/<uuid><ext>.
func ProductImageKey(filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !imageExtensions[ext] {
		return "", domain.Errorf(domain.EINVALID, "storage.image_key", "unsupported image type %q", ext)
	}
	return fmt.Sprintf("products/%s%s", uuid.NewString(), ext), nil
}

// cleanKey rejects keys that would escape the storage root.
func cleanKey(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != strings.TrimPrefix(key, "/") {
		return "", domain.Errorf(domain.EINVALID, "storage.key", "invalid storage key %q", key)
	}
	return clean, nil
}
