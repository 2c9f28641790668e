package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Storage holds photo objects under slash-separated keys.
type Storage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
}

type Backend string

const (
	BackendLocal Backend = "local"
	BackendS3    Backend = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Backend      Backend
	LocalPath    string
	S3Bucket     string
	Region       string
	AWSAccessKey string
	AWSSecretKey string
}

var ErrInvalidKey = errors.New("storage: invalid object key")

// New builds the configured backend.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Backend {
	case BackendLocal, "":
		return NewLocalStorage(cfg.LocalPath)
	case BackendS3:
		awsCfg, err := LoadAWSConfig(ctx, cfg.Region, cfg.AWSAccessKey, cfg.AWSSecretKey)
		if err != nil {
			return nil, fmt.Errorf("storage.New: %w", err)
		}
		return NewS3Storage(newS3Client(awsCfg), cfg.S3Bucket), nil
	default:
		return nil, fmt.Errorf("storage.New: unknown backend %q", cfg.Backend)
	}
}

// checkKey rejects keys that are absolute, empty or escape their root.
func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
