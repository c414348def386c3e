// Package storage defines the Backend interface the API server lists
// directories from, with local filesystem and S3 implementations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/fruitsalade/filebrowser/internal/config"
	"github.com/fruitsalade/filebrowser/pkg/protocol"
)

var (
	// ErrNotFound is returned when the path does not exist.
	ErrNotFound = errors.New("file or directory does not exist")
	// ErrInvalidPath is returned when the path escapes the root.
	ErrInvalidPath = errors.New("path traversal attempt detected")
)

// Backend lists files and directories.
type Backend interface {
	// List describes the entry at p, a slash-separated path relative to the
	// backend root ("" for the root). Directories carry their contents.
	List(ctx context.Context, p string) (*protocol.FileInfo, error)

	// Type returns the backend type identifier ("local", "s3").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}

// CleanPath normalizes a request path to a root-relative form without
// leading or trailing slashes.
func CleanPath(p string) (string, error) {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	clean := path.Clean("/" + p)
	return strings.TrimPrefix(clean, "/"), nil
}

// New creates the backend selected by cfg.
func New(ctx context.Context, cfg *config.ServerConfig) (Backend, error) {
	switch cfg.StorageBackend {
	case "", "local":
		return NewLocal(cfg.RootDir)
	case "s3":
		return NewS3(ctx, S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}
