// Package storage defines the key/blob persistence boundary shared by the
// notebook, the prediction records and the line slates.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no blob exists for a key
var ErrNotFound = errors.New("blob not found")

// BlobStore persists opaque blobs under slash-separated keys.
// Put replaces the whole value atomically: concurrent readers observe either
// the previous blob or the new one, never a partial write.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	// List returns keys with the given prefix in lexical order
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// ValidateKey rejects keys that could escape a store's namespace
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("invalid key %q", key)
		}
	}
	return nil
}
