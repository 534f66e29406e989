// Package blob stores recording audio on the local filesystem and signs
// short-lived playback URLs for it.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store provides read/write access to recording blobs.
type Store interface {
	// Put writes data under key, overwriting any previous blob.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns the blob and its content type.
	// Returns ErrBlobNotFound if the key is unknown.
	Get(ctx context.Context, key string) (data []byte, contentType string, err error)

	// Exists reports whether a blob is stored under key.
	Exists(ctx context.Context, key string) bool
}

// FilesystemStore keeps blobs as files under a root directory. Keys are
// slash-separated relative paths ("owner/session.wav"); the content type
// lives in a sidecar file next to the blob.
type FilesystemStore struct {
	root string
}

const typeSuffix = ".type"

// NewFilesystemStore ensures root exists and returns a store over it.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, errors.New("blob root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

// resolve maps key onto a path under the root, rejecting traversal.
func (s *FilesystemStore) resolve(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("key %q: %w", key, ErrInvalidKey)
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes data under key, overwriting any previous blob.
func (s *FilesystemStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	// Write-then-rename so a crashed upload never leaves a torn blob.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish blob: %w", err)
	}
	if contentType != "" {
		if err := os.WriteFile(path+typeSuffix, []byte(contentType), 0o644); err != nil {
			return fmt.Errorf("write blob type: %w", err)
		}
	}
	return nil
}

// Get returns the blob and its content type.
func (s *FilesystemStore) Get(_ context.Context, key string) ([]byte, string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("blob %q: %w", key, ErrBlobNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read blob: %w", err)
	}

	contentType := "application/octet-stream"
	if raw, err := os.ReadFile(path + typeSuffix); err == nil {
		contentType = string(raw)
	}
	return data, contentType, nil
}

// Exists reports whether a blob is stored under key.
func (s *FilesystemStore) Exists(_ context.Context, key string) bool {
	path, err := s.resolve(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
