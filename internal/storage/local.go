package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore holds uploaded documents on local disk while they wait for
// ingestion. Files are transient: the ingestion pipeline deletes them on
// every exit path.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed and returns the store.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Save writes the blob under the given key and returns its absolute path.
func (s *LocalStore) Save(_ context.Context, key string, data []byte) (string, error) {
	path := filepath.Join(s.root, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return path, nil
}

// Read returns the blob stored at path.
func (s *LocalStore) Read(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// Delete removes the blob at path. Deleting a missing file is not an error;
// cleanup must be idempotent.
func (s *LocalStore) Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
