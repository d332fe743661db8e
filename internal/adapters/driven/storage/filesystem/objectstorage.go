// Package filesystem keeps uploaded file bytes on the local disk.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure ObjectStorage implements the interface.
var _ driven.ObjectStorage = (*ObjectStorage)(nil)

// ObjectStorage stores objects as files below a root directory.
// Object paths are slash-separated and may not leave the root.
type ObjectStorage struct {
	root string
}

// NewObjectStorage creates a file-backed object storage.
// If root is empty, defaults to ~/.docrag/uploads.
func NewObjectStorage(root string) (*ObjectStorage, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		root = filepath.Join(home, ".docrag", "uploads")
	}

	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	return &ObjectStorage{root: root}, nil
}

// Root returns the directory objects are stored under.
func (s *ObjectStorage) Root() string {
	return s.root
}

// Put writes data to path, replacing any existing object.
// The file is written to a temporary name first so readers never see a
// partial object.
func (s *ObjectStorage) Put(ctx context.Context, objectPath string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := s.resolve(objectPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing object: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storing object: %w", err)
	}
	return nil
}

// Get returns the bytes stored at path.
func (s *ObjectStorage) Get(ctx context.Context, objectPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := s.resolve(objectPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: object %s", domain.ErrNotFound, objectPath)
	}
	if err != nil {
		return nil, fmt.Errorf("reading object: %w", err)
	}
	return data, nil
}

// Delete removes the object at path and any directories it leaves empty.
func (s *ObjectStorage) Delete(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := s.resolve(objectPath)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting object: %w", err)
	}

	// Prune empty parents up to, not including, the root.
	for dir := filepath.Dir(target); dir != s.root && strings.HasPrefix(dir, s.root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// resolve maps an object path to a file below the root.
func (s *ObjectStorage) resolve(objectPath string) (string, error) {
	slashed := strings.ReplaceAll(objectPath, "\\", "/")
	for _, segment := range strings.Split(slashed, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: invalid object path %q", domain.ErrInvalidInput, objectPath)
		}
	}
	clean := path.Clean("/" + slashed)
	if clean == "/" {
		return "", fmt.Errorf("%w: invalid object path %q", domain.ErrInvalidInput, objectPath)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
