// Package file stores the document as a JSON file on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"bikerental/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.DocumentBackend = (*Store)(nil)

const defaultPath = "./data.json"

// Store commits by writing `<path>.tmp`, syncing it and renaming it over
// path, so readers only ever see a complete file. It relies on the caller to
// serialize commits; two concurrent commits would race on the temp file.
type Store struct {
	path string
}

// New returns a file backend for path, creating parent directories.
func New(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the document path.
func (s *Store) Path() string { return s.path }

// TempPath returns the staging path used during commits.
func (s *Store) TempPath() string { return s.path + ".tmp" }

func (s *Store) Driver() domain.StorageDriver { return domain.StorageFile }

// Load reads the document file.
func (s *Store) Load(_ context.Context) ([]byte, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrDocumentAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return b, nil
}

// Commit atomically replaces the document file.
func (s *Store) Commit(_ context.Context, payload []byte) (retErr error) {
	tmp := s.TempPath()
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmp)
		}
	}()
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	// atomically move into place
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
