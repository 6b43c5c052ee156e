package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalPublicPath is where the server exposes LocalStorage files
const LocalPublicPath = "/uploads"

// LocalStorage writes objects below a directory
type LocalStorage struct {
	root          string
	publicBaseURL string
}

// NewLocalStorage creates root if needed
func NewLocalStorage(root, publicBaseURL string) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("storage local dir is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	if publicBaseURL == "" {
		publicBaseURL = LocalPublicPath
	}
	return &LocalStorage{root: root, publicBaseURL: publicBaseURL}, nil
}

// Root returns the directory served under LocalPublicPath
func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) path(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Put implements ObjectStorage
func (s *LocalStorage) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create object dir: %w", err)
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("failed to create object: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	return f.Close()
}

// Delete implements ObjectStorage; deleting a missing object is not an error
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Exists implements ObjectStorage
func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// URL implements ObjectStorage
func (s *LocalStorage) URL(key string) string {
	return joinURL(s.publicBaseURL, key)
}

var _ ObjectStorage = (*LocalStorage)(nil)
