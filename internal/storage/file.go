package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
)

type fileStorage struct {
	config FileConfig
}

type FileConfig struct {
	Directory string
}

func NewFileStorage(ctx context.Context, f FileConfig) (Storage, error) {
	if f.Directory == "" {
		f.Directory = "."
	}

	return &fileStorage{
		config: f,
	}, nil
}

func (s *fileStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", xerrors.Errorf("failed to create directory for %s: %w", key, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", xerrors.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

func (s *fileStorage) Get(ctx context.Context, location string) ([]byte, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s: %w", location, err)
	}

	return data, nil
}

// resolve keeps keys inside the configured directory.
func (s *fileStorage) resolve(key string) (string, error) {
	path := filepath.Join(s.config.Directory, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.config.Directory, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", xerrors.Errorf("key %q escapes storage directory", key)
	}
	return path, nil
}
