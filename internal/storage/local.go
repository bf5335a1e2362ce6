package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalStore writes reports as files under one directory.
type LocalStore struct {
	dir    string
	logger *slog.Logger
}

func NewLocalStore(dir string, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		return nil, errors.New("local store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local store: create %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, logger: logger}, nil
}

func (s *LocalStore) Backend() string { return "local" }

// Put writes to a temp file first so readers never see a partial report.
func (s *LocalStore) Put(_ context.Context, ref string, data []byte) error {
	if err := CheckRef(ref); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("local store: temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("local store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("local store: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, ref)); err != nil {
		return fmt.Errorf("local store: rename: %w", err)
	}
	s.logger.Debug("storage.local.put", "ref", ref, "bytes", len(data))
	return nil
}

func (s *LocalStore) Get(_ context.Context, ref string) ([]byte, error) {
	if err := CheckRef(ref); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.dir, ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("local store: read: %w", err)
	}
	return b, nil
}

func (s *LocalStore) Delete(_ context.Context, ref string) error {
	if err := CheckRef(ref); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, ref))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *LocalStore) Ping(_ context.Context) error {
	fi, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("local store: %s is not a directory", s.dir)
	}
	return nil
}

func (s *LocalStore) Close() error { return nil }

// Path is where ref lives on disk.
func (s *LocalStore) Path(ref string) string { return filepath.Join(s.dir, ref) }
