package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var reportsBucket = []byte("reports")

// BoltStore keeps reports in a single embedded bbolt file.
type BoltStore struct {
	db     *bolt.DB
	logger *slog.Logger
}

func NewBoltStore(path string, logger *slog.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bolt store: create %s: %w", dir, err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt store: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(reportsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt store: create bucket: %w", err)
	}
	return &BoltStore{db: db, logger: logger}, nil
}

func (s *BoltStore) Backend() string { return "bolt" }

func (s *BoltStore) Put(_ context.Context, ref string, data []byte) error {
	if err := CheckRef(ref); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(reportsBucket).Put([]byte(ref), data)
	})
	if err != nil {
		return fmt.Errorf("bolt store: put: %w", err)
	}
	s.logger.Debug("storage.bolt.put", "ref", ref, "bytes", len(data))
	return nil
}

func (s *BoltStore) Get(_ context.Context, ref string) ([]byte, error) {
	if err := CheckRef(ref); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(reportsBucket).Get([]byte(ref))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (s *BoltStore) Delete(_ context.Context, ref string) error {
	if err := CheckRef(ref); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(reportsBucket)
		if b.Get([]byte(ref)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(ref))
	})
}

func (s *BoltStore) Ping(_ context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(reportsBucket) == nil {
			return fmt.Errorf("bolt store: bucket %s missing", reportsBucket)
		}
		return nil
	})
}

func (s *BoltStore) Close() error { return s.db.Close() }
