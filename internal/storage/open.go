package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Open builds the report store named by cfg.Backend.
func Open(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (ReportStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("storage.open", "backend", cfg.Backend)

	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.Dir, logger)
	case "bolt":
		path := cfg.BoltPath
		if path == "" {
			path = filepath.Join(cfg.Dir, "reports.db")
		}
		return NewBoltStore(path, logger)
	case "minio":
		return NewMinioStore(ctx, cfg.Minio, logger)
	case "sqlite":
		dsn := cfg.Database.DSN
		if dsn == "" {
			if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite store: create %s: %w", cfg.Dir, err)
			}
			dsn = filepath.Join(cfg.Dir, "reports.sqlite")
		}
		return OpenSQLite(ctx, dsn, logger)
	case "postgres":
		return OpenPostgres(ctx, cfg.Database, logger)
	default:
		return nil, common.InvalidInputf("storage backend %q is not supported", cfg.Backend)
	}
}

// Check pings s and names the backend in the error.
func Check(ctx context.Context, s ReportStore) error {
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("%s store unreachable: %w", s.Backend(), err)
	}
	return nil
}
