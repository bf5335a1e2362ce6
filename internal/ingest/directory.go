package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

type Options struct {
	Recursive  bool
	SkipHidden bool
	MaxBytes   int64 // per file; 0 means no limit
}

// Skipped is a matching file that was left out of the batch.
type Skipped struct {
	Path   string
	Reason string
}

type DirStats struct {
	Scanned    int
	Matched    int
	Collected  int
	Duplicates int
	Skipped    int
}

// CollectPDFs walks root and loads every PDF in path order. Unreadable or oversized files are
// reported in the skipped list instead of failing the walk. Byte-identical files are kept and
// only counted, since each upload gets its own record.
func CollectPDFs(root string, opts Options, logger *slog.Logger) ([]entity.File, []Skipped, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}

	var (
		paths   []string
		skipped []Skipped
		stats   DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			skipped = append(skipped, Skipped{Path: path, Reason: walkErr.Error()})
			return nil
		}
		if path == root {
			return nil
		}
		stats.Scanned++
		if opts.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !constants.IsAllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, nil, stats, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths))
	files := make([]entity.File, 0, len(paths))
	for _, path := range paths {
		data, err := readLimited(path, opts.MaxBytes)
		if err != nil {
			skipped = append(skipped, Skipped{Path: path, Reason: err.Error()})
			continue
		}
		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])
		if first, dup := seen[hash]; dup {
			stats.Duplicates++
			logger.Warn("ingest.duplicate", "path", path, "same_as", first, "sha256", hash)
		} else {
			seen[hash] = path
		}

		name, _ := filepath.Rel(root, path)
		files = append(files, entity.File{Name: filepath.ToSlash(name), Data: data})
	}
	stats.Collected = len(files)
	stats.Skipped = len(skipped)

	logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"collected", stats.Collected,
		"duplicates", stats.Duplicates,
		"skipped", stats.Skipped,
	)
	return files, skipped, stats, nil
}

func readLimited(path string, max int64) ([]byte, error) {
	if max > 0 {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if fi.Size() > max {
			return nil, fmt.Errorf("file is %d bytes, over the %d byte limit", fi.Size(), max)
		}
	}
	return os.ReadFile(path)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
