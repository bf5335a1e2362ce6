package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// ReportStore keeps rendered reports addressed by their reference.
type ReportStore interface {
	Backend() string
	Put(ctx context.Context, ref string, data []byte) error
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
	Ping(ctx context.Context) error
	Close() error
}

// ErrNotFound is returned by Get and Delete for unknown references.
var ErrNotFound = fmt.Errorf("report %w", common.ErrNotFound)

var reRef = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,199}$`)

// CheckRef rejects references that could escape a directory or bucket prefix.
func CheckRef(ref string) error {
	if !reRef.MatchString(ref) || containsDotDot(ref) {
		return common.InvalidInputf("invalid report reference %q", ref)
	}
	return nil
}

func containsDotDot(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '.' && s[i+1] == '.' {
			return true
		}
	}
	return false
}
