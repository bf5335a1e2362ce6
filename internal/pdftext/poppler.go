package pdftext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// PopplerBackend shells out to pdftotext.
type PopplerBackend struct {
	Bin    string
	Runner Runner
	Logger *slog.Logger
}

func (PopplerBackend) Name() string { return "poppler" }

func (b PopplerBackend) Text(ctx context.Context, data []byte) (string, int, error) {
	tmp, err := os.CreateTemp("", "inv-pdf-*.pdf")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	defer func(path string) {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			b.Logger.Warn("pdftext.poppler.cleanup_failed", "path", path, "error", err)
		}
	}(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", 0, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("close temp file: %w", err)
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := b.Runner.Run(ctx, b.Bin, "-layout", "-enc", "UTF-8", "-eol", "unix", tmp.Name(), "-")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", 0, ctxErr
		}
		stderr := strings.ToLower(string(errb))
		switch {
		case strings.Contains(stderr, "password"):
			return "", 0, unsupported(b.Name(), "password protected")
		case strings.Contains(stderr, "syntax error"), strings.Contains(stderr, "couldn't"), strings.Contains(stderr, "may not be a pdf"):
			return "", 0, corrupt(b.Name(), fmt.Errorf("%w: %s", err, truncate(strings.TrimSpace(string(errb)), 512)))
		}
		// binary missing or crashed: not a statement about the document
		return "", 0, fmt.Errorf("pdftotext: %w", err)
	}

	// A form-feed \f is used as page separator by default
	text := strings.TrimRight(string(out), "\f\n")
	pages := 1 + strings.Count(text, "\f")
	return text, pages, nil
}
