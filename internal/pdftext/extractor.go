package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Backend turns PDF bytes into raw page text.
type Backend interface {
	Name() string
	Text(ctx context.Context, data []byte) (text string, pages int, err error)
}

// TextExtractor is the dependency the batch pipeline holds.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (Result, error)
}

type Config struct {
	Backends     []string // tried in order; default native, poppler
	Pdftotext    string   // binary name or absolute path; if empty -> "pdftotext"
	MinTextChars int      // letters/digits required to accept a backend's output; default 1
}

type Result struct {
	Text       string
	Pages      int
	Method     string // backend that produced the text
	Duration   time.Duration
	Confidence float32 // how invoice-like the text looks, 0..1
}

type Extractor struct {
	cfg      Config
	runner   Runner
	backends []Backend
	logger   *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner used by the poppler backend.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithBackends bypasses Config.Backends.
func WithBackends(bs ...Backend) Option {
	return func(e *Extractor) {
		if len(bs) > 0 {
			e.backends = bs
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 1
	}
	if len(cfg.Backends) == 0 {
		cfg.Backends = []string{"native", "poppler"}
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	if len(e.backends) == 0 {
		for _, name := range cfg.Backends {
			b, err := e.backendByName(name)
			if err != nil {
				return nil, err
			}
			e.backends = append(e.backends, b)
		}
	}
	return e, nil
}

func (e *Extractor) backendByName(name string) (Backend, error) {
	switch name {
	case "native":
		return NativeBackend{}, nil
	case "mupdf":
		return MuPDFBackend{}, nil
	case "poppler":
		return PopplerBackend{Bin: e.cfg.Pdftotext, Runner: e.runner, Logger: e.logger}, nil
	default:
		return nil, fmt.Errorf("unknown pdf backend %q", name)
	}
}

// Extract returns the document text from the first backend that yields any, or the most
// specific ExtractionFailure seen across backends.
func (e *Extractor) Extract(ctx context.Context, data []byte) (Result, error) {
	start := time.Now()
	if len(bytes.TrimSpace(data)) == 0 {
		return Result{}, &ExtractionFailure{Reason: ReasonEmpty, Detail: "zero-length input"}
	}
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, []byte(constants.PDFMagic)) {
		return Result{}, unsupported("", "missing PDF header")
	}

	var failure *ExtractionFailure
	var lastErr error
	for _, b := range e.backends {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		text, pages, err := b.Text(ctx, data)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			if f, ok := AsFailure(err); ok {
				failure = moreSpecific(failure, f)
			} else {
				lastErr = err
			}
			e.logger.Warn("pdftext.backend.failed", "backend", b.Name(), "error", err)
			continue
		}

		text = Normalize(text)
		if meaningfulChars(text) < e.cfg.MinTextChars {
			e.logger.Warn("pdftext.backend.no_text", "backend", b.Name(), "pages", pages)
			failure = moreSpecific(failure, &ExtractionFailure{Reason: ReasonEmpty, Backend: b.Name(), Detail: "no extractable text layer"})
			continue
		}

		res := Result{
			Text:       text,
			Pages:      pages,
			Method:     b.Name(),
			Duration:   time.Since(start),
			Confidence: textConfidence(text),
		}
		e.logger.Debug("pdftext.extract.ok",
			"backend", b.Name(),
			"pages", pages,
			"chars", len(text),
			"confidence", res.Confidence,
			"elapsed_ms", res.Duration.Milliseconds(),
		)
		return res, nil
	}

	if failure != nil {
		return Result{}, failure
	}
	if lastErr != nil {
		return Result{}, fmt.Errorf("no pdf backend could read the document: %w", lastErr)
	}
	return Result{}, errors.New("no pdf backends configured")
}
