package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/currency"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdftext"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/storage"
)

// App is the fully wired pipeline shared by the commands.
type App struct {
	Text       *pdftext.Extractor
	Fields     *llm.Client
	Rates      *currency.StaticRates
	Normalizer *currency.Normalizer
	Store      storage.ReportStore
	Reports    *export.Service
	Aggregator *pipeline.Aggregator
	Service    *pipeline.Service

	closers []func() error
	logger  *slog.Logger
}

// NewTextExtractor builds the PDF text extractor from config.
func NewTextExtractor(cfg common.PDFConfig, logger *slog.Logger) (*pdftext.Extractor, error) {
	return pdftext.NewExtractor(pdftext.Config{
		Backends:     cfg.Backends,
		Pdftotext:    cfg.Pdftotext,
		MinTextChars: cfg.MinTextChars,
	}, logger)
}

// NewCompleter builds the provider client named by cfg.Provider.
func NewCompleter(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Completer, func() error, error) {
	switch cfg.Provider {
	case "", "openai":
		c, err := openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}, logger)
		return c, func() error { return nil }, err
	case "gemini":
		model := cfg.Model
		if model == "gpt-4o-mini" {
			// the default model only makes sense for openai
			model = ""
		}
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       model,
			Temperature: cfg.Temperature,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, common.InvalidInputf("llm provider %q is not supported", cfg.Provider)
	}
}

// NewFieldExtractor wraps a completer with the retry policy and reply checks.
func NewFieldExtractor(completer llm.Completer, cfg common.LLMConfig, logger *slog.Logger) (*llm.Client, error) {
	policy := llm.DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		policy.BaseDelay = cfg.BaseDelay
	}
	if cfg.MaxDelay > 0 {
		policy.MaxDelay = cfg.MaxDelay
	}
	return llm.NewClient(completer, llm.ClientConfig{
		Policy:         policy,
		AttemptTimeout: cfg.AttemptTimeout,
		MaxTextChars:   cfg.MaxTextChars,
	}, logger)
}

// New wires every component from cfg. Callers must Close the result.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{logger: logger}

	var err error
	if a.Text, err = NewTextExtractor(cfg.PDF, logger); err != nil {
		return nil, fmt.Errorf("pdf extractor: %w", err)
	}

	completer, closeCompleter, err := NewCompleter(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	a.closers = append(a.closers, closeCompleter)

	if a.Fields, err = NewFieldExtractor(completer, cfg.LLM, logger); err != nil {
		_ = a.Close()
		return nil, err
	}

	if a.Rates, err = currency.NewStaticRates(cfg.Rates.Overrides); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("exchange rates: %w", err)
	}
	a.Normalizer = currency.NewNormalizer(a.Rates)

	if a.Store, err = storage.Open(ctx, cfg.Storage, logger); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("report store: %w", err)
	}
	a.closers = append(a.closers, a.Store.Close)
	a.Reports = export.NewService(a.Store, logger)

	proc := pipeline.NewProcessor(logger, a.Text, a.Fields, a.Normalizer)
	a.Aggregator = pipeline.NewAggregator(proc, logger,
		pipeline.WithWorkers(cfg.Batch.Workers),
		pipeline.WithMaxFiles(cfg.Batch.MaxFiles),
		pipeline.WithFileTimeout(cfg.Batch.FileTimeout),
		pipeline.WithBatchTimeout(cfg.Batch.BatchTimeout),
		pipeline.WithRejectInvalid(cfg.Batch.RejectInvalid),
	)
	a.Service = pipeline.NewService(a.Aggregator, a.Reports, logger)

	logger.Info("app.wired",
		"llm_provider", completer.Name(),
		"pdf_backends", cfg.PDF.Backends,
		"storage", a.Store.Backend(),
		"workers", cfg.Batch.Workers,
	)
	return a, nil
}

// Close releases everything New opened, last first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
