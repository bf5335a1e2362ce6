package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/currency"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// FileProcessor turns one file into a record or a per-file error.
type FileProcessor interface {
	ProcessFile(ctx context.Context, file entity.File) (*entity.InvoiceRecord, error)
}

type Aggregator struct {
	proc          FileProcessor
	logger        *slog.Logger
	workers       int
	maxFiles      int
	fileTimeout   time.Duration
	batchTimeout  time.Duration
	rejectInvalid bool
	now           func() time.Time
}

type Option func(*Aggregator)

// WithWorkers bounds how many files are processed at once; 1 is sequential.
func WithWorkers(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

func WithMaxFiles(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxFiles = n
		}
	}
}

// WithFileTimeout bounds a single file; zero disables the per-file bound.
func WithFileTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d >= 0 {
			a.fileTimeout = d
		}
	}
}

// WithBatchTimeout bounds the whole batch; zero disables it.
func WithBatchTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d >= 0 {
			a.batchTimeout = d
		}
	}
}

// WithRejectInvalid turns records with hard validation errors into per-file errors.
func WithRejectInvalid(reject bool) Option {
	return func(a *Aggregator) {
		a.rejectInvalid = reject
	}
}

func withClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAggregator(proc FileProcessor, logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		proc:         proc,
		logger:       logger,
		workers:      4,
		maxFiles:     constants.MaxBatchFilesDefault,
		fileTimeout:  3 * time.Minute,
		batchTimeout: 5 * time.Minute,
		now:          time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// outcome is what one file contributes to the batch.
type outcome struct {
	record *entity.InvoiceRecord
	err    error
}

// ProcessBatch processes every file and reduces the outcomes in input order. Only a structurally
// invalid batch or a cancelled caller context is returned as an error; per-file failures end up
// in the summary.
func (a *Aggregator) ProcessBatch(ctx context.Context, files []entity.File) (*entity.BatchResult, error) {
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(files) > a.maxFiles {
		return nil, fmt.Errorf("%w (%d > %d)", ErrBatchTooLarge, len(files), a.maxFiles)
	}

	batchID := uuid.New().String()
	ctx = common.WithBatchID(ctx, batchID)
	started := a.now().UTC()
	log := a.logger.With("batch_id", batchID)
	log.Info("batch.start", "files", len(files), "workers", a.workers)

	bctx, cancel := common.WithTimeout(ctx, a.batchTimeout)
	defer cancel()

	outcomes := make([]outcome, len(files))
	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, f := range files {
		if bctx.Err() != nil {
			outcomes[i] = outcome{err: timedOut(f.Name, bctx.Err())}
			continue
		}
		g.Go(func() error {
			outcomes[i] = a.processOne(bctx, f)
			return nil
		})
	}
	_ = g.Wait()

	// the caller went away; a partial result is not guaranteed
	if err := ctx.Err(); err != nil {
		log.Warn("batch.cancelled", "error", err)
		return nil, err
	}

	acc := newAccumulator(batchID, started, len(files))
	for _, o := range outcomes {
		acc.add(o)
	}
	result := acc.finish(a.now().UTC())

	log.Info("batch.done",
		"processed", result.Summary.TotalInvoicesProcessed,
		"failed", len(result.Summary.Errors),
		"flagged", result.Summary.FlaggedInvoicesCount,
		"total_usd", result.Summary.TotalAmount.StringFixed(2),
		"elapsed_ms", result.FinishedAt.Sub(started).Milliseconds(),
	)
	return result, nil
}

func (a *Aggregator) processOne(bctx context.Context, f entity.File) outcome {
	if err := bctx.Err(); err != nil {
		return outcome{err: timedOut(f.Name, err)}
	}
	fctx, cancel := common.WithTimeout(bctx, a.fileTimeout)
	defer cancel()

	rec, err := a.proc.ProcessFile(fctx, f)
	if err != nil {
		if errors.Is(fctx.Err(), context.DeadlineExceeded) {
			err = timedOut(f.Name, err)
		} else if _, ok := AsFileError(err); !ok {
			err = &FileError{File: f.Name, Reason: err.Error(), Err: err}
		}
		a.logger.Warn("batch.file.failed", "batch_id", common.BatchIDFromContext(bctx), "file", f.Name, "error", err)
		return outcome{err: err}
	}
	if rec.Status == constants.RecordStatusInvalid && a.rejectInvalid {
		return outcome{err: &FileError{
			File:   f.Name,
			Stage:  StageValidation,
			Reason: "validation failed: " + strings.Join(rec.Errors, "; "),
			Err:    common.ErrValidation,
		}}
	}
	return outcome{record: rec}
}

// accumulator is the single owner of the batch totals while outcomes are reduced.
type accumulator struct {
	result *entity.BatchResult
}

func newAccumulator(batchID string, started time.Time, n int) *accumulator {
	return &accumulator{result: &entity.BatchResult{
		BatchID:   batchID,
		Records:   make([]entity.InvoiceRecord, 0, n),
		StartedAt: started,
		Summary: entity.BatchSummary{
			TotalAmount: decimal.Zero,
			Errors:      []string{},
		},
	}}
}

func (acc *accumulator) add(o outcome) {
	s := &acc.result.Summary
	if o.err != nil {
		s.Errors = append(s.Errors, errorMessage(o.err))
		return
	}
	rec := *o.record
	acc.result.Records = append(acc.result.Records, rec)
	s.TotalInvoicesProcessed++
	s.TotalAmount = s.TotalAmount.Add(rec.TotalAmountUSD)
	if rec.Flagged {
		s.FlaggedInvoicesCount++
	}
}

func (acc *accumulator) finish(at time.Time) *entity.BatchResult {
	acc.result.Summary.CurrencyBreakdown = currency.Summarize(acc.result.Records)
	acc.result.FinishedAt = at
	return acc.result
}

// errorMessage keeps summary entries in the "<file>: <reason>" shape.
func errorMessage(err error) string {
	if fe, ok := AsFileError(err); ok {
		return fe.Error()
	}
	return err.Error()
}
