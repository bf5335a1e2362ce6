package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
)

// usageError marks bad flags or configuration; main exits 2 for it.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run processes one directory and prints the summary. Everything it opens is closed before
// it returns, on the failure paths too.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return usageError{err}
	}

	fs := ff.NewFlagSet("invoice-batch")
	var (
		dir      = fs.StringLong("dir", "", "directory of PDF invoices (required)")
		out      = fs.StringLong("out", "", "directory for the XLSX report (default: --dir)")
		workers  = fs.IntLong("workers", cfg.Batch.Workers, "files processed at once")
		reject   = fs.BoolLong("reject-invalid", "report records with hard validation errors as failures")
		recurse  = fs.BoolLong("recursive", "include PDFs in subdirectories")
		logLevel = fs.StringLong("log-level", cfg.LogLevel, "debug | info | warn | error")
	)
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("INVOICE_BATCH")); err != nil || *dir == "" {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Flags(fs))
		if err == nil {
			err = errors.New("--dir is required")
		}
		return usageError{err}
	}

	logger := common.NewLogger(stderr, *logLevel)
	slog.SetDefault(logger)

	if *out == "" {
		*out = *dir
	}
	cfg.Batch.Workers = *workers
	cfg.Batch.RejectInvalid = cfg.Batch.RejectInvalid || *reject
	cfg.Storage = common.StorageConfig{Backend: "local", Dir: *out}

	if err := cfg.Validate(); err != nil {
		return usageError{fmt.Errorf("invalid configuration: %w", err)}
	}
	if err := cfg.RequireLLM(); err != nil {
		return usageError{fmt.Errorf("invalid configuration: %w", err)}
	}

	files, skipped, _, err := ingest.CollectPDFs(*dir, ingest.Options{
		Recursive:  *recurse,
		SkipHidden: true,
		MaxBytes:   int64(cfg.Server.MaxUploadMB) << 20,
	}, logger)
	if err != nil {
		return fmt.Errorf("read input %s: %w", *dir, err)
	}
	for _, s := range skipped {
		logger.Warn("input skipped", "path", s.Path, "reason", s.Reason)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("wire application: %w", err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("close application", "error", cerr)
		}
	}()

	res, err := a.Service.Process(ctx, files)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Summary entity.BatchSummary `json:"summary"`
		Report  string              `json:"report"`
	}{res.Summary, filepath.Join(*out, res.ReportReference)})
}
