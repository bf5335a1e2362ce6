package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/validation"
)

type runResult struct {
	Iter     int              `json:"iter"`
	Fields   entity.RawFields `json:"fields"`
	Score    int              `json:"confidence_score"`
	Label    string           `json:"confidence_label"`
	Errors   []string         `json:"errors,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
	Elapsed  string           `json:"elapsed"`
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("llm")
	var (
		provider = fs.StringLong("provider", cfg.LLM.Provider, "openai | gemini")
		model    = fs.StringLong("model", cfg.LLM.Model, "model name")
		times    = fs.IntLong("times", 1, "how many extraction runs over the same file")
		timeout  = fs.DurationLong("timeout", 2*time.Minute, "per-run timeout")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("LLM_CLI")); err != nil || len(fs.GetArgs()) != 1 {
		fmt.Fprintf(os.Stderr, "usage: llm [flags] <invoice.pdf|invoice.txt>\n%s\n", ffhelp.Flags(fs))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(2)
	}
	path := fs.GetArgs()[0]
	cfg.LLM.Provider, cfg.LLM.Model = strings.ToLower(*provider), *model

	logger := common.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.RequireLLM(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx := context.Background()
	text, err := loadText(ctx, cfg, path, logger)
	if err != nil {
		logger.Error("load text", "path", path, "error", err)
		os.Exit(1)
	}

	completer, closeFn, err := app.NewCompleter(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Error("llm provider", "error", err)
		os.Exit(2)
	}
	defer func() { _ = closeFn() }()
	client, err := app.NewFieldExtractor(completer, cfg.LLM, logger)
	if err != nil {
		logger.Error("llm client", "error", err)
		_ = closeFn()
		os.Exit(2)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	failures := 0
	for i := 1; i <= *times; i++ {
		runCtx, cancel := context.WithTimeout(ctx, *timeout)
		start := time.Now()
		fields, _, err := client.ExtractFields(runCtx, llm.ExtractRequest{Text: text, FilenameHint: filepath.Base(path)})
		cancel()
		if err != nil {
			failures++
			logger.Error("llm.run.failed", "iter", i, "kind", llm.KindOf(err), "error", err)
			continue
		}

		report := validation.Validate(fields)
		score := validation.Score(fields)
		_ = enc.Encode(runResult{
			Iter:     i,
			Fields:   fields,
			Score:    score,
			Label:    validation.ScoreLabel(score),
			Errors:   report.ErrorStrings(),
			Warnings: report.WarningStrings(),
			Elapsed:  time.Since(start).Round(time.Millisecond).String(),
		})
	}
	if failures > 0 {
		logger.Warn("llm.runs.done", "runs", *times, "failures", failures)
		_ = closeFn()
		os.Exit(1)
	}
}

// loadText extracts PDF text, or reads any other file as plain text.
func loadText(ctx context.Context, cfg *common.Config, path string, logger *slog.Logger) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return string(data), nil
	}
	ext, err := app.NewTextExtractor(cfg.PDF, logger)
	if err != nil {
		return "", err
	}
	res, err := ext.Extract(ctx, data)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
