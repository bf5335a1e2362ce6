package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("pdftext")
	var (
		backends  = fs.StringLong("backends", strings.Join(cfg.PDF.Backends, ","), "comma separated: native | mupdf | poppler")
		pdftotext = fs.StringLong("pdftotext", cfg.PDF.Pdftotext, "pdftotext binary for the poppler backend")
		timeout   = fs.DurationLong("timeout", time.Minute, "extraction timeout")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("PDFTEXT")); err != nil || len(fs.GetArgs()) != 1 {
		fmt.Fprintf(os.Stderr, "usage: pdftext [flags] <file.pdf>\n%s\n", ffhelp.Flags(fs))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(2)
	}
	path := fs.GetArgs()[0]

	logger := common.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	cfg.PDF.Backends = nil
	for _, b := range strings.Split(*backends, ",") {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			cfg.PDF.Backends = append(cfg.PDF.Backends, b)
		}
	}
	cfg.PDF.Pdftotext = *pdftotext

	ext, err := app.NewTextExtractor(cfg.PDF, logger)
	if err != nil {
		logger.Error("pdf extractor", "error", err)
		os.Exit(2)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	res, err := ext.Extract(ctx, data)
	if err != nil {
		logger.Error("extraction failed", "path", path, "error", err)
		os.Exit(1)
	}
	logger.Info("pdftext.ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	fmt.Println(res.Text)
}
