package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/storage"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("storehealth")
	var (
		backend   = fs.StringLong("backend", cfg.Storage.Backend, "local | bolt | minio | sqlite | postgres")
		roundtrip = fs.BoolLong("roundtrip", "also write, read back and delete a probe report")
		timeout   = fs.DurationLong("timeout", 10*time.Second, "overall timeout")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("STOREHEALTH")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	cfg.Storage.Backend = *backend

	logger := common.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("open store", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	if err := storage.Check(ctx, store); err != nil {
		logger.Error("store health failed", "error", err)
		_ = store.Close()
		os.Exit(1)
	}
	if *roundtrip {
		if err := probe(ctx, store); err != nil {
			logger.Error("store roundtrip failed", "error", err)
			_ = store.Close()
			os.Exit(1)
		}
	}
	logger.Info("store health OK", "backend", store.Backend(), "roundtrip", *roundtrip)
}

func probe(ctx context.Context, store storage.ReportStore) error {
	ref := "healthcheck_" + uuid.New().String()
	want := []byte(ref)
	if err := store.Put(ctx, ref, want); err != nil {
		return err
	}
	got, err := store.Get(ctx, ref)
	if err != nil {
		return err
	}
	if string(got) != string(want) {
		return fmt.Errorf("read back %d bytes, want %d", len(got), len(want))
	}
	return store.Delete(ctx, ref)
}
