package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/server"
	"github.com/joseph-ayodele/invoice-extractor/internal/storage"
)

const serviceName = "invoice-extractor"

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("invoiced")
	var (
		httpAddr = fs.StringLong("http-addr", cfg.Server.HTTPAddr, "HTTP listen address")
		grpcAddr = fs.StringLong("grpc-addr", cfg.Server.GRPCAddr, "gRPC health listen address (empty disables)")
		logLevel = fs.StringLong("log-level", cfg.LogLevel, "debug | info | warn | error")
		probe    = fs.DurationLong("health-interval", 30*time.Second, "how often the report store is probed for gRPC health")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("INVOICED")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cfg.Server.HTTPAddr, cfg.Server.GRPCAddr, cfg.LogLevel = *httpAddr, *grpcAddr, *logLevel

	logger := common.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if err := cfg.RequireLLM(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire application", "error", err)
		os.Exit(1)
	}
	closeApp := func() {
		if err := a.Close(); err != nil {
			logger.Error("close", "error", err)
		}
	}
	defer closeApp()
	if err := storage.Check(ctx, a.Store); err != nil {
		logger.Error("report store health failed", "error", err)
		closeApp()
		os.Exit(1)
	}

	var auth *server.Authenticator
	if cfg.Auth.JWTSecret != "" {
		if auth, err = server.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer); err != nil {
			logger.Error("auth", "error", err)
			closeApp()
			os.Exit(2)
		}
		logger.Info("bearer auth enabled", "issuer", cfg.Auth.Issuer)
	}

	srv := server.New(a.Service, a.Reports, a.Store, a.Rates, server.Options{
		MaxUploadMB: cfg.Server.MaxUploadMB,
		MaxFiles:    cfg.Batch.MaxFiles,
		Auth:        auth,
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var (
		grpcServer *grpc.Server
		hs         *health.Server
	)
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("grpc listen", "addr", cfg.Server.GRPCAddr, "error", err)
			_ = httpServer.Close()
			closeApp()
			os.Exit(1)
		}
		grpcServer = grpc.NewServer()
		hs = health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, hs)
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
		reflection.Register(grpcServer)

		go func() {
			logger.Info("grpc health serving", "addr", cfg.Server.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
		go watchStore(ctx, a.Store, hs, *probe, logger)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server failed", "error", err)
	}

	logger.Info("shutting down...")
	if hs != nil {
		hs.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	logger.Info("stopped")
}

// watchStore flips the gRPC health status with the report store's reachability.
func watchStore(ctx context.Context, store storage.ReportStore, hs *health.Server, every time.Duration, logger *slog.Logger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := storage.Check(pctx, store)
			cancel()

			status := healthpb.HealthCheckResponse_SERVING
			if err != nil {
				status = healthpb.HealthCheckResponse_NOT_SERVING
				logger.Warn("store.health.failed", "error", err)
			}
			hs.SetServingStatus(serviceName, status)
		}
	}
}
