package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/currency"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// BatchProcessor runs a batch end to end and returns the rendered result.
type BatchProcessor interface {
	Process(ctx context.Context, files []entity.File) (*entity.BatchResult, error)
}

// ReportFetcher loads a rendered report by reference.
type ReportFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// StoreChecker is the slice of the report store the health endpoint needs.
type StoreChecker interface {
	Backend() string
	Ping(ctx context.Context) error
}

type Options struct {
	MaxUploadMB int
	MaxFiles    int
	Auth        *Authenticator // nil disables the bearer gate
}

// Server exposes the invoice pipeline over HTTP.
type Server struct {
	batches BatchProcessor
	reports ReportFetcher
	store   StoreChecker
	rates   currency.RateTable
	opts    Options
	logger  *slog.Logger
}

func New(batches BatchProcessor, reports ReportFetcher, store StoreChecker, rates currency.RateTable, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = constants.MaxUploadMBDefault
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = constants.MaxBatchFilesDefault
	}
	return &Server{
		batches: batches,
		reports: reports,
		store:   store,
		rates:   rates,
		opts:    opts,
		logger:  logger,
	}
}

// Routes builds the router. Health stays outside the auth gate.
func (s *Server) Routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.requestLogger)

	router.HandleFunc("/api/invoices/health", s.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/invoices").Subrouter()
	if s.opts.Auth != nil {
		api.Use(s.opts.Auth.Middleware)
	}
	api.HandleFunc("/process", s.ProcessInvoices).Methods(http.MethodPost)
	api.HandleFunc("/export/{reference}", s.ExportReport).Methods(http.MethodGet)

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", rid)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(common.WithRequestID(r.Context(), rid)))

		s.logger.Info("http.request",
			"req_id", rid,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}
