package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const (
	formField      = "files"
	multipartInMem = 32 << 20
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status         string `json:"status"`
	Storage        string `json:"storage"`
	StorageError   string `json:"storage_error,omitempty"`
	RatesUpdatedAt string `json:"rates_updated_at,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// ProcessInvoices accepts a multipart upload of PDFs under the "files" field.
func (s *Server) ProcessInvoices(w http.ResponseWriter, r *http.Request) {
	maxFile := int64(s.opts.MaxUploadMB) << 20
	// every file at its cap plus form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFile*int64(s.opts.MaxFiles)+(1<<20))

	if err := r.ParseMultipartForm(multipartInMem); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, common.InvalidInputf("upload exceeds %d files of %dMB", s.opts.MaxFiles, s.opts.MaxUploadMB))
			return
		}
		s.writeError(w, common.InvalidInputf("expected multipart form with %q files", formField))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[formField]
	switch {
	case len(headers) == 0:
		s.writeError(w, common.InvalidInputf("no files uploaded"))
		return
	case len(headers) > s.opts.MaxFiles:
		s.writeError(w, common.InvalidInputf("too many files: %d (max %d)", len(headers), s.opts.MaxFiles))
		return
	}

	files := make([]entity.File, 0, len(headers))
	for _, fh := range headers {
		if !constants.IsAllowedExt(filepath.Ext(fh.Filename)) {
			s.writeError(w, common.InvalidInputf("%s: only PDF files are accepted", fh.Filename))
			return
		}
		if fh.Size > maxFile {
			s.writeError(w, common.InvalidInputf("%s: exceeds %dMB", fh.Filename, s.opts.MaxUploadMB))
			return
		}
		data, err := readPart(fh)
		if err != nil {
			s.writeError(w, common.WrapError(err, "read upload"))
			return
		}
		files = append(files, entity.File{Name: filepath.Base(fh.Filename), Data: data})
	}

	s.logger.Info("http.batch.accepted",
		"req_id", common.RequestIDFromContext(r.Context()),
		"subject", common.SubjectFromContext(r.Context()),
		"files", len(files),
	)
	res, err := s.batches.Process(r.Context(), files)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ExportReport streams a stored workbook as an attachment.
func (s *Server) ExportReport(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["reference"]
	data, err := s.reports.Fetch(r.Context(), ref)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", constants.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ref))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Health reports the storage backend and the exchange-rate table age.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if s.rates != nil {
		if t := s.rates.UpdatedAt(); !t.IsZero() {
			resp.RatesUpdatedAt = t.UTC().Format(time.RFC3339)
		}
	}
	code := http.StatusOK
	if s.store != nil {
		resp.Storage = s.store.Backend()
		if err := s.store.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.StorageError = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, resp)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := common.HTTPStatus(err)
	msg := err.Error()
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("http.error", "status", code, "error", err)
		msg = http.StatusText(code)
	}
	writeJSON(w, code, errorResponse{Error: http.StatusText(code), Message: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
