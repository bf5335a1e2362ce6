package export

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/storage"
)

const referenceTimeLayout = "20060102T150405Z"

var reReference = regexp.MustCompile(`^` + constants.ReportPrefix + `\d{8}T\d{6}Z_[0-9a-f]{8}` + regexp.QuoteMeta(constants.ReportExt) + `$`)

// Service renders batch results into workbooks and keeps them in a ReportStore.
type Service struct {
	renderer *Renderer
	store    storage.ReportStore
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store storage.ReportStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		renderer: NewRenderer(logger),
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// NewReference builds invoices_export_<UTC timestamp>_<8 hex>.xlsx.
func NewReference(at time.Time) string {
	token := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return constants.ReportPrefix + at.UTC().Format(referenceTimeLayout) + "_" + token + constants.ReportExt
}

// ValidReference reports whether ref has the generated shape.
func ValidReference(ref string) bool {
	return reReference.MatchString(ref)
}

// Render writes the workbook for res and returns its reference.
func (s *Service) Render(ctx context.Context, res *entity.BatchResult) (string, error) {
	start := time.Now()
	data, err := s.renderer.Bytes(res)
	if err != nil {
		return "", err
	}

	ref := NewReference(s.now())
	if err := s.store.Put(ctx, ref, data); err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"batch_id", res.BatchID,
		"ref", ref,
		"backend", s.store.Backend(),
		"rows", len(res.Records),
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ref, nil
}

// Fetch returns the stored workbook bytes.
func (s *Service) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if !ValidReference(ref) {
		return nil, common.NotFoundf("report %q", ref)
	}
	data, err := s.store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("export.fetch", "ref", ref, "bytes", len(data))
	return data, nil
}
