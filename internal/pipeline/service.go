package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// ReportRenderer renders a finished batch and returns the reference it is stored under.
type ReportRenderer interface {
	Render(ctx context.Context, result *entity.BatchResult) (string, error)
}

// Service is the entry point used by the transports: aggregate, then render.
type Service struct {
	agg      *Aggregator
	reporter ReportRenderer
	logger   *slog.Logger
}

func NewService(agg *Aggregator, reporter ReportRenderer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{agg: agg, reporter: reporter, logger: logger}
}

// Process runs the batch and attaches the report reference. A batch where every file
// failed is still rendered so the errors are visible in the report.
func (s *Service) Process(ctx context.Context, files []entity.File) (*entity.BatchResult, error) {
	result, err := s.agg.ProcessBatch(ctx, files)
	if err != nil {
		return nil, err
	}
	if s.reporter == nil {
		return result, nil
	}
	ref, err := s.reporter.Render(ctx, result)
	if err != nil {
		s.logger.Error("batch.render.failed", "batch_id", result.BatchID, "error", err)
		return nil, fmt.Errorf("render report: %w", err)
	}
	result.ReportReference = ref
	return result, nil
}
