package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/currency"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdftext"
	"github.com/joseph-ayodele/invoice-extractor/internal/validation"
)

// Processor runs one document through text extraction, field extraction, validation and
// currency normalization.
type Processor struct {
	logger     *slog.Logger
	text       pdftext.TextExtractor
	fields     llm.FieldExtractor
	normalizer *currency.Normalizer
}

func NewProcessor(logger *slog.Logger, text pdftext.TextExtractor, fields llm.FieldExtractor, normalizer *currency.Normalizer) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, text: text, fields: fields, normalizer: normalizer}
}

// ProcessFile returns a record, or a *FileError when the file cannot become one. Records
// with hard validation errors other than the total are returned with status INVALID.
func (p *Processor) ProcessFile(ctx context.Context, file entity.File) (*entity.InvoiceRecord, error) {
	start := time.Now()
	log := p.logger.With("batch_id", common.BatchIDFromContext(ctx), "file", file.Name)

	// 1) text layer
	res, err := p.text.Extract(ctx, file.Data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, timedOut(file.Name, ctxErr)
		}
		log.Warn("processor.text.failed", "error", err)
		return nil, textFailure(file.Name, err)
	}
	log.Debug("processor.text.ok",
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"confidence", res.Confidence,
	)

	// 2) structured fields
	fields, _, err := p.fields.ExtractFields(ctx, llm.ExtractRequest{Text: res.Text, FilenameHint: file.Name})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, timedOut(file.Name, ctxErr)
		}
		log.Warn("processor.fields.failed", "kind", llm.KindOf(err), "error", err)
		return nil, fieldsFailure(file.Name, err)
	}

	// 3) validation and score
	report := validation.Validate(fields)
	if report.RejectsTotal() {
		log.Warn("processor.validation.rejected", "errors", report.ErrorStrings())
		return nil, &FileError{
			File:   file.Name,
			Stage:  StageValidation,
			Reason: "validation failed: " + strings.Join(report.ErrorStrings(), "; "),
			Err:    common.ErrValidation,
		}
	}
	score := validation.Score(fields)

	// 4) currency
	rec := p.buildRecord(file, res, fields, report, score)
	log.Info("processor.file.ok",
		"record_id", rec.ID,
		"currency", rec.Currency,
		"currency_confidence", rec.CurrencyConfidence,
		"total", rec.TotalAmount.String(),
		"total_usd", rec.TotalAmountUSD.StringFixed(2),
		"flagged", rec.Flagged,
		"score", rec.ConfidenceScore,
		"status", rec.Status,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func (p *Processor) buildRecord(file entity.File, res pdftext.Result, fields entity.RawFields, report validation.IssueReport, score int) *entity.InvoiceRecord {
	warnings := report.WarningStrings()

	total := *fields.TotalAmount
	code := strings.ToUpper(strings.TrimSpace(fields.Currency))
	var confidence float64
	switch {
	case code == "":
		detected, conf := detectCurrency(res.Text, fields)
		if p.normalizer.Known(detected) {
			code, confidence = detected, conf
		} else {
			code, confidence = currency.BaseCurrency, currency.ConfidenceDefault
		}
	case !p.normalizer.Known(code):
		warnings = append(warnings, fmt.Sprintf("currency %s has no exchange rate; treated as USD", code))
		code = currency.BaseCurrency
		confidence = currency.ConfidenceDefault
	default:
		_, confidence = p.normalizer.Normalize(code, total)
	}
	usd, _ := p.normalizer.Normalize(code, total)

	status := constants.RecordStatusOK
	if !report.Valid() {
		status = constants.RecordStatusInvalid
	}
	return &entity.InvoiceRecord{
		ID:                 uuid.New().String(),
		SourceFile:         file.Name,
		VendorName:         strings.TrimSpace(fields.VendorName),
		InvoiceNumber:      strings.TrimSpace(fields.InvoiceNumber),
		InvoiceDate:        strings.TrimSpace(fields.InvoiceDate),
		Currency:           code,
		CurrencyConfidence: confidence,
		TotalAmount:        total,
		TotalAmountUSD:     usd,
		LineItems:          fields.LineItems,
		Flagged:            entity.IsFlagged(usd),
		ConfidenceScore:    score,
		ConfidenceLabel:    validation.ScoreLabel(score),
		Status:             status,
		Errors:             report.ErrorStrings(),
		Warnings:           warnings,
		Pages:              res.Pages,
		ExtractionMethod:   res.Method,
	}
}

// detectCurrency accepts an unambiguous signal anywhere in the document. Ambiguous symbols
// such as a bare "$" only count when they appear in the vendor, number or date fields, since
// amounts on a USD invoice carry them too.
func detectCurrency(text string, fields entity.RawFields) (string, float64) {
	if code, conf := currency.Detect(text); conf > currency.ConfidenceAmbiguous {
		return code, conf
	}
	return currency.Detect(strings.Join([]string{fields.VendorName, fields.InvoiceNumber, fields.InvoiceDate}, " "))
}

func textFailure(file string, err error) *FileError {
	reason := "extraction failed (empty/corrupt document)"
	if f, ok := pdftext.AsFailure(err); ok && f.Reason == pdftext.ReasonUnsupported {
		reason = "extraction failed (unsupported document)"
	}
	return &FileError{File: file, Stage: StageText, Reason: reason, Err: err}
}

func fieldsFailure(file string, err error) *FileError {
	reason := "field extraction failed"
	var xe *llm.ExtractionError
	if errors.As(err, &xe) {
		switch xe.Kind {
		case llm.KindTransient:
			reason = fmt.Sprintf("field extraction failed after %d attempts (service unavailable)", max(xe.Attempts, 1))
		case llm.KindMalformed:
			reason = "field extraction failed (malformed response)"
		case llm.KindPermanent:
			reason = "field extraction failed (request rejected by service)"
		}
	}
	return &FileError{File: file, Stage: StageFields, Reason: reason, Err: err}
}
