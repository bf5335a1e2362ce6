package pipeline

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

var (
	ErrEmptyBatch    = fmt.Errorf("%w: batch has no files", common.ErrInvalidInput)
	ErrBatchTooLarge = fmt.Errorf("%w: batch exceeds the maximum file count", common.ErrInvalidInput)
)

// Stage names the step where a file failed.
type Stage string

const (
	StageText       Stage = "text"
	StageFields     Stage = "fields"
	StageValidation Stage = "validation"
	StageTimeout    Stage = "timeout"
)

// FileError is a per-file failure. Its message is what lands in summary.errors.
type FileError struct {
	File   string
	Stage  Stage
	Reason string
	Err    error
}

func (e *FileError) Error() string {
	return e.File + ": " + e.Reason
}

func (e *FileError) Unwrap() error { return e.Err }

// AsFileError returns the FileError in err's chain, if any.
func AsFileError(err error) (*FileError, bool) {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

func timedOut(file string, err error) *FileError {
	return &FileError{File: file, Stage: StageTimeout, Reason: "processing timed out", Err: err}
}
