package pdftext

import (
	"errors"
	"fmt"
)

// Reason classifies why a document yielded no usable text.
type Reason string

const (
	ReasonCorrupt     Reason = "corrupt"
	ReasonEmpty       Reason = "empty"
	ReasonUnsupported Reason = "unsupported"
)

// ExtractionFailure means the document has no usable text. It is never retried.
type ExtractionFailure struct {
	Reason  Reason
	Backend string
	Detail  string
	Err     error
}

func (f *ExtractionFailure) Error() string {
	msg := "pdf text extraction failed: " + string(f.Reason)
	if f.Backend != "" {
		msg += " (" + f.Backend + ")"
	}
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, f.Err)
	}
	return msg
}

func (f *ExtractionFailure) Unwrap() error { return f.Err }

// AsFailure returns the ExtractionFailure in err's chain, if any.
func AsFailure(err error) (*ExtractionFailure, bool) {
	var f *ExtractionFailure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func corrupt(backend string, err error) *ExtractionFailure {
	return &ExtractionFailure{Reason: ReasonCorrupt, Backend: backend, Err: err}
}

func unsupported(backend, detail string) *ExtractionFailure {
	return &ExtractionFailure{Reason: ReasonUnsupported, Backend: backend, Detail: detail}
}

// rank orders failures by how much they tell the caller; the most specific one is reported.
func rank(r Reason) int {
	switch r {
	case ReasonUnsupported:
		return 3
	case ReasonEmpty:
		return 2
	default:
		return 1
	}
}

func moreSpecific(cur, next *ExtractionFailure) *ExtractionFailure {
	if cur == nil || rank(next.Reason) > rank(cur.Reason) {
		return next
	}
	return cur
}
