package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// NativeBackend reads the text layer with a pure-Go PDF parser.
type NativeBackend struct{}

func (NativeBackend) Name() string { return "native" }

func (b NativeBackend) Text(ctx context.Context, data []byte) (text string, pages int, err error) {
	// the parser panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = &ExtractionFailure{Reason: ReasonCorrupt, Backend: b.Name(), Detail: fmt.Sprintf("parser panic: %v", r)}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return "", 0, unsupported(b.Name(), "password protected")
		}
		return "", 0, corrupt(b.Name(), err)
	}

	pages = r.NumPage()
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t, err := p.GetPlainText(nil)
		if err != nil {
			return "", 0, corrupt(b.Name(), fmt.Errorf("page %d: %w", i, err))
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\f\n")
		}
		sb.WriteString(t)
	}
	return sb.String(), pages, nil
}
