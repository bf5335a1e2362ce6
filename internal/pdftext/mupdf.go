package pdftext

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// MuPDFBackend reads the text layer through MuPDF.
type MuPDFBackend struct{}

func (MuPDFBackend) Name() string { return "mupdf" }

func (b MuPDFBackend) Text(ctx context.Context, data []byte) (string, int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		if errors.Is(err, fitz.ErrNeedsPassword) {
			return "", 0, unsupported(b.Name(), "password protected")
		}
		return "", 0, corrupt(b.Name(), err)
	}
	defer func() { _ = doc.Close() }()

	pages := doc.NumPage()
	var sb strings.Builder
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		t, err := doc.Text(i)
		if err != nil {
			return "", 0, corrupt(b.Name(), fmt.Errorf("page %d: %w", i+1, err))
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\f\n")
		}
		sb.WriteString(t)
	}
	return sb.String(), pages, nil
}
