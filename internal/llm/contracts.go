package llm

import (
	"context"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

type ExtractRequest struct {
	Text         string
	FilenameHint string
}

// FieldExtractor is the interface our pipeline depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (entity.RawFields, []byte /*rawJSON*/, error)
}

// CompletionRequest is one provider round trip: a system and a user message, JSON reply expected.
type CompletionRequest struct {
	System string
	User   string
}

// Completer is a single attempt against an extraction service. Implementations classify their
// failures as *ExtractionError so the retry policy can tell transient from permanent.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
