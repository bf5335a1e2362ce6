package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// ClientConfig tunes the retrying extraction client.
type ClientConfig struct {
	Policy         RetryPolicy
	AttemptTimeout time.Duration // per attempt; default 60s
	MaxTextChars   int           // default DefaultMaxTextChars
}

// Client implements FieldExtractor on top of any Completer. It owns the prompt, the schema
// check and the retry loop; completers only do one round trip.
type Client struct {
	completer Completer
	cfg       ClientConfig
	schemaMap map[string]any
	schema    *jsonschema.Schema
	system    string
	logger    *slog.Logger
}

func NewClient(completer Completer, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if completer == nil {
		return nil, errors.New("llm: nil completer")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Policy.MaxAttempts <= 0 {
		cfg.Policy = DefaultRetryPolicy()
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 60 * time.Second
	}
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = DefaultMaxTextChars
	}

	schemaMap := BuildInvoiceJSONSchema()
	schema, err := CompileSchema(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return &Client{
		completer: completer,
		cfg:       cfg,
		schemaMap: schemaMap,
		schema:    schema,
		system:    BuildSystemPrompt(schemaMap),
		logger:    logger,
	}, nil
}

// ExtractFields sends the document text to the completer and returns the validated fields.
// Transient failures are retried per the policy; malformed replies and permanent errors are not.
func (c *Client) ExtractFields(ctx context.Context, req ExtractRequest) (entity.RawFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()
	provider := c.completer.Name()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", provider,
		"file", req.FilenameHint,
		"text_len", len(req.Text),
		"max_attempts", c.cfg.Policy.MaxAttempts,
	)

	creq := CompletionRequest{
		System: c.system,
		User:   BuildUserPrompt(req, c.cfg.MaxTextChars),
	}

	var (
		fields  entity.RawFields
		rawJSON []byte
	)
	attempts, err := c.cfg.Policy.Do(ctx, c.logger, func(ctx context.Context, attempt int) error {
		actx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()

		reply, err := c.completer.Complete(actx, creq)
		if err != nil {
			return c.classifyAttempt(ctx, actx, provider, err)
		}
		f, cleaned, perr := ParseReply(provider, reply, c.schema, c.logger)
		rawJSON = cleaned
		if perr != nil {
			c.logger.Warn("llm.extract.malformed",
				"req_id", rid, "attempt", attempt, "error", perr, "reply_len", len(reply))
			return perr
		}
		fields = f
		return nil
	})

	if err != nil {
		var xe *ExtractionError
		if errors.As(err, &xe) {
			xe.Attempts = attempts
		}
		c.logger.Error("llm.extract.failed",
			"req_id", rid,
			"provider", provider,
			"attempts", attempts,
			"kind", KindOf(err),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.RawFields{}, rawJSON, err
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"provider", provider,
		"attempts", attempts,
		"vendor", fields.VendorName,
		"invoice_number", fields.InvoiceNumber,
		"currency", fields.Currency,
		"has_total", fields.TotalAmount != nil,
		"line_items", len(fields.LineItems),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields, rawJSON, nil
}

// classifyAttempt keeps parent cancellation distinct from the per-attempt deadline.
func (c *Client) classifyAttempt(parent, attempt context.Context, provider string, err error) error {
	if perr := parent.Err(); perr != nil {
		return perr
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return Transient(provider, 0, fmt.Errorf("attempt timed out after %s: %w", c.cfg.AttemptTimeout, err))
	}
	var xe *ExtractionError
	if errors.As(err, &xe) {
		return err
	}
	return Permanent(provider, 0, err)
}
