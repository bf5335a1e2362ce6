package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

const providerName = "gemini"

// Config for the Gemini completer.
type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	Model       string // default gemini-1.5-flash
	Temperature float32
	MaxTokens   int32
}

// Client implements llm.Completer using Google Gemini in JSON response mode.
type Client struct {
	cfg    Config
	client *genai.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Client{cfg: cfg, client: client, logger: logger}, nil
}

func (c *Client) Name() string { return providerName }

// Complete runs one GenerateContent call and concatenates the text parts of the first candidate.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	start := time.Now()

	model := c.client.GenerativeModel(c.cfg.Model)
	model.SetTemperature(c.cfg.Temperature)
	model.SetMaxOutputTokens(c.cfg.MaxTokens)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}

	resp, err := model.GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		cerr := classify(err)
		c.logger.Warn("llm.gemini.error",
			"model", c.cfg.Model,
			"kind", llm.KindOf(cerr),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", cerr
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", llm.Malformed(providerName, errors.New("no response from gemini"))
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	c.logger.Debug("llm.gemini.ok",
		"model", c.cfg.Model,
		"finish_reason", resp.Candidates[0].FinishReason.String(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return strings.TrimSpace(text.String()), nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	return c.client.Close()
}

func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return llm.Permanent(providerName, 0, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if llm.ClassifyStatus(gerr.Code, gerr.Message) == llm.KindTransient {
			return llm.Transient(providerName, gerr.Code, err)
		}
		return llm.Permanent(providerName, gerr.Code, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llm.Transient(providerName, 0, err)
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.ResourceExhausted:
			if strings.Contains(strings.ToLower(st.Message()), "quota") && strings.Contains(strings.ToLower(st.Message()), "billing") {
				return llm.Permanent(providerName, http.StatusTooManyRequests, err)
			}
			return llm.Transient(providerName, http.StatusTooManyRequests, err)
		case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Aborted:
			return llm.Transient(providerName, 0, err)
		default:
			return llm.Permanent(providerName, 0, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return llm.Transient(providerName, 0, err)
	}
	return llm.Permanent(providerName, 0, fmt.Errorf("gemini: %w", err))
}
