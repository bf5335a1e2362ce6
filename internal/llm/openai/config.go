package openai

import (
	"errors"
	"log/slog"
	"os"

	goopenai "github.com/sashabaranov/go-openai"
)

const providerName = "openai"

// Config for the OpenAI completer.
type Config struct {
	APIKey      string  // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string  // default https://api.openai.com/v1; any OpenAI-compatible endpoint works
	Model       string  // e.g., "gpt-4o-mini"
	Temperature float32 // 0..2
	MaxTokens   int     // reply budget; default 4000
}

// Client is a single-attempt Completer over the chat completions API.
type Client struct {
	cfg    Config
	api    *goopenai.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if logger == nil {
		logger = slog.Default()
	}

	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		cfg:    cfg,
		api:    goopenai.NewClientWithConfig(apiCfg),
		logger: logger,
	}, nil
}

func (c *Client) Name() string { return providerName }
