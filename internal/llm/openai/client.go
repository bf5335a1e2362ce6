package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// Complete runs one chat completion in JSON mode and returns the message content.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: req.System},
			{Role: goopenai.ChatMessageRoleUser, Content: req.User},
		},
	})
	if err != nil {
		cerr := classify(err)
		c.logger.Warn("llm.openai.http_error",
			"model", c.cfg.Model,
			"kind", llm.KindOf(cerr),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", cerr
	}
	if len(resp.Choices) == 0 {
		return "", llm.Malformed(providerName, errors.New("no choices in openai response"))
	}

	choice := resp.Choices[0]
	c.logger.Debug("llm.openai.ok",
		"model", c.cfg.Model,
		"finish_reason", choice.FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return strings.TrimSpace(choice.Message.Content), nil
}

// classify maps go-openai errors onto the retry taxonomy.
func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.Type
		if s, ok := apiErr.Code.(string); ok {
			code = s + " " + code
		}
		return kindError(llm.ClassifyStatus(apiErr.HTTPStatusCode, code), apiErr.HTTPStatusCode, err)
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return kindError(llm.ClassifyStatus(reqErr.HTTPStatusCode, ""), reqErr.HTTPStatusCode, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llm.Transient(providerName, 0, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return llm.Transient(providerName, 0, err)
	}
	return llm.Permanent(providerName, 0, fmt.Errorf("openai: %w", err))
}

func kindError(kind llm.ErrorKind, status int, err error) error {
	if kind == llm.KindTransient {
		return llm.Transient(providerName, status, err)
	}
	return llm.Permanent(providerName, status, err)
}
