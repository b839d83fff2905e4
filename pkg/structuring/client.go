package structuring

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrCompletion marks a failure of the completion service itself (network,
// auth, quota). It is surfaced as an error, never substituted for report data.
var ErrCompletion = errors.New("completion service failure")

// Config holds the completion-service settings. Everything is passed in
// explicitly; the package keeps no ambient client state.
type Config struct {
	Model       string
	APIKey      string
	BaseURL     string // optional endpoint override for OpenAI-compatible routers
	Temperature float64
}

// Client submits OCR text to a chat completion model for restructuring.
type Client struct {
	llm         llms.Model
	temperature float64
}

// New builds a Client backed by an OpenAI-compatible endpoint.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("completion API key is not set")
	}
	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create completion client: %w", err)
	}
	return &Client{llm: llm, temperature: cfg.Temperature}, nil
}

// NewWithModel wires an already constructed model. Used by tests.
func NewWithModel(m llms.Model, temperature float64) *Client {
	return &Client{llm: m, temperature: temperature}
}

// StructureReport sends the fixed schema instruction plus the raw OCR text and
// returns the completion verbatim. The output is intended to be JSON matching
// the schema but is not parsed or validated here; conformance is left to the
// consumer.
func (c *Client) StructureReport(ctx context.Context, rawText string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, schemaInstruction),
		llms.TextParts(llms.ChatMessageTypeHuman, buildUserPrompt(rawText)),
	}
	resp, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrCompletion)
	}
	return resp.Choices[0].Content, nil
}
