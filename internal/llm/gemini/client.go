// Package gemini implements llm.Completer on the Google GenAI SDK.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/joseph-ayodele/exposure-tracker/internal/llm"
)

type Config struct {
	APIKey      string
	Model       string // default gemini-2.5-flash
	BaseURL     string // optional override, used by tests
	Temperature float32
	Timeout     time.Duration
	HTTPClient  *http.Client
}

type Client struct {
	cfg    Config
	client *genai.Client
	logger *slog.Logger
}

// NewClient creates a Gemini API backed completer.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Client{cfg: cfg, client: client, logger: logger}, nil
}

// Name implements llm.Completer.
func (c *Client) Name() string { return "gemini" }

// Complete implements llm.Completer with JSON response mode.
func (c *Client) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	start := time.Now()

	temp := c.cfg.Temperature
	if p.Temperature != nil {
		temp = *p.Temperature
	}
	system := p.System
	if p.Schema != nil {
		system += "\n\nJSON Schema:\n" + llm.SchemaText(p.Schema)
	}
	gc := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr(temp),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(p.User), gc)
	if err != nil {
		c.logger.Error("llm.gemini.generate_error", "model", c.cfg.Model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty gemini response")
	}
	c.logger.Info("llm.gemini.ok", "model", c.cfg.Model, "content_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}
