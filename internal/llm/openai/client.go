package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/exposure-tracker/internal/llm"
)

// Complete implements llm.Completer using chat/completions in JSON mode.
func (c *Client) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	start := time.Now()

	temp := c.cfg.Temperature
	if p.Temperature != nil {
		temp = *p.Temperature
	}
	messages := []map[string]any{
		{"role": "system", "content": p.System},
		{"role": "user", "content": p.User + "\n\nReturn ONLY JSON that matches the provided schema."},
	}
	if p.Schema != nil {
		messages = append(messages, map[string]any{"role": "system", "content": "JSON Schema:\n" + llm.SchemaText(p.Schema)})
	}
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     temp,
		"response_format": map[string]any{"type": "json_object"},
		"messages":        messages,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.PostJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.openai.http_error", "model", c.cfg.Model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.openai.no_choices", "raw_bytes", len(raw))
		return "", fmt.Errorf("no choices in openai response")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.logger.Info("llm.openai.ok", "model", c.cfg.Model, "content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds())
	return content, nil
}
