package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reshalka/api/internal/engine"
	"reshalka/api/internal/util"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	provider       = "OpenAI"
)

type Engine struct {
	APIKey  string
	Model   string
	BaseURL string
	httpc   *http.Client
}

func New(key, model string) *Engine {
	return &Engine{
		APIKey:  strings.TrimSpace(key),
		Model:   strings.TrimSpace(model),
		BaseURL: DefaultBaseURL,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

// WithHTTPClient overrides the internal HTTP client.
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Solve(ctx context.Context, img []byte, mime string) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY: %w", engine.ErrNotConfigured)
	}
	if mime == "" {
		mime = util.SniffMimeHTTP(img)
	}

	body := map[string]any{
		"model": e.Model,
		"messages": []any{
			map[string]any{"role": "system", "content": engine.SystemPrompt},
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": engine.UserPrompt},
					map[string]any{"type": "image_url", "image_url": map[string]any{"url": util.MakeDataURL(mime, img)}},
				},
			},
		},
		"max_tokens":  2000,
		"temperature": 0.2,
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(e.BaseURL, "/")+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", &engine.UpstreamError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", &engine.UpstreamError{Provider: provider, Status: resp.StatusCode, Body: strings.TrimSpace(string(x))}
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("openai solve: decode: %w", err)
	}
	if len(raw.Choices) == 0 {
		return "", fmt.Errorf("openai solve: empty response")
	}
	return strings.TrimSpace(raw.Choices[0].Message.Content), nil
}
