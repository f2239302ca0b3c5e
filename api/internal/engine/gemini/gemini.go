package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"reshalka/api/internal/engine"
	"reshalka/api/internal/util"
)

const (
	provider    = "Gemini"
	maxAttempts = 3
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Solve(ctx context.Context, img []byte, mime string) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY: %w", engine.ErrNotConfigured)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", &engine.UpstreamError{Provider: provider, Err: err}
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0.2),
		MaxOutputTokens:  ptrInt32(2000),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(engine.SystemPrompt)},
	}

	if mime == "" {
		mime = util.SniffMimeHTTP(img)
	}
	parts := []genai.Part{
		genai.Text(engine.UserPrompt),
		&genai.Blob{MIMEType: mime, Data: img},
	}

	// Ретраи на случай 5xx/транзиентных сбоев
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err == nil {
			txt := strings.TrimSpace(firstText(resp))
			if txt == "" {
				return "", fmt.Errorf("gemini solve: empty response")
			}
			return txt, nil
		}
		ue := upstreamError(err)
		lastErr = ue
		if !retryable(ue) || attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
		}
	}
	return "", lastErr
}

func upstreamError(err error) *engine.UpstreamError {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &engine.UpstreamError{Provider: provider, Status: gerr.Code, Body: strings.TrimSpace(gerr.Message), Err: err}
	}
	return &engine.UpstreamError{Provider: provider, Err: err}
}

// retryable: сетевые сбои, 429 и 5xx.
func retryable(e *engine.UpstreamError) bool {
	if errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded) {
		return false
	}
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
