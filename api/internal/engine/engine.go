package engine

import (
	"context"
	"errors"
	"fmt"
)

// Engine решает задание по фото и возвращает сырой текст ответа модели.
type Engine interface {
	Name() string
	GetModel() string
	Solve(ctx context.Context, img []byte, mime string) (string, error)
}

var (
	ErrNotConfigured = errors.New("API key not configured")
	ErrUnknownEngine = errors.New("unknown engine; use 'gpt' or 'gemini'")
)

// UpstreamError - ошибка провайдера. Status == 0 значит, что до провайдера не достучались.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
		}
		return e.Provider + " unavailable"
	}
	return fmt.Sprintf("%s error: %d", e.Provider, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

type Engines struct {
	OpenAI Engine
	Gemini Engine
}

func (e *Engines) GetEngine(name string) (Engine, error) {
	var eng Engine
	switch name {
	case "gpt", "openai":
		eng = e.OpenAI
	case "gemini":
		eng = e.Gemini
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	if eng == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}
	return eng, nil
}
