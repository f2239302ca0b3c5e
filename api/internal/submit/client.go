// Package submit talks to the Solve Service: one POST per call, no retries.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"reshalka/api/internal/solve"
)

const DefaultTimeout = 90 * time.Second

// ограничение на тело ответа
const maxResponseBytes = 1 << 20

type Solver interface {
	Solve(ctx context.Context, img solve.EncodedImage) (solve.Solution, error)
}

type Client struct {
	Endpoint string
	httpc    *http.Client
	log      *zap.Logger
}

func New(endpoint string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		Endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeout},
		log:      log,
	}
}

type solveRequest struct {
	Image string `json:"image"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Solve отправляет изображение и возвращает Solution либо *Error.
func (c *Client) Solve(ctx context.Context, img solve.EncodedImage) (solve.Solution, error) {
	payload, err := json.Marshal(solveRequest{Image: string(img)})
	if err != nil {
		return solve.Solution{}, &Error{Kind: KindNetworkError, Message: GenericNetworkMessage, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return solve.Solution{}, &Error{Kind: KindNetworkError, Message: GenericNetworkMessage, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return solve.Solution{}, &Error{Kind: KindNetworkError, Message: GenericNetworkMessage, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return solve.Solution{}, &Error{Kind: KindNetworkError, Message: GenericNetworkMessage, Err: err}
	}
	c.log.Debug("solve response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := GenericServiceMessage
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && strings.TrimSpace(er.Error) != "" {
			msg = strings.TrimSpace(er.Error)
		}
		return solve.Solution{}, &Error{Kind: KindServiceError, Status: resp.StatusCode, Message: msg}
	}

	var sol solve.Solution
	if err := json.Unmarshal(body, &sol); err != nil {
		return solve.Solution{}, &Error{Kind: KindMalformedResponse, Message: GenericMalformedMessage, Err: fmt.Errorf("bad JSON: %w", err)}
	}
	if err := sol.Validate(); err != nil {
		return solve.Solution{}, &Error{Kind: KindMalformedResponse, Message: GenericMalformedMessage, Err: err}
	}
	return sol, nil
}

// Token отличает актуальный запрос от устаревшего.
type Token uint64

// Completion - итог одного вызова, помеченный токеном вызывающего.
type Completion struct {
	Token    Token
	Solution solve.Solution
	Err      error
}

// Submit выполняет ровно один вызов solver и возвращает результат вместе с токеном.
// Отмена ctx не подменяет ошибку: решать, устарел ли результат, будет владелец токена.
func Submit(ctx context.Context, s Solver, tok Token, img solve.EncodedImage) Completion {
	sol, err := s.Solve(ctx, img)
	if err != nil {
		var se *Error
		if !errors.As(err, &se) {
			err = &Error{Kind: KindNetworkError, Message: GenericNetworkMessage, Err: err}
		}
		return Completion{Token: tok, Err: err}
	}
	return Completion{Token: tok, Solution: sol}
}
