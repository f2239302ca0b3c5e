package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"reshalka/api/internal/engine"
	"reshalka/api/internal/solve"
	"reshalka/api/internal/store"
)

const defaultSolveTimeout = 90 * time.Second

// SolutionCache - хранилище готовых решений (store.SolutionRepo).
type SolutionCache interface {
	Find(ctx context.Context, k store.Key) (solve.Solution, error)
	Upsert(ctx context.Context, k store.Key, sol solve.Solution) error
	Ping(ctx context.Context) error
}

type Handle struct {
	engs       *engine.Engines
	engineName string
	cache      SolutionCache
	timeout    time.Duration
	log        *zap.Logger

	flights singleflight.Group
}

func New(engs *engine.Engines, engineName string, log *zap.Logger) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handle{
		engs:       engs,
		engineName: engineName,
		timeout:    defaultSolveTimeout,
		log:        log,
	}
}

// WithCache включает кэш решений. nil выключает.
func (h *Handle) WithCache(c SolutionCache) *Handle {
	h.cache = c
	return h
}

func (h *Handle) WithTimeout(d time.Duration) *Handle {
	if d > 0 {
		h.timeout = d
	}
	return h
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.cache.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, code int, msg, details string) {
	writeJSON(w, code, errorBody{Error: msg, Details: details})
}
