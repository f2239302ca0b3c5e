package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"reshalka/api/internal/engine"
	"reshalka/api/internal/solve"
	"reshalka/api/internal/store"
	"reshalka/api/internal/util"
)

const maxBodyBytes = 16 << 20

type SolveRequest struct {
	Image string `json:"image"`
}

type flightResult struct {
	sol    solve.Solution
	cached bool
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// Preflight отвечает на CORS OPTIONS.
func (h *Handle) Preflight(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusOK)
}

func (h *Handle) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
}

// Solve: POST {image} -> Solution.
func (h *Handle) Solve(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		h.Preflight(w, r)
		return
	case http.MethodPost:
	default:
		h.MethodNotAllowed(w, r)
		return
	}
	setCORS(w)

	var req SolveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || strings.TrimSpace(req.Image) == "" {
		writeError(w, http.StatusBadRequest, "No image provided", "")
		return
	}
	img, mime, err := util.DecodeImagePayload(req.Image)
	if err != nil || len(img) == 0 {
		writeError(w, http.StatusBadRequest, "Bad image encoding", "")
		return
	}

	eng, err := h.engs.GetEngine(h.engineName)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	key := store.Key{ImageHash: util.SHA256Hex(img), Engine: eng.Name(), Model: eng.GetModel()}
	log := h.log.With(zap.String("image_hash", key.ImageHash), zap.String("engine", key.Engine), zap.String("model", key.Model))

	v, err, shared := h.flights.Do(key.ImageHash+"|"+key.Engine+"|"+key.Model, func() (any, error) {
		// общий вызов не должен зависеть от отмены одного из клиентов
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
		defer cancel()
		return h.solve(ctx, log, eng, key, img, mime)
	})
	if err != nil {
		log.Warn("solve failed", zap.Error(err))
		h.writeEngineError(w, err)
		return
	}
	res := v.(flightResult)
	log.Info("solved", zap.Bool("cached", res.cached), zap.Bool("shared", shared), zap.String("subject", res.sol.Subject))
	// ответ может уйти нескольким клиентам
	writeJSON(w, http.StatusOK, res.sol.Clone())
}

func (h *Handle) solve(ctx context.Context, log *zap.Logger, eng engine.Engine, key store.Key, img []byte, mime string) (flightResult, error) {
	if h.cache != nil {
		sol, err := h.cache.Find(ctx, key)
		switch {
		case err == nil:
			return flightResult{sol: sol, cached: true}, nil
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("cache lookup failed", zap.Error(err))
		}
	}

	content, err := eng.Solve(ctx, img, mime)
	if err != nil {
		return flightResult{}, err
	}
	sol, parsed := solve.FromModelOutput(content)
	if !parsed {
		log.Info("model output is not JSON, using fallback", zap.String("content", util.Truncate(content, 200)))
		return flightResult{sol: sol}, nil
	}
	if h.cache != nil {
		if err := h.cache.Upsert(ctx, key, sol); err != nil {
			log.Warn("cache save failed", zap.Error(err))
		}
	}
	return flightResult{sol: sol}, nil
}

func (h *Handle) writeEngineError(w http.ResponseWriter, err error) {
	var ue *engine.UpstreamError
	switch {
	case errors.Is(err, engine.ErrNotConfigured):
		writeError(w, http.StatusInternalServerError, "API key not configured", "")
	case errors.As(err, &ue) && ue.Status == 0:
		writeError(w, http.StatusBadGateway, ue.Provider+" unavailable", "")
	case errors.As(err, &ue):
		writeError(w, http.StatusBadGateway, ue.Error(), ue.Body)
	case errors.Is(err, engine.ErrUnknownEngine):
		writeError(w, http.StatusInternalServerError, "Engine misconfigured", err.Error())
	default:
		writeError(w, http.StatusBadGateway, "Bad model response", err.Error())
	}
}
