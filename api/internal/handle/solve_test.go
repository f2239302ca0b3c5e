package handle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reshalka/api/internal/engine"
	"reshalka/api/internal/solve"
	"reshalka/api/internal/store"
)

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}

type fakeEngine struct {
	out   string
	err   error
	calls atomic.Int32
	gate  chan struct{}
	mime  string
}

func (f *fakeEngine) Name() string     { return "gpt" }
func (f *fakeEngine) GetModel() string { return "gpt-4o" }
func (f *fakeEngine) Solve(_ context.Context, _ []byte, mime string) (string, error) {
	f.calls.Add(1)
	f.mime = mime
	if f.gate != nil {
		<-f.gate
	}
	return f.out, f.err
}

type memCache struct {
	mu   sync.Mutex
	data map[store.Key]solve.Solution
}

func newMemCache() *memCache { return &memCache{data: map[store.Key]solve.Solution{}} }

func (m *memCache) Find(_ context.Context, k store.Key) (solve.Solution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sol, ok := m.data[k]
	if !ok {
		return solve.Solution{}, store.ErrNotFound
	}
	return sol, nil
}

func (m *memCache) Upsert(_ context.Context, k store.Key, sol solve.Solution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[k] = sol
	return nil
}

func (m *memCache) Ping(context.Context) error { return nil }

func (m *memCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

const modelJSON = "```json\n{\"subject\":\"Математика\",\"task\":\"2x+3=7\",\"steps\":[\"2x = 4\",\"x = 2\"],\"answer\":\"x=2\"}\n```"

func dataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/solve-task", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func TestSolve_Success(t *testing.T) {
	eng := &fakeEngine{out: modelJSON}
	h := New(&engine.Engines{OpenAI: eng}, "gpt", nil).Router()

	rec := post(t, h, `{"image":"`+dataURL()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Body.String(), "Математика", "UTF-8 is not escaped")

	var sol solve.Solution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sol))
	assert.Equal(t, []string{"2x = 4", "x = 2"}, sol.Steps)
	assert.Equal(t, "image/png", eng.mime)
}

func TestSolve_BareBase64AndFallback(t *testing.T) {
	eng := &fakeEngine{out: "Ответ: 42"}
	h := New(&engine.Engines{OpenAI: eng}, "gpt", nil).Router()

	rec := post(t, h, `{"image":"`+base64.StdEncoding.EncodeToString(pngBytes)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var sol solve.Solution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sol))
	assert.Equal(t, solve.FallbackSubject, sol.Subject)
	assert.Equal(t, solve.FallbackTask, sol.Task)
	assert.Equal(t, []string{"Ответ: 42"}, sol.Steps)
	assert.Equal(t, solve.FallbackAnswer, sol.Answer)
}

func TestSolve_RequestErrors(t *testing.T) {
	h := New(&engine.Engines{OpenAI: &fakeEngine{out: modelJSON}}, "gpt", nil).Router()

	for _, tc := range []struct {
		name, body, msg string
	}{
		{"bad json", `{`, "No image provided"},
		{"empty image", `{"image":""}`, "No image provided"},
		{"bad base64", `{"image":"data:image/png;base64,@@@"}`, "Bad image encoding"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, h, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.msg, decodeErr(t, rec).Error)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/solve-task", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", decodeErr(t, rec).Error)
}

func TestSolve_Preflight(t *testing.T) {
	h := New(&engine.Engines{}, "gpt", nil).Router()
	req := httptest.NewRequest(http.MethodOptions, "/solve-task", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, rec.Body.String())
}

func TestSolve_EngineErrors(t *testing.T) {
	body := `{"image":"` + dataURL() + `"}`
	for _, tc := range []struct {
		name    string
		err     error
		code    int
		msg     string
		details string
	}{
		{"no key", engine.ErrNotConfigured, http.StatusInternalServerError, "API key not configured", ""},
		{"upstream status", &engine.UpstreamError{Provider: "OpenAI", Status: 401, Body: "invalid key"}, http.StatusBadGateway, "OpenAI error: 401", "invalid key"},
		{"unavailable", &engine.UpstreamError{Provider: "OpenAI", Err: errors.New("dial")}, http.StatusBadGateway, "OpenAI unavailable", ""},
		{"empty output", errors.New("openai solve: empty response"), http.StatusBadGateway, "Bad model response", "openai solve: empty response"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := New(&engine.Engines{OpenAI: &fakeEngine{err: tc.err}}, "gpt", nil).Router()
			rec := post(t, h, body)
			assert.Equal(t, tc.code, rec.Code)
			e := decodeErr(t, rec)
			assert.Equal(t, tc.msg, e.Error)
			assert.Equal(t, tc.details, e.Details)
		})
	}

	h := New(&engine.Engines{OpenAI: &fakeEngine{}}, "gemini", nil).Router()
	rec := post(t, h, body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "API key not configured", decodeErr(t, rec).Error)
}

func TestSolve_CacheStoresOnlyParsedOutput(t *testing.T) {
	cache := newMemCache()
	eng := &fakeEngine{out: "not json"}
	h := New(&engine.Engines{OpenAI: eng}, "gpt", nil).WithCache(cache).Router()
	body := `{"image":"` + dataURL() + `"}`

	require.Equal(t, http.StatusOK, post(t, h, body).Code)
	assert.Zero(t, cache.len())

	eng.out = modelJSON
	require.Equal(t, http.StatusOK, post(t, h, body).Code)
	assert.Equal(t, 1, cache.len())

	eng.out = "should not be called"
	rec := post(t, h, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "x=2")
	assert.EqualValues(t, 2, eng.calls.Load())
}

func TestSolve_ConcurrentIdenticalImagesShareOneCall(t *testing.T) {
	eng := &fakeEngine{out: modelJSON, gate: make(chan struct{})}
	h := New(&engine.Engines{OpenAI: eng}, "gpt", nil).Router()
	body := `{"image":"` + dataURL() + `"}`

	const n = 4
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- post(t, h, body).Code
		}()
	}
	require.Eventually(t, func() bool { return eng.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	// даём остальным запросам встать в ожидание общего вызова
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, eng.calls.Load())
	close(eng.gate)
	wg.Wait()
	close(codes)

	for c := range codes {
		assert.Equal(t, http.StatusOK, c)
	}
}

func TestHealthz(t *testing.T) {
	h := New(&engine.Engines{}, "gpt", nil).WithCache(newMemCache()).Router()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
