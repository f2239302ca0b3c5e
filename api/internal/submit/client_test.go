package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reshalka/api/internal/solve"
)

const img = solve.EncodedImage("data:image/png;base64,aGVsbG8=")

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestSolve_Success(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, string(img), req["image"])

		_, _ = w.Write([]byte(`{"subject":"Математика","task":"2x+3=7","steps":["2x=4","x=2"],"answer":"x=2"}`))
	})

	sol, err := New(srv.URL, time.Second, nil).Solve(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, solve.Solution{Subject: "Математика", Task: "2x+3=7", Steps: []string{"2x=4", "x=2"}, Answer: "x=2"}, sol)
}

func TestSolve_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"service error with message", 500, `{"error":"timeout"}`, KindServiceError, "timeout"},
		{"service error without body", 502, ``, KindServiceError, GenericServiceMessage},
		{"service error non-json", 503, `upstream down`, KindServiceError, GenericServiceMessage},
		{"service error blank message", 400, `{"error":"  "}`, KindServiceError, GenericServiceMessage},
		{"not json", 200, `<html>`, KindMalformedResponse, GenericMalformedMessage},
		{"missing answer", 200, `{"subject":"a","task":"b","steps":["c"]}`, KindMalformedResponse, GenericMalformedMessage},
		{"empty steps", 200, `{"subject":"a","task":"b","steps":[],"answer":"d"}`, KindMalformedResponse, GenericMalformedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := New(srv.URL, time.Second, nil).Solve(context.Background(), img)

			var se *Error
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, tt.kind, se.Kind)
			assert.Equal(t, tt.message, se.Message)
			if tt.kind == KindServiceError {
				assert.Equal(t, tt.status, se.Status)
			}
		})
	}
}

func TestSolve_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second, nil).Solve(context.Background(), img)
	assert.Equal(t, KindNetworkError, KindOf(err))
}

func TestSolve_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := New(srv.URL, 50*time.Millisecond, nil).Solve(context.Background(), img)
	assert.Equal(t, KindNetworkError, KindOf(err))
}

type solverFunc func(ctx context.Context, img solve.EncodedImage) (solve.Solution, error)

func (f solverFunc) Solve(ctx context.Context, img solve.EncodedImage) (solve.Solution, error) {
	return f(ctx, img)
}

func TestSubmit_CarriesToken(t *testing.T) {
	ok := solverFunc(func(context.Context, solve.EncodedImage) (solve.Solution, error) {
		return solve.Solution{Subject: "a", Task: "b", Steps: []string{"c"}, Answer: "d"}, nil
	})
	c := Submit(context.Background(), ok, 7, img)
	assert.Equal(t, Token(7), c.Token)
	assert.NoError(t, c.Err)
	assert.Equal(t, "b", c.Solution.Task)

	plain := solverFunc(func(context.Context, solve.EncodedImage) (solve.Solution, error) {
		return solve.Solution{}, context.Canceled
	})
	c = Submit(context.Background(), plain, 8, img)
	assert.Equal(t, Token(8), c.Token)
	assert.Equal(t, KindNetworkError, KindOf(c.Err))
	assert.ErrorIs(t, c.Err, context.Canceled)
}

func TestErrorString(t *testing.T) {
	e := &Error{Kind: KindServiceError, Status: 500, Message: "timeout"}
	assert.Equal(t, "solve service_error (500): timeout", e.Error())
	assert.Zero(t, KindOf(errors.New("x")))
}
