package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient()
	require.NoError(t, err)
	require.Equal(t, DefaultURL, c.URL())
	require.Equal(t, 120*time.Second, c.timeout)
	require.Equal(t, 120*time.Second, c.httpClient.Timeout)
}

func TestNewClient_EmptyURL(t *testing.T) {
	_, err := NewClient(WithURL("  "))
	require.Error(t, err)
	require.Contains(t, err.Error(), "url")
}

func TestNewClient_TimeoutOption(t *testing.T) {
	c, err := NewClient(WithTimeout(3 * time.Second))
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, c.httpClient.Timeout)

	c, err = NewClient(WithTimeout(-1))
	require.NoError(t, err)
	require.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}

// ---------------------------------------------------------------------------
// Client.Generate
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, srv *httptest.Server, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(
		WithURL(srv.URL+"/api/generate"),
		WithTimeout(timeout),
		WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	return c
}

func TestClient_Generate_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Equal(t, map[string]any{"model": "llama3.1", "prompt": "hello", "stream": false}, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.1","response":"  {\"story\":\"x\"}\n","done":true,"eval_count":12}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 2*time.Second)
	out, err := c.Generate(context.Background(), "llama3.1", "hello")
	require.NoError(t, err)
	require.Equal(t, `{"story":"x"}`, out)
}

func TestClient_Generate_MissingResponseField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 2*time.Second)
	out, err := c.Generate(context.Background(), "llama3.1", "hello")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestClient_Generate_EmptyModel(t *testing.T) {
	c, err := NewClient()
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), " ", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "model")
}

func TestClient_Generate_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'llama3.1' not found"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 2*time.Second)
	_, err := c.Generate(context.Background(), "llama3.1", "hello")
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.HTTPStatusCode())
	require.Contains(t, err.Error(), "not found")
}

func TestClient_Generate_InvalidEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not-a-json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 2*time.Second)
	_, err := c.Generate(context.Background(), "llama3.1", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestClient_Generate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv, 50*time.Millisecond)
	started := time.Now()
	_, err := c.Generate(context.Background(), "llama3.1", "hello")
	require.Error(t, err)
	require.Less(t, time.Since(started), 2*time.Second)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.True(t, timeoutErr.Timeout())
	require.Equal(t, 50*time.Millisecond, timeoutErr.After)
}

func TestClient_Generate_NetworkError(t *testing.T) {
	c, err := NewClient(WithURL("http://127.0.0.1:1/api/generate"), WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "llama3.1", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")

	var timeoutErr *TimeoutError
	require.False(t, errors.As(err, &timeoutErr))
}
