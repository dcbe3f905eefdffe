package gemini

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateURL(t *testing.T) {
	cases := []struct {
		base  string
		model string
		want  string
	}{
		{"https://generativelanguage.googleapis.com", "gemini-1.5-flash", "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"},
		{"https://generativelanguage.googleapis.com/v1beta/", "gemini-pro", "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent"},
		{"http://localhost:9000", "m", "http://localhost:9000/v1beta/models/m:generateContent"},
		{"", "m", "https://generativelanguage.googleapis.com/v1beta/models/m:generateContent"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, generateURL(tc.base, tc.model), "base=%q", tc.base)
	}
}

func TestNewClient_NilKeySource(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(StaticKey("k"))
	require.NoError(t, err)
	require.Equal(t, defaultBaseURL, c.baseURL)
	require.NotNil(t, c.httpClient)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(StaticKey("test-key"), WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestGenerate_HappyPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"contents":[{"role":"user","parts":[{"text":"hello"}]}]}`, string(raw))

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hi "},{"text":"there"}]},"finishReason":"STOP"}]}`))
	})

	out, err := c.Generate(context.Background(), "gemini-1.5-flash", "hello")
	require.NoError(t, err)
	require.Equal(t, "hi there", out)
}

func TestGenerate_EmptyModel(t *testing.T) {
	c, err := NewClient(StaticKey("k"))
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), " ", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "model must not be empty")
}

func TestGenerate_MissingKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	t.Cleanup(srv.Close)
	c, err := NewClient(StaticKey(""), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "m", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not configured")
	require.False(t, called)
}

func TestGenerate_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	})

	_, err := c.Generate(context.Background(), "m", "hello")
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadRequest, statusErr.HTTPStatusCode())
	require.Contains(t, statusErr.Body, "API key not valid")
}

func TestGenerate_Blocked(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	})
	_, err := c.Generate(context.Background(), "m", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "SAFETY")
}

func TestGenerate_NoCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := c.Generate(context.Background(), "m", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no candidates")
}

func TestGenerate_MalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":`))
	})
	_, err := c.Generate(context.Background(), "m", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestResolvedHTTPClient_Fallback(t *testing.T) {
	c := &Client{}
	require.NotNil(t, c.resolvedHTTPClient())
}
