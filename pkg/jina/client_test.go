package jina

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/casino-research/internal/resilience"
)

func fastRetry() Option {
	return WithRetry(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})
}

func TestRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/https://casino.example/promotions", r.URL.Path)
		assert.Equal(t, "Bearer jina-key", r.Header.Get("Authorization"))
		assert.Equal(t, "markdown", r.Header.Get("X-Return-Format"))
		_, _ = w.Write([]byte(`{"code": 200, "data": {"title": "Promotions", "url": "https://casino.example/promotions", "content": "# Welcome Bonus\n$1,000 match", "usage": {"tokens": 42}}}`))
	}))
	defer srv.Close()

	c := NewClient("jina-key", WithBaseURL(srv.URL+"/"), fastRetry())
	resp, err := c.Read(context.Background(), "https://casino.example/promotions")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "Promotions", resp.Data.Title)
	assert.Contains(t, resp.Data.Content, "$1,000 match")
	assert.Equal(t, 42, resp.Data.Usage.Tokens)
}

func TestRead_AnonymousOmitsAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"code": 200, "data": {}}`))
	}))
	defer srv.Close()

	_, err := NewClient("", WithBaseURL(srv.URL)).Read(context.Background(), "https://a.example")
	require.NoError(t, err)
}

func TestRead_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"code": 200, "data": {"content": "ok"}}`))
	}))
	defer srv.Close()

	resp, err := NewClient("k", WithBaseURL(srv.URL), fastRetry()).Read(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Data.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		wantCalls int32
	}{
		{name: "client error is not retried", status: http.StatusNotFound, body: "missing", wantErr: "unexpected status 404", wantCalls: 1},
		{name: "retries exhausted", status: http.StatusTooManyRequests, body: "slow down", wantErr: "unexpected status 429", wantCalls: 3},
		{name: "malformed body", status: http.StatusOK, body: "{", wantErr: "unmarshal response", wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("k", WithBaseURL(srv.URL), fastRetry()).Read(context.Background(), "https://a.example")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}

	_, err := NewClient("k").Read(context.Background(), " ")
	assert.ErrorContains(t, err, "target url is required")
}
