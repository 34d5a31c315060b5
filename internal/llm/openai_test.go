package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"crerag/internal/config"
	"crerag/internal/domain"
)

func fakeServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"try later","type":"server_error"}}`))
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		last := req.Messages[len(req.Messages)-1].Content
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   req.Model,
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": "echo: " + last}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testClient(t *testing.T, url string, retries int) *Client {
	c := newClient("sk-test", config.LLMConfig{BaseURL: url + "/v1", Model: "gpt-test", TimeoutSecs: 5, MaxRetries: retries}, zaptest.NewLogger(t))
	c.baseDelay = time.Millisecond
	return c
}

func TestComplete(t *testing.T) {
	srv, calls := fakeServer(t, 0, 0)
	got, err := testClient(t, srv.URL, 2).Complete(context.Background(), []domain.Message{
		{Role: "system", Content: "context"},
		{Role: "user", Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_RetriesServerErrors(t *testing.T) {
	srv, calls := fakeServer(t, 2, http.StatusServiceUnavailable)
	got, err := testClient(t, srv.URL, 3).Complete(context.Background(), []domain.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_DoesNotRetryClientErrors(t *testing.T) {
	srv, calls := fakeServer(t, 10, http.StatusUnauthorized)
	_, err := testClient(t, srv.URL, 3).Complete(context.Background(), []domain.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_GivesUp(t *testing.T) {
	srv, calls := fakeServer(t, 10, http.StatusInternalServerError)
	_, err := testClient(t, srv.URL, 1).Complete(context.Background(), []domain.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("CRERAG_TEST_KEY", "")
	_, err := NewClient(config.LLMConfig{APIKeyEnv: "CRERAG_TEST_KEY"}, nil)
	assert.Error(t, err)
}

func TestRetryDelay(t *testing.T) {
	c := &Client{baseDelay: 200 * time.Millisecond}
	assert.Equal(t, 200*time.Millisecond, c.retryDelay(0))
	assert.Equal(t, 800*time.Millisecond, c.retryDelay(2))
	assert.Equal(t, 5*time.Second, c.retryDelay(10))
}
