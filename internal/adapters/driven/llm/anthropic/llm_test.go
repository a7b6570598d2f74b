package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewLLMService(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	require.Error(t, err)
}

func TestGenerate(t *testing.T) {
	var gotReq messagesRequest
	var gotVersion, gotKey string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		gotVersion = r.Header.Get("anthropic-version")
		gotKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Write([]byte(`{"content":[{"type":"text","text":"Hello "},{"type":"text","text":"world."}],"stop_reason":"end_turn"}`))
	})

	got, err := svc.Generate(context.Background(), "Say hello.", driven.GenerateOptions{MaxTokens: 100})

	require.NoError(t, err)
	assert.Equal(t, "Hello world.", got)
	assert.Equal(t, anthropicVersion, gotVersion)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, 100, gotReq.MaxTokens)
}

func TestGenerate_DefaultMaxTokens(t *testing.T) {
	var gotReq messagesRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	})

	_, err := svc.Generate(context.Background(), "hi", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, defaultMaxTokens, gotReq.MaxTokens)
}

func TestGenerate_APIError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad model"}}`))
	})

	_, err := svc.Generate(context.Background(), "hi", driven.GenerateOptions{})

	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "bad model")
}

func TestGenerate_RateLimited(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := svc.Generate(context.Background(), "hi", driven.GenerateOptions{})

	require.ErrorIs(t, err, domain.ErrRateLimited)
}
