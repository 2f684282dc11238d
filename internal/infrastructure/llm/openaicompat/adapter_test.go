package openaicompat

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
	"smarttest/internal/infrastructure/logger"
	"smarttest/internal/retry"

	"github.com/goccy/go-json"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessages(t *testing.T) {
	result := convertMessages([]entity.Message{
		{Role: entity.RoleSystem, Content: "be brief"},
		{Role: entity.RoleUser, Content: "Hello"},
	})

	require.Len(t, result, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, result[0].Role)
	assert.Equal(t, "be brief", result[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, result[1].Role)
}

func TestChat_UsesRequestModelAndReturnsContent(t *testing.T) {
	var mu sync.Mutex
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		_ = json.Unmarshal(body, &got)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"pong"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	a := New(Config{APIKey: "k", Model: "default-model", BaseURL: srv.URL, Logger: logger.NewNop()})
	resp, err := a.Chat(context.Background(), output.ChatRequest{
		Model:    "override",
		Messages: []entity.Message{{Role: entity.RoleUser, Content: "ping"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Message.Content)
	assert.Equal(t, "override", resp.Model)
	mu.Lock()
	assert.Equal(t, "override", got.Model)
	mu.Unlock()
}

func TestChat_StatusErrorIsClassified(t *testing.T) {
	tests := []struct {
		status int
		want   retry.Kind
	}{
		{http.StatusTooManyRequests, retry.Retryable},
		{http.StatusServiceUnavailable, retry.Retryable},
		{http.StatusUnauthorized, retry.NonRetryable},
		{http.StatusBadRequest, retry.NonRetryable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"x"}}`))
			}))
			defer srv.Close()

			a := New(Config{APIKey: "k", Model: "m", BaseURL: srv.URL})
			_, err := a.Chat(context.Background(), output.ChatRequest{
				Messages: []entity.Message{{Role: entity.RoleUser, Content: "ping"}},
			})

			require.Error(t, err)
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.StatusCode())
			assert.Equal(t, tt.want, retry.DefaultClassifier().Classify(err))
		})
	}
}
