package openaicompat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"

	"github.com/goccy/go-json"
	"github.com/sashabaranov/go-openai"
)

var _ output.LLMPort = (*Adapter)(nil)

var ErrNoChoices = errors.New("no choices in response")

// Adapter talks to any OpenAI-compatible chat completion endpoint, Gemini's
// compatibility layer included.
type Adapter struct {
	client *openai.Client
	model  string
	logger output.LoggerPort
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  output.LoggerPort
	// HTTPClient replaces the default client; the logging transport wraps it.
	HTTPClient *http.Client
}

// StatusError carries the HTTP status of a failed call so the retry
// classifier can tell rate limits from bad requests.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string   { return fmt.Sprintf("llm status %d: %v", e.Code, e.Err) }
func (e *StatusError) Unwrap() error   { return e.Err }
func (e *StatusError) StatusCode() int { return e.Code }

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var fields []interface{}
	if req.Body != nil {
		bodyBytes, _ := io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		var payload struct {
			Model    string            `json:"model"`
			Messages []json.RawMessage `json:"messages"`
		}
		if json.Unmarshal(bodyBytes, &payload) == nil {
			fields = append(fields, "model", payload.Model, "messages", len(payload.Messages))
		}
		fields = append(fields, "bytes", len(bodyBytes))
	}
	t.logger.Debug("LLM request", append([]interface{}{"method", req.Method, "url", req.URL.String()}, fields...)...)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Debug("LLM transport error", "error", err.Error())
		return resp, err
	}
	t.logger.Debug("LLM response", "status", resp.StatusCode)
	return resp, nil
}

func New(cfg Config) *Adapter {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Logger != nil {
		base := client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *client
		wrapped.Transport = &loggingTransport{base: base, logger: cfg.Logger}
		client = &wrapped
	}
	config.HTTPClient = client

	return &Adapter{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

func (a *Adapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessages(req.Messages),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	return &output.ChatResponse{
		Message: entity.Message{
			Role:    entity.RoleAssistant,
			Content: resp.Choices[0].Message.Content,
		},
		Model: model,
	}, nil
}

func convertMessages(messages []entity.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		result = append(result, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return result
}

func wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Code: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &StatusError{Code: reqErr.HTTPStatusCode, Err: err}
	}
	return fmt.Errorf("chat completion failed: %w", err)
}
