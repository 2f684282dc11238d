// Package langchain routes chat requests through langchaingo's OpenAI
// client. It is the alternative to the go-openai adapter and is selected
// with ai_settings.provider: langchain.
package langchain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

var _ output.LLMPort = (*Adapter)(nil)

var ErrEmptyResponse = errors.New("empty response")

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Generator is the slice of llms.Model the adapter needs.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Adapter struct {
	model Generator
	name  string
}

func New(cfg Config) (*Adapter, error) {
	opts := []lcopenai.Option{
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain client: %w", err)
	}
	return &Adapter{model: llm, name: cfg.Model}, nil
}

// NewWithModel wraps an existing generator.
func NewWithModel(model Generator, name string) *Adapter {
	return &Adapter{model: model, name: name}
}

func (a *Adapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = a.name
	}

	opts := []llms.CallOption{llms.WithModel(model)}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(float64(req.Temperature)))
	}
	if req.TopP > 0 {
		opts = append(opts, llms.WithTopP(float64(req.TopP)))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := a.model.GenerateContent(ctx, convertMessages(req.Messages), opts...)
	if err != nil {
		return nil, wrapError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	return &output.ChatResponse{
		Message: entity.Message{Role: entity.RoleAssistant, Content: resp.Choices[0].Content},
		Model:   model,
	}, nil
}

func convertMessages(messages []entity.Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case entity.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case entity.RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		result = append(result, llms.TextParts(role, msg.Content))
	}
	return result
}

// langchaingo reports HTTP failures only in the error text.
var statusPattern = regexp.MustCompile(`status code:? (\d{3})`)

type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string   { return e.Err.Error() }
func (e *StatusError) Unwrap() error   { return e.Err }
func (e *StatusError) StatusCode() int { return e.Code }

func wrapError(err error) error {
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return &StatusError{Code: code, Err: err}
	}
	return fmt.Errorf("generate content: %w", err)
}
