package output

import (
	"context"

	"smarttest/internal/domain/entity"
)

type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	// Model overrides the adapter default when set.
	Model       string
	Messages    []entity.Message
	Temperature float32
	TopP        float32
	MaxTokens   int
}

type ChatResponse struct {
	Message entity.Message
	Model   string
}

// AIPort is the model-agnostic completion service the use cases talk to.
// Implementations own retries and model fallback.
type AIPort interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
