package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
	"smarttest/internal/retry"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var _ output.AIPort = (*AIService)(nil)

var ErrAIUnavailable = errors.New("ai service unavailable")

const defaultCacheSize = 256

type AIConfig struct {
	Model          string
	FallbackModels []string
	Temperature    float32
	TopP           float32
	MaxTokens      int
	EnableCaching  bool

	// CacheTTL of zero keeps entries until they are evicted by size.
	CacheTTL  time.Duration
	CacheSize int
}

type AIStats struct {
	Requests  int64
	Attempts  int64
	CacheHits int64
}

// AIService sends prompts to the configured model, retrying each model
// through the retrier and moving down the fallback list once a model is
// exhausted.
type AIService struct {
	llm     output.LLMPort
	retrier *retry.Retrier
	cfg     AIConfig
	logger  output.LoggerPort

	// cache is nil when caching is disabled.
	cache *expirable.LRU[string, string]

	requests  atomic.Int64
	attempts  atomic.Int64
	cacheHits atomic.Int64
}

func NewAIService(llm output.LLMPort, retrier *retry.Retrier, cfg AIConfig, logger output.LoggerPort) *AIService {
	if retrier == nil {
		retrier = retry.New(retry.DefaultPolicy())
	}
	s := &AIService{
		llm:     llm,
		retrier: retrier,
		cfg:     cfg,
		logger:  logger,
	}
	if cfg.EnableCaching {
		size := cfg.CacheSize
		if size <= 0 {
			size = defaultCacheSize
		}
		s.cache = expirable.NewLRU[string, string](size, nil, cfg.CacheTTL)
	}
	return s
}

func (s *AIService) models() []string {
	models := make([]string, 0, 1+len(s.cfg.FallbackModels))
	seen := make(map[string]bool)
	for _, m := range append([]string{s.cfg.Model}, s.cfg.FallbackModels...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		models = append(models, m)
	}
	if len(models) == 0 {
		// Let the adapter pick its default model.
		models = append(models, "")
	}
	return models
}

func (s *AIService) Complete(ctx context.Context, system, prompt string) (string, error) {
	s.requests.Add(1)

	key := system + "\x00" + prompt
	if content, ok := s.cached(key); ok {
		s.cacheHits.Add(1)
		return content, nil
	}

	messages := make([]entity.Message, 0, 2)
	if system != "" {
		messages = append(messages, entity.Message{Role: entity.RoleSystem, Content: system})
	}
	messages = append(messages, entity.Message{Role: entity.RoleUser, Content: prompt})

	var lastErr error
	for _, model := range s.models() {
		req := output.ChatRequest{
			Model:       model,
			Messages:    messages,
			Temperature: s.cfg.Temperature,
			TopP:        s.cfg.TopP,
			MaxTokens:   s.cfg.MaxTokens,
		}

		resp, err := retry.DoValue(ctx, s.retrier, func(ctx context.Context) (*output.ChatResponse, error) {
			s.attempts.Add(1)
			return s.llm.Chat(ctx, req)
		})
		if err == nil {
			content := strings.TrimSpace(resp.Message.Content)
			s.store(key, content)
			return content, nil
		}

		lastErr = err
		if !errors.Is(err, retry.ErrRetriesExhausted) {
			// Auth, bad request or cancellation: another model will not help.
			break
		}
		if s.logger != nil {
			s.logger.Warn("model exhausted, trying fallback", "model", model, "error", err.Error())
		}
	}

	return "", fmt.Errorf("%w: %w", ErrAIUnavailable, lastErr)
}

func (s *AIService) cached(key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	return s.cache.Get(key)
}

func (s *AIService) store(key, content string) {
	if s.cache != nil {
		s.cache.Add(key, content)
	}
}

// Stats reports call counters since the service was built.
func (s *AIService) Stats() AIStats {
	return AIStats{
		Requests:  s.requests.Load(),
		Attempts:  s.attempts.Load(),
		CacheHits: s.cacheHits.Load(),
	}
}
