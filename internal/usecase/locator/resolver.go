package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
	"smarttest/internal/infrastructure/browser/dom"
	"smarttest/internal/infrastructure/prompts"

	"github.com/goccy/go-json"
)

var (
	ErrElementNotFound = errors.New("element not found")
	ErrBadSuggestion   = errors.New("unusable locator suggestion")

	errNoPrimary = errors.New("no primary locator registered")
)

const (
	defaultPrimaryTimeout = 5 * time.Second
	defaultMaxElements    = 150
	defaultMaxText        = 2000
)

type Config struct {
	SelfHealing    bool
	PrimaryTimeout time.Duration
	// HealTimeout bounds the lookup of the suggested locator. Zero means
	// PrimaryTimeout.
	HealTimeout time.Duration
	MaxElements int
	MaxText     int
}

// Resolution describes how an element was found.
type Resolution struct {
	Locator entity.Locator
	Healed  bool
	Event   *entity.HealingEvent
}

// Resolver finds page-object elements. The primary locator is always tried
// first; the AI is consulted at most once per call and only when self
// healing is enabled.
type Resolver struct {
	ai     output.AIPort
	cfg    Config
	logger output.LoggerPort
}

func New(ai output.AIPort, cfg Config, logger output.LoggerPort) *Resolver {
	if cfg.PrimaryTimeout <= 0 {
		cfg.PrimaryTimeout = defaultPrimaryTimeout
	}
	if cfg.HealTimeout <= 0 {
		cfg.HealTimeout = cfg.PrimaryTimeout
	}
	if cfg.MaxElements <= 0 {
		cfg.MaxElements = defaultMaxElements
	}
	if cfg.MaxText <= 0 {
		cfg.MaxText = defaultMaxText
	}
	return &Resolver{ai: ai, cfg: cfg, logger: logger}
}

func (r *Resolver) HealingEnabled() bool {
	return r.cfg.SelfHealing && r.ai != nil
}

func (r *Resolver) Resolve(ctx context.Context, page output.PagePort, name string, def entity.ElementDef) (output.ElementPort, Resolution, error) {
	var primaryErr error
	if def.Locator != nil && !def.Locator.IsZero() {
		el, err := page.Find(ctx, *def.Locator, r.cfg.PrimaryTimeout)
		if err == nil {
			return el, Resolution{Locator: *def.Locator}, nil
		}
		primaryErr = err
	} else {
		primaryErr = errNoPrimary
	}

	if !r.HealingEnabled() {
		return nil, Resolution{}, fmt.Errorf("%w: %s: %w", ErrElementNotFound, name, primaryErr)
	}

	if err := ctx.Err(); err != nil {
		return nil, Resolution{}, fmt.Errorf("%w: %s: %w", ErrElementNotFound, name, err)
	}

	suggested, err := r.suggest(ctx, page, name, def)
	if err != nil {
		return nil, Resolution{}, fmt.Errorf("%w: %s: %w", ErrElementNotFound, name, errors.Join(primaryErr, err))
	}

	el, err := page.Find(ctx, suggested, r.cfg.HealTimeout)
	if err != nil {
		return nil, Resolution{}, fmt.Errorf("%w: %s: suggested %s: %w", ErrElementNotFound, name, suggested, errors.Join(primaryErr, err))
	}

	event := &entity.HealingEvent{Element: name, Suggested: suggested}
	if def.Locator != nil {
		event.Primary = *def.Locator
	}
	if r.logger != nil {
		r.logger.Warn("element healed",
			"element", name,
			"primary", event.Primary.String(),
			"suggested", suggested.String(),
		)
	}

	return el, Resolution{Locator: suggested, Healed: true, Event: event}, nil
}

func (r *Resolver) suggest(ctx context.Context, page output.PagePort, name string, def entity.ElementDef) (entity.Locator, error) {
	snap, err := page.Snapshot(ctx)
	if err != nil {
		return entity.Locator{}, fmt.Errorf("snapshot page: %w", err)
	}

	data := prompts.HealingData{
		Element:     name,
		Description: def.Description,
		URL:         snap.URL,
		Title:       snap.Title,
		Elements:    dom.Summarize(snap.HTML, r.cfg.MaxElements),
		Text:        dom.VisibleText(snap.HTML, r.cfg.MaxText),
	}
	if data.Description == "" {
		data.Description = name
	}
	if def.Locator != nil {
		data.Primary = def.Locator.String()
	}

	prompt, err := prompts.Healing(data)
	if err != nil {
		return entity.Locator{}, err
	}

	reply, err := r.ai.Complete(ctx, prompts.SystemPrompt, prompt)
	if err != nil {
		return entity.Locator{}, fmt.Errorf("ai suggestion: %w", err)
	}

	return ParseSuggestion(reply)
}

type suggestion struct {
	By         string  `json:"by"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// ParseSuggestion reads a {"by": ..., "value": ...} object out of a model
// reply and validates it.
func ParseSuggestion(reply string) (entity.Locator, error) {
	raw, err := prompts.ExtractJSON(reply)
	if err != nil {
		return entity.Locator{}, fmt.Errorf("%w: %w", ErrBadSuggestion, err)
	}

	var s suggestion
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return entity.Locator{}, fmt.Errorf("%w: %w", ErrBadSuggestion, err)
	}

	by, err := entity.ParseStrategy(s.By)
	if err != nil {
		return entity.Locator{}, fmt.Errorf("%w: %w", ErrBadSuggestion, err)
	}

	loc := entity.Locator{By: by, Value: s.Value, Description: "ai suggestion"}
	if err := loc.Validate(); err != nil {
		return entity.Locator{}, fmt.Errorf("%w: %w", ErrBadSuggestion, err)
	}
	return loc, nil
}
