package locator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
	"smarttest/internal/usecase/pageobject"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeElement struct{ loc entity.Locator }

func (e *fakeElement) Click(context.Context) error           { return nil }
func (e *fakeElement) Fill(context.Context, string) error    { return nil }
func (e *fakeElement) Visible(context.Context) (bool, error) { return true, nil }
func (e *fakeElement) Text(context.Context) (string, error)  { return e.loc.Value, nil }

// fakePage finds only the locators listed in present.
type fakePage struct {
	present []entity.Locator
	finds   []entity.Locator
}

func (p *fakePage) Navigate(context.Context, string) error { return nil }
func (p *fakePage) Find(_ context.Context, loc entity.Locator, _ time.Duration) (output.ElementPort, error) {
	p.finds = append(p.finds, loc)
	for _, l := range p.present {
		if l.By == loc.By && l.Value == loc.Value {
			return &fakeElement{loc: loc}, nil
		}
	}
	return nil, errors.New("timeout waiting for " + loc.String())
}
func (p *fakePage) PressEnter(context.Context) error     { return nil }
func (p *fakePage) Scroll(context.Context, string) error { return nil }
func (p *fakePage) Snapshot(context.Context) (*entity.PageSnapshot, error) {
	return &entity.PageSnapshot{
		URL:   "https://shop.test/",
		Title: "Shop",
		HTML:  `<body><button class="btn-search">Search</button></body>`,
	}, nil
}
func (p *fakePage) Screenshot(context.Context) (*entity.Screenshot, error) { return nil, nil }
func (p *fakePage) URL() string                                            { return "https://shop.test/" }
func (p *fakePage) Title() string                                          { return "Shop" }
func (p *fakePage) Close() error                                           { return nil }

type fakeAI struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	reply   string
	err     error
}

func (a *fakeAI) Complete(_ context.Context, _, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.prompts = append(a.prompts, prompt)
	return a.reply, a.err
}

var (
	primary = entity.Locator{By: entity.ByID, Value: "button-search"}
	healed  = entity.Locator{By: entity.ByCSS, Value: ".btn-search"}
	def     = entity.ElementDef{Description: "search button", Locator: &primary}
)

func TestResolve_PrimarySuccessMakesNoAICall(t *testing.T) {
	ai := &fakeAI{reply: `{"by":"css","value":".btn-search"}`}
	page := &fakePage{present: []entity.Locator{primary}}
	r := New(ai, Config{SelfHealing: true}, nil)

	el, res, err := r.Resolve(context.Background(), page, "search_button", def)

	require.NoError(t, err)
	assert.NotNil(t, el)
	assert.False(t, res.Healed)
	assert.Equal(t, primary, res.Locator)
	assert.Zero(t, ai.calls)
}

func TestResolve_HealsWithSingleSuggestion(t *testing.T) {
	ai := &fakeAI{reply: "Here you go:\n```json\n{\"by\": \"css selector\", \"value\": \".btn-search\", \"confidence\": 0.9}\n```"}
	page := &fakePage{present: []entity.Locator{healed}}
	r := New(ai, Config{SelfHealing: true}, nil)

	el, res, err := r.Resolve(context.Background(), page, "search_button", def)

	require.NoError(t, err)
	assert.NotNil(t, el)
	assert.True(t, res.Healed)
	assert.Equal(t, entity.ByCSS, res.Locator.By)
	assert.Equal(t, ".btn-search", res.Locator.Value)
	require.NotNil(t, res.Event)
	assert.Equal(t, primary, res.Event.Primary)
	assert.Equal(t, 1, ai.calls)
	assert.Equal(t, []entity.Locator{primary, res.Locator}, page.finds, "primary is always tried first")
	assert.Contains(t, ai.prompts[0], `<button class="btn-search"> Search`)
	assert.Equal(t, "button-search", def.Locator.Value, "page object is not rewritten")
}

func TestResolve_HealedLocatorIsNotRemembered(t *testing.T) {
	pages, err := pageobject.NewRegistry("https://shop.test", []entity.PageObject{{
		Name: "home",
		Path: "/",
		Elements: map[string]entity.ElementDef{
			"search_button": {Description: "search button", Locator: &entity.Locator{By: entity.ByID, Value: "button-search"}},
		},
	}})
	require.NoError(t, err)

	ai := &fakeAI{reply: `{"by":"css","value":".btn-search"}`}
	page := &fakePage{present: []entity.Locator{healed}}
	r := New(ai, Config{SelfHealing: true}, nil)

	for run := 0; run < 2; run++ {
		el, err := pages.Element("home", "search_button")
		require.NoError(t, err)

		_, res, err := r.Resolve(context.Background(), page, "search_button", el)
		require.NoError(t, err)
		assert.True(t, res.Healed)

		// Rewriting the caller's copy must not reach the registry.
		*el.Locator = res.Locator
	}

	assert.Equal(t, []entity.Locator{primary, healed, primary, healed}, page.finds,
		"every resolve starts from the primary locator")
	assert.Equal(t, 2, ai.calls)

	stored, err := pages.Element("home", "search_button")
	require.NoError(t, err)
	assert.Equal(t, primary, *stored.Locator)
}

func TestResolve_HealingDisabledMakesNoAICall(t *testing.T) {
	ai := &fakeAI{reply: `{"by":"css","value":".btn-search"}`}
	page := &fakePage{present: []entity.Locator{healed}}
	r := New(ai, Config{SelfHealing: false}, nil)

	_, _, err := r.Resolve(context.Background(), page, "search_button", def)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Zero(t, ai.calls)
	assert.Len(t, page.finds, 1)
}

func TestResolve_SuggestionAlsoMissing(t *testing.T) {
	ai := &fakeAI{reply: `{"by":"xpath","value":"//button[@id='nope']"}`}
	page := &fakePage{}
	r := New(ai, Config{SelfHealing: true}, nil)

	_, res, err := r.Resolve(context.Background(), page, "search_button", def)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.False(t, res.Healed)
	assert.Equal(t, 1, ai.calls)
	assert.Len(t, page.finds, 2)
}

func TestResolve_AIFailure(t *testing.T) {
	aiErr := errors.New("quota exceeded")
	ai := &fakeAI{err: aiErr}
	r := New(ai, Config{SelfHealing: true}, nil)

	_, _, err := r.Resolve(context.Background(), &fakePage{}, "search_button", def)

	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.ErrorIs(t, err, aiErr)
	assert.Equal(t, 1, ai.calls)
}

func TestResolve_DescriptionOnlyElementGoesStraightToAI(t *testing.T) {
	ai := &fakeAI{reply: `{"by":"css","value":".btn-search"}`}
	page := &fakePage{present: []entity.Locator{healed}}
	r := New(ai, Config{SelfHealing: true}, nil)

	_, res, err := r.Resolve(context.Background(), page, "search_button", entity.ElementDef{Description: "search button"})

	require.NoError(t, err)
	assert.True(t, res.Healed)
	assert.True(t, res.Event.Primary.IsZero())
	require.Len(t, page.finds, 1)
	assert.Equal(t, healed.Value, page.finds[0].Value)
	assert.NotContains(t, ai.prompts[0], "Failed locator")
}

func TestResolve_NilAIBehavesAsDisabled(t *testing.T) {
	r := New(nil, Config{SelfHealing: true}, nil)

	_, _, err := r.Resolve(context.Background(), &fakePage{}, "x", def)

	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.False(t, r.HealingEnabled())
}

func TestParseSuggestion(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    entity.Locator
		wantErr bool
	}{
		{name: "plain", reply: `{"by":"id","value":"q"}`, want: entity.Locator{By: entity.ByID, Value: "q"}},
		{name: "selenium spelling", reply: `{"by":"LINK TEXT","value":"Cart"}`, want: entity.Locator{By: entity.ByLinkText, Value: "Cart"}},
		{name: "unknown strategy", reply: `{"by":"shadow","value":"x"}`, wantErr: true},
		{name: "empty value", reply: `{"by":"css","value":"  "}`, wantErr: true},
		{name: "no json", reply: "I could not find it", wantErr: true},
		{name: "broken json", reply: `{"by": "css", value}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSuggestion(tt.reply)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadSuggestion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.By, got.By)
			assert.Equal(t, tt.want.Value, got.Value)
		})
	}
}
