package di

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"smarttest/internal/domain/entity"
	"smarttest/internal/infrastructure/config"
	"smarttest/internal/infrastructure/env"
	"smarttest/internal/infrastructure/suitefs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const suiteConfig = `
suite_info:
  name: Demo
  base_url: https://demo.example.com
ai_features:
  self_healing: true
  visual_testing: false
  test_generation: true
  test_analysis: true
test_execution:
  parallel: true
  max_workers: 3
  timeout: 60
notifications:
  webhook:
    enabled: true
    url: https://hooks.example.com/x
`

const homePage = `
name: home
path: /
elements:
  search_box:
    description: the search input
    locator: {by: name, value: search}
`

func writeSuite(t *testing.T) (root string, out string) {
	t.Helper()
	root = t.TempDir()
	dir := filepath.Join(root, "demo")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pages"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tests"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(suiteConfig), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pages", "home.yaml"), []byte(homePage), 0o644))
	return root, filepath.Join(t.TempDir(), "results")
}

func newTestContainer(t *testing.T, overrides map[string]any) *Container {
	t.Helper()
	root, out := writeSuite(t)
	overrides["reporting.output_dir"] = out
	c, err := NewContainer(context.Background(), Options{
		SuitesDir:  root,
		Suite:      "demo",
		LogLevel:   "error",
		Overrides:  overrides,
		LogConsole: io.Discard,
		Now:        func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNewContainer_WithoutAIKey(t *testing.T) {
	c := newTestContainer(t, map[string]any{"ai_settings.api_key": ""})

	assert.Nil(t, c.AI)
	assert.Nil(t, c.Browser)
	assert.Equal(t, "run_20240301_093000", filepath.Base(c.RunDir))
	assert.DirExists(t, c.RunDir)
	assert.Equal(t, []string{"home"}, c.Pages.Names())
	assert.Equal(t, 3, c.RunnerConfig().Workers)
	assert.Equal(t, time.Minute, c.RunnerConfig().RunTimeout)

	_, ok := c.Actions.Get("http_request")
	assert.True(t, ok)
}

func TestNewContainer_WiresWebhookNotifier(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestContainer(t, map[string]any{
		"ai_settings.api_key":       "",
		"notifications.webhook.url": srv.URL,
	})
	report := &entity.RunReport{Suite: "demo", Summary: entity.Summarize(nil, time.Second)}

	require.NoError(t, c.Notifier.Notify(context.Background(), report, false))
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewContainer_ReadsDotenvThroughEnvService(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SMARTTEST_AI_API_KEY=sk-from-dotenv\n"), 0o600))
	t.Setenv("APP_ENV", "test")
	t.Setenv("SMARTTEST_AI_API_KEY", "")
	os.Unsetenv("SMARTTEST_AI_API_KEY")
	for _, k := range []string{"OPENAI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(k, "")
	}

	envSvc, err := env.NewEnvService(dir)
	require.NoError(t, err)

	root, out := writeSuite(t)
	c, err := NewContainer(context.Background(), Options{
		SuitesDir:  root,
		Suite:      "demo",
		LogLevel:   "error",
		Overrides:  map[string]any{"reporting.output_dir": out},
		Env:        envSvc,
		LogConsole: io.Discard,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	assert.Equal(t, "sk-from-dotenv", c.Config.AISettings.APIKey)
	assert.NotNil(t, c.AI)
}

func TestNewContainer_WithAIKey(t *testing.T) {
	c := newTestContainer(t, map[string]any{"ai_settings.api_key": "sk-test"})
	assert.NotNil(t, c.AI)

	c = newTestContainer(t, map[string]any{"ai_settings.api_key": "sk-test", "ai_settings.provider": "langchain"})
	assert.NotNil(t, c.AI)
}

func TestNewContainer_ExecutorValidatesAgainstPages(t *testing.T) {
	c := newTestContainer(t, map[string]any{"ai_settings.api_key": ""})

	ok := entity.TestCase{Name: "t", Page: "home", Steps: []entity.Step{
		{Action: "open", Page: "home"},
		{Action: "type", Element: "search_box", Text: "mac"},
	}}
	assert.NoError(t, c.Executor.Validate(ok))

	bad := entity.TestCase{Name: "t", Page: "home", Steps: []entity.Step{{Action: "click", Element: "missing"}}}
	assert.Error(t, c.Executor.Validate(bad))
}

func TestNewContainer_Errors(t *testing.T) {
	root, _ := writeSuite(t)

	_, err := NewContainer(context.Background(), Options{SuitesDir: root, Suite: "nope", LogConsole: io.Discard})
	assert.ErrorIs(t, err, suitefs.ErrSuiteNotFound)

	_, err = NewContainer(context.Background(), Options{
		SuitesDir:  root,
		Suite:      "demo",
		Overrides:  map[string]any{"test_execution.max_workers": 0, "reporting.output_dir": t.TempDir()},
		LogConsole: io.Discard,
	})
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestNewContainer_EphemeralCreatesNothing(t *testing.T) {
	root, out := writeSuite(t)
	c, err := NewContainer(context.Background(), Options{
		SuitesDir:  root,
		Suite:      "demo",
		Overrides:  map[string]any{"reporting.output_dir": out, "ai_settings.api_key": ""},
		LogConsole: io.Discard,
		Ephemeral:  true,
	})
	require.NoError(t, err)
	defer c.Close()

	assert.Empty(t, c.RunDir)
	assert.NoDirExists(t, out)
}

func TestBundledSuitesAreValid(t *testing.T) {
	for _, name := range []string{"awesomeqa", "amazon_in", "api_demo"} {
		t.Run(name, func(t *testing.T) {
			c, err := NewContainer(context.Background(), Options{
				SuitesDir:  filepath.Join("..", "..", "suites"),
				Suite:      name,
				LogLevel:   "error",
				Overrides:  map[string]any{"ai_settings.api_key": ""},
				LogConsole: io.Discard,
				Ephemeral:  true,
			})
			require.NoError(t, err)
			t.Cleanup(c.Close)

			tests, err := c.Suite.DiscoverTests()
			require.NoError(t, err)
			require.NotEmpty(t, tests)
			for _, tc := range tests {
				assert.NoError(t, c.Executor.Validate(tc), tc.Name)
			}
		})
	}
}
