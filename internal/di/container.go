package di

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smarttest/internal/adapter/action"
	"smarttest/internal/application/port/output"
	"smarttest/internal/application/service"
	"smarttest/internal/infrastructure/browser/rod"
	"smarttest/internal/infrastructure/config"
	"smarttest/internal/infrastructure/env"
	"smarttest/internal/infrastructure/llm/langchain"
	"smarttest/internal/infrastructure/llm/openaicompat"
	"smarttest/internal/infrastructure/logger"
	"smarttest/internal/infrastructure/notify"
	"smarttest/internal/infrastructure/report"
	"smarttest/internal/infrastructure/suitefs"
	"smarttest/internal/retry"
	"smarttest/internal/usecase/analyzer"
	"smarttest/internal/usecase/executor"
	"smarttest/internal/usecase/generator"
	"smarttest/internal/usecase/locator"
	"smarttest/internal/usecase/pageobject"
	"smarttest/internal/usecase/runner"
	"smarttest/internal/usecase/suite"
)

const runDirLayout = "20060102_150405"

type Container struct {
	Config  *config.Config
	Suite   suitefs.Suite
	RunDir  string
	Logger  output.LoggerPort
	Browser output.BrowserPort
	// AI is nil when no API key is configured.
	AI       output.AIPort
	Pages    *pageobject.Registry
	Actions  output.ActionRegistry
	Executor *executor.UseCase
	Runner   *runner.Runner
	Notifier *notify.Dispatcher
	UseCase  *suite.UseCase

	aiService *service.AIService
}

type Options struct {
	SuitesDir  string
	Suite      string
	ConfigFile string
	LogLevel   string
	Overrides  map[string]any
	// Env supplies dotenv-merged variables to the config loader. Nil reads
	// the process environment.
	Env *env.EnvService
	// LaunchBrowser starts Chrome; modes that never execute tests skip it.
	LaunchBrowser bool
	Listener      runner.Listener
	// LogConsole receives human-readable log lines. Nil means stderr.
	LogConsole io.Writer
	// Ephemeral skips the run directory and the log file, for commands
	// that only inspect a suite.
	Ephemeral bool
	Now       func() time.Time
}

func NewContainer(ctx context.Context, opts Options) (*Container, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	st, err := suitefs.Find(opts.SuitesDir, opts.Suite)
	if err != nil {
		return nil, err
	}

	loadOpts := config.LoadOptions{
		SuiteDir:  st.Dir,
		File:      opts.ConfigFile,
		Overrides: opts.Overrides,
	}
	if opts.Env != nil {
		loadOpts.Getenv = opts.Env.Get
	}
	cfg, err := config.Load(loadOpts)
	if err != nil {
		return nil, err
	}

	var runDir string
	if !opts.Ephemeral {
		runDir = filepath.Join(cfg.Reporting.OutputDir, "run_"+now().Format(runDirLayout))
		if err := os.MkdirAll(runDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create run dir: %w", err)
		}
	}

	log, err := logger.New(logger.Config{Level: opts.LogLevel, Dir: runDir, Console: opts.LogConsole})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if opts.Env != nil {
		log.Info("environment loaded", "app_env", opts.Env.AppEnv(), "dotenv_files", opts.Env.Loaded())
	}
	log.Info("suite loaded", "suite", st.Name, "config_name", cfg.SuiteInfo.Name, "run_dir", runDir)

	c := &Container{Config: cfg, Suite: st, RunDir: runDir, Logger: log}
	if err := c.build(ctx, opts); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context, opts Options) error {
	cfg := c.Config
	log := c.Logger

	ai, err := newAI(cfg.AISettings, log)
	if err != nil {
		return err
	}
	if ai != nil {
		c.AI = ai
		c.aiService = ai
	} else if cfg.AIFeatures != (config.AIFeatures{}) {
		log.Warn("no AI API key configured; healing and generation are unavailable, analysis uses heuristics")
	}

	pages, err := c.Suite.LoadPages()
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfig, err)
	}
	c.Pages, err = pageobject.NewRegistry(cfg.SuiteInfo.BaseURL, pages)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfig, err)
	}

	actions := service.NewActionRegistry()
	action.RegisterAll(actions, action.Options{
		HTTPClient:     &http.Client{Timeout: cfg.API.TimeoutDuration()},
		APIBaseURL:     cfg.API.BaseURL,
		APIHeaders:     cfg.Auth.Headers(),
		SchemaDir:      c.Suite.Dir,
		AbsenceTimeout: cfg.Browser.LocatorTimeoutDuration(),
	})
	c.Actions = actions

	if opts.LaunchBrowser {
		browser, err := newBrowser(ctx, cfg.Browser, log)
		if err != nil {
			return fmt.Errorf("failed to create browser: %w", err)
		}
		c.Browser = browser
	}

	resolver := locator.New(c.AI, locator.Config{
		SelfHealing:    cfg.AIFeatures.SelfHealing,
		PrimaryTimeout: cfg.Browser.LocatorTimeoutDuration(),
	}, log)

	c.Executor = executor.New(c.Browser, actions, c.Pages, resolver, log, executor.Config{
		TestTimeout:     cfg.TestExecution.TestTimeoutDuration(),
		RunDir:          c.RunDir,
		BaselineDir:     c.Suite.BaselineDir(),
		Features:        cfg.AIFeatures.Entity(),
		VisualThreshold: cfg.AISettings.VisualThreshold,
	})
	c.Runner = runner.New(c.Executor, log, opts.Listener)

	gen := generator.New(c.AI, c.Pages, actions, c.Executor, c.Suite, log, generator.Config{
		Enabled: cfg.AIFeatures.TestGeneration,
		PerPage: cfg.AISettings.GeneratedPerPage,
	})
	an := analyzer.New(c.AI, log, analyzer.Config{
		Enabled:     cfg.AIFeatures.TestAnalysis,
		Parallel:    cfg.TestExecution.Workers() > 1,
		SelfHealing: cfg.AIFeatures.SelfHealing,
	})

	c.Notifier = newNotifier(cfg.Notifications, log)

	c.UseCase = suite.New(suite.Deps{
		Tests:     c.Suite,
		Runner:    c.Runner,
		Generator: gen,
		Analyzer:  an,
		Reporter:  report.NewWriter(c.RunDir, log),
		Notifier:  c.Notifier,
		Load:      report.ReadJSON,
		Logger:    log,
	})
	return nil
}

// RunnerConfig derives the worker pool settings from test_execution.
func (c *Container) RunnerConfig() runner.Config {
	return runner.Config{
		Workers:    c.Config.TestExecution.Workers(),
		RunTimeout: c.Config.TestExecution.TimeoutDuration(),
	}
}

func (c *Container) Close() {
	if c.aiService != nil && c.Logger != nil {
		st := c.aiService.Stats()
		c.Logger.Info("AI usage", "requests", st.Requests, "attempts", st.Attempts, "cache_hits", st.CacheHits)
	}
	if c.Browser != nil {
		c.Browser.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}

// newAI returns nil when AI is unconfigured. Callers assign it to the
// AIPort field only when non-nil, so the interface never holds a typed nil.
func newAI(s config.AISettings, log output.LoggerPort) (*service.AIService, error) {
	if s.APIKey == "" {
		return nil, nil
	}

	var llm output.LLMPort
	switch strings.ToLower(s.Provider) {
	case config.ProviderLangChain:
		a, err := langchain.New(langchain.Config{APIKey: s.APIKey, Model: s.Model, BaseURL: s.BaseURL})
		if err != nil {
			return nil, fmt.Errorf("failed to create langchain client: %w", err)
		}
		llm = a
	default:
		llm = openaicompat.New(openaicompat.Config{APIKey: s.APIKey, Model: s.Model, BaseURL: s.BaseURL, Logger: log})
	}

	retrier := retry.New(s.RetryPolicy(),
		retry.WithClassifier(retry.NewHTTPClassifier(s.RateLimitCodes)),
		retry.WithOnRetry(func(attempt int, wait time.Duration, err error) {
			log.Warn("AI call failed, retrying", "attempt", attempt, "wait", wait.String(), "error", err.Error())
		}),
	)

	log.Info("AI service configured", "provider", s.Provider, "model", s.Model, "fallbacks", len(s.FallbackModels))
	return service.NewAIService(llm, retrier, service.AIConfig{
		Model:          s.Model,
		FallbackModels: s.FallbackModels,
		Temperature:    float32(s.Temperature),
		TopP:           float32(s.TopP),
		MaxTokens:      s.MaxTokens,
		EnableCaching:  s.EnableCaching,
		CacheTTL:       s.CacheTTLDuration(),
	}, log), nil
}

func newBrowser(ctx context.Context, b config.Browser, log output.LoggerPort) (output.BrowserPort, error) {
	if name := strings.ToLower(b.Default); name != "" && name != "chrome" && name != "chromium" {
		log.Warn("only Chromium-based browsers are supported, using chrome", "requested", b.Default)
	}

	w, h, err := b.Window()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}

	rodCfg := rod.DefaultConfig()
	rodCfg.Headless = b.Headless
	rodCfg.SlowMotion = b.SlowMotionDuration()
	rodCfg.Timeout = b.TimeoutDuration()
	rodCfg.NoSandbox = b.NoSandbox
	rodCfg.WindowWidth = w
	rodCfg.WindowHeight = h
	rodCfg.Bin = b.Bin
	rodCfg.ControlURL = b.ControlURL

	log.Info("launching browser", "headless", b.Headless, "window", b.WindowSize)
	return rod.NewBrowserAdapter(ctx, rodCfg)
}

func newNotifier(n config.Notifications, log output.LoggerPort) *notify.Dispatcher {
	var notifiers []output.NotifierPort
	if n.Webhook.Enabled {
		notifiers = append(notifiers, notify.NewWebhook(n.Webhook.URL, nil))
	}
	if n.Email.Enabled {
		notifiers = append(notifiers, notify.NewEmail(notify.EmailConfig{
			Server:     n.Email.SMTPServer,
			Port:       n.Email.Port,
			UseTLS:     n.Email.UseTLS,
			Username:   n.Email.Username,
			Password:   n.Email.Password,
			From:       n.Email.FromEmail,
			Recipients: n.Email.Recipients,
		}))
	}
	return notify.NewDispatcher(log, notifiers...)
}
