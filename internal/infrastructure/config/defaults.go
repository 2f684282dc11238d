package config

import (
	"encoding/base64"

	"github.com/spf13/viper"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	ProviderOpenAI       = "openai"
	ProviderLangChain    = "langchain"
)

var ReportFormats = []string{"html", "json", "junit", "markdown"}

func DefaultConfig() Config {
	return Config{
		Browser: Browser{
			Default:        "chrome",
			Headless:       false,
			WindowSize:     "1920,1080",
			Timeout:        30,
			LocatorTimeout: 5,
		},
		AIFeatures: AIFeatures{
			SelfHealing:    true,
			VisualTesting:  true,
			TestGeneration: true,
			TestAnalysis:   true,
		},
		AISettings: AISettings{
			Provider:          ProviderOpenAI,
			BaseURL:           DefaultGeminiBaseURL,
			Model:             "gemini-2.5-flash-lite",
			FallbackModels:    []string{"gemini-2.0-flash"},
			MaxRetries:        3,
			InitialRetryDelay: 2,
			MaxRetryDelay:     60,
			BackoffBase:       2,
			Jitter:            0.1,
			RateLimitCodes:    []int{429, 503},
			EnableCaching:     true,
			CacheTTL:          3600,
			Temperature:       0.3,
			TopP:              0.9,
			MaxTokens:         2048,
			VisualThreshold:   0.9,
			GeneratedPerPage:  3,
		},
		TestExecution: TestExecution{
			Parallel:    false,
			MaxWorkers:  4,
			Timeout:     300,
			TestTimeout: 120,
		},
		Reporting: Reporting{
			Format:    []string{"html", "json", "junit"},
			OutputDir: "test-results",
		},
		Notifications: Notifications{
			Email: Email{Port: 587, UseTLS: true},
		},
		API: API{Timeout: 30},
		Auth: Auth{
			Type:       "none",
			APIKeyName: "X-API-Key",
		},
	}
}

// setDefaults seeds viper with built-in defaults.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("suite_info.name", "")
	v.SetDefault("suite_info.base_url", "")
	v.SetDefault("suite_info.description", "")

	v.SetDefault("browser.default", def.Browser.Default)
	v.SetDefault("browser.headless", def.Browser.Headless)
	v.SetDefault("browser.window_size", def.Browser.WindowSize)
	v.SetDefault("browser.timeout", def.Browser.Timeout)
	v.SetDefault("browser.locator_timeout", def.Browser.LocatorTimeout)
	v.SetDefault("browser.slow_motion", def.Browser.SlowMotion)
	v.SetDefault("browser.no_sandbox", def.Browser.NoSandbox)
	v.SetDefault("browser.bin", def.Browser.Bin)
	v.SetDefault("browser.control_url", def.Browser.ControlURL)

	v.SetDefault("ai_features.self_healing", def.AIFeatures.SelfHealing)
	v.SetDefault("ai_features.visual_testing", def.AIFeatures.VisualTesting)
	v.SetDefault("ai_features.test_generation", def.AIFeatures.TestGeneration)
	v.SetDefault("ai_features.test_analysis", def.AIFeatures.TestAnalysis)

	v.SetDefault("ai_settings.provider", def.AISettings.Provider)
	v.SetDefault("ai_settings.api_key", def.AISettings.APIKey)
	v.SetDefault("ai_settings.base_url", def.AISettings.BaseURL)
	v.SetDefault("ai_settings.model", def.AISettings.Model)
	v.SetDefault("ai_settings.fallback_models", def.AISettings.FallbackModels)
	v.SetDefault("ai_settings.max_retries", def.AISettings.MaxRetries)
	v.SetDefault("ai_settings.initial_retry_delay", def.AISettings.InitialRetryDelay)
	v.SetDefault("ai_settings.max_retry_delay", def.AISettings.MaxRetryDelay)
	v.SetDefault("ai_settings.backoff_base", def.AISettings.BackoffBase)
	v.SetDefault("ai_settings.jitter", def.AISettings.Jitter)
	v.SetDefault("ai_settings.rate_limit_codes", def.AISettings.RateLimitCodes)
	v.SetDefault("ai_settings.enable_caching", def.AISettings.EnableCaching)
	v.SetDefault("ai_settings.cache_ttl", def.AISettings.CacheTTL)
	v.SetDefault("ai_settings.temperature", def.AISettings.Temperature)
	v.SetDefault("ai_settings.top_p", def.AISettings.TopP)
	v.SetDefault("ai_settings.max_tokens", def.AISettings.MaxTokens)
	v.SetDefault("ai_settings.visual_threshold", def.AISettings.VisualThreshold)
	v.SetDefault("ai_settings.generated_per_page", def.AISettings.GeneratedPerPage)

	v.SetDefault("test_execution.parallel", def.TestExecution.Parallel)
	v.SetDefault("test_execution.max_workers", def.TestExecution.MaxWorkers)
	v.SetDefault("test_execution.timeout", def.TestExecution.Timeout)
	v.SetDefault("test_execution.test_timeout", def.TestExecution.TestTimeout)

	v.SetDefault("reporting.format", def.Reporting.Format)
	v.SetDefault("reporting.output_dir", def.Reporting.OutputDir)

	v.SetDefault("notifications.webhook.enabled", def.Notifications.Webhook.Enabled)
	v.SetDefault("notifications.webhook.url", def.Notifications.Webhook.URL)
	v.SetDefault("notifications.webhook.detailed", def.Notifications.Webhook.Detailed)
	v.SetDefault("notifications.email.enabled", def.Notifications.Email.Enabled)
	v.SetDefault("notifications.email.smtp_server", def.Notifications.Email.SMTPServer)
	v.SetDefault("notifications.email.port", def.Notifications.Email.Port)
	v.SetDefault("notifications.email.use_tls", def.Notifications.Email.UseTLS)
	v.SetDefault("notifications.email.username", def.Notifications.Email.Username)
	v.SetDefault("notifications.email.password", def.Notifications.Email.Password)
	v.SetDefault("notifications.email.from_email", def.Notifications.Email.FromEmail)
	v.SetDefault("notifications.email.recipients", def.Notifications.Email.Recipients)

	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout", def.API.Timeout)

	v.SetDefault("auth.type", def.Auth.Type)
	v.SetDefault("auth.token", def.Auth.Token)
	v.SetDefault("auth.username", def.Auth.Username)
	v.SetDefault("auth.password", def.Auth.Password)
	v.SetDefault("auth.api_key", def.Auth.APIKey)
	v.SetDefault("auth.api_key_name", def.Auth.APIKeyName)
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}
