// Package config implements the layered suite configuration.
// Precedence: defaults < <suite>/config.yaml < <suite>/config.local.yaml <
// env (SMARTTEST_* and legacy names) < CLI overrides.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"smarttest/internal/domain/entity"
	"smarttest/internal/retry"
)

type Config struct {
	SuiteInfo     SuiteInfo     `mapstructure:"suite_info" yaml:"suite_info"`
	Browser       Browser       `mapstructure:"browser" yaml:"browser"`
	AIFeatures    AIFeatures    `mapstructure:"ai_features" yaml:"ai_features"`
	AISettings    AISettings    `mapstructure:"ai_settings" yaml:"ai_settings"`
	TestExecution TestExecution `mapstructure:"test_execution" yaml:"test_execution"`
	Reporting     Reporting     `mapstructure:"reporting" yaml:"reporting"`
	Notifications Notifications `mapstructure:"notifications" yaml:"notifications"`
	API           API           `mapstructure:"api" yaml:"api"`
	Auth          Auth          `mapstructure:"auth" yaml:"auth"`
}

type SuiteInfo struct {
	Name        string `mapstructure:"name" yaml:"name"`
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	Description string `mapstructure:"description" yaml:"description"`
}

// Durations are plain numbers of seconds, as in the YAML files.
type Browser struct {
	Default        string  `mapstructure:"default" yaml:"default"`
	Headless       bool    `mapstructure:"headless" yaml:"headless"`
	WindowSize     string  `mapstructure:"window_size" yaml:"window_size"`
	Timeout        float64 `mapstructure:"timeout" yaml:"timeout"`
	LocatorTimeout float64 `mapstructure:"locator_timeout" yaml:"locator_timeout"`
	SlowMotion     float64 `mapstructure:"slow_motion" yaml:"slow_motion"`
	NoSandbox      bool    `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	Bin            string  `mapstructure:"bin" yaml:"bin"`
	ControlURL     string  `mapstructure:"control_url" yaml:"control_url"`
}

type AIFeatures struct {
	SelfHealing    bool `mapstructure:"self_healing" yaml:"self_healing"`
	VisualTesting  bool `mapstructure:"visual_testing" yaml:"visual_testing"`
	TestGeneration bool `mapstructure:"test_generation" yaml:"test_generation"`
	TestAnalysis   bool `mapstructure:"test_analysis" yaml:"test_analysis"`
}

type AISettings struct {
	Provider          string   `mapstructure:"provider" yaml:"provider"`
	APIKey            string   `mapstructure:"api_key" yaml:"api_key"`
	BaseURL           string   `mapstructure:"base_url" yaml:"base_url"`
	Model             string   `mapstructure:"model" yaml:"model"`
	FallbackModels    []string `mapstructure:"fallback_models" yaml:"fallback_models"`
	MaxRetries        int      `mapstructure:"max_retries" yaml:"max_retries"`
	InitialRetryDelay float64  `mapstructure:"initial_retry_delay" yaml:"initial_retry_delay"`
	MaxRetryDelay     float64  `mapstructure:"max_retry_delay" yaml:"max_retry_delay"`
	BackoffBase       float64  `mapstructure:"backoff_base" yaml:"backoff_base"`
	Jitter            float64  `mapstructure:"jitter" yaml:"jitter"`
	RateLimitCodes    []int    `mapstructure:"rate_limit_codes" yaml:"rate_limit_codes"`
	EnableCaching     bool     `mapstructure:"enable_caching" yaml:"enable_caching"`
	CacheTTL          float64  `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	Temperature       float64  `mapstructure:"temperature" yaml:"temperature"`
	TopP              float64  `mapstructure:"top_p" yaml:"top_p"`
	MaxTokens         int      `mapstructure:"max_tokens" yaml:"max_tokens"`
	VisualThreshold   float64  `mapstructure:"visual_threshold" yaml:"visual_threshold"`
	GeneratedPerPage  int      `mapstructure:"generated_per_page" yaml:"generated_per_page"`
}

type TestExecution struct {
	Parallel    bool    `mapstructure:"parallel" yaml:"parallel"`
	MaxWorkers  int     `mapstructure:"max_workers" yaml:"max_workers"`
	Timeout     float64 `mapstructure:"timeout" yaml:"timeout"`
	TestTimeout float64 `mapstructure:"test_timeout" yaml:"test_timeout"`
}

type Reporting struct {
	Format    []string `mapstructure:"format" yaml:"format"`
	OutputDir string   `mapstructure:"output_dir" yaml:"output_dir"`
}

type Notifications struct {
	Webhook Webhook `mapstructure:"webhook" yaml:"webhook"`
	Email   Email   `mapstructure:"email" yaml:"email"`
}

type Webhook struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	URL      string `mapstructure:"url" yaml:"url"`
	Detailed bool   `mapstructure:"detailed" yaml:"detailed"`
}

type Email struct {
	Enabled    bool     `mapstructure:"enabled" yaml:"enabled"`
	SMTPServer string   `mapstructure:"smtp_server" yaml:"smtp_server"`
	Port       int      `mapstructure:"port" yaml:"port"`
	UseTLS     bool     `mapstructure:"use_tls" yaml:"use_tls"`
	Username   string   `mapstructure:"username" yaml:"username"`
	Password   string   `mapstructure:"password" yaml:"password"`
	FromEmail  string   `mapstructure:"from_email" yaml:"from_email"`
	Recipients []string `mapstructure:"recipients" yaml:"recipients"`
}

// API configures http_request steps.
type API struct {
	BaseURL string  `mapstructure:"base_url" yaml:"base_url"`
	Timeout float64 `mapstructure:"timeout" yaml:"timeout"`
}

type Auth struct {
	Type       string `mapstructure:"type" yaml:"type"`
	Token      string `mapstructure:"token" yaml:"token"`
	Username   string `mapstructure:"username" yaml:"username"`
	Password   string `mapstructure:"password" yaml:"password"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	APIKeyName string `mapstructure:"api_key_name" yaml:"api_key_name"`
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (f AIFeatures) Entity() entity.Features {
	return entity.Features{
		SelfHealing:    f.SelfHealing,
		VisualTesting:  f.VisualTesting,
		TestGeneration: f.TestGeneration,
		TestAnalysis:   f.TestAnalysis,
	}
}

func (b Browser) TimeoutDuration() time.Duration        { return seconds(b.Timeout) }
func (b Browser) LocatorTimeoutDuration() time.Duration { return seconds(b.LocatorTimeout) }
func (b Browser) SlowMotionDuration() time.Duration     { return seconds(b.SlowMotion) }

// Window parses "W,H" (or "WxH").
func (b Browser) Window() (int, int, error) {
	parts := strings.FieldsFunc(b.WindowSize, func(r rune) bool { return r == ',' || r == 'x' || r == 'X' })
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("window_size %q is not W,H", b.WindowSize)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("window_size width: %w", err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("window_size height: %w", err)
	}
	return w, h, nil
}

func (s AISettings) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  s.MaxRetries,
		InitialDelay: seconds(s.InitialRetryDelay),
		MaxDelay:     seconds(s.MaxRetryDelay),
		Multiplier:   s.BackoffBase,
		Jitter:       s.Jitter,
	}
}

func (s AISettings) CacheTTLDuration() time.Duration { return seconds(s.CacheTTL) }

func (e TestExecution) TimeoutDuration() time.Duration     { return seconds(e.Timeout) }
func (e TestExecution) TestTimeoutDuration() time.Duration { return seconds(e.TestTimeout) }

// Workers is the effective pool size: 1 when running sequentially.
func (e TestExecution) Workers() int {
	if !e.Parallel || e.MaxWorkers < 1 {
		return 1
	}
	return e.MaxWorkers
}

func (a API) TimeoutDuration() time.Duration { return seconds(a.Timeout) }

// Headers returns the authentication headers for http_request steps.
func (a Auth) Headers() map[string]string {
	switch strings.ToLower(a.Type) {
	case "bearer":
		if a.Token != "" {
			return map[string]string{"Authorization": "Bearer " + a.Token}
		}
	case "basic":
		if a.Username != "" && a.Password != "" {
			return map[string]string{"Authorization": "Basic " + basicAuth(a.Username, a.Password)}
		}
	case "api_key":
		if a.APIKey != "" {
			name := a.APIKeyName
			if name == "" {
				name = "X-API-Key"
			}
			return map[string]string{name: a.APIKey}
		}
	}
	return nil
}
