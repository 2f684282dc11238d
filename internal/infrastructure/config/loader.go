package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

var ErrConfig = errors.New("invalid configuration")

const (
	FileName      = "config.yaml"
	LocalFileName = "config.local.yaml"
)

type valueKind int

const (
	kindString valueKind = iota
	kindBool
	kindInt
	kindFloat
	kindStringSlice
)

type envBinding struct {
	Env  string
	Key  string
	Kind valueKind
}

// Later bindings win, so SMARTTEST_* overrides the legacy names.
var envBindings = []envBinding{
	{Env: "GOOGLE_API_KEY", Key: "ai_settings.api_key", Kind: kindString},
	{Env: "OPENAI_API_KEY", Key: "ai_settings.api_key", Kind: kindString},
	{Env: "GOOGLE_AI_MODEL", Key: "ai_settings.model", Kind: kindString},
	{Env: "AI_MODEL", Key: "ai_settings.model", Kind: kindString},
	{Env: "VISUAL_THRESHOLD", Key: "ai_settings.visual_threshold", Kind: kindFloat},
	{Env: "BROWSER", Key: "browser.default", Kind: kindString},
	{Env: "HEADLESS", Key: "browser.headless", Kind: kindBool},

	{Env: "SMARTTEST_AI_API_KEY", Key: "ai_settings.api_key", Kind: kindString},
	{Env: "SMARTTEST_AI_BASE_URL", Key: "ai_settings.base_url", Kind: kindString},
	{Env: "SMARTTEST_AI_PROVIDER", Key: "ai_settings.provider", Kind: kindString},
	{Env: "SMARTTEST_AI_MODEL", Key: "ai_settings.model", Kind: kindString},
	{Env: "SMARTTEST_AI_FALLBACK_MODELS", Key: "ai_settings.fallback_models", Kind: kindStringSlice},
	{Env: "SMARTTEST_BASE_URL", Key: "suite_info.base_url", Kind: kindString},
	{Env: "SMARTTEST_HEADLESS", Key: "browser.headless", Kind: kindBool},
	{Env: "SMARTTEST_BROWSER_BIN", Key: "browser.bin", Kind: kindString},
	{Env: "SMARTTEST_PARALLEL", Key: "test_execution.parallel", Kind: kindBool},
	{Env: "SMARTTEST_MAX_WORKERS", Key: "test_execution.max_workers", Kind: kindInt},
	{Env: "SMARTTEST_OUTPUT_DIR", Key: "reporting.output_dir", Kind: kindString},
	{Env: "SMARTTEST_WEBHOOK_URL", Key: "notifications.webhook.url", Kind: kindString},
	{Env: "SMARTTEST_SMTP_PASSWORD", Key: "notifications.email.password", Kind: kindString},
	{Env: "SMARTTEST_AUTH_TOKEN", Key: "auth.token", Kind: kindString},
}

var featureKeys = []string{
	"ai_features.self_healing",
	"ai_features.visual_testing",
	"ai_features.test_generation",
	"ai_features.test_analysis",
}

// keyKinds types the values given through CLI overrides. Unknown keys are
// treated as strings.
var keyKinds = map[string]valueKind{
	"browser.headless":                kindBool,
	"browser.no_sandbox":              kindBool,
	"browser.timeout":                 kindFloat,
	"browser.locator_timeout":         kindFloat,
	"browser.slow_motion":             kindFloat,
	"ai_features.self_healing":        kindBool,
	"ai_features.visual_testing":      kindBool,
	"ai_features.test_generation":     kindBool,
	"ai_features.test_analysis":       kindBool,
	"ai_settings.fallback_models":     kindStringSlice,
	"ai_settings.max_retries":         kindInt,
	"ai_settings.initial_retry_delay": kindFloat,
	"ai_settings.max_retry_delay":     kindFloat,
	"ai_settings.backoff_base":        kindFloat,
	"ai_settings.jitter":              kindFloat,
	"ai_settings.enable_caching":      kindBool,
	"ai_settings.cache_ttl":           kindFloat,
	"ai_settings.temperature":         kindFloat,
	"ai_settings.top_p":               kindFloat,
	"ai_settings.max_tokens":          kindInt,
	"ai_settings.visual_threshold":    kindFloat,
	"ai_settings.generated_per_page":  kindInt,
	"test_execution.parallel":         kindBool,
	"test_execution.max_workers":      kindInt,
	"test_execution.timeout":          kindFloat,
	"test_execution.test_timeout":     kindFloat,
	"reporting.format":                kindStringSlice,
	"notifications.webhook.enabled":   kindBool,
	"notifications.webhook.detailed":  kindBool,
	"notifications.email.enabled":     kindBool,
	"notifications.email.port":        kindInt,
	"notifications.email.use_tls":     kindBool,
	"notifications.email.recipients":  kindStringSlice,
	"api.timeout":                     kindFloat,
}

type LoadOptions struct {
	// SuiteDir holds config.yaml and the optional config.local.yaml.
	SuiteDir string
	// File replaces <SuiteDir>/config.yaml when set.
	File string
	// Overrides are already-typed values keyed by dotted path.
	Overrides map[string]any
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load builds the suite configuration from all layers and validates it.
func Load(opts LoadOptions) (*Config, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	mainPath := opts.File
	if mainPath == "" {
		mainPath = filepath.Join(opts.SuiteDir, FileName)
	}
	if _, err := os.Stat(mainPath); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, mainPath, err)
	}

	v := viper.New()
	setDefaults(v)

	if err := mergeConfigFile(v, mainPath); err != nil {
		return nil, err
	}
	if err := mergeConfigFile(v, filepath.Join(opts.SuiteDir, LocalFileName)); err != nil {
		return nil, err
	}

	// Sections must be present in the files themselves, not just defaults.
	for _, section := range []string{"suite_info", "ai_features"} {
		if !v.InConfig(section) {
			return nil, fmt.Errorf("%w: missing required section %q", ErrConfig, section)
		}
	}

	if err := applyEnvOverrides(v, getenv); err != nil {
		return nil, err
	}
	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	for _, key := range featureKeys {
		if _, ok := v.Get(key).(bool); !ok {
			return nil, fmt.Errorf("%w: %s must be a boolean, got %v", ErrConfig, key, v.Get(key))
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	cfg.AISettings.FallbackModels = trimAll(cfg.AISettings.FallbackModels)
	cfg.Reporting.Format = lowerAll(trimAll(cfg.Reporting.Format))
	cfg.AISettings.Provider = strings.ToLower(strings.TrimSpace(cfg.AISettings.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: stat %s: %w", ErrConfig, path, err)
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrConfig, path, err)
	}
	return nil
}

func applyEnvOverrides(v *viper.Viper, getenv func(string) string) error {
	// AI_FEATURES_ENABLED toggles every feature at once; explicit flags win.
	if raw := strings.TrimSpace(getenv("AI_FEATURES_ENABLED")); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: AI_FEATURES_ENABLED: %w", ErrConfig, err)
		}
		for _, key := range featureKeys {
			v.Set(key, enabled)
		}
	}

	for _, b := range envBindings {
		raw := strings.TrimSpace(getenv(b.Env))
		if raw == "" {
			continue
		}
		value, err := parseValueByKind(raw, b.Kind)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrConfig, b.Env, err)
		}
		v.Set(b.Key, value)
	}
	return nil
}

// ParseValue converts a raw CLI override into the type its key expects.
func ParseValue(key, raw string) (any, error) {
	kind, ok := keyKinds[key]
	if !ok {
		kind = kindString
	}
	value, err := parseValueByKind(strings.TrimSpace(raw), kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, key, err)
	}
	return value, nil
}

// ParseOverride splits "key=value" and types the value.
func ParseOverride(s string) (string, any, error) {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, fmt.Errorf("%w: override %q is not key=value", ErrConfig, s)
	}
	value, err := ParseValue(key, raw)
	if err != nil {
		return "", nil, err
	}
	return key, value, nil
}

func parseValueByKind(raw string, kind valueKind) (any, error) {
	switch kind {
	case kindBool:
		return strconv.ParseBool(raw)
	case kindInt:
		return strconv.Atoi(raw)
	case kindFloat:
		return strconv.ParseFloat(raw, 64)
	case kindStringSlice:
		return trimAll(strings.Split(raw, ",")), nil
	default:
		return raw, nil
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
}
