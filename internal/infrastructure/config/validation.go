package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Validate checks the merged configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.SuiteInfo.Name) == "" {
		errs = append(errs, "suite_info.name is required")
	}
	if c.SuiteInfo.BaseURL != "" {
		if u, err := url.Parse(c.SuiteInfo.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("suite_info.base_url %q is not an absolute URL", c.SuiteInfo.BaseURL))
		}
	}

	if _, _, err := c.Browser.Window(); err != nil {
		errs = append(errs, "browser."+err.Error())
	}
	if c.Browser.Timeout <= 0 {
		errs = append(errs, "browser.timeout must be positive")
	}
	if c.Browser.LocatorTimeout <= 0 {
		errs = append(errs, "browser.locator_timeout must be positive")
	}

	s := c.AISettings
	switch s.Provider {
	case ProviderOpenAI, ProviderLangChain:
	default:
		errs = append(errs, fmt.Sprintf("ai_settings.provider %q must be %q or %q", s.Provider, ProviderOpenAI, ProviderLangChain))
	}
	if s.MaxRetries < 1 {
		errs = append(errs, "ai_settings.max_retries must be at least 1")
	}
	if s.InitialRetryDelay < 0 || s.MaxRetryDelay < s.InitialRetryDelay {
		errs = append(errs, "ai_settings retry delays must satisfy 0 <= initial_retry_delay <= max_retry_delay")
	}
	if s.BackoffBase < 1 {
		errs = append(errs, "ai_settings.backoff_base must be at least 1")
	}
	if s.Jitter < 0 || s.Jitter > 1 {
		errs = append(errs, "ai_settings.jitter must be in [0, 1]")
	}
	if s.VisualThreshold < 0 || s.VisualThreshold > 1 {
		errs = append(errs, "ai_settings.visual_threshold must be in [0, 1]")
	}
	if s.CacheTTL < 0 {
		errs = append(errs, "ai_settings.cache_ttl must not be negative")
	}
	if s.GeneratedPerPage < 1 {
		errs = append(errs, "ai_settings.generated_per_page must be at least 1")
	}

	if c.TestExecution.MaxWorkers < 1 {
		errs = append(errs, "test_execution.max_workers must be at least 1")
	}
	if c.TestExecution.Timeout <= 0 {
		errs = append(errs, "test_execution.timeout must be positive")
	}
	if c.TestExecution.TestTimeout <= 0 {
		errs = append(errs, "test_execution.test_timeout must be positive")
	}

	for _, f := range c.Reporting.Format {
		if !slices.Contains(ReportFormats, f) {
			errs = append(errs, fmt.Sprintf("reporting.format %q is not one of %s", f, strings.Join(ReportFormats, ", ")))
		}
	}
	if c.Reporting.OutputDir == "" {
		errs = append(errs, "reporting.output_dir is required")
	}

	if w := c.Notifications.Webhook; w.Enabled && w.URL == "" {
		errs = append(errs, "notifications.webhook.url is required when the webhook is enabled")
	}
	if e := c.Notifications.Email; e.Enabled {
		if e.SMTPServer == "" || e.FromEmail == "" || len(e.Recipients) == 0 {
			errs = append(errs, "notifications.email needs smtp_server, from_email and recipients when enabled")
		}
	}

	switch strings.ToLower(c.Auth.Type) {
	case "", "none", "bearer", "basic", "api_key":
	default:
		errs = append(errs, fmt.Sprintf("auth.type %q must be none, bearer, basic or api_key", c.Auth.Type))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrConfig, strings.Join(errs, "; "))
	}
	return nil
}
