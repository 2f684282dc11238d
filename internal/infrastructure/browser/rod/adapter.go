package rod

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smarttest/internal/application/port/output"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

var _ output.BrowserPort = (*BrowserAdapter)(nil)

const (
	defaultTimeout    = 30 * time.Second
	defaultSlowMotion = 0
)

type BrowserAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      BrowserConfig

	mu     sync.Mutex
	closed bool
}

type BrowserConfig struct {
	Headless     bool
	SlowMotion   time.Duration
	Timeout      time.Duration
	NoSandbox    bool
	DevTools     bool
	WindowWidth  int
	WindowHeight int
	// Bin overrides the browser executable rod would download or find.
	Bin string
	// ControlURL attaches to an already running browser instead of
	// launching one.
	ControlURL         string
	MaxScreenshotWidth int
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:           true,
		SlowMotion:         defaultSlowMotion,
		Timeout:            defaultTimeout,
		NoSandbox:          false,
		WindowWidth:        1920,
		WindowHeight:       1080,
		MaxScreenshotWidth: 1280,
	}
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	var l *launcher.Launcher
	controlURL := cfg.ControlURL
	if controlURL == "" {
		l = launcher.New().
			Context(ctx).
			Headless(cfg.Headless).
			Devtools(cfg.DevTools).
			NoSandbox(cfg.NoSandbox).
			Delete("use-mock-keychain")
		if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
			l = l.Set("window-size", fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
		}
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().
		ControlURL(controlURL).
		SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Kill()
			l.Cleanup()
		}
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &BrowserAdapter{
		browser:  browser,
		launcher: l,
		cfg:      cfg,
	}, nil
}

// NewPage opens a fresh tab. Pages are independent and may be driven from
// different goroutines.
func (b *BrowserAdapter) NewPage(ctx context.Context) (output.PagePort, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("browser is closed")
	}

	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	// Drop the creation context so the page outlives ctx.
	page = page.Context(context.Background())

	if b.cfg.WindowWidth > 0 && b.cfg.WindowHeight > 0 {
		_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  b.cfg.WindowWidth,
			Height: b.cfg.WindowHeight,
		})
	}

	return &PageAdapter{
		page:     page,
		timeout:  b.cfg.Timeout,
		maxWidth: b.cfg.MaxScreenshotWidth,
	}, nil
}

func (b *BrowserAdapter) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true

	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}
