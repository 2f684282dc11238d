package output

import (
	"context"
	"time"

	"smarttest/internal/domain/entity"
)

// BrowserPort owns the browser process. Every test gets its own page.
type BrowserPort interface {
	NewPage(ctx context.Context) (PagePort, error)
	Close()
}

type PagePort interface {
	Navigate(ctx context.Context, url string) error
	Find(ctx context.Context, loc entity.Locator, timeout time.Duration) (ElementPort, error)
	PressEnter(ctx context.Context) error
	Scroll(ctx context.Context, direction string) error

	Snapshot(ctx context.Context) (*entity.PageSnapshot, error)
	Screenshot(ctx context.Context) (*entity.Screenshot, error)

	URL() string
	Title() string
	Close() error
}

type ElementPort interface {
	Click(ctx context.Context) error
	Fill(ctx context.Context, text string) error
	Visible(ctx context.Context) (bool, error)
	Text(ctx context.Context) (string, error)
}
