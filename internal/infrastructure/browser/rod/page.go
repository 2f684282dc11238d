package rod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/url"
	"strings"
	"time"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var (
	_ output.PagePort    = (*PageAdapter)(nil)
	_ output.ElementPort = (*ElementAdapter)(nil)
)

var ErrInvalidURL = errors.New("invalid url")

var allowedSchemes = map[string]bool{"http": true, "https": true, "file": true, "about": true}

type PageAdapter struct {
	page     *rod.Page
	timeout  time.Duration
	maxWidth int
}

func (p *PageAdapter) Navigate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || !allowedSchemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	page := p.page.Context(ctx).Timeout(p.timeout)
	defer page.CancelTimeout()

	if err := page.Navigate(rawURL); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	_ = p.page.Context(ctx).WaitIdle(2 * time.Second)
	return nil
}

func (p *PageAdapter) Find(ctx context.Context, loc entity.Locator, timeout time.Duration) (output.ElementPort, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = p.timeout
	}

	page := p.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	q := queryFor(loc)
	var (
		el  *rod.Element
		err error
	)
	switch q.kind {
	case queryXPath:
		el, err = page.ElementX(q.selector)
	case queryText:
		el, err = page.ElementR(q.selector, q.text)
	default:
		el, err = page.Element(q.selector)
	}
	if err != nil {
		return nil, fmt.Errorf("element %s not found: %w", loc, err)
	}

	// The element would otherwise inherit the lookup timeout.
	return &ElementAdapter{el: el.CancelTimeout(), timeout: p.timeout}, nil
}

func (p *PageAdapter) PressEnter(ctx context.Context) error {
	if err := p.page.Context(ctx).Keyboard.Type(input.Enter); err != nil {
		return fmt.Errorf("failed to press Enter: %w", err)
	}
	_ = p.page.Context(ctx).WaitIdle(time.Second)
	return nil
}

func (p *PageAdapter) Scroll(ctx context.Context, direction string) error {
	var js string
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "down", "":
		js = `() => window.scrollBy(0, window.innerHeight)`
	case "up":
		js = `() => window.scrollBy(0, -window.innerHeight)`
	case "top":
		js = `() => window.scrollTo(0, 0)`
	case "bottom":
		js = `() => window.scrollTo(0, document.body.scrollHeight)`
	default:
		return fmt.Errorf("unknown scroll direction: %s", direction)
	}

	if _, err := p.page.Context(ctx).Eval(js); err != nil {
		return fmt.Errorf("scroll %s: %w", direction, err)
	}
	_ = p.page.Context(ctx).WaitIdle(500 * time.Millisecond)
	return nil
}

func (p *PageAdapter) Snapshot(ctx context.Context) (*entity.PageSnapshot, error) {
	page := p.page.Context(ctx)

	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("page info: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to get HTML: %w", err)
	}

	var text string
	if res, err := page.Eval(`() => document.body ? document.body.innerText : ""`); err == nil {
		text = res.Value.Str()
	}

	return &entity.PageSnapshot{
		URL:   info.URL,
		Title: info.Title,
		HTML:  html,
		Text:  text,
	}, nil
}

func (p *PageAdapter) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	imgBytes, err := p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(85),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	if p.maxWidth > 0 && img.Bounds().Dx() > p.maxWidth {
		img = imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}

	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

func (p *PageAdapter) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *PageAdapter) Title() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

func (p *PageAdapter) Close() error {
	return p.page.Close()
}

type ElementAdapter struct {
	el      *rod.Element
	timeout time.Duration
}

func (e *ElementAdapter) bind(ctx context.Context) *rod.Element {
	return e.el.Context(ctx).Timeout(e.timeout)
}

func (e *ElementAdapter) Click(ctx context.Context) error {
	el := e.bind(ctx)
	defer el.CancelTimeout()

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (e *ElementAdapter) Fill(ctx context.Context, text string) error {
	el := e.bind(ctx)
	defer el.CancelTimeout()

	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input failed: %w", err)
	}
	return nil
}

func (e *ElementAdapter) Visible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *ElementAdapter) Text(ctx context.Context) (string, error) {
	text, err := e.el.Context(ctx).Text()
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
