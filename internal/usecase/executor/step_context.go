package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
)

var _ output.StepContext = (*stepContext)(nil)

type stepContext struct {
	uc   *UseCase
	tc   entity.TestCase
	page output.PagePort
	log  *captureLogger

	mu     sync.Mutex
	shots  int
	healed []entity.HealingEvent
}

func (s *stepContext) Page() output.PagePort { return s.page }

func (s *stepContext) pageName(page string) string {
	if page == "" {
		return s.tc.Page
	}
	return page
}

func (s *stepContext) ElementDef(page, name string) (entity.ElementDef, error) {
	return s.uc.pages.Element(s.pageName(page), name)
}

func (s *stepContext) Element(ctx context.Context, page, name string) (output.ElementPort, error) {
	def, err := s.ElementDef(page, name)
	if err != nil {
		return nil, err
	}
	el, res, err := s.uc.resolver.Resolve(ctx, s.page, name, def)
	if err != nil {
		return nil, err
	}
	if res.Event != nil {
		s.mu.Lock()
		s.healed = append(s.healed, *res.Event)
		s.mu.Unlock()
		s.log.Warn("locator healed", "element", name, "locator", res.Locator.String())
	}
	return el, nil
}

func (s *stepContext) PageURL(page string) (string, error) {
	name := s.pageName(page)
	if name == "" {
		return "", fmt.Errorf("%w: open needs a url, a path or a page", entity.ErrInvalidStep)
	}
	return s.uc.pages.URL(name)
}

func (s *stepContext) ResolveURL(path string) string { return s.uc.pages.Resolve(path) }

// SaveScreenshot stores a capture under <run_dir>/screenshots and returns
// its path.
func (s *stepContext) SaveScreenshot(ctx context.Context, name string) (string, error) {
	if s.uc.cfg.RunDir == "" {
		return "", fmt.Errorf("no run directory configured")
	}
	shot, err := s.page.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	ext := shot.Format
	if ext == "" {
		ext = "png"
	}

	s.mu.Lock()
	s.shots++
	n := s.shots
	s.mu.Unlock()

	file := fmt.Sprintf("%s_%s_%02d.%s", sanitize(s.tc.Name), sanitize(name), n, ext)
	path := filepath.Join(s.uc.cfg.RunDir, "screenshots", file)
	if err := writeFile(path, shot.Data); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path, nil
}

func (s *stepContext) BaselinePath(name string) string {
	return filepath.Join(s.uc.cfg.BaselineDir, sanitize(s.tc.Name)+"_"+sanitize(name)+".png")
}

func (s *stepContext) ArtifactDir() string { return s.uc.cfg.RunDir }

func (s *stepContext) Features() entity.Features { return s.uc.cfg.Features }

func (s *stepContext) VisualThreshold() float64 { return s.uc.cfg.VisualThreshold }

func (s *stepContext) Logger() output.LoggerPort { return s.log }
