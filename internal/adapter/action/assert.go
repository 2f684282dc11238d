package action

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
	"smarttest/internal/infrastructure/visual"
)

func assertionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", entity.ErrAssertion, fmt.Sprintf(format, args...))
}

type AssertVisibleAction struct{}

func NewAssertVisibleAction() *AssertVisibleAction { return &AssertVisibleAction{} }

func (a *AssertVisibleAction) Name() string { return "assert_visible" }
func (a *AssertVisibleAction) Description() string {
	return "Asserts that an element is displayed"
}
func (a *AssertVisibleAction) Validate(step entity.Step) error {
	return requireField(step, "element", step.Element)
}

func (a *AssertVisibleAction) Execute(ctx context.Context, sc output.StepContext, step entity.Step) error {
	el, err := sc.Element(ctx, step.Page, step.Element)
	if err != nil {
		return err
	}
	visible, err := el.Visible(ctx)
	if err != nil {
		return err
	}
	if !visible {
		return assertionf("%s is present but not visible", step.Element)
	}
	return nil
}

// AssertNotVisibleAction never heals: an absent element is the expected
// outcome, not a broken locator.
type AssertNotVisibleAction struct {
	timeout time.Duration
}

func NewAssertNotVisibleAction(timeout time.Duration) *AssertNotVisibleAction {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &AssertNotVisibleAction{timeout: timeout}
}

func (a *AssertNotVisibleAction) Name() string { return "assert_not_visible" }
func (a *AssertNotVisibleAction) Description() string {
	return "Asserts that an element is absent or hidden"
}
func (a *AssertNotVisibleAction) Validate(step entity.Step) error {
	return requireField(step, "element", step.Element)
}

func (a *AssertNotVisibleAction) Execute(ctx context.Context, sc output.StepContext, step entity.Step) error {
	def, err := sc.ElementDef(step.Page, step.Element)
	if err != nil {
		return err
	}
	if def.Locator == nil {
		return fmt.Errorf("%w: %s has no locator to check", entity.ErrInvalidStep, step.Element)
	}

	el, err := sc.Page().Find(ctx, *def.Locator, a.timeout)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	visible, err := el.Visible(ctx)
	if err != nil {
		return nil
	}
	if visible {
		return assertionf("%s is visible", step.Element)
	}
	return nil
}

type AssertTextAction struct{}

func NewAssertTextAction() *AssertTextAction { return &AssertTextAction{} }

func (a *AssertTextAction) Name() string { return "assert_text" }
func (a *AssertTextAction) Description() string {
	return "Asserts that an element's text contains expect"
}
func (a *AssertTextAction) Validate(step entity.Step) error {
	if err := requireField(step, "element", step.Element); err != nil {
		return err
	}
	return requireField(step, "expect", step.Expect)
}

func (a *AssertTextAction) Execute(ctx context.Context, sc output.StepContext, step entity.Step) error {
	el, err := sc.Element(ctx, step.Page, step.Element)
	if err != nil {
		return err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return err
	}
	if !strings.Contains(text, step.Expect) {
		return assertionf("%s text %q does not contain %q", step.Element, text, step.Expect)
	}
	return nil
}

type AssertTitleAction struct{}

func NewAssertTitleAction() *AssertTitleAction { return &AssertTitleAction{} }

func (a *AssertTitleAction) Name() string { return "assert_title" }
func (a *AssertTitleAction) Description() string {
	return "Asserts that the page title contains expect"
}
func (a *AssertTitleAction) Validate(step entity.Step) error {
	return requireField(step, "expect", step.Expect)
}

func (a *AssertTitleAction) Execute(_ context.Context, sc output.StepContext, step entity.Step) error {
	if title := sc.Page().Title(); !strings.Contains(title, step.Expect) {
		return assertionf("title %q does not contain %q", title, step.Expect)
	}
	return nil
}

type AssertURLAction struct{}

func NewAssertURLAction() *AssertURLAction { return &AssertURLAction{} }

func (a *AssertURLAction) Name() string { return "assert_url" }
func (a *AssertURLAction) Description() string {
	return "Asserts that the current URL contains expect"
}
func (a *AssertURLAction) Validate(step entity.Step) error {
	return requireField(step, "expect", step.Expect)
}

func (a *AssertURLAction) Execute(_ context.Context, sc output.StepContext, step entity.Step) error {
	if u := sc.Page().URL(); !strings.Contains(u, step.Expect) {
		return assertionf("url %q does not contain %q", u, step.Expect)
	}
	return nil
}

// AssertScreenshotAction compares the viewport with a stored baseline. It
// is a no-op unless visual testing is enabled for the suite.
type AssertScreenshotAction struct{}

func NewAssertScreenshotAction() *AssertScreenshotAction { return &AssertScreenshotAction{} }

func (a *AssertScreenshotAction) Name() string { return "assert_screenshot" }
func (a *AssertScreenshotAction) Description() string {
	return "Compares the page with a baseline image (visual testing)"
}
func (a *AssertScreenshotAction) Validate(step entity.Step) error {
	return requireField(step, "name", step.Name)
}

func (a *AssertScreenshotAction) Execute(ctx context.Context, sc output.StepContext, step entity.Step) error {
	if !sc.Features().VisualTesting {
		sc.Logger().Debug("visual testing disabled, skipping comparison", "name", step.Name)
		return nil
	}

	shot, err := sc.Page().Screenshot(ctx)
	if err != nil {
		return err
	}

	res, err := visual.Compare(sc.BaselinePath(step.Name), shot.Data, 1-sc.VisualThreshold(), filepath.Join(sc.ArtifactDir(), "diffs"))
	if errors.Is(err, visual.ErrMismatch) {
		return fmt.Errorf("%w: %w", entity.ErrAssertion, err)
	}
	if err != nil {
		return err
	}
	if res.BaselineMade {
		sc.Logger().Info("baseline created", "name", step.Name, "path", sc.BaselinePath(step.Name))
	}
	return nil
}
