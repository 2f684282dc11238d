package action

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
)

func requireField(step entity.Step, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s requires %q", entity.ErrInvalidStep, step.Action, field)
	}
	return nil
}

type OpenAction struct{}

func NewOpenAction() *OpenAction { return &OpenAction{} }

func (a *OpenAction) Name() string { return "open" }
func (a *OpenAction) Description() string {
	return "Opens a page: url, path relative to base_url, or the page object's path"
}
func (a *OpenAction) Validate(entity.Step) error { return nil }

func (a *OpenAction) Execute(ctx context.Context, sc output.StepContext, step entity.Step) error {
	target := step.URL
	switch {
	case target != "":
	case step.Path != "":
		target = sc.ResolveURL(step.Path)
	default:
		u, err := sc.PageURL(step.Page)
		if err != nil {
			return err
		}
		target = u
	}
	return sc.Page().Navigate(ctx, target)
}

type ClickAction struct{}

func NewClickAction() *ClickAction { return &ClickAction{} }

func (a *ClickAction) Name() string        { return "click" }
func (a *ClickAction) Description() string { return "Clicks a page-object element" }
func (a *ClickAction) Validate(step entity.Step) error {
	return requireField(step, "element", step.Element)
}

func (a *ClickAction) Execute(ctx context.Context, sc output.StepContext, step entity.Step) error {
	el, err := sc.Element(ctx, step.Page, step.Element)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

type TypeAction struct{}

func NewTypeAction() *TypeAction { return &TypeAction{} }

func (a *TypeAction) Name() string        { return "type" }
func (a *TypeAction) Description() string { return "Replaces the text of an input element" }
func (a *TypeAction) Validate(step entity.Step) error {
	return requireField(step, "element", step.Element)
}

func (a *TypeAction) Execute(ctx context.Context, sc output.StepContext, step entity.Step) error {
	el, err := sc.Element(ctx, step.Page, step.Element)
	if err != nil {
		return err
	}
	return el.Fill(ctx, step.Text)
}

type PressEnterAction struct{}

func NewPressEnterAction() *PressEnterAction { return &PressEnterAction{} }

func (a *PressEnterAction) Name() string               { return "press_enter" }
func (a *PressEnterAction) Description() string        { return "Presses the Enter key" }
func (a *PressEnterAction) Validate(entity.Step) error { return nil }

func (a *PressEnterAction) Execute(ctx context.Context, sc output.StepContext, _ entity.Step) error {
	return sc.Page().PressEnter(ctx)
}

type ScrollAction struct{}

func NewScrollAction() *ScrollAction { return &ScrollAction{} }

func (a *ScrollAction) Name() string        { return "scroll" }
func (a *ScrollAction) Description() string { return "Scrolls the page: down, up, top or bottom" }
func (a *ScrollAction) Validate(step entity.Step) error {
	switch step.Direction {
	case "", "down", "up", "top", "bottom":
		return nil
	}
	return fmt.Errorf("%w: unknown scroll direction %q", entity.ErrInvalidStep, step.Direction)
}

func (a *ScrollAction) Execute(ctx context.Context, sc output.StepContext, step entity.Step) error {
	return sc.Page().Scroll(ctx, step.Direction)
}

type WaitAction struct{}

func NewWaitAction() *WaitAction { return &WaitAction{} }

func (a *WaitAction) Name() string { return "wait" }
func (a *WaitAction) Description() string {
	return "Waits for a duration, or until an element is present"
}
func (a *WaitAction) Validate(step entity.Step) error {
	if step.Duration <= 0 && step.Element == "" {
		return fmt.Errorf("%w: wait requires \"duration\" or \"element\"", entity.ErrInvalidStep)
	}
	return nil
}

func (a *WaitAction) Execute(ctx context.Context, sc output.StepContext, step entity.Step) error {
	if step.Element != "" {
		_, err := sc.Element(ctx, step.Page, step.Element)
		return err
	}

	timer := time.NewTimer(step.Duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type ScreenshotAction struct{}

func NewScreenshotAction() *ScreenshotAction { return &ScreenshotAction{} }

func (a *ScreenshotAction) Name() string { return "screenshot" }
func (a *ScreenshotAction) Description() string {
	return "Saves a screenshot into the run directory"
}
func (a *ScreenshotAction) Validate(entity.Step) error { return nil }

func (a *ScreenshotAction) Execute(ctx context.Context, sc output.StepContext, step entity.Step) error {
	name := step.Name
	if name == "" {
		name = "step"
	}
	path, err := sc.SaveScreenshot(ctx, name)
	if err != nil {
		return err
	}
	sc.Logger().Info("screenshot saved", "path", path)
	return nil
}
