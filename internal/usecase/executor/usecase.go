// Package executor runs a single test case on its own browser page.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"smarttest/internal/application/port/input"
	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
	"smarttest/internal/usecase/locator"
	"smarttest/internal/usecase/pageobject"
)

var _ input.TestExecutor = (*UseCase)(nil)

// ErrAssertion marks a failed check inside a step.
var ErrAssertion = entity.ErrAssertion

var ErrTestTimeout = errors.New("test timed out")

const defaultTestTimeout = 2 * time.Minute

type Config struct {
	TestTimeout     time.Duration
	RunDir          string
	BaselineDir     string
	Features        entity.Features
	VisualThreshold float64
}

type UseCase struct {
	browser  output.BrowserPort
	actions  output.ActionRegistry
	pages    *pageobject.Registry
	resolver *locator.Resolver
	logger   output.LoggerPort
	cfg      Config
	now      func() time.Time
}

func New(
	browser output.BrowserPort,
	actions output.ActionRegistry,
	pages *pageobject.Registry,
	resolver *locator.Resolver,
	logger output.LoggerPort,
	cfg Config,
) *UseCase {
	if cfg.TestTimeout <= 0 {
		cfg.TestTimeout = defaultTestTimeout
	}
	return &UseCase{
		browser:  browser,
		actions:  actions,
		pages:    pages,
		resolver: resolver,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Validate checks every step of tc against the action registry and the
// page objects without opening a browser.
func (uc *UseCase) Validate(tc entity.TestCase) error {
	var errs []error
	for i, step := range tc.Steps {
		action, ok := uc.actions.Get(step.Action)
		if !ok {
			errs = append(errs, fmt.Errorf("step %d: %w: unknown action %q", i+1, entity.ErrInvalidStep, step.Action))
			continue
		}
		if err := action.Validate(step); err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", i+1, err))
			continue
		}
		page := step.Page
		if page == "" {
			page = tc.Page
		}
		if step.Element != "" {
			if _, err := uc.pages.Element(page, step.Element); err != nil {
				errs = append(errs, fmt.Errorf("step %d: %w", i+1, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (uc *UseCase) Execute(ctx context.Context, tc entity.TestCase) entity.RunResult {
	start := uc.now()
	result := entity.RunResult{
		Name:      tc.Name,
		File:      tc.File,
		Classname: classname(tc.File),
	}
	log := newCaptureLogger(uc.logger.WithField("test", tc.Name))

	finish := func(outcome entity.Outcome, err error) entity.RunResult {
		result.Outcome = outcome
		result.Duration = uc.now().Sub(start)
		if err != nil {
			result.Error = err.Error()
			if result.ErrorType == "" {
				result.ErrorType = errorType(err)
			}
		}
		result.Logs = log.Lines()
		return result
	}

	if tc.Skip != "" {
		result.Error = tc.Skip
		return finish(entity.OutcomeSkip, nil)
	}
	if err := uc.Validate(tc); err != nil {
		return finish(entity.OutcomeError, err)
	}

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.TestTimeout)
	defer cancel()

	page, err := uc.browser.NewPage(ctx)
	if err != nil {
		return finish(entity.OutcomeError, fmt.Errorf("open page: %w", err))
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Debug("close page", "error", err.Error())
		}
	}()

	sc := &stepContext{uc: uc, tc: tc, page: page, log: log}
	log.Info("test started", "file", tc.File, "steps", len(tc.Steps))

	err = uc.runSteps(ctx, sc, tc)
	result.Healed = sc.healed

	if err == nil {
		log.Info("test passed")
		return finish(entity.OutcomePass, nil)
	}

	var pe *panicError
	if errors.As(err, &pe) {
		result.Stack = pe.stack
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTestTimeout) {
		err = fmt.Errorf("%w after %s: %w", ErrTestTimeout, uc.cfg.TestTimeout, err)
	}

	outcome := Classify(err)
	log.Error("test "+string(outcome), "error", err.Error())

	// The test context may be spent; the failure screenshot gets its own.
	shotCtx, shotCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer shotCancel()
	if path, shotErr := sc.SaveScreenshot(shotCtx, "failure"); shotErr == nil {
		result.Screenshot = path
	} else {
		log.Warn("failure screenshot", "error", shotErr.Error())
	}

	return finish(outcome, err)
}

func (uc *UseCase) runSteps(ctx context.Context, sc *stepContext, tc entity.TestCase) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: string(debug.Stack())}
		}
	}()

	for i, step := range tc.Steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		action, _ := uc.actions.Get(step.Action)
		sc.log.Debug("step", "index", i+1, "action", step.Action, "element", step.Element)
		if err := action.Execute(ctx, sc, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
	}
	return nil
}

// Classify maps a step error to a test outcome: failed checks, missing
// elements and timeouts fail the test; anything else is an error.
func Classify(err error) entity.Outcome {
	var pe *panicError
	switch {
	case err == nil:
		return entity.OutcomePass
	case errors.As(err, &pe):
		return entity.OutcomeError
	case errors.Is(err, entity.ErrAssertion),
		errors.Is(err, locator.ErrElementNotFound),
		errors.Is(err, ErrTestTimeout):
		return entity.OutcomeFail
	default:
		return entity.OutcomeError
	}
}

func errorType(err error) string {
	var pe *panicError
	switch {
	case errors.As(err, &pe):
		return "panic"
	case errors.Is(err, ErrTestTimeout):
		return "timeout"
	case errors.Is(err, locator.ErrElementNotFound):
		return "element_not_found"
	case errors.Is(err, entity.ErrAssertion):
		return "assertion"
	case errors.Is(err, entity.ErrInvalidStep), errors.Is(err, pageobject.ErrUnknownElement), errors.Is(err, pageobject.ErrUnknownPage):
		return "invalid_test"
	default:
		return "error"
	}
}

type panicError struct {
	value any
	stack string
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

func classname(file string) string {
	if file == "" {
		return ""
	}
	name := strings.TrimSuffix(filepath.ToSlash(file), filepath.Ext(file))
	return strings.ReplaceAll(strings.TrimPrefix(name, "tests/"), "/", ".")
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func sanitize(name string) string {
	s := strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_")
	if s == "" {
		return "unnamed"
	}
	return s
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
