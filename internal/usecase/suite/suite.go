// Package suite drives one invocation of a suite: generation, execution,
// analysis, reporting and notification, depending on the mode.
package suite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
	"smarttest/internal/usecase/generator"
	"smarttest/internal/usecase/runner"

	"github.com/google/uuid"
)

type Mode string

const (
	ModeRun      Mode = "run"
	ModeGenerate Mode = "generate"
	ModeAnalyze  Mode = "analyze"
	ModeFull     Mode = "full"
)

var (
	ErrUnknownMode  = errors.New("unknown mode")
	ErrNoResults    = errors.New("analyze mode needs a results file")
	ErrNoTests      = errors.New("no tests found")
	ErrGenerateFail = errors.New("test generation produced nothing")
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeRun, nil
	case ModeRun, ModeGenerate, ModeAnalyze, ModeFull:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

type TestSource interface {
	DiscoverTests() ([]entity.TestCase, error)
}

type TestRunner interface {
	Run(ctx context.Context, tests []entity.TestCase, cfg runner.Config) []entity.RunResult
}

type Generator interface {
	Generate(ctx context.Context) ([]generator.PageResult, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, report *entity.RunReport) *entity.Analysis
}

type Notifier interface {
	Notify(ctx context.Context, report *entity.RunReport, detailed bool) error
}

// ResultsLoader reads a previously written JSON report.
type ResultsLoader func(path string) (*entity.RunReport, error)

type Deps struct {
	Tests     TestSource
	Runner    TestRunner
	Generator Generator
	Analyzer  Analyzer
	Reporter  output.ReporterPort
	Notifier  Notifier
	Load      ResultsLoader
	Logger    output.LoggerPort
}

type Options struct {
	Suite   string
	Title   string
	Mode    Mode
	Filter  runner.Filter
	Runner  runner.Config
	Formats []string
	Notify  bool
	// Detailed lists individual failures in notifications.
	Detailed bool
	// ResultsFile is the report.json re-analyzed in analyze mode.
	ResultsFile string
}

type Outcome struct {
	Report    *entity.RunReport
	Files     map[string]string
	Generated []generator.PageResult
}

// Succeeded reports whether the invocation should exit zero.
func (o *Outcome) Succeeded() bool {
	if o.Report == nil {
		return true
	}
	return o.Report.Summary.Succeeded()
}

type UseCase struct {
	deps Deps
	now  func() time.Time
}

func New(deps Deps) *UseCase {
	return &UseCase{deps: deps, now: time.Now}
}

// Execute returns an error only when the mode could not do its job.
// Failing tests are reported through the outcome, not the error.
func (uc *UseCase) Execute(ctx context.Context, opts Options) (*Outcome, error) {
	out := &Outcome{}
	log := uc.deps.Logger.WithFields(map[string]any{"suite": opts.Suite, "mode": string(opts.Mode)})

	switch opts.Mode {
	case ModeGenerate, ModeFull:
		generated, err := uc.generate(ctx, log)
		out.Generated = generated
		if opts.Mode == ModeGenerate {
			return out, err
		}
		if err != nil {
			if written(generated) == 0 {
				return out, fmt.Errorf("%w: %w", ErrGenerateFail, err)
			}
			log.Warn("some pages failed to generate, running anyway", "error", err.Error())
		}
		fallthrough
	case ModeRun:
		report, err := uc.run(ctx, log, opts)
		if err != nil {
			return out, err
		}
		out.Report = report
	case ModeAnalyze:
		if opts.ResultsFile == "" {
			return out, ErrNoResults
		}
		report, err := uc.deps.Load(opts.ResultsFile)
		if err != nil {
			return out, fmt.Errorf("load results: %w", err)
		}
		report.Mode = string(ModeAnalyze)
		out.Report = report
	default:
		return out, fmt.Errorf("%w: %q", ErrUnknownMode, opts.Mode)
	}

	if a := uc.deps.Analyzer.Analyze(ctx, out.Report); a != nil {
		out.Report.Analysis = a
	}
	out.Files = uc.publish(ctx, log, out.Report, opts)
	return out, nil
}

func (uc *UseCase) generate(ctx context.Context, log output.LoggerPort) ([]generator.PageResult, error) {
	log.Info("starting test generation")
	results, err := uc.deps.Generator.Generate(ctx)
	log.Info("test generation finished", "pages", len(results), "tests", written(results))
	return results, err
}

func (uc *UseCase) run(ctx context.Context, log output.LoggerPort, opts Options) (*entity.RunReport, error) {
	tests, err := uc.deps.Tests.DiscoverTests()
	if err != nil {
		return nil, fmt.Errorf("discover tests: %w", err)
	}
	discovered := len(tests)
	tests = opts.Filter.Apply(tests)
	if len(tests) == 0 {
		return nil, fmt.Errorf("%w (discovered %d, none matched the filter)", ErrNoTests, discovered)
	}

	runMode := "sequential"
	if opts.Runner.Workers > 1 {
		runMode = "parallel"
	}
	log.Info("starting test execution", "tests", len(tests), "workers", opts.Runner.Workers)

	started := uc.now()
	results := uc.deps.Runner.Run(ctx, tests, opts.Runner)
	wall := uc.now().Sub(started)

	report := &entity.RunReport{
		RunID:     uuid.NewString(),
		Suite:     opts.Suite,
		Title:     opts.Title,
		Mode:      string(opts.Mode),
		RunMode:   runMode,
		StartedAt: started,
		Summary:   entity.Summarize(results, wall),
		Results:   results,
	}
	log.Info("test execution finished",
		"passed", report.Summary.Passed,
		"failed", report.Summary.Failed,
		"errors", report.Summary.Errors,
		"skipped", report.Summary.Skipped,
	)
	return report, nil
}

// publish writes reports and sends notifications. Neither can change the
// verdict, so failures are only logged.
func (uc *UseCase) publish(ctx context.Context, log output.LoggerPort, report *entity.RunReport, opts Options) map[string]string {
	files, err := uc.deps.Reporter.Write(ctx, report, opts.Formats)
	if err != nil {
		log.Error("report generation failed", "error", err.Error())
	}
	for format, path := range files {
		log.Info("report written", "format", format, "path", path)
	}

	if opts.Notify && uc.deps.Notifier != nil {
		if err := uc.deps.Notifier.Notify(ctx, report, opts.Detailed); err != nil {
			log.Warn("notifications failed", "error", err.Error())
		}
	}
	return files
}

func written(results []generator.PageResult) int {
	n := 0
	for _, r := range results {
		n += r.Written
	}
	return n
}
