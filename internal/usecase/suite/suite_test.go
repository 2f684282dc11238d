package suite

import (
	"context"
	"errors"
	"testing"
	"time"

	"smarttest/internal/domain/entity"
	"smarttest/internal/infrastructure/logger"
	"smarttest/internal/usecase/generator"
	"smarttest/internal/usecase/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	tests []entity.TestCase
	err   error
	calls int
}

func (f *fakeSource) DiscoverTests() ([]entity.TestCase, error) {
	f.calls++
	return f.tests, f.err
}

type fakeRunner struct {
	got []entity.TestCase
	cfg runner.Config
}

func (f *fakeRunner) Run(_ context.Context, tests []entity.TestCase, cfg runner.Config) []entity.RunResult {
	f.got, f.cfg = tests, cfg
	out := make([]entity.RunResult, len(tests))
	for i, tc := range tests {
		outcome := entity.OutcomePass
		if tc.HasMarker("broken") {
			outcome = entity.OutcomeFail
		}
		out[i] = entity.RunResult{ID: tc.Name, Index: i, Name: tc.Name, Outcome: outcome}
	}
	return out
}

type fakeGenerator struct {
	results []generator.PageResult
	err     error
	calls   int
}

func (f *fakeGenerator) Generate(context.Context) ([]generator.PageResult, error) {
	f.calls++
	return f.results, f.err
}

type fakeAnalyzer struct {
	analysis *entity.Analysis
	seen     *entity.RunReport
}

func (f *fakeAnalyzer) Analyze(_ context.Context, r *entity.RunReport) *entity.Analysis {
	f.seen = r
	return f.analysis
}

type fakeReporter struct {
	reports []*entity.RunReport
	formats []string
	err     error
}

func (f *fakeReporter) Write(_ context.Context, r *entity.RunReport, formats []string) (map[string]string, error) {
	f.reports = append(f.reports, r)
	f.formats = formats
	files := map[string]string{}
	for _, format := range formats {
		files[format] = "out/" + format
	}
	return files, f.err
}

type fakeNotifier struct {
	calls    int
	detailed bool
	err      error
}

func (f *fakeNotifier) Notify(_ context.Context, _ *entity.RunReport, detailed bool) error {
	f.calls++
	f.detailed = detailed
	return f.err
}

type fixture struct {
	source   *fakeSource
	runner   *fakeRunner
	gen      *fakeGenerator
	analyzer *fakeAnalyzer
	reporter *fakeReporter
	notifier *fakeNotifier
	uc       *UseCase
}

func newFixture(tests ...entity.TestCase) *fixture {
	f := &fixture{
		source:   &fakeSource{tests: tests},
		runner:   &fakeRunner{},
		gen:      &fakeGenerator{},
		analyzer: &fakeAnalyzer{analysis: &entity.Analysis{OverallHealth: "good", Source: "heuristic"}},
		reporter: &fakeReporter{},
		notifier: &fakeNotifier{},
	}
	f.uc = New(Deps{
		Tests:     f.source,
		Runner:    f.runner,
		Generator: f.gen,
		Analyzer:  f.analyzer,
		Reporter:  f.reporter,
		Notifier:  f.notifier,
		Load: func(path string) (*entity.RunReport, error) {
			if path != "previous/report.json" {
				return nil, errors.New("missing")
			}
			return &entity.RunReport{RunID: "old", Mode: "run", Summary: entity.Summary{Total: 1, Failed: 1}}, nil
		},
		Logger: logger.NewNop(),
	})
	return f
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeRun, "run": ModeRun, "FULL": ModeFull, " analyze ": ModeAnalyze, "generate": ModeGenerate} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("deploy")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestExecute_RunBuildsReport(t *testing.T) {
	f := newFixture(
		entity.TestCase{Name: "test_login", Markers: []string{"smoke"}},
		entity.TestCase{Name: "test_cart", Markers: []string{"smoke", "broken"}},
		entity.TestCase{Name: "test_search"},
	)

	out, err := f.uc.Execute(context.Background(), Options{
		Suite:    "awesomeqa",
		Title:    "AwesomeQA",
		Mode:     ModeRun,
		Filter:   runner.Filter{Markers: []string{"smoke"}},
		Runner:   runner.Config{Workers: 4, RunTimeout: time.Minute},
		Formats:  []string{"json", "html"},
		Notify:   true,
		Detailed: true,
	})

	require.NoError(t, err)
	require.NotNil(t, out.Report)
	assert.Len(t, f.runner.got, 2)
	assert.Equal(t, 4, f.runner.cfg.Workers)
	assert.Equal(t, "parallel", out.Report.RunMode)
	assert.NotEmpty(t, out.Report.RunID)
	assert.Equal(t, entity.Summary{Total: 2, Passed: 1, Failed: 1, Duration: out.Report.Summary.Duration}, out.Report.Summary)
	assert.False(t, out.Succeeded())
	assert.Equal(t, "good", out.Report.Analysis.OverallHealth)
	assert.Equal(t, map[string]string{"json": "out/json", "html": "out/html"}, out.Files)
	assert.Equal(t, 1, f.notifier.calls)
	assert.True(t, f.notifier.detailed)
	assert.Zero(t, f.gen.calls)
}

func TestExecute_ReportAndNotifyFailuresKeepVerdict(t *testing.T) {
	f := newFixture(entity.TestCase{Name: "test_ok"})
	f.reporter.err = errors.New("disk full")
	f.notifier.err = errors.New("webhook down")

	out, err := f.uc.Execute(context.Background(), Options{Mode: ModeRun, Runner: runner.Config{Workers: 1}, Formats: []string{"json"}, Notify: true})

	require.NoError(t, err)
	assert.True(t, out.Succeeded())
	assert.Equal(t, "sequential", out.Report.RunMode)
}

func TestExecute_NotifyOnlyWhenAsked(t *testing.T) {
	f := newFixture(entity.TestCase{Name: "test_ok"})
	_, err := f.uc.Execute(context.Background(), Options{Mode: ModeRun})
	require.NoError(t, err)
	assert.Zero(t, f.notifier.calls)
}

func TestExecute_NoMatchingTests(t *testing.T) {
	f := newFixture(entity.TestCase{Name: "test_ok"})
	_, err := f.uc.Execute(context.Background(), Options{Mode: ModeRun, Filter: runner.Filter{Name: "checkout"}})
	assert.ErrorIs(t, err, ErrNoTests)
	assert.Empty(t, f.reporter.reports)
}

func TestExecute_DiscoveryError(t *testing.T) {
	f := newFixture()
	f.source.err = errors.New("bad yaml")
	_, err := f.uc.Execute(context.Background(), Options{Mode: ModeRun})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad yaml")
}

func TestExecute_GenerateOnly(t *testing.T) {
	f := newFixture(entity.TestCase{Name: "test_ok"})
	f.gen.results = []generator.PageResult{{Page: "home", Written: 3}}

	out, err := f.uc.Execute(context.Background(), Options{Mode: ModeGenerate})

	require.NoError(t, err)
	assert.Nil(t, out.Report)
	assert.True(t, out.Succeeded())
	assert.Len(t, out.Generated, 1)
	assert.Zero(t, f.source.calls)
	assert.Empty(t, f.reporter.reports)
}

func TestExecute_FullGeneratesThenRuns(t *testing.T) {
	f := newFixture(entity.TestCase{Name: "test_ok"})
	f.gen.results = []generator.PageResult{{Page: "home", Written: 2}}
	f.gen.err = errors.New("page cart: no valid generated tests")

	out, err := f.uc.Execute(context.Background(), Options{Mode: ModeFull})

	require.NoError(t, err)
	assert.Equal(t, 1, f.gen.calls)
	assert.Equal(t, 1, f.source.calls)
	require.NotNil(t, out.Report)
	assert.Equal(t, "full", out.Report.Mode)
}

func TestExecute_FullStopsWhenNothingGenerated(t *testing.T) {
	f := newFixture(entity.TestCase{Name: "test_ok"})
	f.gen.err = generator.ErrNoAI

	_, err := f.uc.Execute(context.Background(), Options{Mode: ModeFull})

	assert.ErrorIs(t, err, ErrGenerateFail)
	assert.ErrorIs(t, err, generator.ErrNoAI)
	assert.Zero(t, f.source.calls)
}

func TestExecute_AnalyzeLoadsResults(t *testing.T) {
	f := newFixture()

	out, err := f.uc.Execute(context.Background(), Options{Mode: ModeAnalyze, ResultsFile: "previous/report.json", Formats: []string{"markdown"}})

	require.NoError(t, err)
	assert.Equal(t, "old", out.Report.RunID)
	assert.Equal(t, "analyze", out.Report.Mode)
	assert.Same(t, out.Report, f.analyzer.seen)
	assert.False(t, out.Succeeded())
	assert.Zero(t, f.source.calls)

	_, err = f.uc.Execute(context.Background(), Options{Mode: ModeAnalyze})
	assert.ErrorIs(t, err, ErrNoResults)

	_, err = f.uc.Execute(context.Background(), Options{Mode: ModeAnalyze, ResultsFile: "nope.json"})
	assert.Error(t, err)
}

func TestExecute_DisabledAnalyzerKeepsLoadedAnalysis(t *testing.T) {
	f := newFixture()
	f.analyzer.analysis = nil
	f.uc.deps.Load = func(string) (*entity.RunReport, error) {
		return &entity.RunReport{Analysis: &entity.Analysis{OverallHealth: "poor"}}, nil
	}

	out, err := f.uc.Execute(context.Background(), Options{Mode: ModeAnalyze, ResultsFile: "x"})

	require.NoError(t, err)
	assert.Equal(t, "poor", out.Report.Analysis.OverallHealth)
}
