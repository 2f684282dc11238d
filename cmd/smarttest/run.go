package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"smarttest/internal/di"
	"smarttest/internal/infrastructure/config"
	"smarttest/internal/infrastructure/userinteraction"
	"smarttest/internal/usecase/runner"
	"smarttest/internal/usecase/suite"

	"github.com/spf13/cobra"
)

type runFlags struct {
	suite      string
	mode       string
	parallel   bool
	sequential bool
	workers    int
	headless   bool
	markers    []string
	tests      string
	formats    []string
	features   []string
	sets       []string
	timeout    time.Duration
	notify     bool
	detailed   bool
	results    string
	outputDir  string
}

func newRunCmd(g *globalFlags) *cobra.Command {
	return bindRunCmd(g, &runFlags{})
}

func bindRunCmd(g *globalFlags, f *runFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate, run or analyze the tests of a suite",
		Example: `  smarttest run --suite awesomeqa
  smarttest run --suite awesomeqa --mode full --parallel --workers 4
  smarttest run --suite awesomeqa --markers smoke --feature self_healing=false
  smarttest run --suite awesomeqa --mode analyze --results test-results/run_20240101_120000/report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd, g, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.suite, "suite", "s", "", "Suite name (directory under --suites-dir)")
	fl.StringVarP(&f.mode, "mode", "m", "run", "Mode: run, generate, analyze or full")
	fl.BoolVar(&f.parallel, "parallel", false, "Run tests in parallel")
	fl.BoolVar(&f.sequential, "sequential", false, "Run tests one at a time")
	fl.IntVarP(&f.workers, "workers", "w", 0, "Number of parallel workers")
	fl.BoolVar(&f.headless, "headless", false, "Run the browser headless")
	fl.StringSliceVar(&f.markers, "markers", nil, "Only run tests carrying one of these markers")
	fl.StringVarP(&f.tests, "tests", "t", "", "Only run tests whose name contains this text")
	fl.StringSliceVar(&f.formats, "report-formats", nil, "Report formats: html, json, junit, markdown")
	fl.StringArrayVar(&f.features, "feature", nil, "Toggle an AI feature, e.g. self_healing=false (repeatable)")
	fl.StringArrayVar(&f.sets, "set", nil, "Override a config value, e.g. browser.timeout=60 (repeatable)")
	fl.DurationVar(&f.timeout, "timeout", 0, "Run timeout; tests not started by then are skipped")
	fl.BoolVar(&f.notify, "notify", false, "Send notifications when done")
	fl.BoolVar(&f.detailed, "detailed-notify", false, "List failed tests in notifications")
	fl.StringVar(&f.results, "results", "", "report.json to re-analyze (analyze mode)")
	fl.StringVarP(&f.outputDir, "output-dir", "o", "", "Results directory")
	cmd.MarkFlagsMutuallyExclusive("parallel", "sequential")
	return cmd
}

// overrides turns flags into dotted config keys. They form the highest
// configuration layer.
func (f *runFlags) overrides(cmd *cobra.Command) (map[string]any, error) {
	out := make(map[string]any)
	changed := cmd.Flags().Changed

	for _, s := range f.sets {
		key, value, err := config.ParseOverride(s)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	for _, s := range f.features {
		name := strings.TrimPrefix(strings.TrimSpace(s), "ai_features.")
		key, value, err := config.ParseOverride("ai_features." + name)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}

	if changed("headless") {
		out["browser.headless"] = f.headless
	}
	if f.parallel {
		out["test_execution.parallel"] = true
	}
	if f.sequential {
		out["test_execution.parallel"] = false
	}
	if changed("workers") {
		if f.workers < 1 {
			return nil, fmt.Errorf("%w: --workers must be at least 1", errUsage)
		}
		out["test_execution.max_workers"] = f.workers
		if !f.sequential {
			out["test_execution.parallel"] = f.workers > 1
		}
	}
	if changed("timeout") {
		out["test_execution.timeout"] = f.timeout.Seconds()
	}
	if len(f.formats) > 0 {
		out["reporting.format"] = f.formats
	}
	if f.outputDir != "" {
		out["reporting.output_dir"] = f.outputDir
	}
	return out, nil
}

func runSuite(cmd *cobra.Command, g *globalFlags, f *runFlags) error {
	if f.suite == "" {
		return fmt.Errorf("%w: --suite is required", errUsage)
	}
	mode, err := suite.ParseMode(f.mode)
	if err != nil {
		return err
	}
	if mode == suite.ModeAnalyze && f.results == "" {
		return fmt.Errorf("%w: --results is required in analyze mode", errUsage)
	}
	overrides, err := f.overrides(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := userinteraction.NewConsole(cmd.OutOrStdout())
	c, err := di.NewContainer(ctx, di.Options{
		SuitesDir:     g.suitesDir,
		Suite:         f.suite,
		ConfigFile:    g.configFile,
		LogLevel:      g.logLevel,
		Overrides:     overrides,
		LaunchBrowser: mode == suite.ModeRun || mode == suite.ModeFull,
		Listener:      console.Progress,
		LogConsole:    cmd.ErrOrStderr(),
		Env:           g.env,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	rc := c.RunnerConfig()
	console.Banner(c.Config.SuiteInfo.Name, string(mode), 0, rc.Workers)

	out, err := c.UseCase.Execute(ctx, suite.Options{
		Suite:       c.Suite.Name,
		Title:       c.Config.SuiteInfo.Name,
		Mode:        mode,
		Filter:      runner.Filter{Markers: f.markers, Name: f.tests},
		Runner:      rc,
		Formats:     c.Config.Reporting.Format,
		Notify:      f.notify,
		Detailed:    f.detailed || c.Config.Notifications.Webhook.Detailed,
		ResultsFile: f.results,
	})
	if out != nil {
		for _, pr := range out.Generated {
			console.Generated(pr.Page, pr.Path, pr.Written, len(pr.Rejected))
		}
	}
	if err != nil {
		c.Logger.Error("suite failed", "error", err.Error())
		return err
	}
	if out.Report != nil {
		console.Summary(out.Report, out.Files)
	}
	if !out.Succeeded() {
		return &exitError{code: exitFailed}
	}
	return nil
}
