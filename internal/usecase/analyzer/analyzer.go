// Package analyzer turns a finished run into an Analysis, asking the AI
// first and falling back to local heuristics.
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
	"smarttest/internal/infrastructure/prompts"

	"github.com/goccy/go-json"
)

const (
	SourceAI        = "ai"
	SourceHeuristic = "heuristic"

	maxPromptFailures = 20
)

type Config struct {
	Enabled     bool
	Parallel    bool
	SelfHealing bool
}

type UseCase struct {
	ai     output.AIPort
	logger output.LoggerPort
	cfg    Config
}

func New(ai output.AIPort, logger output.LoggerPort, cfg Config) *UseCase {
	return &UseCase{ai: ai, logger: logger, cfg: cfg}
}

// Analyze returns nil when analysis is disabled. It never fails: any AI
// problem yields the heuristic analysis instead. Every failed or errored
// result of report gets a Suggestion, from the AI when it offered one for
// that test and from Suggest otherwise.
func (uc *UseCase) Analyze(ctx context.Context, report *entity.RunReport) *entity.Analysis {
	if !uc.cfg.Enabled {
		return nil
	}
	var suggestions map[string]string
	defer func() { applySuggestions(report, suggestions) }()

	if uc.ai != nil {
		a, s, err := uc.analyzeWithAI(ctx, report)
		if err == nil {
			suggestions = s
			return a
		}
		uc.logger.Warn("ai analysis failed, using heuristics", "error", err.Error())
	}
	return Heuristic(report, uc.cfg)
}

type aiReply struct {
	OverallHealth   string            `json:"overall_health"`
	Summary         string            `json:"summary"`
	Recommendations []string          `json:"recommendations"`
	FlakyCandidates []string          `json:"flaky_candidates"`
	Suggestions     map[string]string `json:"suggestions"`
}

func (uc *UseCase) analyzeWithAI(ctx context.Context, report *entity.RunReport) (*entity.Analysis, map[string]string, error) {
	failures := report.Failures()
	if len(failures) > maxPromptFailures {
		failures = failures[:maxPromptFailures]
	}
	healed := 0
	for _, r := range report.Results {
		healed += len(r.Healed)
	}

	prompt, err := prompts.Analysis(prompts.AnalysisData{
		Suite:    report.Suite,
		Summary:  report.Summary,
		PassRate: report.Summary.PassRate(),
		Duration: report.Summary.Duration.Round(time.Millisecond),
		Healed:   healed,
		Failures: failures,
	})
	if err != nil {
		return nil, nil, err
	}

	reply, err := uc.ai.Complete(ctx, prompts.SystemPrompt, prompt)
	if err != nil {
		return nil, nil, err
	}
	raw, err := prompts.ExtractJSON(reply)
	if err != nil {
		return nil, nil, err
	}
	var parsed aiReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, nil, fmt.Errorf("parse analysis: %w", err)
	}

	health := strings.ToLower(strings.TrimSpace(parsed.OverallHealth))
	switch health {
	case "excellent", "good", "fair", "poor":
	default:
		return nil, nil, fmt.Errorf("parse analysis: unknown overall_health %q", parsed.OverallHealth)
	}
	if len(parsed.Recommendations) == 0 {
		parsed.Recommendations = recommendations(report, uc.cfg)
	}

	return &entity.Analysis{
		OverallHealth:       health,
		PerformanceCategory: PerformanceCategory(report.Summary.Duration),
		Summary:             strings.TrimSpace(parsed.Summary),
		Recommendations:     parsed.Recommendations,
		FlakyCandidates:     parsed.FlakyCandidates,
		Source:              SourceAI,
	}, parsed.Suggestions, nil
}

// Heuristic analyses a run without the AI.
func Heuristic(report *entity.RunReport, cfg Config) *entity.Analysis {
	s := report.Summary
	health := "good"
	if !s.Succeeded() {
		health = "poor"
	}
	return &entity.Analysis{
		OverallHealth:       health,
		PerformanceCategory: PerformanceCategory(s.Duration),
		Summary: fmt.Sprintf("%d of %d tests passed (%.1f%%), %d failed, %d errors, %d skipped in %.2f seconds",
			s.Passed, s.Total, s.PassRate(), s.Failed, s.Errors, s.Skipped, s.Duration.Seconds()),
		Recommendations: recommendations(report, cfg),
		Source:          SourceHeuristic,
	}
}

func PerformanceCategory(d time.Duration) string {
	switch {
	case d < 30*time.Second:
		return "excellent"
	case d < 120*time.Second:
		return "good"
	case d < 300*time.Second:
		return "acceptable"
	default:
		return "slow"
	}
}

func recommendations(report *entity.RunReport, cfg Config) []string {
	var out []string
	s := report.Summary
	if s.Duration > 120*time.Second && !cfg.Parallel {
		out = append(out, "Consider enabling parallel execution to reduce test time")
	}
	if !s.Succeeded() {
		if cfg.SelfHealing {
			out = append(out, "Review test failures and their screenshots")
		} else {
			out = append(out, "Review test failures and consider enabling AI self-healing")
		}
	}
	healed := 0
	for _, r := range report.Results {
		healed += len(r.Healed)
	}
	if healed > 0 {
		out = append(out, fmt.Sprintf("Update %d page-object locators that needed healing", healed))
	}
	if len(out) == 0 {
		out = append(out, "Test execution looks good! Consider adding more test cases.")
	}
	return out
}

func applySuggestions(report *entity.RunReport, fromAI map[string]string) {
	for i := range report.Results {
		r := &report.Results[i]
		if r.Outcome != entity.OutcomeFail && r.Outcome != entity.OutcomeError {
			continue
		}
		if s := strings.TrimSpace(fromAI[r.Name]); s != "" {
			r.Suggestion = s
			continue
		}
		r.Suggestion = Suggest(*r)
	}
}

// Suggest proposes a fix for a failed result from its error type alone.
func Suggest(r entity.RunResult) string {
	switch r.ErrorType {
	case "element_not_found":
		return "Update the element's locator in the page object, or enable self_healing so the AI can find it when the primary locator breaks."
	case "timeout":
		return "Raise test_execution.test_timeout or add a wait step before the slow action."
	case "assertion":
		if strings.Contains(r.Error, "does not match") && strings.Contains(r.Error, "schema") {
			return "The response no longer matches its expect_schema. Update the schema if the API change is intended, otherwise fix the endpoint."
		}
		return "Check that the expected value still matches the application, then update the step's expect value or report the regression."
	case "invalid_test":
		return "Fix the test file: it names an unknown action, page or element, or a step is missing a required field. Run smarttest validate to list the problems."
	case "panic":
		return "An action crashed. Keep the stack trace from this result when reporting it."
	}
	if r.Screenshot != "" {
		return "Inspect the failure screenshot and the test log to see what the page showed when the step failed."
	}
	return "Inspect the test log to find the step that failed and why."
}
