package entity

import "time"

type Outcome string

const (
	OutcomePass  Outcome = "pass"
	OutcomeFail  Outcome = "fail"
	OutcomeError Outcome = "error"
	OutcomeSkip  Outcome = "skip"
)

// HealingEvent records a fallback locator accepted during one lookup.
// It lives on the result only; page objects are never rewritten.
type HealingEvent struct {
	Element   string  `json:"element"`
	Primary   Locator `json:"primary"`
	Suggested Locator `json:"suggested"`
}

// RunResult is the outcome of one executed test case. Read-only once built,
// except Suggestion, which analysis fills in for failures.
type RunResult struct {
	ID         string         `json:"id"`
	Index      int            `json:"index"`
	Name       string         `json:"name"`
	Classname  string         `json:"classname"`
	File       string         `json:"file"`
	Outcome    Outcome        `json:"status"`
	Duration   time.Duration  `json:"duration_ns"`
	Error      string         `json:"error,omitempty"`
	ErrorType  string         `json:"error_type,omitempty"`
	Stack      string         `json:"stack,omitempty"`
	Screenshot string         `json:"screenshot,omitempty"`
	Logs       []string       `json:"logs,omitempty"`
	Healed     []HealingEvent `json:"healed,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
}

type Summary struct {
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Errors   int           `json:"errors"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration_ns"`
}

func (s Summary) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total) * 100
}

// Succeeded reports whether the run should exit zero.
func (s Summary) Succeeded() bool {
	return s.Failed == 0 && s.Errors == 0
}

func Summarize(results []RunResult, wall time.Duration) Summary {
	s := Summary{Total: len(results), Duration: wall}
	for _, r := range results {
		switch r.Outcome {
		case OutcomePass:
			s.Passed++
		case OutcomeFail:
			s.Failed++
		case OutcomeError:
			s.Errors++
		case OutcomeSkip:
			s.Skipped++
		}
	}
	return s
}

type Analysis struct {
	OverallHealth       string   `json:"overall_health"`
	PerformanceCategory string   `json:"performance_category"`
	Summary             string   `json:"summary"`
	Recommendations     []string `json:"recommendations"`
	FlakyCandidates     []string `json:"flaky_candidates,omitempty"`
	Source              string   `json:"source"`
}

type RunReport struct {
	RunID     string      `json:"run_id"`
	Suite     string      `json:"suite"`
	Title     string      `json:"title"`
	Mode      string      `json:"mode"`
	RunMode   string      `json:"run_mode"`
	StartedAt time.Time   `json:"started_at"`
	Summary   Summary     `json:"summary"`
	Results   []RunResult `json:"tests"`
	Analysis  *Analysis   `json:"analysis,omitempty"`
}

func (r *RunReport) Failures() []RunResult {
	var out []RunResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeFail || res.Outcome == OutcomeError {
			out = append(out, res)
		}
	}
	return out
}
