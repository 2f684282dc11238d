package report

import (
	"fmt"
	"strings"

	"smarttest/internal/domain/entity"
)

var statusLabels = map[entity.Outcome]string{
	entity.OutcomePass:  "✅ PASS",
	entity.OutcomeFail:  "❌ FAIL",
	entity.OutcomeError: "💥 ERROR",
	entity.OutcomeSkip:  "⚠️ SKIP",
}

func RenderMarkdown(report *entity.RunReport) ([]byte, error) {
	var b strings.Builder
	s := report.Summary

	fmt.Fprintf(&b, "# %s\n\n", orDefault(report.Title, "SmartTest Report"))
	fmt.Fprintf(&b, "Suite: %s | Run: %s | Started: %s\n\n", report.Suite, report.RunID, report.StartedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Total Tests:** %d\n", s.Total)
	fmt.Fprintf(&b, "- **Passed:** %d (%.1f%%)\n", s.Passed, s.PassRate())
	fmt.Fprintf(&b, "- **Failed:** %d\n", s.Failed)
	fmt.Fprintf(&b, "- **Errors:** %d\n", s.Errors)
	fmt.Fprintf(&b, "- **Skipped:** %d\n", s.Skipped)
	fmt.Fprintf(&b, "- **Duration:** %.2f seconds\n\n", s.Duration.Seconds())

	if a := report.Analysis; a != nil {
		b.WriteString("## Analysis\n\n")
		fmt.Fprintf(&b, "- **Overall Health:** %s\n", a.OverallHealth)
		fmt.Fprintf(&b, "- **Performance:** %s\n", a.PerformanceCategory)
		fmt.Fprintf(&b, "- **Summary:** %s\n\n", a.Summary)
		for _, rec := range a.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Test Details\n\n")
	b.WriteString("| # | Test Name | Status | Duration | Details |\n")
	b.WriteString("|---|-----------|--------|----------|---------|\n")
	for i, r := range report.Results {
		details := strings.ReplaceAll(firstLine(r.Error), "|", `\|`)
		if n := len(r.Healed); n > 0 {
			details = strings.TrimSpace(fmt.Sprintf("%s (healed %d)", details, n))
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %.2fs | %s |\n", i+1, r.Name, statusLabels[r.Outcome], r.Duration.Seconds(), details)
	}

	for _, r := range report.Failures() {
		fmt.Fprintf(&b, "\n<details><summary>%s</summary>\n\n```\n%s\n```\n", r.Name, r.Error)
		if r.Suggestion != "" {
			fmt.Fprintf(&b, "\n**Suggested fix:** %s\n", r.Suggestion)
		}
		b.WriteString("\n</details>\n")
	}

	b.WriteString("\n---\n*Generated by SmartTest*\n")
	return []byte(b.String()), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
