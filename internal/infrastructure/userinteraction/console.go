package userinteraction

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"smarttest/internal/domain/entity"

	"github.com/fatih/color"
)

// Console prints run progress and summaries. Progress may be called from
// several runner workers at once.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

type outcomeStyle struct {
	icon  string
	label string
	color *color.Color
}

var outcomeStyles = map[entity.Outcome]outcomeStyle{
	entity.OutcomePass:  {"✓", "PASS", color.New(color.FgGreen)},
	entity.OutcomeFail:  {"✗", "FAIL", color.New(color.FgRed)},
	entity.OutcomeError: {"💥", "ERROR", color.New(color.FgRed, color.Bold)},
	entity.OutcomeSkip:  {"⚠", "SKIP", color.New(color.FgYellow)},
}

func (c *Console) Banner(suite, mode string, tests, workers int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	color.New(color.FgCyan, color.Bold).Fprintf(c.out, "\n━━━ SmartTest: %s (%s) ━━━\n", suite, mode)
	if tests > 0 {
		color.New(color.Faint).Fprintf(c.out, "   %d tests, %d workers\n", tests, workers)
	}
}

// Progress prints one finished test.
func (c *Console) Progress(r entity.RunResult) {
	style, ok := outcomeStyles[r.Outcome]
	if !ok {
		style = outcomeStyle{"?", strings.ToUpper(string(r.Outcome)), color.New(color.Reset)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	style.color.Fprintf(c.out, "%s %-5s ", style.icon, style.label)
	fmt.Fprintf(c.out, "%s ", r.Name)
	color.New(color.Faint).Fprintf(c.out, "(%.2fs)\n", r.Duration.Seconds())
	if r.Error != "" {
		color.New(color.Faint).Fprintf(c.out, "   %s\n", truncate(firstLine(r.Error), 200))
	}
	for _, h := range r.Healed {
		color.New(color.FgMagenta).Fprintf(c.out, "   🔧 healed %s: %s → %s\n", h.Element, h.Primary, h.Suggested)
	}
}

func (c *Console) Summary(report *entity.RunReport, files map[string]string) {
	s := report.Summary

	c.mu.Lock()
	defer c.mu.Unlock()
	color.New(color.FgCyan, color.Bold).Fprintln(c.out, "\n━━━ Summary ━━━")
	fmt.Fprintf(c.out, "Total: %d  ", s.Total)
	color.New(color.FgGreen).Fprintf(c.out, "Passed: %d  ", s.Passed)
	color.New(color.FgRed).Fprintf(c.out, "Failed: %d  Errors: %d  ", s.Failed, s.Errors)
	color.New(color.FgYellow).Fprintf(c.out, "Skipped: %d\n", s.Skipped)
	fmt.Fprintf(c.out, "Pass rate: %.1f%%  Duration: %.2fs\n", s.PassRate(), s.Duration.Seconds())

	if a := report.Analysis; a != nil {
		color.New(color.FgBlue, color.Bold).Fprintf(c.out, "\nHealth: %s  Performance: %s\n", a.OverallHealth, a.PerformanceCategory)
		if a.Summary != "" {
			fmt.Fprintf(c.out, "%s\n", a.Summary)
		}
		for _, rec := range a.Recommendations {
			fmt.Fprintf(c.out, "  • %s\n", rec)
		}
	}

	for _, r := range report.Failures() {
		if r.Suggestion == "" {
			continue
		}
		color.New(color.FgYellow).Fprintf(c.out, "💡 %s: ", r.Name)
		fmt.Fprintln(c.out, r.Suggestion)
	}

	if len(files) > 0 {
		formats := make([]string, 0, len(files))
		for f := range files {
			formats = append(formats, f)
		}
		sort.Strings(formats)
		fmt.Fprintln(c.out, "\nReports:")
		for _, f := range formats {
			color.New(color.Faint).Fprintf(c.out, "  %-8s %s\n", f, files[f])
		}
	}

	if s.Succeeded() {
		color.New(color.FgGreen, color.Bold).Fprintln(c.out, "\n✅ All tests passed")
	} else {
		color.New(color.FgRed, color.Bold).Fprintln(c.out, "\n❌ Some tests failed")
	}
}

// Generated prints where generated tests were written.
func (c *Console) Generated(page, path string, written, rejected int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if written == 0 {
		color.New(color.FgYellow).Fprintf(c.out, "⚠ %s: no valid tests generated (%d rejected)\n", page, rejected)
		return
	}
	color.New(color.FgGreen).Fprintf(c.out, "✓ %s: %d tests → %s", page, written, path)
	if rejected > 0 {
		color.New(color.Faint).Fprintf(c.out, " (%d rejected)", rejected)
	}
	fmt.Fprintln(c.out)
}

func (c *Console) Error(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	color.New(color.FgRed).Fprint(c.out, "❌ Error: ")
	fmt.Fprintln(c.out, err.Error())
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
