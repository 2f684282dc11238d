// Package report renders a RunReport into files. Rendering never changes a
// run's verdict; callers log the returned error.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"

	"github.com/goccy/go-json"
)

var _ output.ReporterPort = (*Writer)(nil)

var ErrUnknownFormat = errors.New("unknown report format")

const (
	FormatHTML     = "html"
	FormatJSON     = "json"
	FormatJUnit    = "junit"
	FormatMarkdown = "markdown"
)

const (
	HTMLFile     = "report.html"
	JSONFile     = "report.json"
	JUnitFile    = "junit.xml"
	MarkdownFile = "report.md"
)

var fileNames = map[string]string{
	FormatHTML:     HTMLFile,
	FormatJSON:     JSONFile,
	FormatJUnit:    JUnitFile,
	FormatMarkdown: MarkdownFile,
}

type renderFunc func(*entity.RunReport) ([]byte, error)

type Writer struct {
	dir     string
	logger  output.LoggerPort
	renders map[string]renderFunc
}

func NewWriter(dir string, logger output.LoggerPort) *Writer {
	return &Writer{
		dir:    dir,
		logger: logger,
		renders: map[string]renderFunc{
			FormatHTML:     RenderHTML,
			FormatJSON:     RenderJSON,
			FormatJUnit:    RenderJUnit,
			FormatMarkdown: RenderMarkdown,
		},
	}
}

// Write renders each format into the writer's directory. Every format is
// attempted; the paths written and the joined failures are returned.
func (w *Writer) Write(ctx context.Context, report *entity.RunReport, formats []string) (map[string]string, error) {
	written := make(map[string]string, len(formats))
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return written, fmt.Errorf("create report dir: %w", err)
	}

	var errs []error
	for _, format := range formats {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		format = strings.ToLower(strings.TrimSpace(format))
		render, ok := w.renders[format]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownFormat, format))
			continue
		}
		data, err := render(report)
		if err != nil {
			errs = append(errs, fmt.Errorf("render %s: %w", format, err))
			continue
		}
		path := filepath.Join(w.dir, fileNames[format])
		if err := os.WriteFile(path, data, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", format, err))
			continue
		}
		written[format] = path
		if w.logger != nil {
			w.logger.Info("report written", "format", format, "path", path)
		}
	}
	return written, errors.Join(errs...)
}

func RenderJSON(report *entity.RunReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// ReadJSON loads a report written by RenderJSON.
func ReadJSON(path string) (*entity.RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r entity.RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &r, nil
}
