package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"smarttest/internal/domain/entity"
)

//go:embed report.html.tmpl
var htmlTemplate string

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"seconds": func(d time.Duration) string { return seconds(d) },
	"percent": func(s entity.Summary) string { return fmt.Sprintf("%.1f%%", s.PassRate()) },
	// Screenshots live in <run_dir>/screenshots next to the report.
	"shot": func(path string) string { return "screenshots/" + filepath.Base(path) },
}).Parse(htmlTemplate))

func RenderHTML(report *entity.RunReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
