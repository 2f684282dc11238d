package action

import (
	"net/http"
	"time"

	"smarttest/internal/application/port/output"
)

type Options struct {
	HTTPClient *http.Client
	// APIBaseURL and APIHeaders configure http_request steps.
	APIBaseURL string
	APIHeaders map[string]string
	// SchemaDir is where expect_schema file paths are looked up.
	SchemaDir string
	// AbsenceTimeout bounds how long assert_not_visible looks for an element.
	AbsenceTimeout time.Duration
}

// RegisterAll adds every built-in step action to r.
func RegisterAll(r output.ActionRegistry, opts Options) {
	for _, a := range []output.ActionPort{
		NewOpenAction(),
		NewClickAction(),
		NewTypeAction(),
		NewPressEnterAction(),
		NewScrollAction(),
		NewWaitAction(),
		NewScreenshotAction(),
		NewAssertVisibleAction(),
		NewAssertNotVisibleAction(opts.AbsenceTimeout),
		NewAssertTextAction(),
		NewAssertTitleAction(),
		NewAssertURLAction(),
		NewAssertScreenshotAction(),
		NewHTTPRequestAction(opts.HTTPClient, opts.APIBaseURL, opts.APIHeaders, opts.SchemaDir),
	} {
		r.Register(a)
	}
}
