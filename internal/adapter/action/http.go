package action

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
)

const maxBodyBytes = 1 << 20

// HTTPRequestAction performs an API check. It does not retry: a flaky
// endpoint should fail the test.
type HTTPRequestAction struct {
	client  *http.Client
	baseURL string
	headers map[string]string
	schemas *schemaStore
}

// NewHTTPRequestAction builds the action. Relative paths resolve against
// baseURL when set, otherwise against the suite base URL. headers are sent
// with every request unless the step overrides them. expect_schema file
// paths resolve against schemaDir.
func NewHTTPRequestAction(client *http.Client, baseURL string, headers map[string]string, schemaDir string) *HTTPRequestAction {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPRequestAction{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
		schemas: newSchemaStore(schemaDir),
	}
}

func (a *HTTPRequestAction) Name() string { return "http_request" }
func (a *HTTPRequestAction) Description() string {
	return "Sends an HTTP request and checks expect_status, that the body contains expect and matches expect_schema"
}

func (a *HTTPRequestAction) Validate(step entity.Step) error {
	if step.URL == "" && step.Path == "" {
		return fmt.Errorf("%w: http_request requires \"url\" or \"path\"", entity.ErrInvalidStep)
	}
	switch strings.ToUpper(step.Method) {
	case "", http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead, http.MethodOptions:
	default:
		return fmt.Errorf("%w: unsupported method %q", entity.ErrInvalidStep, step.Method)
	}
	if step.ExpectSchema != nil {
		if _, _, err := a.schemas.load(step.ExpectSchema); err != nil {
			return err
		}
	}
	return nil
}

func (a *HTTPRequestAction) Execute(ctx context.Context, sc output.StepContext, step entity.Step) error {
	target := step.URL
	switch {
	case target != "":
	case a.baseURL != "":
		target = a.baseURL + "/" + strings.TrimLeft(step.Path, "/")
	default:
		target = sc.ResolveURL(step.Path)
	}
	method := strings.ToUpper(step.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if step.Body != "" {
		body = strings.NewReader(step.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}
	for k, v := range step.Headers {
		req.Header.Set(k, v)
	}
	if step.Body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	sc.Logger().Debug("http check", "method", method, "url", target, "status", resp.StatusCode)

	if step.ExpectStatus != 0 {
		if resp.StatusCode != step.ExpectStatus {
			return assertionf("%s %s returned %d, expected %d", method, target, resp.StatusCode, step.ExpectStatus)
		}
	} else if resp.StatusCode >= 400 {
		return assertionf("%s %s returned %d", method, target, resp.StatusCode)
	}

	if step.Expect != "" && !strings.Contains(string(data), step.Expect) {
		return assertionf("response body does not contain %q", step.Expect)
	}
	if step.ExpectSchema != nil {
		return a.schemas.check(step.ExpectSchema, data)
	}
	return nil
}
