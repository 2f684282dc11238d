package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"smarttest/internal/domain/entity"
	"smarttest/internal/infrastructure/logger"
	"smarttest/internal/infrastructure/report"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRun(t *testing.T, dir, name string, passed int) {
	t.Helper()
	rep := &entity.RunReport{
		RunID:     name,
		Suite:     "awesomeqa",
		StartedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Summary:   entity.Summary{Total: passed, Passed: passed},
	}
	w := report.NewWriter(filepath.Join(dir, name), logger.NewNop())
	_, err := w.Write(context.Background(), rep, []string{report.FormatJSON, report.FormatHTML})
	require.NoError(t, err)
}

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	seedRun(t, dir, "run_20240501_100000", 2)
	seedRun(t, dir, "run_20240502_100000", 3)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "other"), 0o755))

	srv := httptest.NewServer(New(dir, logger.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv, dir
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestListRuns_NewestFirst(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/api/runs")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []RunInfo
	require.NoError(t, json.Unmarshal([]byte(body), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "run_20240502_100000", runs[0].Name)
	require.NotNil(t, runs[0].Summary)
	assert.Equal(t, 3, runs[0].Summary.Passed)
	assert.Equal(t, "awesomeqa", runs[1].Suite)
}

func TestGetRun(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/api/runs/run_20240501_100000")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"run_id":"run_20240501_100000"`)

	resp, _ = get(t, srv.URL+"/api/runs/run_missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/api/runs/other")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunFilesAndIndexRedirect(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/runs/run_20240502_100000/report.html")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<html")

	resp, _ = get(t, srv.URL+"/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/runs/run_20240502_100000/report.html", resp.Header.Get("Location"))

	resp, _ = get(t, srv.URL+"/runs/other/report.html")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(t.TempDir(), logger.NewNop()).ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
