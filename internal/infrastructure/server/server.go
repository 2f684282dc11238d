// Package server serves report artifacts from a results directory.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
	"smarttest/internal/infrastructure/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/goccy/go-json"
)

const runPrefix = "run_"

type RunInfo struct {
	Name      string          `json:"name"`
	StartedAt time.Time       `json:"started_at,omitempty"`
	Suite     string          `json:"suite,omitempty"`
	Summary   *entity.Summary `json:"summary,omitempty"`
}

type Server struct {
	dir    string
	logger output.LoggerPort
}

func New(dir string, logger output.LoggerPort) *Server {
	return &Server{dir: dir, logger: logger}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httplog.RequestLogger(httplog.NewLogger("smarttest", httplog.Options{JSON: true, Concise: true})))

	r.Get("/", s.index)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/api/runs", func(r chi.Router) {
		r.Get("/", s.listRuns)
		r.Get("/{run}", s.getRun)
	})
	r.Get("/runs/{run}/*", s.runFile)
	return r
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving reports", "addr", addr, "dir", s.dir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Runs lists run directories newest first.
func (s *Server) Runs() ([]RunInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read results dir: %w", err)
	}
	var runs []RunInfo
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), runPrefix) {
			continue
		}
		info := RunInfo{Name: e.Name()}
		if rep, err := report.ReadJSON(filepath.Join(s.dir, e.Name(), report.JSONFile)); err == nil {
			info.StartedAt = rep.StartedAt
			info.Suite = rep.Suite
			info.Summary = &rep.Summary
		}
		runs = append(runs, info)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Name > runs[j].Name })
	return runs, nil
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Runs()
	if err != nil || len(runs) == 0 {
		http.Redirect(w, r, "/api/runs", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/runs/"+runs[0].Name+"/"+report.HTMLFile, http.StatusFound)
}

func (s *Server) listRuns(w http.ResponseWriter, _ *http.Request) {
	runs, err := s.Runs()
	if err != nil {
		s.logger.Error("list runs", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cannot read results"})
		return
	}
	if runs == nil {
		runs = []RunInfo{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, ok := runDir(chi.URLParam(r, "run"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run name"})
		return
	}
	rep, err := report.ReadJSON(filepath.Join(s.dir, run, report.JSONFile))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) runFile(w http.ResponseWriter, r *http.Request) {
	run, ok := runDir(chi.URLParam(r, "run"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	prefix := "/runs/" + run
	http.StripPrefix(prefix, http.FileServer(http.Dir(filepath.Join(s.dir, run)))).ServeHTTP(w, r)
}

func runDir(name string) (string, bool) {
	if !strings.HasPrefix(name, runPrefix) || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", false
	}
	return name, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
