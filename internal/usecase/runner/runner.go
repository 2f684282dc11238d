// Package runner schedules test cases on a bounded worker pool.
package runner

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"smarttest/internal/application/port/input"
	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	SkipRunTimeout = "run timeout"
	SkipCancelled  = "run cancelled"
)

type Config struct {
	// Workers is the pool size; values below 1 run sequentially.
	Workers int
	// RunTimeout stops scheduling new tests. Tests already running keep
	// their own per-test timeout.
	RunTimeout time.Duration
}

type Filter struct {
	Markers []string
	Name    string
}

// Match reports whether tc carries one of the markers (when any are given)
// and contains Name in its name (when set).
func (f Filter) Match(tc entity.TestCase) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(tc.Name), strings.ToLower(f.Name)) {
		return false
	}
	if len(f.Markers) == 0 {
		return true
	}
	for _, m := range f.Markers {
		if tc.HasMarker(m) {
			return true
		}
	}
	return false
}

func (f Filter) Apply(tests []entity.TestCase) []entity.TestCase {
	out := make([]entity.TestCase, 0, len(tests))
	for _, tc := range tests {
		if f.Match(tc) {
			out = append(out, tc)
		}
	}
	return out
}

// Listener is told about every finished test, from worker goroutines.
type Listener func(entity.RunResult)

type Runner struct {
	exec     input.TestExecutor
	logger   output.LoggerPort
	listener Listener
	newID    func() string
	now      func() time.Time
}

func New(exec input.TestExecutor, logger output.LoggerPort, listener Listener) *Runner {
	return &Runner{
		exec:     exec,
		logger:   logger,
		listener: listener,
		newID:    func() string { return uuid.NewString() },
		now:      time.Now,
	}
}

// collector accepts results from concurrent workers.
type collector struct {
	mu      sync.Mutex
	results []entity.RunResult
}

func (c *collector) add(r entity.RunResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) sorted() []entity.RunResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]entity.RunResult(nil), c.results...)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Run executes tests and returns exactly one result per test, in the order
// given.
func (r *Runner) Run(ctx context.Context, tests []entity.TestCase, cfg Config) []entity.RunResult {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	expired := make(chan struct{})
	if cfg.RunTimeout > 0 {
		timer := time.AfterFunc(cfg.RunTimeout, func() { close(expired) })
		defer timer.Stop()
	}

	c := &collector{results: make([]entity.RunResult, 0, len(tests))}
	record := func(res entity.RunResult) {
		c.add(res)
		if r.listener != nil {
			r.listener(res)
		}
	}

	r.logger.Info("running tests", "count", len(tests), "workers", workers)

	var g errgroup.Group
	g.SetLimit(workers)
	for i, tc := range tests {
		if reason, stop := r.stopReason(ctx, expired); stop {
			record(r.skipped(i, tc, reason))
			continue
		}
		g.Go(func() error {
			if reason, stop := r.stopReason(ctx, expired); stop {
				record(r.skipped(i, tc, reason))
				return nil
			}
			res := r.exec.Execute(ctx, tc)
			res.ID = r.newID()
			res.Index = i
			record(res)
			return nil
		})
	}
	_ = g.Wait()

	return c.sorted()
}

func (r *Runner) stopReason(ctx context.Context, expired <-chan struct{}) (string, bool) {
	select {
	case <-expired:
		return SkipRunTimeout, true
	default:
	}
	if ctx.Err() != nil {
		return SkipCancelled, true
	}
	return "", false
}

func (r *Runner) skipped(i int, tc entity.TestCase, reason string) entity.RunResult {
	r.logger.Warn("test not started", "test", tc.Name, "reason", reason)
	return entity.RunResult{
		ID:      r.newID(),
		Index:   i,
		Name:    tc.Name,
		File:    tc.File,
		Outcome: entity.OutcomeSkip,
		Error:   reason,
	}
}
