package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"smarttest/internal/domain/entity"
	"smarttest/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakeExecutor struct {
	delay   func(entity.TestCase) time.Duration
	running atomic.Int32
	peak    atomic.Int32
}

func (f *fakeExecutor) Execute(ctx context.Context, tc entity.TestCase) entity.RunResult {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay != nil {
		time.Sleep(f.delay(tc))
	}
	outcome := entity.OutcomePass
	if tc.HasMarker("broken") {
		outcome = entity.OutcomeFail
	}
	return entity.RunResult{Name: tc.Name, Outcome: outcome}
}

func cases(n int) []entity.TestCase {
	out := make([]entity.TestCase, n)
	for i := range out {
		out[i] = entity.TestCase{Name: fmt.Sprintf("test_%03d", i)}
	}
	return out
}

func TestRun_OrderAndLimit(t *testing.T) {
	exec := &fakeExecutor{delay: func(tc entity.TestCase) time.Duration {
		// Earlier tests take longer so completion order is reversed.
		var i int
		_, _ = fmt.Sscanf(tc.Name, "test_%d", &i)
		return time.Duration(15-i) * time.Millisecond
	}}
	var mu sync.Mutex
	var seen int
	r := New(exec, logger.NewNop(), func(entity.RunResult) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	results := r.Run(context.Background(), cases(12), Config{Workers: 3})

	require.Len(t, results, 12)
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.Equal(t, fmt.Sprintf("test_%03d", i), res.Name)
	}
	assert.LessOrEqual(t, exec.peak.Load(), int32(3))
	assert.Equal(t, 12, seen)
}

func TestRun_SequentialWhenWorkersUnset(t *testing.T) {
	exec := &fakeExecutor{delay: func(entity.TestCase) time.Duration { return time.Millisecond }}
	r := New(exec, logger.NewNop(), nil)

	results := r.Run(context.Background(), cases(4), Config{})

	assert.Len(t, results, 4)
	assert.Equal(t, int32(1), exec.peak.Load())
}

func TestRun_RunTimeoutSkipsUnstarted(t *testing.T) {
	exec := &fakeExecutor{delay: func(entity.TestCase) time.Duration { return 40 * time.Millisecond }}
	r := New(exec, logger.NewNop(), nil)

	results := r.Run(context.Background(), cases(5), Config{Workers: 1, RunTimeout: 10 * time.Millisecond})

	require.Len(t, results, 5)
	assert.Equal(t, entity.OutcomePass, results[0].Outcome, "in-flight test finishes")
	for _, res := range results[1:] {
		assert.Equal(t, entity.OutcomeSkip, res.Outcome)
		assert.Equal(t, SkipRunTimeout, res.Error)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(&fakeExecutor{}, logger.NewNop(), nil)

	results := r.Run(ctx, cases(3), Config{Workers: 2})

	require.Len(t, results, 3)
	for _, res := range results {
		assert.Equal(t, entity.OutcomeSkip, res.Outcome)
		assert.Equal(t, SkipCancelled, res.Error)
	}
}

func TestFilter(t *testing.T) {
	tests := []entity.TestCase{
		{Name: "test_search_product", Markers: []string{"smoke"}},
		{Name: "test_cart_total", Markers: []string{"regression"}},
		{Name: "test_search_empty", Markers: []string{"regression", "generated"}},
	}

	names := func(in []entity.TestCase) []string {
		var out []string
		for _, tc := range in {
			out = append(out, tc.Name)
		}
		return out
	}

	assert.Len(t, Filter{}.Apply(tests), 3)
	assert.Equal(t, []string{"test_search_product", "test_search_empty"}, names(Filter{Name: "SEARCH"}.Apply(tests)))
	assert.Equal(t, []string{"test_search_product", "test_search_empty"}, names(Filter{Markers: []string{"smoke", "generated"}}.Apply(tests)))
	assert.Equal(t, []string{"test_search_empty"}, names(Filter{Markers: []string{"regression"}, Name: "search"}.Apply(tests)))
}

func TestProperty_EveryTestYieldsOneResult(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		k := rapid.IntRange(0, 25).Draw(t, "tests")
		workers := rapid.IntRange(0, 8).Draw(t, "workers")
		exec := &fakeExecutor{}
		r := New(exec, logger.NewNop(), nil)

		results := r.Run(context.Background(), cases(k), Config{Workers: workers})

		if len(results) != k {
			t.Fatalf("expected %d results, got %d", k, len(results))
		}
		ids := make(map[string]bool, k)
		for i, res := range results {
			if res.Index != i {
				t.Fatalf("result %d has index %d", i, res.Index)
			}
			if ids[res.ID] {
				t.Fatalf("duplicate id %s", res.ID)
			}
			ids[res.ID] = true
		}
		if workers > 0 && int(exec.peak.Load()) > workers {
			t.Fatalf("peak concurrency %d exceeds %d workers", exec.peak.Load(), workers)
		}
	})
}
