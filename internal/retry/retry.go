// Package retry wraps a single remote call with bounded exponential backoff
// and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// ErrRetriesExhausted matches every *ExhaustedError.
var ErrRetriesExhausted = errors.New("retry: attempts exhausted")

// Policy is an immutable retry configuration.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Multiplier is the exponential base. Values below 1 are treated as 1.
	Multiplier float64
	// Jitter scales each wait by a factor drawn from [1-Jitter, 1+Jitter].
	Jitter float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2,
		Jitter:       0.1,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Backoff returns the un-jittered wait after the given 0-based attempt:
// min(InitialDelay * Multiplier^attempt, MaxDelay).
func (p Policy) Backoff(attempt int) time.Duration {
	if p.InitialDelay <= 0 || attempt < 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialDelay) * math.Pow(mult, float64(attempt))
	if p.MaxDelay > 0 && (d > float64(p.MaxDelay) || math.IsInf(d, 1)) {
		return p.MaxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// ExhaustedError is returned after the last permitted attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// Retrier executes operations under a Policy. The zero value is not usable;
// build one with New.
type Retrier struct {
	policy     Policy
	classifier Classifier
	sleep      func(context.Context, time.Duration) error
	rand       func() float64
	onRetry    func(attempt int, wait time.Duration, err error)
}

type Option func(*Retrier)

func WithClassifier(c Classifier) Option {
	return func(r *Retrier) {
		if c != nil {
			r.classifier = c
		}
	}
}

// WithSleep replaces the context-aware timer wait. Tests use it to record
// delays without waiting.
func WithSleep(f func(context.Context, time.Duration) error) Option {
	return func(r *Retrier) {
		if f != nil {
			r.sleep = f
		}
	}
}

// WithRand replaces the jitter source; f must return values in [0, 1).
func WithRand(f func() float64) Option {
	return func(r *Retrier) {
		if f != nil {
			r.rand = f
		}
	}
}

func WithOnRetry(f func(attempt int, wait time.Duration, err error)) Option {
	return func(r *Retrier) {
		r.onRetry = f
	}
}

func New(p Policy, opts ...Option) *Retrier {
	r := &Retrier{
		policy:     p,
		classifier: DefaultClassifier(),
		sleep:      sleepWithContext,
		rand:       lockedRand(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs op until it succeeds, fails permanently or the attempts run out.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func DoValue[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	maxAttempts := r.policy.attempts()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return zero, err
		}

		val, err := op(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		switch r.classifier.Classify(err) {
		case Retryable:
		case Abort:
			return zero, err
		default:
			return zero, unwrapPermanent(err)
		}

		if attempt == maxAttempts-1 {
			break
		}

		wait := r.delay(attempt)
		if r.onRetry != nil {
			r.onRetry(attempt+1, wait, err)
		}
		if err := r.sleep(ctx, wait); err != nil {
			return zero, fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
	}

	return zero, &ExhaustedError{Attempts: maxAttempts, Last: lastErr}
}

func (r *Retrier) delay(attempt int) time.Duration {
	base := r.policy.Backoff(attempt)
	j := r.policy.Jitter
	if j <= 0 || base <= 0 {
		return base
	}
	if j > 1 {
		j = 1
	}
	factor := 1 - j + 2*j*r.rand()
	d := time.Duration(float64(base) * factor)
	if r.policy.MaxDelay > 0 && d > r.policy.MaxDelay {
		return r.policy.MaxDelay
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func lockedRand() func() float64 {
	var mu sync.Mutex
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return src.Float64()
	}
}
