package retry

import (
	"context"
	"errors"
	"net"
)

type Kind int

const (
	Retryable Kind = iota
	NonRetryable
	Abort
)

func (k Kind) String() string {
	switch k {
	case Retryable:
		return "retryable"
	case NonRetryable:
		return "non_retryable"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

type Classifier interface {
	Classify(err error) Kind
}

type ClassifierFunc func(err error) Kind

func (f ClassifierFunc) Classify(err error) Kind {
	return f(err)
}

// StatusCoder is implemented by remote errors that carry an HTTP status.
// Status 0 means the request never got a response.
type StatusCoder interface {
	StatusCode() int
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

func unwrapPermanent(err error) error {
	var pe *permanentError
	if errors.As(err, &pe) && pe == err {
		return pe.err
	}
	return err
}

// HTTPClassifier treats transport failures, timeouts and the configured
// status codes as retryable. Other 4xx codes are terminal. Errors it cannot
// recognise are retried.
type HTTPClassifier struct {
	RetryableStatus map[int]struct{}
}

var defaultRetryableStatus = []int{408, 429, 500, 502, 503, 504}

func DefaultClassifier() HTTPClassifier {
	return NewHTTPClassifier(nil)
}

// NewHTTPClassifier adds extra to the default retryable status set.
func NewHTTPClassifier(extra []int) HTTPClassifier {
	set := make(map[int]struct{}, len(defaultRetryableStatus)+len(extra))
	for _, c := range defaultRetryableStatus {
		set[c] = struct{}{}
	}
	for _, c := range extra {
		set[c] = struct{}{}
	}
	return HTTPClassifier{RetryableStatus: set}
}

func (c HTTPClassifier) Classify(err error) Kind {
	if err == nil {
		return NonRetryable
	}
	if IsPermanent(err) {
		return NonRetryable
	}
	if errors.Is(err, context.Canceled) {
		return Abort
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Retryable
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		status := sc.StatusCode()
		if status == 0 {
			return Retryable
		}
		if _, ok := c.RetryableStatus[status]; ok {
			return Retryable
		}
		if status >= 500 {
			return Retryable
		}
		return NonRetryable
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return Retryable
	}

	return Retryable
}
