package entity

import "errors"

// ErrAssertion marks a step whose expectation did not hold. It turns a
// test into a failure rather than an error.
var ErrAssertion = errors.New("assertion failed")

// ErrInvalidStep marks a step that is missing fields its action needs.
var ErrInvalidStep = errors.New("invalid step")
