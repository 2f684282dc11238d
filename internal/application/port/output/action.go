package output

import (
	"context"

	"smarttest/internal/domain/entity"
)

// StepContext is what an action sees while one test case runs.
// An empty page name means the test case's default page.
type StepContext interface {
	Page() PagePort
	// Element resolves a page-object element, healing it if allowed.
	Element(ctx context.Context, page, name string) (ElementPort, error)
	ElementDef(page, name string) (entity.ElementDef, error)
	PageURL(page string) (string, error)
	ResolveURL(path string) string

	SaveScreenshot(ctx context.Context, name string) (string, error)
	BaselinePath(name string) string
	ArtifactDir() string

	Features() entity.Features
	// VisualThreshold is the minimum similarity, in [0, 1], a screenshot
	// needs to match its baseline.
	VisualThreshold() float64
	Logger() LoggerPort
}

type ActionPort interface {
	Name() string
	Description() string
	// Validate checks the step's fields without touching a browser.
	Validate(step entity.Step) error
	Execute(ctx context.Context, sc StepContext, step entity.Step) error
}

type ActionRegistry interface {
	Register(action ActionPort)
	Get(name string) (ActionPort, bool)
	All() []ActionPort
}
