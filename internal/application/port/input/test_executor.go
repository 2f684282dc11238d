package input

import (
	"context"

	"smarttest/internal/domain/entity"
)

// TestExecutor runs one test case and never returns an error: every
// failure becomes part of the result.
type TestExecutor interface {
	Execute(ctx context.Context, tc entity.TestCase) entity.RunResult
}
