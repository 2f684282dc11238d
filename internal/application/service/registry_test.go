package service

import (
	"context"
	"testing"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

type namedAction string

func (a namedAction) Name() string               { return string(a) }
func (a namedAction) Description() string        { return "test action" }
func (a namedAction) Validate(entity.Step) error { return nil }
func (a namedAction) Execute(context.Context, output.StepContext, entity.Step) error {
	return nil
}

func TestActionRegistry(t *testing.T) {
	r := NewActionRegistry()
	r.Register(namedAction("type"))
	r.Register(namedAction("click"))
	r.Register(namedAction("open"))

	got, ok := r.Get("click")
	assert.True(t, ok)
	assert.Equal(t, "click", got.Name())

	_, ok = r.Get("hover")
	assert.False(t, ok)

	assert.Equal(t, []string{"click", "open", "type"}, r.Names())
}
