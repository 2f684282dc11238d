package output

import (
	"context"

	"smarttest/internal/domain/entity"
)

type NotifierPort interface {
	Name() string
	Notify(ctx context.Context, report *entity.RunReport, detailed bool) error
}

type ReporterPort interface {
	Write(ctx context.Context, report *entity.RunReport, formats []string) (map[string]string, error)
}
