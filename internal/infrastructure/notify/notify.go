package notify

import (
	"context"
	"errors"
	"fmt"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"
)

// Dispatcher fans a report out to every configured notifier.
type Dispatcher struct {
	notifiers []output.NotifierPort
	logger    output.LoggerPort
}

func NewDispatcher(logger output.LoggerPort, notifiers ...output.NotifierPort) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, logger: logger}
}

// Notify tries every notifier and logs each failure. The joined error is
// returned for callers that care; run verdicts never depend on it.
func (d *Dispatcher) Notify(ctx context.Context, report *entity.RunReport, detailed bool) error {
	var errs []error
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, report, detailed); err != nil {
			d.logger.Warn("notification failed", "notifier", n.Name(), "error", err.Error())
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		d.logger.Info("notification sent", "notifier", n.Name())
	}
	return errors.Join(errs...)
}
