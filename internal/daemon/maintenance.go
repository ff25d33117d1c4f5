package daemon

import (
	"context"
	"errors"
	"time"

	"encodegate/internal/logging"
)

func (d *Daemon) maintenanceLoop(ctx context.Context) {
	interval := d.cfg.MaintenanceInterval()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.runMaintenance(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runMaintenance(ctx)
		}
	}
}

// runMaintenance reaps every configured prefix once. A busy cleanup lock
// means a manual run is in progress and the pass is skipped.
func (d *Daemon) runMaintenance(ctx context.Context) {
	summary := CleanupSummary{At: time.Now()}
	var errs []error
	for _, prefix := range d.cfg.ReapPrefixes() {
		report, err := d.components.Cleanup(ctx, prefix, 0)
		summary.Removed += report.RemovedCount()
		summary.Failures += len(report.Failures)
		if errors.Is(err, ErrCleanupBusy) {
			d.logger.Debug("maintenance skipped, cleanup already running",
				logging.String(logging.FieldPrefix, prefix))
			continue
		}
		if err != nil && ctx.Err() == nil {
			errs = append(errs, err)
		}
	}
	summary.Err = errors.Join(errs...)

	d.mu.Lock()
	d.lastCleanup = summary
	d.mu.Unlock()
}
