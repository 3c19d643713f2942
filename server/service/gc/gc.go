// Package gc runs the scheduled memory garbage collector.
package gc

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/konusmate/mate/ai/metrics"
	"github.com/konusmate/mate/store"
)

// sweepSchedule fires the decay sweep daily at 03:00 local time.
const sweepSchedule = "0 3 * * *"

const sweepTimeout = 10 * time.Minute

// Collector owns the cron instance driving the daily memory sweep.
type Collector struct {
	store   *store.Store
	cron    *cron.Cron
	metrics *metrics.Exporter
}

func NewCollector(st *store.Store, exporter *metrics.Exporter) *Collector {
	return &Collector{
		store:   st,
		cron:    cron.New(),
		metrics: exporter,
	}
}

// Start registers the sweep job and starts the scheduler. Job failures are
// logged; the scheduler keeps running.
func (c *Collector) Start() error {
	if _, err := c.cron.AddFunc(sweepSchedule, c.sweep); err != nil {
		return err
	}
	c.cron.Start()
	slog.Info("memory gc scheduled", "schedule", sweepSchedule)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (c *Collector) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

func (c *Collector) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	started := time.Now()
	count, err := c.store.SweepDecayedMemories(ctx, started)
	if err != nil {
		slog.Error("memory gc sweep failed", "error", err)
		return
	}
	if c.metrics != nil {
		c.metrics.RecordMemoriesSwept(count)
	}
	slog.Info("memory gc sweep finished",
		"soft_deleted", count,
		"duration_ms", time.Since(started).Milliseconds(),
	)
}
