// Package maintenance runs the periodic housekeeping jobs: sweeping expired
// cache entries and pruning old budget records.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/lukaslondono77/ApiBridgePro/pkg/budget"
	"github.com/lukaslondono77/ApiBridgePro/pkg/cache"
)

// budgetKeepMonths is how many past months of spend records survive pruning.
// The current month is always kept.
const budgetKeepMonths = 12

// Janitor schedules the sweep job with a cron expression. The descriptor
// forms "@every 1m" and standard five-field expressions are both accepted.
type Janitor struct {
	cache  *cache.Cache
	guard  *budget.Guard
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewJanitor creates a janitor over the cache and budget guard.
func NewJanitor(c *cache.Cache, guard *budget.Guard, logger *slog.Logger) *Janitor {
	return &Janitor{
		cache:  c,
		guard:  guard,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start schedules the sweep and runs until the context is cancelled. An
// empty schedule disables the janitor.
func (j *Janitor) Start(ctx context.Context, schedule string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if schedule == "" {
		j.logger.Info("maintenance schedule not configured, janitor disabled")
		return nil
	}

	_, err := j.cron.AddFunc(schedule, func() {
		j.sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}

	j.cron.Start()
	j.running = true
	j.logger.Info("maintenance janitor started", "schedule", schedule)

	go func() {
		<-ctx.Done()
		j.Stop()
	}()

	return nil
}

// sweep runs one housekeeping cycle.
func (j *Janitor) sweep(ctx context.Context) {
	removed := j.cache.Sweep()
	if removed > 0 {
		j.logger.Debug("cache sweep completed", "removed", removed)
	}

	pruned, err := j.guard.Prune(ctx, budgetKeepMonths)
	if err != nil {
		j.logger.Error("budget prune failed", "error", err)
		return
	}
	if pruned > 0 {
		j.logger.Info("budget records pruned", "removed", pruned)
	}
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	<-j.cron.Stop().Done()
	j.running = false
	j.logger.Info("maintenance janitor stopped")
}
