package guard

import (
	"context"

	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/robfig/cron/v3"
)

// Maintenance schedules periodic DNS-cache pruning so the cache's memory
// footprint stays bounded by entry TTL rather than growing without limit
// across a long-running process.
type Maintenance struct {
	cron   *cron.Cron
	guard  *Guard
	logger *observability.Logger
}

// NewMaintenance wires a cron schedule (default every minute) that prunes
// expired DNS cache entries.
func NewMaintenance(g *Guard, logger *observability.Logger, schedule string) *Maintenance {
	if schedule == "" {
		schedule = "@every 1m"
	}
	c := cron.New()
	m := &Maintenance{cron: c, guard: g, logger: logger}
	_, _ = c.AddFunc(schedule, m.prune)
	return m
}

func (m *Maintenance) prune() {
	removed := m.guard.cache.Prune()
	if removed > 0 && m.logger != nil {
		m.logger.Debug(context.Background(), "pruned expired dns cache entries", "count", removed)
	}
}

// Start begins the background schedule.
func (m *Maintenance) Start() { m.cron.Start() }

// Stop halts the background schedule, waiting for any in-flight run.
func (m *Maintenance) Stop() { <-m.cron.Stop().Done() }
