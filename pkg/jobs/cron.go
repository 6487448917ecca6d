package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/metrics"
	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the sweep every 15 minutes.
const DefaultSweepSchedule = "*/15 * * * *"

// StatsFunc reports the number of open database connections.
type StatsFunc func() int

// CronManager manages scheduled jobs
type CronManager struct {
	cron    *cron.Cron
	sweeper *Sweeper
	stats   StatsFunc
	metrics *metrics.Metrics
	logger  logger.Logger
	timeout time.Duration
}

// NewCronManager creates a new cron manager. Overlapping sweeps are skipped
// rather than queued.
func NewCronManager(sweeper *Sweeper, stats StatsFunc, m *metrics.Metrics, log logger.Logger) *CronManager {
	if log == nil {
		log = logger.Nop()
	}
	return &CronManager{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper: sweeper,
		stats:   stats,
		metrics: m,
		logger:  log,
		timeout: 10 * time.Minute,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs(sweepSchedule string) error {
	if sweepSchedule == "" {
		sweepSchedule = DefaultSweepSchedule
	}

	if _, err := cm.cron.AddFunc(sweepSchedule, cm.runSweep); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", sweepSchedule, err)
	}

	if cm.stats != nil {
		if _, err := cm.cron.AddFunc("@every 30s", func() {
			cm.metrics.UpdateDBConnections(cm.stats())
		}); err != nil {
			return err
		}
	}

	cm.logger.Info("cron jobs configured", "sweep_schedule", sweepSchedule)
	return nil
}

func (cm *CronManager) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), cm.timeout)
	defer cancel()

	if _, err := cm.sweeper.Run(ctx); err != nil {
		cm.logger.Error("stale lead sweep aborted", "error", err)
	}
}

// Entries reports how many jobs are scheduled.
func (cm *CronManager) Entries() int {
	return len(cm.cron.Entries())
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.logger.Info("starting cron scheduler")
	cm.cron.Start()
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (cm *CronManager) Stop() {
	cm.logger.Info("stopping cron scheduler")
	<-cm.cron.Stop().Done()
}
