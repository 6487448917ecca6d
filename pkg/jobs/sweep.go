package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/metrics"
	"github.com/jordanlanch/leadrouter/pkg/models"
	"github.com/jordanlanch/leadrouter/pkg/orchestrator"
	"golang.org/x/sync/errgroup"
)

// StaleLeads finds open leads that have gone quiet and remembers which ones a
// sweep already handled, so they wait a full stale window before the next one.
type StaleLeads interface {
	ListStale(ctx context.Context, before time.Time, limit int) ([]models.Lead, error)
	MarkSwept(ctx context.Context, tenantID, leadID string, at time.Time) error
}

// Router runs one lead through routing and follow-up scheduling.
type Router interface {
	RouteAndSchedule(ctx context.Context, tenantID, leadID string, event models.LeadEvent) (*orchestrator.Result, error)
}

// SweepConfig controls which leads a sweep picks up and how many run at once.
type SweepConfig struct {
	StaleAfter  time.Duration
	BatchSize   int
	Concurrency int
	// LeadTimeout bounds each lead's orchestrator call.
	LeadTimeout time.Duration
}

// DefaultSweepConfig returns the defaults used when the environment is silent.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		StaleAfter:  72 * time.Hour,
		BatchSize:   200,
		Concurrency: 4,
		LeadTimeout: 10 * time.Second,
	}
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Processed int
	Failed    int
	Stored    int
}

// Sweeper schedules follow-ups for stale leads.
type Sweeper struct {
	leads   StaleLeads
	router  Router
	cfg     SweepConfig
	metrics *metrics.Metrics
	logger  logger.Logger
	now     func() time.Time
}

// NewSweeper creates a sweeper. Zero config fields take their defaults.
func NewSweeper(leads StaleLeads, router Router, cfg SweepConfig, m *metrics.Metrics, log logger.Logger) *Sweeper {
	def := DefaultSweepConfig()
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.LeadTimeout <= 0 {
		cfg.LeadTimeout = def.LeadTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Sweeper{
		leads:   leads,
		router:  router,
		cfg:     cfg,
		metrics: m,
		logger:  log,
		now:     time.Now,
	}
}

// Run processes one batch of stale leads. A failure on one lead is logged
// and counted; it does not stop the others. Leads that were handled, or that
// have nobody to route to, are marked swept; failed leads come back next run.
func (s *Sweeper) Run(ctx context.Context) (res SweepResult, err error) {
	defer func() { s.metrics.RecordSweep(err, res.Processed, res.Failed) }()

	started := s.now().UTC()
	cutoff := started.Add(-s.cfg.StaleAfter)
	leads, err := s.leads.ListStale(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return res, fmt.Errorf("failed to list stale leads: %w", err)
	}
	if len(leads) == 0 {
		s.logger.Debug("no stale leads", "cutoff", cutoff)
		return res, nil
	}

	var failed, stored atomic.Int64
	event := models.LeadEvent{Type: models.EventManual}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, lead := range leads {
		g.Go(func() error {
			if gctx.Err() != nil {
				failed.Add(1)
				return nil
			}
			leadCtx, cancel := context.WithTimeout(gctx, s.cfg.LeadTimeout)
			defer cancel()

			log := s.logger.With("tenant_id", lead.TenantID, "lead_id", lead.ID)
			out, err := s.router.RouteAndSchedule(leadCtx, lead.TenantID, lead.ID, event)
			if err != nil {
				failed.Add(1)
				if !domain.IsNoEligibleAssignee(err) {
					log.Error("stale lead sweep failed", "error", err)
					return nil
				}
				log.Warn("stale lead has no eligible assignee", "error", err)
			} else {
				stored.Add(int64(out.Stored))
			}

			if err := s.leads.MarkSwept(gctx, lead.TenantID, lead.ID, started); err != nil {
				log.Warn("failed to mark lead swept", "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	res = SweepResult{Processed: len(leads), Failed: int(failed.Load()), Stored: int(stored.Load())}
	s.logger.Info("stale lead sweep completed",
		"processed", res.Processed,
		"failed", res.Failed,
		"stored", res.Stored,
	)
	return res, ctx.Err()
}
