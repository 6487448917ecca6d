package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/leadassignment"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/metrics"
	"github.com/jordanlanch/leadrouter/pkg/models"
	"github.com/jordanlanch/leadrouter/pkg/rules"
)

// Resolver picks an assignee for a directive.
type Resolver interface {
	Resolve(ctx context.Context, req leadassignment.Request) (*leadassignment.Decision, error)
}

// Suggester produces follow-up drafts for a lead.
type Suggester interface {
	Suggest(lead models.Lead, now time.Time, vars map[string]string) ([]models.FollowUpAction, error)
}

// Deps wires the orchestrator to its collaborators.
type Deps struct {
	Leads     domain.LeadReader
	Rules     domain.RuleRepository
	Roster    domain.RosterReader
	Tenants   domain.TenantRepository
	Resolver  Resolver
	Scheduler Suggester
	// Store commits the assignee, the rep load, the follow-ups and the
	// follow-up count of one call together or not at all.
	Store domain.UnitOfWork

	// Fallback is used when no rule matches and the tenant has no default
	// directive of its own. Zero value means round-robin over all reps.
	Fallback models.AssignmentDirective
	// DefaultLocation applies when a tenant's time zone is unset or invalid.
	DefaultLocation *time.Location
	// Vars are template variables shared by every lead, e.g. dealership.
	Vars map[string]string
	// IsStructural classifies follow-up write errors for logs and metrics.
	IsStructural func(error) bool

	Metrics *metrics.Metrics
	Logger  logger.Logger
	Now     func() time.Time
}

// Result is the outcome of one RouteAndSchedule call.
type Result struct {
	LeadID   string                  `json:"lead_id"`
	Assignee *models.Rep             `json:"assignee,omitempty"`
	RuleID   string                  `json:"rule_id,omitempty"`
	Strategy models.DirectiveType    `json:"strategy,omitempty"`
	Routed   bool                    `json:"routed"`
	Actions  []models.FollowUpAction `json:"actions"`
	// Stored counts actions newly written by this call; duplicates of
	// earlier calls are returned in Actions but not counted.
	Stored int `json:"stored"`
}

// Service runs routing and follow-up scheduling for lead events.
type Service struct {
	deps Deps
	log  logger.Logger
}

// NewService creates an orchestrator.
func NewService(deps Deps) *Service {
	if deps.Fallback.Type == "" {
		deps.Fallback = models.DefaultDirective()
	}
	if deps.DefaultLocation == nil {
		deps.DefaultLocation = time.UTC
	}
	if deps.IsStructural == nil {
		deps.IsStructural = func(error) bool { return false }
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps, log: deps.Logger}
}

// RouteAndSchedule handles one lead event: routes the lead when it has no
// assignee or the event asks for reassignment, then schedules and persists
// the follow-ups for its stage. Writes are committed in one transaction, so
// a failed call leaves the lead, the roster and the follow-ups untouched and
// can be retried as a whole.
func (s *Service) RouteAndSchedule(ctx context.Context, tenantID, leadID string, event models.LeadEvent) (res *Result, err error) {
	start := time.Now()
	defer func() { s.deps.Metrics.ObserveOrchestrator("route_and_schedule", err, time.Since(start)) }()

	log := s.log.With("tenant_id", tenantID, "lead_id", leadID, "event", string(event.Type))

	lead, settings, roster, err := s.snapshot(ctx, tenantID, leadID)
	if err != nil {
		return nil, err
	}
	loc := s.location(settings, log)

	var (
		assignee *models.Rep
		decision *leadassignment.Decision
	)
	if lead.AssigneeID == nil || event.Reassign {
		ruleSet, err := s.deps.Rules.ListActive(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}

		decision, err = s.route(ctx, *lead, settings, roster, ruleSet, loc, log)
		if err != nil {
			return nil, domain.WithLead(err, leadID)
		}
		rep := decision.Rep
		assignee = &rep
		lead.AssigneeID = &rep.ID
	} else {
		assignee = currentAssignee(roster, *lead.AssigneeID)
	}

	now := s.deps.Now().UTC()
	drafts, err := s.deps.Scheduler.Suggest(*lead, now, s.vars(*lead, assignee, loc))
	if err != nil {
		return nil, domain.WithLead(fmt.Errorf("failed to schedule follow-ups: %w", err), leadID)
	}

	var (
		actions  []models.FollowUpAction
		inserted []bool
		stored   int
	)
	err = s.deps.Store.Do(ctx, func(ctx context.Context, tx domain.Tx) error {
		if decision != nil {
			if err := tx.SetAssignee(ctx, tenantID, leadID, decision.Rep.ID); err != nil {
				return domain.NewRepositoryWriteFailedError(leadID, "assignee", err)
			}
			load, err := tx.IncrementLoad(ctx, tenantID, decision.Rep.ID)
			if err != nil {
				return domain.NewRepositoryWriteFailedError(leadID, "rep load", err)
			}
			assignee.CurrentLoad = load
		}

		var err error
		actions, inserted, stored, err = s.persist(ctx, tx, drafts, log)
		if err != nil {
			return err
		}
		if stored > 0 {
			if err := tx.RecordFollowUps(ctx, tenantID, leadID, stored, now); err != nil {
				return domain.NewRepositoryWriteFailedError(leadID, "follow-up count", err)
			}
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled before commit: %w", err)
		}
		return nil
	})
	if err != nil {
		if decision != nil {
			s.deps.Metrics.RecordRouting(string(decision.Strategy), "error")
		}
		var de *domain.DomainError
		if ctx.Err() == nil && !errors.As(err, &de) {
			err = domain.NewRepositoryWriteFailedError(leadID, "commit", err)
		}
		log.Error("lead event not committed", "error", err)
		return nil, err
	}

	res = &Result{LeadID: leadID, Assignee: assignee, Actions: actions, Stored: stored}
	if decision != nil {
		res.RuleID = decision.RuleID
		res.Strategy = decision.Strategy
		res.Routed = true
		s.deps.Metrics.RecordRouting(string(decision.Strategy), "assigned")
		if decision.OverCapacity {
			s.deps.Metrics.RecordOverCapacity()
		}
		log.Info("lead routed",
			"rep_id", decision.Rep.ID,
			"rule_id", decision.RuleID,
			"strategy", string(decision.Strategy),
			"reason", decision.Reason,
		)
	} else {
		s.deps.Metrics.RecordRouting("none", "kept")
	}
	for i, a := range actions {
		if inserted[i] {
			s.deps.Metrics.RecordFollowUpStored(string(a.Shape))
		} else {
			s.deps.Metrics.RecordFollowUpStored("duplicate")
		}
	}

	log.Info("follow-ups scheduled", "actions", len(actions), "stored", stored)
	return res, nil
}

// SuggestedActions returns what RouteAndSchedule would schedule for the lead
// right now, without routing or writing anything.
func (s *Service) SuggestedActions(ctx context.Context, tenantID, leadID string) (actions []models.FollowUpAction, err error) {
	start := time.Now()
	defer func() { s.deps.Metrics.ObserveOrchestrator("suggested_actions", err, time.Since(start)) }()

	log := s.log.With("tenant_id", tenantID, "lead_id", leadID)

	lead, settings, roster, err := s.snapshot(ctx, tenantID, leadID)
	if err != nil {
		return nil, err
	}
	loc := s.location(settings, log)

	var assignee *models.Rep
	if lead.AssigneeID != nil {
		assignee = currentAssignee(roster, *lead.AssigneeID)
	}

	drafts, err := s.deps.Scheduler.Suggest(*lead, s.deps.Now().UTC(), s.vars(*lead, assignee, loc))
	if err != nil {
		return nil, domain.WithLead(fmt.Errorf("failed to suggest follow-ups: %w", err), leadID)
	}
	return drafts, nil
}

func (s *Service) snapshot(ctx context.Context, tenantID, leadID string) (*models.Lead, *models.TenantSettings, models.Roster, error) {
	lead, err := s.deps.Leads.Get(ctx, tenantID, leadID)
	if err != nil {
		return nil, nil, models.Roster{}, domain.WithLead(fmt.Errorf("failed to load lead: %w", err), leadID)
	}
	settings, err := s.deps.Tenants.GetSettings(ctx, tenantID)
	if err != nil {
		return nil, nil, models.Roster{}, fmt.Errorf("failed to load tenant settings: %w", err)
	}
	roster, err := s.deps.Roster.Load(ctx, tenantID)
	if err != nil {
		return nil, nil, models.Roster{}, fmt.Errorf("failed to load roster: %w", err)
	}
	return lead, settings, roster, nil
}

func (s *Service) route(
	ctx context.Context,
	lead models.Lead,
	settings *models.TenantSettings,
	roster models.Roster,
	ruleSet []models.AssignmentRule,
	loc *time.Location,
	log logger.Logger,
) (*leadassignment.Decision, error) {
	engine := rules.NewEngine(rules.NewEvaluator(loc))
	req := leadassignment.Request{TenantID: lead.TenantID, Roster: roster}

	if rule, ok := engine.Select(lead.Facts(), ruleSet); ok {
		req.RuleID = rule.ID
		req.Directive = rule.Directive
		s.deps.Metrics.RecordRuleMatch("rule")
	} else if settings.DefaultDirective != nil {
		req.Directive = *settings.DefaultDirective
		s.deps.Metrics.RecordRuleMatch("tenant_default")
		log.Debug("no rule matched, using tenant default directive")
	} else {
		req.Directive = s.deps.Fallback
		s.deps.Metrics.RecordRuleMatch("default")
		log.Debug("no rule matched, using fallback directive")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cancelled before assignment: %w", err)
	}

	decision, err := s.deps.Resolver.Resolve(ctx, req)
	if err != nil {
		outcome := "error"
		if domain.IsNoEligibleAssignee(err) {
			outcome = "no_eligible"
			log.Warn("no eligible assignee", "rule_id", req.RuleID, "directive", string(req.Directive.Type))
		}
		s.deps.Metrics.RecordRouting(string(req.Directive.Type), outcome)
		return nil, err
	}

	return decision, nil
}

// persist writes each draft through tx, falling back once to the generic
// task shape when the full record is rejected. It returns the actions, which
// of them were newly inserted, and how many that is.
func (s *Service) persist(
	ctx context.Context,
	tx domain.Tx,
	drafts []models.FollowUpAction,
	log logger.Logger,
) ([]models.FollowUpAction, []bool, int, error) {
	actions := make([]models.FollowUpAction, 0, len(drafts))
	inserted := make([]bool, 0, len(drafts))
	stored := 0

	for i := range drafts {
		action := drafts[i]
		if err := ctx.Err(); err != nil {
			return nil, nil, 0, fmt.Errorf("cancelled after %d of %d follow-ups: %w", i, len(drafts), err)
		}

		action.Shape = models.ShapePrimary
		ok, err := tx.Save(ctx, action)
		if err != nil {
			structural := s.deps.IsStructural(err)
			s.deps.Metrics.RecordFollowUpWriteError(string(models.ShapePrimary), structural)
			log.Warn("follow-up rejected, storing as generic task",
				"action_type", string(action.ActionType),
				"structural", structural,
				"error", err,
			)

			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, 0, fmt.Errorf("cancelled after %d of %d follow-ups: %w", i, len(drafts), ctxErr)
			}

			action.Shape = models.ShapeDegraded
			action.Status = models.ActionScheduled
			var taskErr error
			ok, taskErr = tx.SaveTask(ctx, action.Degraded())
			if taskErr != nil {
				s.deps.Metrics.RecordFollowUpWriteError(string(models.ShapeDegraded), s.deps.IsStructural(taskErr))
				return nil, nil, 0, domain.NewRepositoryWriteFailedError(
					action.LeadID, string(action.ActionType), errors.Join(err, taskErr))
			}
		}

		if ok {
			stored++
		}
		actions = append(actions, action)
		inserted = append(inserted, ok)
	}
	return actions, inserted, stored, nil
}

func (s *Service) location(settings *models.TenantSettings, log logger.Logger) *time.Location {
	if settings == nil || settings.TimeZone == "" {
		return s.deps.DefaultLocation
	}
	loc, err := time.LoadLocation(settings.TimeZone)
	if err != nil {
		log.Warn("invalid tenant time zone, using default", "time_zone", settings.TimeZone, "error", err)
		return s.deps.DefaultLocation
	}
	return loc
}

func (s *Service) vars(lead models.Lead, assignee *models.Rep, loc *time.Location) map[string]string {
	vars := make(map[string]string, len(s.deps.Vars)+3)
	for k, v := range s.deps.Vars {
		vars[k] = v
	}
	if assignee != nil {
		vars["rep_name"] = assignee.Name
		vars["rep_email"] = assignee.Email
	}
	if lead.AppointmentAt != nil {
		vars["appointment_time"] = lead.AppointmentAt.In(loc).Format("Mon Jan 2 3:04 PM MST")
	}
	return vars
}

func currentAssignee(roster models.Roster, repID string) *models.Rep {
	if rep, ok := roster.Rep(repID); ok {
		return &rep
	}
	return &models.Rep{ID: repID}
}
