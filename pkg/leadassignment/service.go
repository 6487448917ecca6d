package leadassignment

import (
	"context"
	"fmt"
	"sort"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// CursorStore hands out round-robin tickets. Next must increment and return
// the counter for key atomically; the first call for a key returns 1.
type CursorStore interface {
	Next(ctx context.Context, key string) (int64, error)
}

// Service resolves an assignment directive to a concrete rep.
type Service struct {
	cursors CursorStore
	logger  logger.Logger
}

// NewService creates a new lead assignment service.
func NewService(cursors CursorStore, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{cursors: cursors, logger: log}
}

// Request is one resolution: the directive of the matched rule (or the
// fallback directive, with an empty RuleID) and the roster snapshot.
type Request struct {
	TenantID  string
	RuleID    string
	Directive models.AssignmentDirective
	Roster    models.Roster
}

// Decision is the chosen rep as it stood in the roster snapshot. The caller
// records the load increment together with the assignee write.
type Decision struct {
	Rep          models.Rep           `json:"rep"`
	Strategy     models.DirectiveType `json:"strategy"`
	RuleID       string               `json:"rule_id,omitempty"`
	OverCapacity bool                 `json:"over_capacity"`
	Reason       string               `json:"reason"`
}

// Resolve picks an assignee. It does not touch rep loads; only a
// round-robin directive advances its cursor. Capacity is advisory: when every
// eligible rep is full the least loaded one still gets the lead. Nothing is
// advanced when nobody is eligible.
func (s *Service) Resolve(ctx context.Context, req Request) (*Decision, error) {
	var (
		rep    models.Rep
		ok     bool
		reason string
		err    error
	)

	switch req.Directive.Type {
	case models.DirectiveUser:
		rep, ok = leastLoaded(lookup(req.Roster, req.Directive.Candidates))
		reason = "least loaded listed rep"
	case models.DirectiveTeam:
		members := req.Roster.Teams[req.Directive.TeamID]
		rep, ok = leastLoaded(lookup(req.Roster, members))
		reason = fmt.Sprintf("least loaded member of team %s", req.Directive.TeamID)
	case models.DirectiveLoadBalance:
		rep, ok = leastLoaded(req.Roster.Reps)
		reason = "least loaded rep in roster"
	case models.DirectiveRoundRobin:
		rep, ok, err = s.roundRobin(ctx, req)
		if err != nil {
			return nil, err
		}
		reason = "round-robin"
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unknown directive type %q", req.Directive.Type))
	}

	if !ok {
		return nil, domain.NewNoEligibleAssigneeError(string(req.Directive.Type), req.RuleID)
	}

	decision := &Decision{
		Strategy:     req.Directive.Type,
		RuleID:       req.RuleID,
		OverCapacity: rep.AtCapacity(),
		Reason:       fmt.Sprintf("%s (rep had %d/%d leads)", reason, rep.CurrentLoad, rep.MaxCapacity),
	}
	if decision.OverCapacity {
		s.logger.Warn("assigning rep at or above capacity",
			"tenant_id", req.TenantID,
			"rule_id", req.RuleID,
			"rep_id", rep.ID,
			"current_load", rep.CurrentLoad,
			"max_capacity", rep.MaxCapacity,
		)
	}

	decision.Rep = rep
	return decision, nil
}

// roundRobin draws tickets until one lands on an active candidate. Ticket t
// maps to candidate (t-1) mod n, so n sequential draws over n active reps
// visit each exactly once.
func (s *Service) roundRobin(ctx context.Context, req Request) (models.Rep, bool, error) {
	ids := req.Directive.Candidates
	if len(ids) == 0 {
		ids = make([]string, 0, len(req.Roster.Reps))
		for _, r := range req.Roster.Reps {
			ids = append(ids, r.ID)
		}
		sort.Strings(ids)
	}

	if len(active(lookup(req.Roster, ids))) == 0 {
		return models.Rep{}, false, nil
	}

	key := CursorKey(req.TenantID, req.RuleID)
	n := int64(len(ids))
	var last int64
	// Concurrent callers may take the tickets in between ours, so allow two
	// laps before giving up on the cursor.
	for attempt := int64(0); attempt < 2*n; attempt++ {
		ticket, err := s.cursors.Next(ctx, key)
		if err != nil {
			return models.Rep{}, false, fmt.Errorf("failed to advance round-robin cursor %s: %w", key, err)
		}
		last = ((ticket-1)%n + n) % n
		if rep, ok := req.Roster.Rep(ids[last]); ok && rep.Active {
			return rep, true, nil
		}
	}

	for i := int64(1); i <= n; i++ {
		if rep, ok := req.Roster.Rep(ids[(last+i)%n]); ok && rep.Active {
			return rep, true, nil
		}
	}
	return models.Rep{}, false, nil
}

// CursorKey scopes a round-robin cursor to a tenant and rule. The fallback
// directive uses the "default" rule slot.
func CursorKey(tenantID, ruleID string) string {
	if ruleID == "" {
		ruleID = "default"
	}
	return tenantID + ":" + ruleID
}

func lookup(roster models.Roster, ids []string) []models.Rep {
	reps := make([]models.Rep, 0, len(ids))
	for _, id := range ids {
		if rep, ok := roster.Rep(id); ok {
			reps = append(reps, rep)
		}
	}
	return reps
}

func active(reps []models.Rep) []models.Rep {
	out := make([]models.Rep, 0, len(reps))
	for _, r := range reps {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

// leastLoaded returns the active rep with the lowest load/capacity ratio,
// ties broken by rep id. Reps without a positive capacity rank last.
func leastLoaded(reps []models.Rep) (models.Rep, bool) {
	candidates := active(reps)
	if len(candidates) == 0 {
		return models.Rep{}, false
	}
	best := candidates[0]
	for _, r := range candidates[1:] {
		if lessLoaded(r, best) {
			best = r
		}
	}
	return best, true
}

func lessLoaded(a, b models.Rep) bool {
	aCap, bCap := a.MaxCapacity > 0, b.MaxCapacity > 0
	if aCap != bCap {
		return aCap
	}
	if aCap {
		// a.load/a.cap < b.load/b.cap without floating point
		lhs := int64(a.CurrentLoad) * int64(b.MaxCapacity)
		rhs := int64(b.CurrentLoad) * int64(a.MaxCapacity)
		if lhs != rhs {
			return lhs < rhs
		}
	} else if a.CurrentLoad != b.CurrentLoad {
		return a.CurrentLoad < b.CurrentLoad
	}
	return a.ID < b.ID
}
