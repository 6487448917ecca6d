package rules

import (
	"sort"

	"github.com/jordanlanch/leadrouter/pkg/models"
)

// Engine selects the assignment rule that owns a lead: conditions are AND-ed
// within a rule, rules are OR-ed by priority, first match wins.
type Engine struct {
	eval *Evaluator
}

// NewEngine creates a rule engine on top of an evaluator.
func NewEngine(eval *Evaluator) *Engine {
	if eval == nil {
		eval = NewEvaluator(nil)
	}
	return &Engine{eval: eval}
}

// Select returns the first active rule, in (priority, creation order), whose
// conditions all hold for facts. It has no side effects.
func (en *Engine) Select(facts map[string]any, rules []models.AssignmentRule) (*models.AssignmentRule, bool) {
	for _, rule := range Ordered(rules) {
		if en.Matches(rule, facts) {
			r := rule
			return &r, true
		}
	}
	return nil, false
}

// Matches reports whether every condition of rule holds. A rule without
// conditions matches every lead.
func (en *Engine) Matches(rule models.AssignmentRule, facts map[string]any) bool {
	for _, c := range rule.Conditions {
		if !en.eval.Matches(c, facts) {
			return false
		}
	}
	return true
}

// Ordered returns the active rules sorted by priority ascending, then by
// creation time. Exact ties keep their input order.
func Ordered(rules []models.AssignmentRule) []models.AssignmentRule {
	active := make([]models.AssignmentRule, 0, len(rules))
	for _, r := range rules {
		if r.Status == models.RuleActive {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority < active[j].Priority
		}
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active
}
