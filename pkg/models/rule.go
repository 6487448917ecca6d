package models

import "time"

// Operator is a condition comparison.
type Operator string

const (
	OpEquals       Operator = "equals"
	OpGreaterThan  Operator = "greater_than"
	OpLessThan     Operator = "less_than"
	OpIn           Operator = "in"
	OpBetween      Operator = "between"
	OpOutsideHours Operator = "outside_hours"
)

// RuleStatus tells whether a rule takes part in routing.
type RuleStatus string

const (
	RuleActive   RuleStatus = "active"
	RuleInactive RuleStatus = "inactive"
)

// DirectiveType selects how the assignee is picked once a rule matches.
type DirectiveType string

const (
	DirectiveUser        DirectiveType = "user"
	DirectiveTeam        DirectiveType = "team"
	DirectiveRoundRobin  DirectiveType = "round_robin"
	DirectiveLoadBalance DirectiveType = "load_balance"
)

// Condition is a single predicate over a lead attribute. Value is the raw
// string entered in the rule editor, e.g. "50000", "CA,NV,AZ", "10-20", "9-17".
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// AssignmentDirective is the assignment type and target attached to a rule.
type AssignmentDirective struct {
	Type       DirectiveType `json:"type" validate:"required,oneof=user team round_robin load_balance"`
	Candidates []string      `json:"candidates,omitempty"`
	TeamID     string        `json:"team_id,omitempty"`
}

// DefaultDirective is used when no rule matches and the tenant did not
// configure its own fallback: round-robin over every active rep.
func DefaultDirective() AssignmentDirective {
	return AssignmentDirective{Type: DirectiveRoundRobin}
}

// AssignmentRule routes matching leads. Conditions are AND-ed; rules are
// tried in (Priority, CreatedAt) order and the first match wins.
type AssignmentRule struct {
	ID         string              `json:"id"`
	TenantID   string              `json:"tenant_id"`
	Name       string              `json:"name"`
	Priority   int                 `json:"priority"`
	Status     RuleStatus          `json:"status"`
	Conditions []Condition         `json:"conditions"`
	Directive  AssignmentDirective `json:"directive"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Rep is a sales representative with advisory capacity.
type Rep struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Active      bool   `json:"active"`
	CurrentLoad int    `json:"current_load"`
	MaxCapacity int    `json:"max_capacity"`
}

// AtCapacity reports whether the rep has reached its advisory limit.
func (r Rep) AtCapacity() bool {
	return r.MaxCapacity > 0 && r.CurrentLoad >= r.MaxCapacity
}

// Roster is a read-only snapshot of a tenant's reps and team memberships.
type Roster struct {
	Reps  []Rep               `json:"reps"`
	Teams map[string][]string `json:"teams,omitempty"`
}

// Rep looks up a rep by id.
func (r Roster) Rep(id string) (Rep, bool) {
	for _, rep := range r.Reps {
		if rep.ID == id {
			return rep, true
		}
	}
	return Rep{}, false
}
