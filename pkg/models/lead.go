package models

import "time"

// Stage is a lead's position in the sales pipeline.
type Stage string

const (
	StageInquiry              Stage = "inquiry"
	StageContacted            Stage = "contacted"
	StageQualified            Stage = "qualified"
	StageAppointmentScheduled Stage = "appointment_scheduled"
	StageTestDriveCompleted   Stage = "test_drive_completed"
	StageNegotiating          Stage = "negotiating"
	StageClosedWon            Stage = "closed_won"
	StageClosedLost           Stage = "closed_lost"
)

// Stages lists every pipeline stage in funnel order.
var Stages = []Stage{
	StageInquiry,
	StageContacted,
	StageQualified,
	StageAppointmentScheduled,
	StageTestDriveCompleted,
	StageNegotiating,
	StageClosedWon,
	StageClosedLost,
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if s == st {
			return true
		}
	}
	return false
}

// Closed reports whether the stage is terminal.
func (s Stage) Closed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// Priority is the urgency of a lead or of a follow-up action.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Lead is a snapshot of a lead record owned by the lead store. The engine
// receives it by value and never holds on to it past one invocation.
type Lead struct {
	ID            string         `json:"id"`
	TenantID      string         `json:"tenant_id"`
	Stage         Stage          `json:"stage"`
	Priority      Priority       `json:"priority"`
	Attributes    map[string]any `json:"attributes"`
	AssigneeID    *string        `json:"assignee_id,omitempty"`
	FollowUpCount int            `json:"follow_up_count"`
	LastFollowUp  *time.Time     `json:"last_follow_up,omitempty"`
	AppointmentAt *time.Time     `json:"appointment_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Facts returns the attribute map seen by rule conditions: the lead's own
// attributes plus its stage, priority and creation time. The built-in keys
// shadow attributes of the same name when set.
func (l Lead) Facts() map[string]any {
	facts := make(map[string]any, len(l.Attributes)+3)
	for k, v := range l.Attributes {
		facts[k] = v
	}
	if l.Stage != "" {
		facts["stage"] = string(l.Stage)
	}
	if l.Priority != "" {
		facts["priority"] = string(l.Priority)
	}
	if !l.CreatedAt.IsZero() {
		facts["created_at"] = l.CreatedAt
	}
	return facts
}

// StringAttr returns a string attribute, or "" when absent or not a string.
func (l Lead) StringAttr(key string) string {
	if v, ok := l.Attributes[key].(string); ok {
		return v
	}
	return ""
}

// LeadEventType is what happened to the lead that triggered orchestration.
type LeadEventType string

const (
	EventCreated      LeadEventType = "created"
	EventStageChanged LeadEventType = "stage_changed"
	EventManual       LeadEventType = "manual"
)

// LeadEvent triggers one orchestrator invocation.
type LeadEvent struct {
	Type     LeadEventType `json:"event" validate:"required,oneof=created stage_changed manual"`
	Reassign bool          `json:"reassign"`
}

// TenantSettings holds the per-tenant knobs the engine needs.
type TenantSettings struct {
	TenantID         string               `json:"tenant_id"`
	TimeZone         string               `json:"time_zone"`
	DefaultDirective *AssignmentDirective `json:"default_directive,omitempty"`
}
