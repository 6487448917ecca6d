package models

import (
	"fmt"
	"time"
)

// ActionType is the kind of follow-up the scheduler can suggest.
type ActionType string

const (
	ActionScheduleCall        ActionType = "schedule_call"
	ActionSendEmail           ActionType = "send_email"
	ActionSendSMS             ActionType = "send_sms"
	ActionScheduleAppointment ActionType = "schedule_appointment"
	ActionCreateTask          ActionType = "create_task"
)

// ActionStatus tracks delivery of a follow-up by the external transport.
type ActionStatus string

const (
	ActionScheduled ActionStatus = "scheduled"
	ActionSent      ActionStatus = "sent"
	ActionFailed    ActionStatus = "failed"
)

// Channel is where a follow-up is delivered.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPhone Channel = "phone"
	ChannelTask  Channel = "task"
)

// RecordShape identifies which persisted variant holds a follow-up.
type RecordShape string

const (
	ShapePrimary  RecordShape = "primary"
	ShapeDegraded RecordShape = "degraded"
)

// FollowUpAction is a scheduled follow-up. Drafts produced by the scheduler
// only become real once the follow-up repository accepts them.
type FollowUpAction struct {
	ID             string       `json:"id"`
	TenantID       string       `json:"tenant_id"`
	LeadID         string       `json:"lead_id"`
	ActionType     ActionType   `json:"action_type"`
	Status         ActionStatus `json:"status"`
	ScheduledAt    time.Time    `json:"scheduled_at"`
	Priority       Priority     `json:"priority"`
	TemplateID     string       `json:"template_id,omitempty"`
	Channel        Channel      `json:"channel"`
	Target         string       `json:"target,omitempty"`
	Title          string       `json:"title"`
	Subject        string       `json:"subject,omitempty"`
	Body           string       `json:"body,omitempty"`
	Shape          RecordShape  `json:"shape,omitempty"`
	IdempotencyKey string       `json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
}

// IdempotencyKey keys a follow-up on lead, action type and scheduled minute so
// a retried event cannot store the same action twice.
func IdempotencyKey(tenantID, leadID string, actionType ActionType, scheduledAt time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d", tenantID, leadID, actionType, scheduledAt.UTC().Truncate(time.Minute).Unix())
}

// GenericTask is the minimal record shape accepted by the fallback write path:
// title, description, due date and priority.
type GenericTask struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	LeadID         string    `json:"lead_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	DueAt          time.Time `json:"due_at"`
	Priority       Priority  `json:"priority"`
	IdempotencyKey string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Degraded converts the action into its generic task variant. Channel details
// that the narrow shape cannot hold are folded into the description.
func (a FollowUpAction) Degraded() GenericTask {
	desc := a.Body
	if a.Subject != "" {
		desc = a.Subject + "\n\n" + desc
	}
	if a.Target != "" {
		desc = fmt.Sprintf("[%s %s] %s", a.Channel, a.Target, desc)
	} else {
		desc = fmt.Sprintf("[%s] %s", a.ActionType, desc)
	}
	return GenericTask{
		ID:             a.ID,
		TenantID:       a.TenantID,
		LeadID:         a.LeadID,
		Title:          a.Title,
		Description:    desc,
		DueAt:          a.ScheduledAt,
		Priority:       a.Priority,
		IdempotencyKey: a.IdempotencyKey,
		CreatedAt:      a.CreatedAt,
	}
}
