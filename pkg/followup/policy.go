package followup

import (
	"time"

	"github.com/jordanlanch/leadrouter/pkg/models"
)

// Requirement gates a step on the lead's contact details.
type Requirement int

const (
	RequiresNothing Requirement = iota
	RequiresPhone
	RequiresNoPhone
)

// Timing says what a step's offset is measured from.
type Timing int

const (
	// AfterNow schedules Offset after the evaluation instant. Urgent leads
	// get half the offset.
	AfterNow Timing = iota
	// BeforeAppointment schedules Offset before the lead's appointment.
	BeforeAppointment
)

// Step is one row of the stage policy.
type Step struct {
	Action   models.ActionType
	Template string
	Channel  models.Channel
	Offset   time.Duration
	Timing   Timing
	Priority models.Priority
	Requires Requirement
}

// Policy maps each pipeline stage to its follow-up steps.
var Policy = map[models.Stage][]Step{
	models.StageInquiry: {
		{Action: models.ActionSendEmail, Template: "initial_inquiry", Channel: models.ChannelEmail, Offset: 2 * time.Hour, Priority: models.PriorityHigh},
		{Action: models.ActionScheduleCall, Template: "call_script_intro", Channel: models.ChannelPhone, Offset: 4 * time.Hour, Priority: models.PriorityMedium, Requires: RequiresPhone},
	},
	models.StageContacted: {
		{Action: models.ActionSendEmail, Template: "follow_up", Channel: models.ChannelEmail, Offset: 24 * time.Hour, Priority: models.PriorityMedium},
		{Action: models.ActionSendSMS, Template: "follow_up_sms", Channel: models.ChannelSMS, Offset: 48 * time.Hour, Priority: models.PriorityLow, Requires: RequiresPhone},
	},
	models.StageQualified: {
		{Action: models.ActionScheduleAppointment, Template: "appointment_invite", Channel: models.ChannelTask, Offset: 24 * time.Hour, Priority: models.PriorityHigh},
		{Action: models.ActionCreateTask, Template: "prepare_proposal", Channel: models.ChannelTask, Offset: 48 * time.Hour, Priority: models.PriorityMedium},
	},
	models.StageAppointmentScheduled: {
		{Action: models.ActionSendSMS, Template: "appointment_reminder", Channel: models.ChannelSMS, Offset: 2 * time.Hour, Timing: BeforeAppointment, Priority: models.PriorityHigh, Requires: RequiresPhone},
		{Action: models.ActionSendEmail, Template: "appointment_reminder", Channel: models.ChannelEmail, Offset: 2 * time.Hour, Timing: BeforeAppointment, Priority: models.PriorityHigh, Requires: RequiresNoPhone},
	},
	models.StageTestDriveCompleted: {
		{Action: models.ActionSendEmail, Template: "test_drive_thank_you", Channel: models.ChannelEmail, Offset: 2 * time.Hour, Priority: models.PriorityHigh},
		{Action: models.ActionScheduleCall, Template: "call_script_test_drive", Channel: models.ChannelPhone, Offset: 24 * time.Hour, Priority: models.PriorityHigh, Requires: RequiresPhone},
	},
	models.StageNegotiating: {
		{Action: models.ActionScheduleCall, Template: "call_script_offer", Channel: models.ChannelPhone, Offset: 4 * time.Hour, Priority: models.PriorityUrgent, Requires: RequiresPhone},
		{Action: models.ActionCreateTask, Template: "review_offer", Channel: models.ChannelTask, Offset: 48 * time.Hour, Priority: models.PriorityMedium},
	},
	models.StageClosedWon: {
		{Action: models.ActionSendEmail, Template: "thank_you", Channel: models.ChannelEmail, Offset: 24 * time.Hour, Priority: models.PriorityLow},
	},
	models.StageClosedLost: {
		{Action: models.ActionSendEmail, Template: "win_back", Channel: models.ChannelEmail, Offset: 30 * 24 * time.Hour, Priority: models.PriorityLow},
	},
}
