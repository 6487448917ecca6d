package followup

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/models"
	"github.com/jordanlanch/leadrouter/pkg/phone"
	"github.com/jordanlanch/leadrouter/pkg/templates"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// actionNamespace seeds the deterministic follow-up ids.
var actionNamespace = uuid.MustParse("8f2b6d1e-4c7a-5e3b-9a10-3d5c7e9f1b24")

// Renderer renders a template for one channel.
type Renderer interface {
	RenderMessage(templateID string, channel models.Channel, vars map[string]string) (templates.Message, error)
}

// Scheduler turns a lead snapshot into follow-up drafts.
type Scheduler struct {
	renderer Renderer
	region   string
	logger   logger.Logger
}

// NewScheduler creates a scheduler. region is the default phone region used
// when a number has no country prefix.
func NewScheduler(renderer Renderer, region string, log logger.Logger) *Scheduler {
	if region == "" {
		region = phone.DefaultRegion
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{renderer: renderer, region: region, logger: log}
}

// Suggest returns the drafts for the lead's stage, ordered by scheduled time
// and then by policy order. Times are computed from now on every call. vars
// adds or overrides template variables (rep name, dealership, ...).
func (s *Scheduler) Suggest(lead models.Lead, now time.Time, vars map[string]string) ([]models.FollowUpAction, error) {
	steps, ok := Policy[lead.Stage]
	if !ok {
		return nil, fmt.Errorf("no follow-up policy for stage %q", lead.Stage)
	}

	contact := s.contact(lead)
	values := Variables(lead, vars)
	if contact.phone != "" {
		if display, err := phone.FormatNational(contact.phone, s.region); err == nil {
			values["phone"] = display
		}
	}

	drafts := make([]models.FollowUpAction, 0, len(steps))
	for _, step := range steps {
		if step.Requires == RequiresPhone && contact.phone == "" {
			continue
		}
		if step.Requires == RequiresNoPhone && contact.phone != "" {
			continue
		}

		at, ok := scheduleAt(step, lead, now)
		if !ok {
			continue
		}

		msg, err := s.renderer.RenderMessage(step.Template, step.Channel, values)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s for lead %s: %w", step.Template, lead.ID, err)
		}

		action := models.FollowUpAction{
			TenantID:    lead.TenantID,
			LeadID:      lead.ID,
			ActionType:  step.Action,
			Status:      models.ActionScheduled,
			ScheduledAt: at,
			Priority:    step.Priority,
			TemplateID:  step.Template,
			Channel:     step.Channel,
			Body:        msg.Body,
			CreatedAt:   now,
		}
		if lead.Priority == models.PriorityUrgent {
			action.Priority = models.PriorityUrgent
		}

		switch step.Channel {
		case models.ChannelEmail:
			action.Target = contact.email
			action.Subject = msg.Subject
			action.Title = msg.Subject
		case models.ChannelSMS:
			action.Target = contact.phone
			action.Title = fmt.Sprintf("Text %s", values["full_name"])
		case models.ChannelPhone:
			action.Target = contact.phone
			action.Title = msg.Subject
		default:
			action.Title = msg.Subject
		}
		if action.Title == "" {
			action.Title = fmt.Sprintf("%s for %s", step.Action, values["full_name"])
		}

		action.IdempotencyKey = models.IdempotencyKey(lead.TenantID, lead.ID, step.Action, at)
		action.ID = uuid.NewSHA1(actionNamespace, []byte(action.IdempotencyKey)).String()
		drafts = append(drafts, action)
	}

	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].ScheduledAt.Before(drafts[j].ScheduledAt)
	})
	return drafts, nil
}

func scheduleAt(step Step, lead models.Lead, now time.Time) (time.Time, bool) {
	switch step.Timing {
	case BeforeAppointment:
		if lead.AppointmentAt == nil {
			return time.Time{}, false
		}
		at := lead.AppointmentAt.Add(-step.Offset)
		if at.Before(now) {
			at = now
		}
		return at, true
	default:
		delay := step.Offset
		if lead.Priority == models.PriorityUrgent {
			delay /= 2
		}
		return now.Add(delay), true
	}
}

type contactInfo struct {
	email string
	phone string
}

func (s *Scheduler) contact(lead models.Lead) contactInfo {
	info := contactInfo{email: strings.TrimSpace(lead.StringAttr("email"))}
	if raw := lead.StringAttr("phone"); raw != "" {
		e164, err := phone.NormalizePhone(raw, s.region)
		if err != nil {
			s.logger.Debug("ignoring invalid phone number", "lead_id", lead.ID, "error", err)
		} else {
			info.phone = e164
		}
	}
	return info
}

var titleCaser = cases.Title(language.Und)

// Variables builds the template variables for a lead: every scalar
// attribute, title-cased names, and full_name. extra wins on conflicts.
func Variables(lead models.Lead, extra map[string]string) map[string]string {
	vars := make(map[string]string, len(lead.Attributes)+len(extra)+2)
	for k, v := range lead.Attributes {
		if s, ok := scalarString(v); ok {
			vars[k] = s
		}
	}
	for _, k := range []string{"first_name", "last_name"} {
		if v, ok := vars[k]; ok {
			vars[k] = titleCaser.String(norm.NFC.String(strings.TrimSpace(v)))
		}
	}
	vars["full_name"] = strings.TrimSpace(vars["first_name"] + " " + vars["last_name"])
	if vars["full_name"] == "" {
		vars["full_name"] = "lead " + lead.ID
	}
	vars["stage"] = string(lead.Stage)
	if lead.AppointmentAt != nil {
		vars["appointment_time"] = lead.AppointmentAt.UTC().Format("Mon Jan 2 15:04 MST")
	}
	for k, v := range extra {
		vars[k] = v
	}
	return vars
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}
