package rules

import (
	"strconv"
	"strings"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/models"
)

// DefaultHoursField is the fact checked by outside_hours when the condition
// leaves Field empty.
const DefaultHoursField = "created_at"

// Evaluator checks single conditions against a lead's facts. It never
// errors: malformed rule data, unknown operators and missing attributes all
// evaluate to false so routing stays available.
type Evaluator struct {
	loc *time.Location
}

// NewEvaluator creates an evaluator that reads clock times in loc, the
// tenant's configured time zone. A nil loc means UTC.
func NewEvaluator(loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &Evaluator{loc: loc}
}

// Location returns the time zone used by outside_hours.
func (e *Evaluator) Location() *time.Location {
	return e.loc
}

// Matches reports whether facts satisfy c.
func (e *Evaluator) Matches(c models.Condition, facts map[string]any) bool {
	field := c.Field
	if field == "" && c.Operator == models.OpOutsideHours {
		field = DefaultHoursField
	}

	raw, ok := facts[field]
	if !ok {
		return false
	}
	attr, ok := ValueOf(raw)
	if !ok {
		return false
	}

	switch c.Operator {
	case models.OpEquals:
		return attr.Equal(ParseValue(c.Value))
	case models.OpGreaterThan, models.OpLessThan:
		a, ok := attr.Number()
		if !ok {
			return false
		}
		b, ok := ParseValue(c.Value).Number()
		if !ok {
			return false
		}
		if c.Operator == models.OpGreaterThan {
			return a > b
		}
		return a < b
	case models.OpIn:
		for _, part := range strings.Split(c.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if attr.Equal(ParseValue(part)) {
				return true
			}
		}
		return false
	case models.OpBetween:
		a, ok := attr.Number()
		if !ok {
			return false
		}
		lo, hi, ok := parseRange(c.Value)
		if !ok {
			return false
		}
		return lo <= a && a <= hi
	case models.OpOutsideHours:
		t, ok := attr.Timestamp()
		if !ok {
			return false
		}
		start, end, ok := parseWindow(c.Value)
		if !ok {
			return false
		}
		local := t.In(e.loc)
		minute := local.Hour()*60 + local.Minute()
		return !inWindow(minute, start, end)
	}
	return false
}

// parseRange parses "lo-hi" with optional negative bounds, e.g. "10-20",
// "-5-5", "-10--2". lo must not exceed hi.
func parseRange(s string) (float64, float64, bool) {
	s = strings.TrimSpace(s)
	for i := 1; i < len(s); i++ {
		if s[i] != '-' {
			continue
		}
		lo, err := strconv.ParseFloat(strings.TrimSpace(s[:i]), 64)
		if err != nil {
			continue
		}
		hi, err := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 64)
		if err != nil {
			continue
		}
		if lo > hi {
			return 0, 0, false
		}
		return lo, hi, true
	}
	return 0, 0, false
}

// parseWindow parses "start-end" business hours into minutes of the day.
// Bounds are H, HH or HH:MM; 24 is accepted as an end of day.
func parseWindow(s string) (int, int, bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, ok := parseClock(parts[0])
	if !ok {
		return 0, 0, false
	}
	end, ok := parseClock(parts[1])
	if !ok || start == end {
		return 0, 0, false
	}
	return start, end, true
}

func parseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	hourPart, minutePart, hasMinutes := strings.Cut(s, ":")
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 24 {
		return 0, false
	}
	minute := 0
	if hasMinutes {
		minute, err = strconv.Atoi(minutePart)
		if err != nil || minute < 0 || minute > 59 {
			return 0, false
		}
	}
	total := hour*60 + minute
	if total > 24*60 {
		return 0, false
	}
	return total, true
}

// inWindow treats start > end as a window that wraps past midnight.
func inWindow(minute, start, end int) bool {
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}
