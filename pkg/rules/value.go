package rules

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags which member of Value is set.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindTime
)

// Value is a condition operand resolved once from either a lead attribute or
// a raw rule value. Comparisons switch on Kind instead of coercing implicitly.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseValue classifies a raw string: numbers, booleans and timestamps get
// their own kind, anything else stays a string. The original text is kept.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return Value{Kind: KindNumber, Num: n, Str: s}
	}
	if strings.EqualFold(s, "true") || strings.EqualFold(s, "false") {
		return Value{Kind: KindBool, Bool: strings.EqualFold(s, "true"), Str: s}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Value{Kind: KindTime, Time: t, Str: s}
		}
	}
	return Value{Kind: KindString, Str: s}
}

// ValueOf converts a scalar attribute. Non-scalar values (maps, slices) and
// nil are rejected.
func ValueOf(v any) (Value, bool) {
	switch x := v.(type) {
	case nil:
		return Value{}, false
	case string:
		return ParseValue(x), true
	case bool:
		return Value{Kind: KindBool, Bool: x}, true
	case time.Time:
		return Value{Kind: KindTime, Time: x}, true
	case *time.Time:
		if x == nil {
			return Value{}, false
		}
		return Value{Kind: KindTime, Time: *x}, true
	case json.Number:
		return ParseValue(x.String()), true
	case float64:
		return number(x)
	case float32:
		return number(float64(x))
	case int:
		return number(float64(x))
	case int8:
		return number(float64(x))
	case int16:
		return number(float64(x))
	case int32:
		return number(float64(x))
	case int64:
		return number(float64(x))
	case uint:
		return number(float64(x))
	case uint8:
		return number(float64(x))
	case uint16:
		return number(float64(x))
	case uint32:
		return number(float64(x))
	case uint64:
		return number(float64(x))
	}
	return Value{}, false
}

func number(n float64) (Value, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Value{}, false
	}
	return Value{Kind: KindNumber, Num: n}, true
}

// Number returns the numeric member.
func (v Value) Number() (float64, bool) {
	return v.Num, v.Kind == KindNumber
}

// Timestamp returns the time member.
func (v Value) Timestamp() (time.Time, bool) {
	return v.Time, v.Kind == KindTime
}

func (v Value) String() string {
	if v.Str != "" {
		return v.Str
	}
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindTime:
		return v.Time.Format(time.RFC3339)
	}
	return ""
}

// Equal compares same-kind values natively and falls back to exact string
// comparison across kinds.
func (v Value) Equal(o Value) bool {
	if v.Kind == o.Kind {
		switch v.Kind {
		case KindNumber:
			return v.Num == o.Num
		case KindBool:
			return v.Bool == o.Bool
		case KindTime:
			return v.Time.Equal(o.Time)
		}
	}
	return v.String() == o.String()
}
