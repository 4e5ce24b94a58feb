package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar date format used in session files ("DD-MM-YYYY").
const DateLayout = "02-01-2006"

// SessionRecord is one day's logged workout, decoded from one session file.
type SessionRecord struct {
	Date       time.Time
	RawDate    string
	Name       string
	SourceFile string

	// HasExercises is true when the file carries an "exercises" key.
	HasExercises bool
	// Outdoor is true when the file carries a "climbs" key.
	Outdoor   bool
	Exercises []Exercise
}

// Exercise is a single logged exercise block within a session.
type Exercise struct {
	Type     string
	Executed bool
	Order    int
	Sets     []Set
}

// Counts reports whether the exercise contributes to any derived metric.
// Placeholders (order 0) and skipped exercises never do.
func (e Exercise) Counts() bool {
	return e.Executed && e.Order != 0
}

// Category maps the exercise type tag to an intensity category.
func (e Exercise) Category() (Category, bool) {
	return CategoryOf(e.Type)
}

// Set holds the category-specific fields of one logged set. Every field is optional;
// missing or malformed values decode to their zero value.
type Set struct {
	// fingerboard / campus board
	Edge    string
	Reps    int
	TimeOn  string
	TimeOff string
	Rest    string
	Steps   string
	Sides   string

	// pullup
	Repetitions int
	WeightKg    *float64
	WeightLb    *float64

	// project
	Attempts int
	Success  bool
	Grade    string

	keys map[string]struct{}
}

// Has reports whether key was present in the logged set.
func (s Set) Has(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// SessionID returns a stable identifier for a session file, so re-imports of the
// same file replace earlier rows.
func SessionID(sourceFile string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("crimpy:session:"+sourceFile))
}

// UnmarshalJSON decodes a session leniently. Only a syntactically invalid document or
// a non-object top level is an error; the date is kept raw for the loader to parse.
func (r *SessionRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = SessionRecord{
		RawDate: rawString(fields["date"]),
		Name:    rawString(fields["name"]),
	}
	_, r.HasExercises = fields["exercises"]
	_, r.Outdoor = fields["climbs"]

	var exercises []json.RawMessage
	if err := json.Unmarshal(fields["exercises"], &exercises); err != nil {
		return nil
	}
	for _, ex := range exercises {
		var e Exercise
		_ = json.Unmarshal(ex, &e)
		r.Exercises = append(r.Exercises, e)
	}
	return nil
}

// UnmarshalJSON decodes an exercise leniently; a non-object value becomes an empty exercise.
func (e *Exercise) UnmarshalJSON(data []byte) error {
	*e = Exercise{}
	fields, ok := objectFields(data)
	if !ok {
		return nil
	}
	e.Type = rawString(fields["type"])
	e.Executed = rawBool(fields["executed"])
	e.Order = rawInt(fields["order"])

	var sets []json.RawMessage
	if err := json.Unmarshal(fields["sets"], &sets); err != nil {
		return nil
	}
	for _, s := range sets {
		var set Set
		_ = json.Unmarshal(s, &set)
		e.Sets = append(e.Sets, set)
	}
	return nil
}

// UnmarshalJSON decodes a set leniently; a non-object value becomes an empty set.
func (s *Set) UnmarshalJSON(data []byte) error {
	*s = Set{}
	fields, ok := objectFields(data)
	if !ok {
		return nil
	}
	s.keys = make(map[string]struct{}, len(fields))
	for k := range fields {
		s.keys[k] = struct{}{}
	}

	s.Edge = rawString(fields["edge"])
	s.Reps = rawInt(fields["reps"])
	s.TimeOn = rawString(fields["timeon"])
	s.TimeOff = rawString(fields["timeoff"])
	s.Rest = rawString(fields["rest"])
	s.Steps = rawString(fields["steps"])
	s.Sides = rawString(fields["sides"])
	s.Repetitions = rawInt(fields["repetitions"])
	if _, ok := fields["weight_kg"]; ok {
		w := rawFloat(fields["weight_kg"])
		s.WeightKg = &w
	}
	if _, ok := fields["weight_lb"]; ok {
		w := rawFloat(fields["weight_lb"])
		s.WeightLb = &w
	}
	s.Attempts = rawInt(fields["attempts"])
	s.Success = rawBool(fields["success"])
	s.Grade = rawString(fields["grade"])
	return nil
}

func objectFields(data []byte) (map[string]json.RawMessage, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// rawString reads a JSON string; bare numbers are kept in their literal form ("20").
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// rawFloat reads a JSON number or numeric string, defaulting to 0. "NaN" and "Inf"
// strings decode to 0.
func rawFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return 0
}

// rawInt truncates rawFloat; values outside the int range decode to 0.
func rawInt(raw json.RawMessage) int {
	f := rawFloat(raw)
	if f >= math.MaxInt || f < math.MinInt {
		return 0
	}
	return int(f)
}

// rawBool reads a JSON bool; "true"/"yes" strings are accepted as well.
func rawBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes":
			return true
		}
	}
	return false
}
