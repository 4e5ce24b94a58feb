package models

import (
	"encoding/json"
	"testing"
)

const sampleSession = `{
	"date": "14-03-2025",
	"exercises": [
		{
			"type": "fingerboard",
			"executed": true,
			"order": 1,
			"sets": [
				{"edge": "20mm", "reps": 6, "timeon": "7s", "timeoff": "3s", "rest": "3m"},
				{"edge": 18, "reps": "5", "timeon": "7s"}
			]
		},
		{
			"type": "pullup",
			"executed": true,
			"order": 2,
			"sets": [
				{"repetitions": 5, "weight_lb": 10, "timeoff": "60s"},
				"not a set"
			]
		},
		{"type": "campus board", "executed": false, "order": 0, "sets": "broken"},
		42
	]
}`

// TestSessionLenientDecode verifies that malformed sub-fields degrade to defaults
// instead of failing the whole record.
func TestSessionLenientDecode(t *testing.T) {
	var rec SessionRecord
	if err := json.Unmarshal([]byte(sampleSession), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if rec.RawDate != "14-03-2025" {
		t.Errorf("RawDate = %q", rec.RawDate)
	}
	if !rec.HasExercises {
		t.Error("HasExercises = false, want true")
	}
	if rec.Outdoor {
		t.Error("Outdoor = true, want false")
	}
	if len(rec.Exercises) != 4 {
		t.Fatalf("exercises = %d, want 4", len(rec.Exercises))
	}

	fb := rec.Exercises[0]
	if !fb.Counts() {
		t.Error("fingerboard exercise should count")
	}
	if len(fb.Sets) != 2 {
		t.Fatalf("fingerboard sets = %d, want 2", len(fb.Sets))
	}
	if fb.Sets[1].Edge != "18" {
		t.Errorf("numeric edge = %q, want %q", fb.Sets[1].Edge, "18")
	}
	if fb.Sets[1].Reps != 5 {
		t.Errorf("string reps = %d, want 5", fb.Sets[1].Reps)
	}
	if !fb.Sets[0].Has("rest") || fb.Sets[1].Has("rest") {
		t.Error("Has(rest) does not reflect key presence")
	}

	pu := rec.Exercises[1]
	if pu.Sets[0].WeightKg != nil {
		t.Error("WeightKg should be absent")
	}
	if pu.Sets[0].WeightLb == nil || *pu.Sets[0].WeightLb != 10 {
		t.Errorf("WeightLb = %v, want 10", pu.Sets[0].WeightLb)
	}
	if pu.Sets[1].Has("repetitions") {
		t.Error("non-object set should decode empty")
	}

	cb := rec.Exercises[2]
	if cb.Counts() {
		t.Error("unexecuted exercise should not count")
	}
	if len(cb.Sets) != 0 {
		t.Errorf("broken sets = %d, want 0", len(cb.Sets))
	}

	if rec.Exercises[3].Type != "" {
		t.Error("non-object exercise should decode empty")
	}
}

// TestSetOutOfRangeNumbers verifies that counts outside the int range and non-finite
// numeric strings decode to the neutral 0.
func TestSetOutOfRangeNumbers(t *testing.T) {
	tests := []struct {
		raw  string
		want Set
	}{
		{`{"reps": 1e19}`, Set{Reps: 0}},
		{`{"attempts": -1e19}`, Set{Attempts: 0}},
		{`{"repetitions": "9.3e18"}`, Set{Repetitions: 0}},
		{`{"reps": "NaN", "attempts": "-Inf"}`, Set{}},
		{`{"reps": 12.7, "attempts": "3"}`, Set{Reps: 12, Attempts: 3}},
	}
	for _, tt := range tests {
		var s Set
		if err := json.Unmarshal([]byte(tt.raw), &s); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.raw, err)
		}
		if s.Reps != tt.want.Reps || s.Attempts != tt.want.Attempts || s.Repetitions != tt.want.Repetitions {
			t.Errorf("%s: reps=%d attempts=%d repetitions=%d, want %d/%d/%d", tt.raw,
				s.Reps, s.Attempts, s.Repetitions, tt.want.Reps, tt.want.Attempts, tt.want.Repetitions)
		}
	}

	var s Set
	if err := json.Unmarshal([]byte(`{"weight_kg": "Inf"}`), &s); err != nil {
		t.Fatal(err)
	}
	if s.WeightKg == nil || *s.WeightKg != 0 {
		t.Errorf("weight_kg Inf = %v, want 0", s.WeightKg)
	}
}

// TestSessionOutdoor verifies that the climbs key marks an outdoor record.
func TestSessionOutdoor(t *testing.T) {
	var rec SessionRecord
	raw := `{"date": "01-05-2025", "name": "Fontainebleau", "climbs": [{"name": "x"}]}`
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !rec.Outdoor || rec.HasExercises {
		t.Errorf("Outdoor = %v, HasExercises = %v", rec.Outdoor, rec.HasExercises)
	}
	if rec.Name != "Fontainebleau" {
		t.Errorf("Name = %q", rec.Name)
	}
}

// TestSessionMalformed verifies that only structural JSON failures are errors.
func TestSessionMalformed(t *testing.T) {
	for _, raw := range []string{`{"date": `, `[1, 2]`, `"text"`} {
		var rec SessionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err == nil {
			t.Errorf("Unmarshal(%q) succeeded, want error", raw)
		}
	}
}

// TestSessionIDStable verifies that the same source file always maps to the same ID.
func TestSessionIDStable(t *testing.T) {
	a := SessionID("2025-03-14.json")
	b := SessionID("2025-03-14.json")
	c := SessionID("2025-03-15.json")
	if a != b {
		t.Errorf("SessionID not stable: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different files share a SessionID")
	}
}
