package intensity

import "testing"

// TestEvaluateCollectsValueObjects verifies which sets become chart value objects and
// that the project grade label is picked up.
func TestEvaluateCollectsValueObjects(t *testing.T) {
	m := New(DefaultParams(), nil)
	rec := decode(t, fullDay)

	s := m.Evaluate(rec)
	if s.Breakdown != m.Breakdown(rec) {
		t.Errorf("Breakdown = %+v, want %+v", s.Breakdown, m.Breakdown(rec))
	}
	if len(s.Fingerboard) != 2 {
		t.Errorf("fingerboard sets = %d, want 2", len(s.Fingerboard))
	}
	// The empty-steps set still carries the key and is charted with zero moves.
	if len(s.Campus) != 2 {
		t.Errorf("campus sets = %d, want 2", len(s.Campus))
	}
	if len(s.Pullups) != 1 {
		t.Errorf("pullup sets = %d, want 1", len(s.Pullups))
	}
	if s.ProjectGrade != "7a" {
		t.Errorf("ProjectGrade = %q, want 7a", s.ProjectGrade)
	}
}

// TestEvaluateFingerboardNeedsAllKeys verifies that partial hang sets are scored by the
// model but left out of the effort chart.
func TestEvaluateFingerboardNeedsAllKeys(t *testing.T) {
	m := New(DefaultParams(), nil)
	rec := record(t, "fingerboard", true, 1, `[{"edge": "20mm", "reps": 6, "timeon": "7s"}]`)

	s := m.Evaluate(rec)
	if len(s.Fingerboard) != 0 {
		t.Errorf("fingerboard sets = %d, want 0", len(s.Fingerboard))
	}
	if s.Breakdown.Fingerboard <= 0 {
		t.Errorf("Fingerboard intensity = %v, want > 0", s.Breakdown.Fingerboard)
	}
}

// TestProjectGradeFirstExerciseOnly verifies that only the first project exercise is
// searched for a successful grade.
func TestProjectGradeFirstExerciseOnly(t *testing.T) {
	rec := decode(t, `{"date": "01-01-2025", "exercises": [
		{"type": "project", "executed": true, "order": 1, "sets": [
			{"attempts": 2, "success": false, "grade": "7b"}
		]},
		{"type": "project", "executed": true, "order": 2, "sets": [
			{"attempts": 1, "success": true, "grade": "7a"}
		]}
	]}`)
	if got := New(DefaultParams(), nil).Evaluate(rec).ProjectGrade; got != "" {
		t.Errorf("ProjectGrade = %q, want empty", got)
	}
}
