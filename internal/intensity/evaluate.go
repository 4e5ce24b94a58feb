package intensity

import (
	"github.com/claude/crimpy/internal/models"
)

// Session is one evaluated session record: its breakdown plus the value objects the
// progression charts and the set tables are built from.
type Session struct {
	Record    *models.SessionRecord
	Breakdown Breakdown
	// ProjectGrade is the grade of the first successful set of the first project
	// exercise, or "" when none was logged.
	ProjectGrade string

	Fingerboard []FingerboardSet
	Campus      []CampusBoardSet
	Pullups     []PullupSet
}

// Total returns the session's summed intensity.
func (s *Session) Total() float64 {
	return s.Breakdown.Total()
}

// fingerboardKeys must all be present for a hang set to be charted.
var fingerboardKeys = []string{"edge", "reps", "timeon", "timeoff", "rest"}

// Evaluate computes the breakdown of rec and builds the value objects of every
// qualifying set. Outdoor records without exercises evaluate to an empty session.
func (m *Model) Evaluate(rec *models.SessionRecord) *Session {
	out := &Session{
		Record:       rec,
		Breakdown:    m.Breakdown(rec),
		ProjectGrade: projectGrade(rec),
	}

	for _, ex := range rec.Exercises {
		if !ex.Counts() {
			continue
		}
		c, ok := ex.Category()
		if !ok {
			continue
		}
		for _, s := range ex.Sets {
			switch c {
			case models.Fingerboard:
				if hasAll(s, fingerboardKeys) {
					out.Fingerboard = append(out.Fingerboard, NewFingerboardSet(rec.Date, s, m.params.Effort))
				}
			case models.Campusboard:
				if s.Has("steps") {
					out.Campus = append(out.Campus, NewCampusBoardSet(rec.Date, s))
				}
			case models.Pullup:
				out.Pullups = append(out.Pullups, NewPullupSet(rec.Date, s))
			}
		}
	}
	return out
}

// projectGrade looks only at the first project exercise, executed or not.
func projectGrade(rec *models.SessionRecord) string {
	for _, ex := range rec.Exercises {
		if c, ok := ex.Category(); !ok || c != models.Project {
			continue
		}
		for _, s := range ex.Sets {
			if s.Success && s.Has("grade") {
				return s.Grade
			}
		}
		return ""
	}
	return ""
}

func hasAll(s models.Set, keys []string) bool {
	for _, k := range keys {
		if !s.Has(k) {
			return false
		}
	}
	return true
}
