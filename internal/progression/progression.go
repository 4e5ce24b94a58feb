// Package progression aggregates evaluated sessions into the series the charts plot:
// the intensity timeline and the per-exercise progressions.
package progression

import (
	"sort"
	"time"

	"github.com/claude/crimpy/internal/intensity"
	"github.com/claude/crimpy/internal/models"
)

// SessionPoint is the part of a session the timeline needs. It can come from a freshly
// evaluated file or from a stored session row.
type SessionPoint struct {
	Date         time.Time
	Name         string
	Workout      bool
	Outdoor      bool
	ProjectGrade string
	Breakdown    intensity.Breakdown
}

// PointOf extracts the timeline view of an evaluated session.
func PointOf(s *intensity.Session) SessionPoint {
	return SessionPoint{
		Date:         s.Record.Date,
		Name:         s.Record.Name,
		Workout:      s.Record.HasExercises,
		Outdoor:      s.Record.Outdoor,
		ProjectGrade: s.ProjectGrade,
		Breakdown:    s.Breakdown,
	}
}

// TimelineEntry is one workout on the intensity timeline.
type TimelineEntry struct {
	Date      string              `json:"date"`
	Day       int                 `json:"day"`
	Breakdown intensity.Breakdown `json:"breakdown"`
	Total     float64             `json:"total"`
	// ProjectGrade labels the project bar; set only when the project bar is visible.
	ProjectGrade string `json:"project_grade,omitempty"`
}

// OutdoorMarker marks an outdoor climbing day on the timeline.
type OutdoorMarker struct {
	Date string `json:"date"`
	Day  int    `json:"day"`
	Name string `json:"name"`
}

// Timeline is the stacked intensity chart with its outdoor markers. Day offsets count
// from Start.
type Timeline struct {
	Start   string          `json:"start,omitempty"`
	Entries []TimelineEntry `json:"entries"`
	Outdoor []OutdoorMarker `json:"outdoor"`
}

// BuildTimeline orders workouts by date and places outdoor days relative to the first
// workout. Without any workout the first outdoor day is the origin.
func BuildTimeline(points []SessionPoint) Timeline {
	var workouts, outdoor []SessionPoint
	for _, p := range points {
		if p.Workout {
			workouts = append(workouts, p)
		}
		if p.Outdoor {
			outdoor = append(outdoor, p)
		}
	}
	sort.SliceStable(workouts, func(i, j int) bool { return workouts[i].Date.Before(workouts[j].Date) })
	sort.SliceStable(outdoor, func(i, j int) bool { return outdoor[i].Date.Before(outdoor[j].Date) })

	tl := Timeline{Entries: []TimelineEntry{}, Outdoor: []OutdoorMarker{}}
	var start time.Time
	switch {
	case len(workouts) > 0:
		start = workouts[0].Date
	case len(outdoor) > 0:
		start = outdoor[0].Date
	default:
		return tl
	}
	tl.Start = start.Format(models.DateLayout)

	for _, w := range workouts {
		e := TimelineEntry{
			Date:      w.Date.Format(models.DateLayout),
			Day:       daysBetween(start, w.Date),
			Breakdown: w.Breakdown,
			Total:     w.Breakdown.Total(),
		}
		if w.Breakdown.Project > 0 {
			e.ProjectGrade = w.ProjectGrade
		}
		tl.Entries = append(tl.Entries, e)
	}
	for _, o := range outdoor {
		tl.Outdoor = append(tl.Outdoor, OutdoorMarker{
			Date: o.Date.Format(models.DateLayout),
			Day:  daysBetween(start, o.Date),
			Name: o.Name,
		})
	}
	return tl
}

// daysBetween counts whole calendar days; negative when b precedes a.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// FingerboardPoints sums hang effort per date and edge.
func FingerboardPoints(sessions []*intensity.Session) []Point {
	var out []Point
	for _, s := range sessions {
		for _, fb := range s.Fingerboard {
			out = append(out, Point{Date: fb.Date, Edge: fb.Edge, Value: fb.Effort})
		}
	}
	return out
}

// CampusPoints returns the move and spread points per date and edge.
func CampusPoints(sessions []*intensity.Session) (moves, spread []Point) {
	for _, s := range sessions {
		for _, cb := range s.Campus {
			moves = append(moves, Point{Date: cb.Date, Edge: cb.Edge, Value: float64(cb.Moves)})
			spread = append(spread, Point{Date: cb.Date, Edge: cb.Edge, Value: float64(cb.Spread)})
		}
	}
	return moves, spread
}

// PullupPoints returns repetitions per date and weight. Unweighted sets are left out.
func PullupPoints(sessions []*intensity.Session) []WeightPoint {
	var out []WeightPoint
	for _, s := range sessions {
		for _, pu := range s.Pullups {
			if pu.WeightKg == nil {
				continue
			}
			out = append(out, WeightPoint{Date: pu.Date, WeightKg: *pu.WeightKg, Value: float64(pu.Repetitions)})
		}
	}
	return out
}

// FingerboardChart is the stacked effort-per-edge chart.
func FingerboardChart(points []Point) Chart {
	return StackByEdge("Fingerboard Progression", "Total Fingerboard Effort", points)
}

// CampusCharts returns the moves and spread charts.
func CampusCharts(moves, spread []Point) (Chart, Chart) {
	return StackByEdge("Campus Board progression", "# Moves", moves),
		StackByEdge("Campus Board progression", "Spread per move", spread)
}

// PullupChart is the stacked repetitions-per-weight chart.
func PullupChart(points []WeightPoint) Chart {
	return StackByWeight("Pullup progression", "# Repetitions", points)
}
