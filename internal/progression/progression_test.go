package progression

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/crimpy/internal/intensity"
	"github.com/claude/crimpy/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestBuildTimeline verifies ordering, day offsets from the first workout, outdoor
// markers and that grade labels only accompany a visible project bar.
func TestBuildTimeline(t *testing.T) {
	points := []SessionPoint{
		{Date: date(2025, 3, 10), Workout: true, ProjectGrade: "7a",
			Breakdown: intensity.Breakdown{Fingerboard: 1, Project: 0.5}},
		{Date: date(2025, 3, 1), Workout: true, ProjectGrade: "6c",
			Breakdown: intensity.Breakdown{Pullup: 0.25}},
		{Date: date(2025, 3, 5), Outdoor: true, Name: "Fontainebleau"},
	}

	tl := BuildTimeline(points)

	if tl.Start != "01-03-2025" {
		t.Errorf("Start = %q, want 01-03-2025", tl.Start)
	}
	want := []TimelineEntry{
		{Date: "01-03-2025", Day: 0, Breakdown: intensity.Breakdown{Pullup: 0.25}, Total: 0.25},
		{Date: "10-03-2025", Day: 9, Breakdown: intensity.Breakdown{Fingerboard: 1, Project: 0.5},
			Total: 1.5, ProjectGrade: "7a"},
	}
	if diff := cmp.Diff(want, tl.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	wantOutdoor := []OutdoorMarker{{Date: "05-03-2025", Day: 4, Name: "Fontainebleau"}}
	if diff := cmp.Diff(wantOutdoor, tl.Outdoor); diff != "" {
		t.Errorf("outdoor mismatch (-want +got):\n%s", diff)
	}
}

// TestBuildTimelineEmpty verifies that no sessions produce an empty, non-nil timeline.
func TestBuildTimelineEmpty(t *testing.T) {
	tl := BuildTimeline(nil)
	if tl.Start != "" || tl.Entries == nil || len(tl.Entries) != 0 || tl.Outdoor == nil {
		t.Errorf("unexpected empty timeline: %+v", tl)
	}
}

// TestStackByEdge verifies per-day summing, edge ordering and inverse edge shading.
func TestStackByEdge(t *testing.T) {
	points := []Point{
		{Date: date(2025, 3, 2), Edge: "20mm", Value: 1},
		{Date: date(2025, 3, 2), Edge: "20mm", Value: 2},
		{Date: date(2025, 3, 1), Edge: "10mm", Value: 4},
		{Date: date(2025, 3, 2), Edge: "sphere", Value: 5},
		{Date: date(2025, 3, 1), Edge: "15mm", Value: 1},
	}

	c := StackByEdge("t", "y", points)

	if diff := cmp.Diff([]string{"01-03-2025", "02-03-2025"}, c.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	var order []string
	for _, s := range c.Series {
		order = append(order, s.Label)
	}
	if diff := cmp.Diff([]string{"10mm", "15mm", "20mm", "sphere"}, order); diff != "" {
		t.Errorf("series order mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]float64{0, 3}, c.Series[2].Values); diff != "" {
		t.Errorf("20mm values mismatch (-want +got):\n%s", diff)
	}

	shades := map[string]float64{"10mm": 1.0, "15mm": 0.6, "20mm": 0.2}
	for _, s := range c.Series[:3] {
		if s.Shade == nil || math.Abs(*s.Shade-shades[s.Label]) > 1e-9 {
			t.Errorf("%s shade = %v, want %v", s.Label, s.Shade, shades[s.Label])
		}
	}
	if c.Series[3].Shade != nil {
		t.Errorf("sphere shade = %v, want nil", *c.Series[3].Shade)
	}
}

// TestStackByWeight verifies that heavier weights get darker shades and a single weight
// gets the lightest shade.
func TestStackByWeight(t *testing.T) {
	c := StackByWeight("t", "y", []WeightPoint{
		{Date: date(2025, 3, 1), WeightKg: 10, Value: 5},
		{Date: date(2025, 3, 1), WeightKg: 0, Value: 8},
		{Date: date(2025, 3, 3), WeightKg: 10, Value: 6},
	})
	if len(c.Series) != 2 {
		t.Fatalf("series = %d, want 2", len(c.Series))
	}
	if *c.Series[0].Shade != 0.2 || *c.Series[1].Shade != 1.0 {
		t.Errorf("shades = %v, %v; want 0.2, 1.0", *c.Series[0].Shade, *c.Series[1].Shade)
	}
	if c.Series[1].Label != "Additional weight: 10.0 kg" {
		t.Errorf("label = %q", c.Series[1].Label)
	}
	if diff := cmp.Diff([]float64{5, 6}, c.Series[1].Values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}

	single := StackByWeight("t", "y", []WeightPoint{{Date: date(2025, 3, 1), WeightKg: 5, Value: 1}})
	if *single.Series[0].Shade != 0.2 {
		t.Errorf("single weight shade = %v, want 0.2", *single.Series[0].Shade)
	}
}

// TestPointsFromSessions verifies the adapters from evaluated sessions to chart points,
// including that unweighted pull-ups are left out of the pull-up chart.
func TestPointsFromSessions(t *testing.T) {
	kg := 4.0
	d := date(2025, 3, 1)
	sessions := []*intensity.Session{{
		Record:      &models.SessionRecord{Date: d, HasExercises: true},
		Fingerboard: []intensity.FingerboardSet{{Date: d, Edge: "20mm", Effort: 2}},
		Campus:      []intensity.CampusBoardSet{{Date: d, Edge: "20mm", Moves: 3, Spread: 3}},
		Pullups: []intensity.PullupSet{
			{Date: d, Repetitions: 5, WeightKg: &kg},
			{Date: d, Repetitions: 10},
		},
	}}

	if fb := FingerboardPoints(sessions); len(fb) != 1 || fb[0].Value != 2 {
		t.Errorf("fingerboard points = %+v", fb)
	}
	moves, spread := CampusPoints(sessions)
	if len(moves) != 1 || moves[0].Value != 3 || spread[0].Value != 3 {
		t.Errorf("campus points = %+v / %+v", moves, spread)
	}
	pu := PullupPoints(sessions)
	if len(pu) != 1 || pu[0].WeightKg != 4 || pu[0].Value != 5 {
		t.Errorf("pullup points = %+v", pu)
	}

	p := PointOf(sessions[0])
	if !p.Workout || p.Outdoor || !p.Date.Equal(d) {
		t.Errorf("PointOf = %+v", p)
	}
}
