package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/crimpy/internal/ingest/logbook"
	"github.com/claude/crimpy/internal/intensity"
	"github.com/claude/crimpy/internal/progression"
)

func evaluate(t *testing.T, files ...string) []*intensity.Session {
	t.Helper()
	model := intensity.New(intensity.DefaultParams(), nil)
	var out []*intensity.Session
	for i, body := range files {
		rec, err := logbook.Parse(strings.NewReader(body), "f"+string(rune('a'+i))+".json")
		if err != nil {
			t.Fatalf("parsing fixture %d: %v", i, err)
		}
		out = append(out, model.Evaluate(rec))
	}
	return out
}

var (
	workout = `{"date": "03-03-2025", "exercises": [
		{"type": "fingerboard", "executed": true, "order": 1, "sets": [
			{"edge": "20mm", "reps": 6, "timeon": "7s", "timeoff": "3s", "rest": "3m"}
		]}
	]}`
	outdoor = `{"date": "01-03-2025", "name": "Fontainebleau", "climbs": []}`
)

// TestChartRows verifies a stacked chart becomes one row per date and one column per
// series.
func TestChartRows(t *testing.T) {
	c := progression.Chart{
		Labels: []string{"01-03-2025", "02-03-2025"},
		Series: []progression.Series{
			{Label: "15mm", Values: []float64{1, 0}},
			{Label: "20mm", Values: []float64{2.5, 3}},
		},
	}
	want := [][]string{
		{"date", "15mm", "20mm"},
		{"01-03-2025", "1.00", "2.50"},
		{"02-03-2025", "0.00", "3.00"},
	}
	if diff := cmp.Diff(want, chartRows(c)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

// TestBuildReport verifies outdoor days are placed relative to the first workout even
// when they precede it.
func TestBuildReport(t *testing.T) {
	r := buildReport(evaluate(t, workout, outdoor))

	if r.Timeline.Start != "03-03-2025" {
		t.Errorf("start = %q", r.Timeline.Start)
	}
	want := []progression.OutdoorMarker{{Date: "01-03-2025", Day: -2, Name: "Fontainebleau"}}
	if diff := cmp.Diff(want, r.Timeline.Outdoor); diff != "" {
		t.Errorf("outdoor mismatch (-want +got):\n%s", diff)
	}
	if len(r.Fingerboard.Series) != 1 || len(r.Pullup.Series) != 0 {
		t.Errorf("fingerboard series %d, pullup series %d", len(r.Fingerboard.Series), len(r.Pullup.Series))
	}
}

// TestWriteReportFormats verifies each stdout format produces its shape.
func TestWriteReportFormats(t *testing.T) {
	r := buildReport(evaluate(t, workout, outdoor))

	tests := []struct {
		format string
		want   string
	}{
		{"json", `"campus_spread"`},
		{"csv", "section,timeline\ndate,day,fingerboard,campusboard,pullup,project,total,project_grade\n03-03-2025,0,"},
		{"table", "Outdoor days"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeReport(&buf, tt.format, r); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, buf.String())
			}
		})
	}
}

// TestCSVStdoutHasEverySection verifies that CSV on stdout carries the outdoor markers
// and the progression charts after the timeline.
func TestCSVStdoutHasEverySection(t *testing.T) {
	var buf bytes.Buffer
	if err := writeReport(&buf, "csv", buildReport(evaluate(t, workout, outdoor))); err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if name, ok := strings.CutPrefix(line, "section,"); ok {
			got = append(got, name)
		}
	}
	want := []string{"timeline", "outdoor", "fingerboard", "campus_moves", "campus_spread", "pullup"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sections mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(buf.String(), "\nsection,outdoor\ndate,day,name\n01-03-2025,-2,Fontainebleau\n") {
		t.Errorf("outdoor section missing:\n%s", buf.String())
	}
}

// TestWriteFilesCSV verifies the CSV output writes one file per section.
func TestWriteFilesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	if err := writeFiles(dir, "csv", buildReport(evaluate(t, workout))); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"campus_moves.csv", "campus_spread.csv", "fingerboard.csv", "outdoor.csv", "pullup.csv", "timeline.csv"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(filepath.Join(dir, "fingerboard.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "date,20mm\n03-03-2025,") {
		t.Errorf("fingerboard.csv = %q", data)
	}
}
