package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/claude/crimpy/internal/progression"
)

// report is everything crimpy-report derives from a data directory.
type report struct {
	Timeline     progression.Timeline `json:"timeline"`
	Fingerboard  progression.Chart    `json:"fingerboard"`
	CampusMoves  progression.Chart    `json:"campus_moves"`
	CampusSpread progression.Chart    `json:"campus_spread"`
	Pullup       progression.Chart    `json:"pullup"`
}

type namedChart struct {
	name  string
	chart progression.Chart
}

// charts lists the progression charts in output order with their file stems.
func (r *report) charts() []namedChart {
	return []namedChart{
		{"fingerboard", r.Fingerboard},
		{"campus_moves", r.CampusMoves},
		{"campus_spread", r.CampusSpread},
		{"pullup", r.Pullup},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeJSONReport(w io.Writer, r *report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// timelineRows flattens the timeline into a header and one row per workout.
func timelineRows(tl progression.Timeline) [][]string {
	rows := [][]string{{"date", "day", "fingerboard", "campusboard", "pullup", "project", "total", "project_grade"}}
	for _, e := range tl.Entries {
		rows = append(rows, []string{
			e.Date,
			strconv.Itoa(e.Day),
			formatFloat(e.Breakdown.Fingerboard),
			formatFloat(e.Breakdown.Campusboard),
			formatFloat(e.Breakdown.Pullup),
			formatFloat(e.Breakdown.Project),
			formatFloat(e.Total),
			e.ProjectGrade,
		})
	}
	return rows
}

func outdoorRows(tl progression.Timeline) [][]string {
	rows := [][]string{{"date", "day", "name"}}
	for _, o := range tl.Outdoor {
		rows = append(rows, []string{o.Date, strconv.Itoa(o.Day), o.Name})
	}
	return rows
}

// chartRows lays a stacked chart out as one row per date and one column per series.
func chartRows(c progression.Chart) [][]string {
	header := []string{"date"}
	for _, s := range c.Series {
		header = append(header, s.Label)
	}
	rows := [][]string{header}
	for i, label := range c.Labels {
		row := []string{label}
		for _, s := range c.Series {
			row = append(row, formatFloat(s.Values[i]))
		}
		rows = append(rows, row)
	}
	return rows
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// writeCSVSections writes every section to one stream. Each section starts with a
// "section,<name>" row and sections are separated by an empty line.
func writeCSVSections(w io.Writer, r *report) error {
	sections := []struct {
		name string
		rows [][]string
	}{
		{"timeline", timelineRows(r.Timeline)},
		{"outdoor", outdoorRows(r.Timeline)},
	}
	for _, c := range r.charts() {
		sections = append(sections, struct {
			name string
			rows [][]string
		}{c.name, chartRows(c.chart)})
	}

	for i, s := range sections {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writeCSV(w, append([][]string{{"section", s.name}}, s.rows...)); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(w io.Writer, title string, rows [][]string) error {
	if _, err := fmt.Fprintf(w, "%s\n", title); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, row := range rows {
		for _, cell := range row {
			fmt.Fprintf(tw, "%s\t", cell)
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

// writeTables prints every section of r as an aligned table. Empty charts are skipped.
func writeTables(w io.Writer, r *report) error {
	if err := writeTable(w, "Intensity timeline (from "+r.Timeline.Start+")", timelineRows(r.Timeline)); err != nil {
		return err
	}
	if len(r.Timeline.Outdoor) > 0 {
		if err := writeTable(w, "Outdoor days", outdoorRows(r.Timeline)); err != nil {
			return err
		}
	}
	for _, c := range r.charts() {
		if len(c.chart.Series) == 0 {
			continue
		}
		if err := writeTable(w, c.chart.Title+" ("+c.chart.YLabel+")", chartRows(c.chart)); err != nil {
			return err
		}
	}
	return nil
}
