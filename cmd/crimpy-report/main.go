// Command crimpy-report evaluates a directory of session files and prints the intensity
// timeline and exercise progressions without a database.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/term"

	"github.com/claude/crimpy/internal/config"
	"github.com/claude/crimpy/internal/importer"
	"github.com/claude/crimpy/internal/intensity"
	"github.com/claude/crimpy/internal/logging"
	"github.com/claude/crimpy/internal/metrics"
	"github.com/claude/crimpy/internal/progression"
)

func main() {
	configPath := flag.String("config", "", "optional config file for intensity parameters and logging")
	dataDir := flag.String("dir", "", "directory of session files (overrides import.data_dir)")
	format := flag.String("format", "", "output format: table, json or csv (default table on a terminal, json otherwise)")
	outDir := flag.String("out", "", "write one file per section into this directory instead of stdout")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the report, so logs go to stderr.
	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	dir := cfg.Import.DataDir
	if *dataDir != "" {
		dir = *dataDir
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "Usage: crimpy-report -dir /path/to/sessions [-format table|json|csv] [-out dir]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *format == "" {
		*format = "json"
		if term.IsTerminal(int(os.Stdout.Fd())) {
			*format = "table"
		}
	}
	switch *format {
	case "table", "json", "csv":
	default:
		log.Error("unknown format", "format", *format)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	model := intensity.New(cfg.Intensity, log)
	m := metrics.NewManager("crimpy", "report", prometheus.NewRegistry())
	imp := importer.New(nil, model, nil, m, log, importer.Options{DryRun: true, Workers: cfg.Import.Workers})

	stats, sessions, err := imp.Import(ctx, dir)
	if err != nil {
		log.Error("evaluation failed", "error", err)
		os.Exit(1)
	}
	log.Info("sessions evaluated",
		"files_found", stats.FilesFound,
		"workouts", stats.Workouts,
		"outdoor_days", stats.OutdoorDays,
		"files_errored", stats.FilesErrored,
	)

	r := buildReport(sessions)
	if *outDir != "" {
		err = writeFiles(*outDir, *format, r)
	} else {
		err = writeReport(os.Stdout, *format, r)
	}
	if err != nil {
		log.Error("writing report failed", "error", err)
		os.Exit(1)
	}
}

func buildReport(sessions []*intensity.Session) *report {
	points := make([]progression.SessionPoint, len(sessions))
	for i, s := range sessions {
		points[i] = progression.PointOf(s)
	}
	moves, spread := progression.CampusCharts(progression.CampusPoints(sessions))
	return &report{
		Timeline:     progression.BuildTimeline(points),
		Fingerboard:  progression.FingerboardChart(progression.FingerboardPoints(sessions)),
		CampusMoves:  moves,
		CampusSpread: spread,
		Pullup:       progression.PullupChart(progression.PullupPoints(sessions)),
	}
}

func writeReport(w io.Writer, format string, r *report) error {
	switch format {
	case "json":
		return writeJSONReport(w, r)
	case "csv":
		return writeCSVSections(w, r)
	default:
		return writeTables(w, r)
	}
}

// writeFiles writes the report into dir: report.json, report.txt, or one CSV per section.
func writeFiles(dir, format string, r *report) (err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	create := func(name string, write func(io.Writer) error) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		return multierr.Append(write(f), f.Close())
	}

	switch format {
	case "json":
		return create("report.json", func(w io.Writer) error { return writeJSONReport(w, r) })
	case "table":
		return create("report.txt", func(w io.Writer) error { return writeTables(w, r) })
	}

	err = multierr.Append(err, create("timeline.csv", func(w io.Writer) error {
		return writeCSV(w, timelineRows(r.Timeline))
	}))
	err = multierr.Append(err, create("outdoor.csv", func(w io.Writer) error {
		return writeCSV(w, outdoorRows(r.Timeline))
	}))
	for _, c := range r.charts() {
		err = multierr.Append(err, create(c.name+".csv", func(w io.Writer) error {
			return writeCSV(w, chartRows(c.chart))
		}))
	}
	return err
}
