package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/claude/crimpy/internal/ingest/logbook"
	"github.com/claude/crimpy/internal/intensity"
	"github.com/claude/crimpy/internal/metrics"
)

// Stats tracks import progress.
type Stats struct {
	FilesFound     int
	FilesProcessed int
	FilesSkipped   int
	FilesUnchanged int
	FilesErrored   int

	// Loader failures by kind; they add up to FilesErrored minus I/O errors.
	Malformed       int
	MissingDate     int
	UnparseableDate int

	Workouts       int
	OutdoorDays    int
	SessionsStored int
	SetsInserted   int64
}

// Store persists evaluated sessions.
type Store interface {
	UpsertSession(ctx context.Context, s *intensity.Session) (int64, error)
}

// Options controls an import run.
type Options struct {
	// DryRun evaluates and counts without touching the store or the state.
	DryRun bool
	// Force re-imports files the state already records as unchanged.
	Force bool
	// Workers bounds parallel evaluation; <= 0 uses GOMAXPROCS.
	Workers int
	// Progress, when set, is called after each file of the store phase.
	Progress func(done, total int, file string)
}

// Importer reads session files from a data directory, evaluates them and stores the
// derived sessions.
type Importer struct {
	store   Store
	model   *intensity.Model
	state   *StateDB
	metrics *metrics.Manager
	log     *slog.Logger
	opts    Options
}

// New creates a new Importer. store and state may be nil: without a store nothing is
// persisted, without a state every file is evaluated.
func New(store Store, model *intensity.Model, state *StateDB, m *metrics.Manager, log *slog.Logger, opts Options) *Importer {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Importer{store: store, model: model, state: state, metrics: m, log: log, opts: opts}
}

// WithProgress returns a copy of imp that reports store-phase progress to fn.
func (imp *Importer) WithProgress(fn func(done, total int, file string)) *Importer {
	cp := *imp
	cp.opts.Progress = fn
	return &cp
}

// fileResult is the outcome of evaluating one file.
type fileResult struct {
	path, rel string
	size      int64
	hash      string
	unchanged bool
	session   *intensity.Session
	err       error
}

// Import processes every *.json file directly under dir in lexical order. Loader
// failures are logged and counted; only storage failures abort the run. The returned
// sessions are the files evaluated in this run, in file order.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, []*intensity.Session, error) {
	begin := time.Now()
	stats := &Stats{}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return stats, nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(files)
	stats.FilesFound = len(files)

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.opts.Workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = imp.evaluate(dir, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, nil, fmt.Errorf("evaluating files: %w", err)
	}

	var sessions []*intensity.Session
	for i, r := range results {
		if err := ctx.Err(); err != nil {
			return stats, sessions, err
		}
		if imp.opts.Progress != nil {
			imp.opts.Progress(i+1, len(results), r.rel)
		}

		switch {
		case r.err != nil:
			imp.countError(stats, r)
			continue
		case r.unchanged:
			stats.FilesUnchanged++
			imp.metrics.FileOutcome("unchanged")
			continue
		case !r.session.Record.HasExercises && !r.session.Record.Outdoor:
			imp.log.Info("skipping file without exercises or climbs", "file", r.rel)
			stats.FilesSkipped++
			imp.metrics.FileOutcome("skipped")
			continue
		}

		rec := r.session.Record
		stats.FilesProcessed++
		if rec.HasExercises {
			stats.Workouts++
		}
		if rec.Outdoor {
			stats.OutdoorDays++
		}
		imp.metrics.FileOutcome("processed")
		imp.metrics.ObserveSession(rec.HasExercises, rec.Outdoor, r.session.Breakdown)
		sessions = append(sessions, r.session)

		if imp.opts.DryRun || imp.store == nil {
			continue
		}

		inserted, err := imp.store.UpsertSession(ctx, r.session)
		if err != nil {
			return stats, sessions, fmt.Errorf("storing %s: %w", r.rel, err)
		}
		stats.SessionsStored++
		stats.SetsInserted += inserted

		if imp.state != nil {
			if err := imp.state.MarkImported(r.rel, r.size, r.hash); err != nil {
				imp.log.Warn("failed to record import state", "file", r.rel, "error", err)
			}
		}
	}

	imp.metrics.ObserveImport(time.Since(begin).Seconds())
	return stats, sessions, nil
}

// evaluate hashes, checks the state and evaluates one file. It never touches the store.
func (imp *Importer) evaluate(dir, path string) fileResult {
	r := fileResult{path: path, rel: path}
	if rel, err := filepath.Rel(dir, path); err == nil {
		r.rel = rel
	}

	if imp.state != nil {
		info, err := os.Stat(path)
		if err != nil {
			r.err = fmt.Errorf("stat %s: %w", path, err)
			return r
		}
		r.size = info.Size()
		if r.hash, err = HashFile(path); err != nil {
			r.err = fmt.Errorf("hashing %s: %w", path, err)
			return r
		}
		if !imp.opts.Force {
			done, err := imp.state.IsImported(r.rel, r.size, r.hash)
			if err != nil {
				imp.log.Warn("state lookup failed, importing anyway", "file", r.rel, "error", err)
			}
			if done {
				r.unchanged = true
				return r
			}
		}
	}

	rec, err := logbook.ParseFile(path)
	if err != nil {
		r.err = err
		return r
	}
	r.session = imp.model.Evaluate(rec)
	return r
}

func (imp *Importer) countError(stats *Stats, r fileResult) {
	kind := logbook.Kind(r.err)
	imp.log.Warn("skipping unreadable session file", "file", r.rel, "kind", kind, "error", r.err)
	stats.FilesErrored++
	imp.metrics.FileOutcome(kind)

	switch {
	case errors.Is(r.err, logbook.ErrMalformedRecord):
		stats.Malformed++
	case errors.Is(r.err, logbook.ErrMissingDate):
		stats.MissingDate++
	case errors.Is(r.err, logbook.ErrUnparseableDate):
		stats.UnparseableDate++
	}
}
