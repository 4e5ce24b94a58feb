package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/claude/crimpy/internal/config"
	"github.com/claude/crimpy/internal/importer"
	"github.com/claude/crimpy/internal/intensity"
	"github.com/claude/crimpy/internal/logging"
	"github.com/claude/crimpy/internal/metrics"
	"github.com/claude/crimpy/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dataDir := flag.String("dir", "", "directory of session files (overrides import.data_dir)")
	dryRun := flag.Bool("dry-run", false, "evaluate and report counts without writing to the database")
	force := flag.Bool("force", false, "re-import files already recorded as unchanged")
	watch := flag.Bool("watch", false, "keep running and re-import when session files change")
	migrationsPath := flag.String("migrations", "migrations", "directory holding the SQL migrations")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, logCloser := logging.Setup(logging.Params{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Stdout: true,
	})
	defer logCloser.Close()

	dir := cfg.Import.DataDir
	if *dataDir != "" {
		dir = *dataDir
	}
	if dir == "" {
		fmt.Fprintf(os.Stderr, "Usage: crimpy-import -config config.yaml -dir /path/to/sessions [-dry-run] [-force] [-watch]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Verify the data directory exists
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Error("data path does not exist or is not a directory", "path", dir)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store importer.Store
		db    *storage.DB
		state *importer.StateDB
	)
	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	} else {
		if err := cfg.RequireDatabase(); err != nil {
			log.Error("incomplete config", "error", err)
			os.Exit(1)
		}
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, *migrationsPath); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")

		db, err = storage.New(ctx, dsn, cfg.Database.MaxConns)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = db
		log.Info("database connected")

		state, err = importer.OpenStateDB(cfg.Import.StateDir)
		if err != nil {
			log.Error("failed to open import state", "error", err)
			os.Exit(1)
		}
		defer state.Close()
	}

	model := intensity.New(cfg.Intensity, log)
	m := metrics.NewManager("crimpy", "import", prometheus.NewRegistry())
	imp := importer.New(store, model, state, m, log, importer.Options{
		DryRun:  *dryRun,
		Force:   *force,
		Workers: cfg.Import.Workers,
	})

	run := func() (*importer.Stats, error) {
		begin := time.Now()
		logID := startLog(ctx, db, log, dir)
		stats, _, err := imp.Import(ctx, dir)
		finishLog(db, log, logID, dir, stats, err, time.Since(begin))
		return stats, err
	}

	stats, err := run()
	printStats(log, stats)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	log.Info("import complete")

	if !*watch {
		return
	}

	err = imp.Watch(ctx, dir, cfg.Import.Debounce, func(stats *importer.Stats, err error) error {
		recordWatchRun(db, log, dir, stats, err)
		printStats(log, stats)
		if err != nil {
			log.Error("import failed", "error", err)
		}
		return nil
	})
	if err != nil {
		log.Error("watch failed", "error", err)
		os.Exit(1)
	}
	log.Info("watch stopped")
}

// startLog records a running import; it returns 0 when there is no database.
func startLog(ctx context.Context, db *storage.DB, log *slog.Logger, dir string) int64 {
	if db == nil {
		return 0
	}
	entry := logEntry(dir, nil, nil)
	entry.Status = "running"
	id, err := db.InsertImportLog(ctx, entry)
	if err != nil {
		log.Warn("failed to create import log", "error", err)
		return 0
	}
	return id
}

func finishLog(db *storage.DB, log *slog.Logger, id int64, dir string, stats *importer.Stats, runErr error, took time.Duration) {
	if db == nil || id == 0 {
		return
	}
	entry := logEntry(dir, stats, runErr)
	ms := int(took.Milliseconds())
	entry.DurationMs = &ms

	// The run context may already be cancelled; the log entry should still land.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.UpdateImportLog(ctx, id, entry); err != nil {
		log.Warn("failed to update import log", "id", id, "error", err)
	}
}

// recordWatchRun logs a run triggered by a directory change as one finished entry.
func recordWatchRun(db *storage.DB, log *slog.Logger, dir string, stats *importer.Stats, runErr error) {
	if db == nil {
		return
	}
	entry := logEntry(dir, stats, runErr)
	entry.Source = "watch"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.InsertImportLog(ctx, entry); err != nil {
		log.Warn("failed to create import log", "error", err)
	}
}

func logEntry(dir string, stats *importer.Stats, runErr error) storage.ImportLog {
	entry := storage.ImportLog{Source: "cli", Status: "success"}
	if runErr != nil {
		msg := runErr.Error()
		entry.Status = "error"
		entry.ErrorMessage = &msg
	}
	if stats == nil {
		rawMeta := json.RawMessage(mustJSON(map[string]any{"data_dir": dir}))
		entry.Metadata = &rawMeta
		return entry
	}

	entry.FilesReceived = stats.FilesFound
	entry.FilesErrored = stats.FilesErrored
	entry.SessionsInserted = stats.SessionsStored
	entry.SetsInserted = stats.SetsInserted
	rawMeta := json.RawMessage(mustJSON(map[string]any{
		"data_dir":         dir,
		"files_skipped":    stats.FilesSkipped,
		"files_unchanged":  stats.FilesUnchanged,
		"malformed":        stats.Malformed,
		"missing_date":     stats.MissingDate,
		"unparseable_date": stats.UnparseableDate,
	}))
	entry.Metadata = &rawMeta
	return entry
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	if stats == nil {
		return
	}
	log.Info("import stats",
		"files_found", stats.FilesFound,
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_unchanged", stats.FilesUnchanged,
		"files_errored", stats.FilesErrored,
		"malformed", stats.Malformed,
		"missing_date", stats.MissingDate,
		"unparseable_date", stats.UnparseableDate,
		"workouts", stats.Workouts,
		"outdoor_days", stats.OutdoorDays,
		"sessions_stored", stats.SessionsStored,
		"sets_inserted", stats.SetsInserted,
	)
}
