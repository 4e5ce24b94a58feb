package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/claude/crimpy/internal/logging"
	"github.com/claude/crimpy/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "crimpy server URL (e.g. https://crimpy.tail1234.ts.net)")
	dataDir := flag.String("dir", "", "directory of session files")
	dryRun := flag.Bool("dry-run", false, "validate files locally but don't send to server")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn or error")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("crimpy-upload", Version)
		return
	}

	_ = godotenv.Load()
	log := logging.New(os.Stdout, *logLevel, "text")

	if *dataDir == "" {
		fmt.Fprintf(os.Stderr, "Usage: crimpy-upload -server <URL> -dir <sessions dir> [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	info, err := os.Stat(*dataDir)
	if err != nil || !info.IsDir() {
		log.Error("data directory not found", "path", *dataDir)
		os.Exit(1)
	}

	apiKey := os.Getenv("CRIMPY_AUTH_API_KEY")
	if !*dryRun {
		if *serverURL == "" {
			fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
			os.Exit(1)
		}
		if apiKey == "" {
			fmt.Fprintf(os.Stderr, "Error: CRIMPY_AUTH_API_KEY must be set (or use -dry-run)\n")
			os.Exit(1)
		}
	}

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	state, err := upload.OpenStateDB(filepath.Join(homeDir, ".crimpy-upload"))
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	var client *upload.Client
	if *dryRun {
		log.Info("DRY RUN mode: files will be validated but not sent")
	} else {
		client = upload.NewClient(*serverURL, apiKey)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := upload.New(client, state, *dataDir, *dryRun, log).Run(ctx)
	printStats(log, stats)
	if err != nil {
		log.Error("upload failed", "error", err)
		os.Exit(1)
	}
	log.Info("upload complete")
}

func printStats(log *slog.Logger, stats *upload.Stats) {
	log.Info("upload stats",
		"files_total", stats.FilesTotal,
		"files_uploaded", stats.FilesUploaded,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"sessions_inserted", stats.SessionsInserted,
		"sets_inserted", stats.SetsInserted,
	)
	for kind, n := range stats.Rejected {
		log.Info("rejected files", "kind", kind, "count", n)
	}
}
