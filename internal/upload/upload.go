// Package upload pushes a local directory of session files to a remote crimpy server.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/claude/crimpy/internal/importer"
	"github.com/claude/crimpy/internal/ingest/logbook"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SessionsInserted int
	SetsInserted     int64

	// Rejected counts errored files by loader kind.
	Rejected map[string]int
}

// Uploader walks a data directory and POSTs every new or changed session file to the
// crimpy server.
type Uploader struct {
	client *Client
	state  *StateDB
	dir    string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. client may be nil in dry-run mode; state may be nil to
// send every file.
func New(client *Client, state *StateDB, dir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		dir:    dir,
		dryRun: dryRun,
		log:    log,
		stats:  Stats{Rejected: map[string]int{}},
	}
}

// Run uploads the directory in file order. Files that fail to load locally or that the
// server rejects are counted and skipped; any other failure stops the run.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	files, err := filepath.Glob(filepath.Join(u.dir, "*.json"))
	if err != nil {
		return &u.stats, fmt.Errorf("listing %s: %w", u.dir, err)
	}
	sort.Strings(files)
	u.stats.FilesTotal = len(files)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		if err := u.uploadFile(ctx, path); err != nil {
			return &u.stats, err
		}
	}
	return &u.stats, nil
}

func (u *Uploader) serverKey() string {
	if u.client == nil {
		return ""
	}
	return u.client.serverURL
}

func (u *Uploader) uploadFile(ctx context.Context, path string) error {
	rel := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	hash, err := importer.HashFile(path)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", path, err)
	}

	if u.state != nil {
		done, err := u.state.IsUploaded(u.serverKey(), rel, info.Size(), hash)
		if err != nil {
			u.log.Warn("state lookup failed, uploading anyway", "file", rel, "error", err)
		}
		if done {
			u.stats.FilesSkipped++
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	// Check locally first; the server would reject the same files.
	if _, err := logbook.Parse(bytes.NewReader(data), rel); err != nil {
		u.reject(rel, logbook.Kind(err), err)
		return nil
	}

	if u.dryRun {
		u.log.Info("would upload", "file", rel, "bytes", len(data))
		u.stats.FilesUploaded++
		return nil
	}

	result, err := u.client.SendSession(ctx, rel, data)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			u.reject(rel, rejected.Kind, err)
			return nil
		}
		return fmt.Errorf("uploading %s: %w", rel, err)
	}

	u.stats.FilesUploaded++
	u.stats.SessionsInserted += result.SessionsInserted
	u.stats.SetsInserted += result.SetsInserted
	u.log.Info("uploaded", "file", rel, "total", result.Total, "message", result.Message)

	if u.state != nil {
		if err := u.state.MarkUploaded(u.serverKey(), rel, info.Size(), hash); err != nil {
			u.log.Warn("failed to record upload state", "file", rel, "error", err)
		}
	}
	return nil
}

func (u *Uploader) reject(rel, kind string, err error) {
	u.log.Warn("skipping invalid session file", "file", rel, "kind", kind, "error", err)
	u.stats.FilesErrored++
	u.stats.Rejected[kind]++
}
