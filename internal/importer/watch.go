package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch re-runs Import whenever a *.json file under dir is created, written or renamed.
// Bursts of events within debounce are coalesced into one run. onRun receives the
// result of every run; Watch returns when ctx is cancelled or onRun returns an error.
func (imp *Importer) Watch(ctx context.Context, dir string, debounce time.Duration, onRun func(*Stats, error) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	imp.log.Info("watching data directory", "dir", dir, "debounce", debounce)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			imp.log.Debug("data directory changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
			pending = true

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			imp.log.Warn("watcher error", "error", err)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			stats, _, err := imp.Import(ctx, dir)
			if ctx.Err() != nil {
				return nil
			}
			if cbErr := onRun(stats, err); cbErr != nil {
				return cbErr
			}
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if filepath.Ext(ev.Name) != ".json" {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename)
}
