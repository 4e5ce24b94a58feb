package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/claude/crimpy/internal/importer"
	"github.com/claude/crimpy/internal/storage"
)

var errImportCancelled = errors.New("import canceled by user")

// importJob tracks a running server-side directory import.
type importJob struct {
	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	doneCh    chan struct{} // closed when goroutine exits
	step      int
	total     int
	file      string // file currently being stored
	done      bool
	err       error
	stats     *importer.Stats
	logID     int64 // import_logs row id
	startedAt time.Time

	// SSE subscribers
	subs   map[chan sseEvent]struct{}
	subsMu sync.Mutex
}

// sseEvent is an SSE message to send to subscribers.
type sseEvent struct {
	Event string
	Data  string
}

func (j *importJob) broadcast(event sseEvent) {
	j.subsMu.Lock()
	defer j.subsMu.Unlock()
	for ch := range j.subs {
		select {
		case ch <- event:
		default:
			// slow subscriber, skip
		}
	}
}

func (j *importJob) subscribe() chan sseEvent {
	ch := make(chan sseEvent, 32)
	j.subsMu.Lock()
	j.subs[ch] = struct{}{}
	j.subsMu.Unlock()
	return ch
}

func (j *importJob) unsubscribe(ch chan sseEvent) {
	j.subsMu.Lock()
	delete(j.subs, ch)
	j.subsMu.Unlock()
}

func (j *importJob) isRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// status snapshots the job for the status endpoint.
func (j *importJob) status() map[string]any {
	j.mu.Lock()
	defer j.mu.Unlock()
	resp := map[string]any{
		"running": j.running,
		"done":    j.done,
		"step":    j.step,
		"total":   j.total,
		"file":    j.file,
		"log_id":  j.logID,
	}
	if j.stats != nil {
		resp["stats"] = j.stats
	}
	if j.err != nil {
		resp["error"] = j.err.Error()
	}
	return resp
}

func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "server-side import is not configured"})
		return
	}

	s.importMu.Lock()
	if s.activeImport != nil && s.activeImport.isRunning() {
		// If context was already canceled, wait briefly for the goroutine to finish
		prev := s.activeImport
		s.importMu.Unlock()
		select {
		case <-prev.doneCh:
		case <-time.After(5 * time.Second):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "an import is already running"})
			return
		}
		s.importMu.Lock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &importJob{
		running:   true,
		cancel:    cancel,
		doneCh:    make(chan struct{}),
		startedAt: time.Now(),
		subs:      make(map[chan sseEvent]struct{}),
	}

	// Create import log with "running" status
	rawMeta := json.RawMessage(mustJSON(map[string]any{"data_dir": s.dataDir}))
	logID, logErr := s.db.InsertImportLog(r.Context(), storage.ImportLog{
		Source:   "directory",
		Status:   "running",
		Metadata: &rawMeta,
	})
	if logErr != nil {
		s.log.Error("failed to create import log", "error", logErr)
	}
	job.logID = logID

	s.activeImport = job
	s.importMu.Unlock()

	go s.runImport(ctx, job)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "started",
		"log_id": logID,
	})
}

func (s *Server) runImport(ctx context.Context, job *importJob) {
	defer func() {
		job.mu.Lock()
		job.running = false
		job.done = true
		job.mu.Unlock()
		close(job.doneCh)
	}()

	imp := s.importer.WithProgress(func(done, total int, file string) {
		job.mu.Lock()
		job.step = done
		job.total = total
		job.file = file
		job.mu.Unlock()

		job.broadcast(sseEvent{
			Event: "progress",
			Data:  mustJSON(map[string]any{"step": done, "total": total, "file": file}),
		})
	})

	stats, _, err := imp.Import(ctx, s.dataDir)
	if stats != nil && stats.SessionsStored > 0 {
		s.invalidate()
	}

	job.mu.Lock()
	job.stats = stats
	switch {
	case ctx.Err() != nil:
		job.err = errImportCancelled
	case err != nil:
		job.err = err
	}
	jobErr := job.err
	job.mu.Unlock()

	if jobErr != nil {
		s.log.Warn("directory import failed", "dir", s.dataDir, "error", jobErr)
		job.broadcast(sseEvent{Event: "error", Data: mustJSON(map[string]string{"error": jobErr.Error()})})
	} else {
		job.broadcast(sseEvent{Event: "complete", Data: mustJSON(stats)})
	}

	s.finalizeImport(job)
}

// finalizeImport updates the import_logs row with final results.
func (s *Server) finalizeImport(job *importJob) {
	if job.logID == 0 {
		return
	}

	job.mu.Lock()
	defer job.mu.Unlock()

	durationMs := int(time.Since(job.startedAt).Milliseconds())
	status := "success"
	var errMsg *string
	if job.err != nil {
		msg := job.err.Error()
		errMsg = &msg
		if errors.Is(job.err, errImportCancelled) {
			status = "cancelled"
		} else {
			status = "error"
		}
	}

	entry := storage.ImportLog{
		Status:       status,
		DurationMs:   &durationMs,
		ErrorMessage: errMsg,
	}
	if st := job.stats; st != nil {
		entry.FilesReceived = st.FilesFound
		entry.FilesErrored = st.FilesErrored
		entry.SessionsInserted = st.SessionsStored
		entry.SetsInserted = st.SetsInserted
		rawMeta := json.RawMessage(mustJSON(map[string]any{
			"data_dir":         s.dataDir,
			"files_skipped":    st.FilesSkipped,
			"files_unchanged":  st.FilesUnchanged,
			"malformed":        st.Malformed,
			"missing_date":     st.MissingDate,
			"unparseable_date": st.UnparseableDate,
		}))
		entry.Metadata = &rawMeta
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if err := s.db.UpdateImportLog(ctx, job.logID, entry); err != nil {
		s.log.Error("failed to finalize import log", "log_id", job.logID, "error", err)
	}
}

func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	s.importMu.Lock()
	if s.activeImport == nil || !s.activeImport.isRunning() {
		s.importMu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no import running"})
		return
	}

	job := s.activeImport
	job.cancel()
	s.importMu.Unlock()

	// Wait briefly for goroutine to finish
	select {
	case <-job.doneCh:
	case <-time.After(3 * time.Second):
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	s.importMu.Lock()
	job := s.activeImport
	s.importMu.Unlock()

	if job == nil {
		writeJSON(w, http.StatusOK, map[string]any{"running": false})
		return
	}
	writeJSON(w, http.StatusOK, job.status())
}

func (s *Server) handleImportEvents(w http.ResponseWriter, r *http.Request) {
	s.importMu.Lock()
	job := s.activeImport
	s.importMu.Unlock()

	if job == nil || !job.isRunning() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no import running"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := job.subscribe()
	defer job.unsubscribe(ch)

	// Send current status immediately
	fmt.Fprintf(w, "event: status\ndata: %s\n\n", mustJSON(job.status()))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if writeEvent(w, flusher, evt) {
				return
			}
		case <-job.doneCh:
			// Deliver whatever was broadcast before the job finished.
			for {
				select {
				case evt := <-ch:
					if writeEvent(w, flusher, evt) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// writeEvent sends one SSE message and reports whether it was the final one.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, evt sseEvent) bool {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data)
	flusher.Flush()
	return evt.Event == "complete" || evt.Event == "error"
}

// contextWithTimeout returns a background context with a 5-second timeout for async logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
