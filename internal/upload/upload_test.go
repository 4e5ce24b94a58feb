package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/crimpy/internal/ingest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const validSession = `{"date": "01-03-2025", "exercises": [
	{"type": "pullup", "executed": true, "order": 1, "sets": [{"repetitions": 5, "timeoff": "2m"}]}
]}`

func writeDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// ingestServer records the sources it receives. Sources listed in reject get a 400.
type ingestServer struct {
	mu       sync.Mutex
	received []string
	reject   map[string]bool
}

func (s *ingestServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v1/ingest" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("X-API-Key") != "secret" {
		http.Error(w, `{"error":"invalid API key"}`, http.StatusForbidden)
		return
	}
	source := r.URL.Query().Get("source")

	s.mu.Lock()
	s.received = append(s.received, source)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if s.reject[source] {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad date", "kind": "unparseable_date"})
		return
	}
	_ = json.NewEncoder(w).Encode(ingest.Result{SessionsReceived: 1, SessionsInserted: 1, SetsInserted: 1, Total: 1.5})
}

// TestRunUploadsAndSkips verifies local loader failures and server rejections are
// counted without stopping the run, and that the state skips files on the next run.
func TestRunUploadsAndSkips(t *testing.T) {
	dir := writeDir(t, map[string]string{
		"a.json":      validSession,
		"b.json":      `{"date": `,
		"c.json":      validSession,
		"notes.txt":   "ignored",
		"skewed.json": validSession,
	})
	srv := &ingestServer{reject: map[string]bool{"skewed.json": true}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	stats, err := New(NewClient(ts.URL, "secret"), state, dir, false, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := Stats{
		FilesTotal:       4,
		FilesUploaded:    2,
		FilesErrored:     2,
		SessionsInserted: 2,
		SetsInserted:     2,
		Rejected:         map[string]int{"malformed_record": 1, "unparseable_date": 1},
	}
	if diff := cmp.Diff(want, *stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.json", "c.json", "skewed.json"}, srv.received); diff != "" {
		t.Errorf("received mismatch (-want +got):\n%s", diff)
	}

	stats, err = New(NewClient(ts.URL, "secret"), state, dir, false, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if stats.FilesSkipped != 2 || stats.FilesUploaded != 0 {
		t.Errorf("second run stats = %+v", stats)
	}
}

// TestRunDryRun verifies a dry run validates files without contacting a server.
func TestRunDryRun(t *testing.T) {
	dir := writeDir(t, map[string]string{"a.json": validSession, "b.json": `{"exercises": []}`})

	stats, err := New(nil, nil, dir, true, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesUploaded != 1 || stats.Rejected["missing_date"] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

// TestRunAuthFailureAborts verifies a wrong API key stops the run instead of being
// counted as a rejected file.
func TestRunAuthFailureAborts(t *testing.T) {
	dir := writeDir(t, map[string]string{"a.json": validSession})
	ts := httptest.NewServer(&ingestServer{})
	defer ts.Close()

	_, err := New(NewClient(ts.URL, "wrong"), nil, dir, false, testLogger()).Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		t.Errorf("auth failure reported as rejection: %v", err)
	}
}

// TestSendSessionRetries verifies 5xx responses are retried and then succeed.
func TestSendSessionRetries(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(ingest.Result{SessionsInserted: 1})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "secret")
	c.backoff = time.Millisecond
	result, err := c.SendSession(context.Background(), "a.json", []byte(validSession))
	if err != nil {
		t.Fatal(err)
	}
	if result.SessionsInserted != 1 || calls != 3 {
		t.Errorf("result = %+v after %d calls", result, calls)
	}
}

// TestSendSessionGivesUp verifies the client stops after 3 failed attempts.
func TestSendSessionGivesUp(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "secret")
	c.backoff = time.Millisecond
	if _, err := c.SendSession(context.Background(), "a.json", []byte(validSession)); err == nil {
		t.Fatal("expected error")
	}
}
