package logbook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/claude/crimpy/internal/intensity"
	"github.com/claude/crimpy/internal/metrics"
)

// TestParse covers date handling, outdoor naming and the loader failure kinds.
func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
		wantDate time.Time
		wantName string
	}{
		{
			name:     "padded date",
			input:    `{"date": "04-03-2025", "name": "Max hangs", "exercises": []}`,
			wantDate: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
			wantName: "Max hangs",
		},
		{
			name:     "unpadded date",
			input:    `{"date": "4-3-2025", "exercises": []}`,
			wantDate: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "surrounding whitespace",
			input:    `{"date": " 31-12-2024 ", "exercises": []}`,
			wantDate: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "outdoor without name",
			input:    `{"date": "05-03-2025", "climbs": []}`,
			wantDate: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
			wantName: "Outdoor",
		},
		{
			name:     "outdoor with name",
			input:    `{"date": "05-03-2025", "name": "Magic Wood", "climbs": [{"grade": "7a"}]}`,
			wantDate: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
			wantName: "Magic Wood",
		},
		{name: "truncated document", input: `{"date": "05-03-2025"`, wantErr: ErrMalformedRecord},
		{name: "top level array", input: `[1, 2]`, wantErr: ErrMalformedRecord},
		{name: "no date", input: `{"exercises": []}`, wantErr: ErrMissingDate},
		{name: "blank date", input: `{"date": "  ", "exercises": []}`, wantErr: ErrMissingDate},
		{name: "iso date", input: `{"date": "2025-03-05"}`, wantErr: ErrUnparseableDate},
		{name: "impossible date", input: `{"date": "31-02-2025"}`, wantErr: ErrUnparseableDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Parse(strings.NewReader(tt.input), "session.json")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !rec.Date.Equal(tt.wantDate) {
				t.Errorf("Date = %v, want %v", rec.Date, tt.wantDate)
			}
			if rec.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", rec.Name, tt.wantName)
			}
			if rec.SourceFile != "session.json" {
				t.Errorf("SourceFile = %q", rec.SourceFile)
			}
		})
	}
}

// TestKind verifies the failure names used in logs and counters.
func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrMalformedRecord, "malformed_record"},
		{ErrMissingDate, "missing_date"},
		{ErrUnparseableDate, "unparseable_date"},
		{os.ErrNotExist, "io"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

// TestParseFile verifies that the record carries the file's base name.
func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2025-03-04.json")
	if err := os.WriteFile(path, []byte(`{"date": "04-03-2025", "exercises": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	rec, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if rec.SourceFile != "2025-03-04.json" {
		t.Errorf("SourceFile = %q", rec.SourceFile)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.json")); Kind(err) != "io" {
		t.Errorf("missing file kind = %q, want io", Kind(err))
	}
}

type memStore struct {
	sessions []*intensity.Session
}

func (m *memStore) UpsertSession(_ context.Context, s *intensity.Session) (int64, error) {
	m.sessions = append(m.sessions, s)
	return int64(len(s.Fingerboard) + len(s.Campus) + len(s.Pullups)), nil
}

func newTestProvider(store SessionStore) *Provider {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProvider(store, intensity.New(intensity.DefaultParams(), nil), metrics.NewTestManager(), log)
}

// TestProviderIngest verifies that a workout is evaluated and stored with its sets.
func TestProviderIngest(t *testing.T) {
	store := &memStore{}
	body := `{"date": "04-03-2025", "exercises": [
		{"type": "fingerboard", "executed": true, "order": 1, "sets": [
			{"edge": "20mm", "reps": 6, "timeon": "7s", "timeoff": "3s", "rest": "3m"},
			{"edge": "15mm", "reps": 6, "timeon": "7s", "timeoff": "3s", "rest": "3m"}
		]}
	]}`

	res, err := newTestProvider(store).Ingest(context.Background(), strings.NewReader(body), "upload.json")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.SessionsInserted != 1 || res.SetsInserted != 2 {
		t.Errorf("result = %+v", res)
	}
	if res.Date != "04-03-2025" || !res.Workout || res.Outdoor {
		t.Errorf("result flags = %+v", res)
	}
	if res.Total <= 0 || res.Total != res.Breakdown.Fingerboard {
		t.Errorf("total = %v, breakdown = %+v", res.Total, res.Breakdown)
	}
	if len(store.sessions) != 1 {
		t.Fatalf("stored %d sessions, want 1", len(store.sessions))
	}
}

// TestProviderIngestEmpty verifies that a record with neither exercises nor climbs is
// reported but not stored.
func TestProviderIngestEmpty(t *testing.T) {
	store := &memStore{}
	res, err := newTestProvider(store).Ingest(context.Background(), strings.NewReader(`{"date": "04-03-2025"}`), "empty.json")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Message == "" || res.SessionsInserted != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(store.sessions) != 0 {
		t.Errorf("stored %d sessions, want 0", len(store.sessions))
	}
}

// TestProviderIngestInvalid verifies that loader failures come back classifiable.
func TestProviderIngestInvalid(t *testing.T) {
	_, err := newTestProvider(&memStore{}).Ingest(context.Background(), strings.NewReader(`{"exercises": []}`), "nodate.json")
	if !errors.Is(err, ErrMissingDate) {
		t.Errorf("err = %v, want ErrMissingDate", err)
	}
}
