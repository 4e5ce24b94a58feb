package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/crimpy/internal/intensity"
	"github.com/claude/crimpy/internal/progression"
	"github.com/claude/crimpy/internal/storage"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

var (
	rangeStart = day(2025, 3, 1)
	rangeEnd   = day(2025, 3, 8)
)

// TestQuerySessions verifies the time range is sent as RFC3339 and the session list
// decodes with its breakdown.
func TestQuerySessions(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("start"); got != rangeStart.Format(time.RFC3339) {
				t.Errorf("start=%q", got)
			}
			if got := r.URL.Query().Get("end"); got != rangeEnd.Format(time.RFC3339) {
				t.Errorf("end=%q", got)
			}
			writeTestJSON(t, w, []storage.SessionSummary{
				{Date: rangeStart, SourceFile: "a.json", HasExercises: true, Breakdown: intensity.Breakdown{Campusboard: 4.5}, Total: 4.5},
			})
		},
	})
	defer ts.Close()

	sessions, err := NewHTTPClient(ts.URL+"/").QuerySessions(context.Background(), rangeStart, rangeEnd)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].SourceFile != "a.json" || sessions[0].Breakdown.Campusboard != 4.5 {
		t.Errorf("session = %+v", sessions[0])
	}
}

// TestGetIntensitySummaryAgg verifies MCP bucket values map to the REST agg parameter.
func TestGetIntensitySummaryAgg(t *testing.T) {
	tests := []struct {
		bucket, want string
	}{
		{"1 day", "daily"},
		{"1 week", "weekly"},
		{"1 month", "monthly"},
		{"", "weekly"},
	}
	for _, tt := range tests {
		t.Run(tt.want+"_"+tt.bucket, func(t *testing.T) {
			ts := newTestServer(t, map[string]http.HandlerFunc{
				"/api/v1/intensity/summary": func(w http.ResponseWriter, r *http.Request) {
					if got := r.URL.Query().Get("agg"); got != tt.want {
						t.Errorf("agg=%q, want %q", got, tt.want)
					}
					writeTestJSON(t, w, []storage.IntensityPeriod{{Period: "2025-03-03", Sessions: 3}})
				},
			})
			defer ts.Close()

			periods, err := NewHTTPClient(ts.URL).GetIntensitySummary(context.Background(), rangeStart, rangeEnd, tt.bucket)
			if err != nil {
				t.Fatal(err)
			}
			if len(periods) != 1 || periods[0].Sessions != 3 {
				t.Errorf("periods = %+v", periods)
			}
		})
	}
}

// TestProgressionRequestsPoints verifies the client asks for raw points and decodes
// each progression shape.
func TestProgressionRequestsPoints(t *testing.T) {
	checkView := func(t *testing.T, r *http.Request) {
		if got := r.URL.Query().Get("view"); got != "points" {
			t.Errorf("%s view=%q, want points", r.URL.Path, got)
		}
	}
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/progression/fingerboard": func(w http.ResponseWriter, r *http.Request) {
			checkView(t, r)
			writeTestJSON(t, w, []progression.Point{{Date: rangeStart, Edge: "15mm", Value: 30}})
		},
		"/api/v1/progression/campus": func(w http.ResponseWriter, r *http.Request) {
			checkView(t, r)
			writeTestJSON(t, w, map[string][]progression.Point{
				"moves":  {{Date: rangeStart, Edge: "M", Value: 12}},
				"spread": {{Date: rangeStart, Edge: "M", Value: 5}},
			})
		},
		"/api/v1/progression/pullup": func(w http.ResponseWriter, r *http.Request) {
			checkView(t, r)
			writeTestJSON(t, w, []progression.WeightPoint{{Date: rangeStart, WeightKg: 20, Value: 8}})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	ctx := context.Background()

	fb, err := client.GetFingerboardProgression(ctx, rangeStart, rangeEnd)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]progression.Point{{Date: rangeStart, Edge: "15mm", Value: 30}}, fb); diff != "" {
		t.Errorf("fingerboard mismatch (-want +got):\n%s", diff)
	}

	moves, spread, err := client.GetCampusProgression(ctx, rangeStart, rangeEnd)
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) != 1 || moves[0].Value != 12 || len(spread) != 1 || spread[0].Value != 5 {
		t.Errorf("campus moves=%+v spread=%+v", moves, spread)
	}

	pu, err := client.GetPullupProgression(ctx, rangeStart, rangeEnd)
	if err != nil {
		t.Fatal(err)
	}
	if len(pu) != 1 || pu[0].WeightKg != 20 {
		t.Errorf("pullup = %+v", pu)
	}
}

// TestGetDataStats verifies the client correctly parses a single struct response.
func TestGetDataStats(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/stats": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.RawQuery != "" {
				t.Errorf("unexpected query %q", r.URL.RawQuery)
			}
			writeTestJSON(t, w, storage.DataStats{TotalSessions: 12, OutdoorDays: 3})
		},
	})
	defer ts.Close()

	stats, err := NewHTTPClient(ts.URL).GetDataStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSessions != 12 || stats.OutdoorDays != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

// TestHTTPErrorStatus verifies non-200 responses become errors carrying the body.
func TestHTTPErrorStatus(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/stats": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"database down"}`, http.StatusInternalServerError)
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL).GetDataStats(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "database down") {
		t.Errorf("err = %v", err)
	}
}

// TestHTTPDecodeError verifies a body of the wrong shape is reported.
func TestHTTPDecodeError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, map[string]string{"error": "nope"})
		},
	})
	defer ts.Close()

	if _, err := NewHTTPClient(ts.URL).QuerySessions(context.Background(), rangeStart, rangeEnd); err == nil {
		t.Error("expected decode error")
	}
}
