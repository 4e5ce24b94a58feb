package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/claude/crimpy/internal/ingest"
	"github.com/claude/crimpy/internal/ingest/logbook"
	"github.com/claude/crimpy/internal/models"
	"github.com/claude/crimpy/internal/progression"
	"github.com/claude/crimpy/internal/storage"
)

// maxSessionBytes bounds a posted session file.
const maxSessionBytes = 1 << 20

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	source := strings.TrimSpace(r.URL.Query().Get("source"))
	if source == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "source parameter required"})
		return
	}

	begin := time.Now()
	result, err := s.ingest.Ingest(r.Context(), http.MaxBytesReader(w, r.Body, maxSessionBytes), source)
	s.logImport("api", source, result, err, int(time.Since(begin).Milliseconds()))
	if err != nil {
		if writeTooLarge(w, err) {
			return
		}
		if kind := logbook.Kind(err); kind != "io" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "kind": kind})
			return
		}
		s.log.Error("ingest error", "source", source, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if result.SessionsInserted > 0 {
		s.invalidate()
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	found, err := s.db.DeleteSession(r.Context(), source)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// calculateResponse is the stateless evaluation of a posted session file.
type calculateResponse struct {
	Date         string             `json:"date"`
	Name         string             `json:"name,omitempty"`
	Workout      bool               `json:"workout"`
	Outdoor      bool               `json:"outdoor"`
	Breakdown    map[string]float64 `json:"breakdown"`
	Total        float64            `json:"total"`
	ProjectGrade string             `json:"project_grade,omitempty"`
	Sets         []calculatedSet    `json:"sets"`
}

// calculatedSet is one counted set and what it added to its category.
type calculatedSet struct {
	Exercise     int     `json:"exercise"`
	Category     string  `json:"category"`
	Set          int     `json:"set"`
	Contribution float64 `json:"contribution"`
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	rec, err := logbook.Parse(http.MaxBytesReader(w, r.Body, maxSessionBytes), "request")
	if err != nil {
		if writeTooLarge(w, err) {
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "kind": logbook.Kind(err)})
		return
	}

	sess := s.model.Evaluate(rec)
	resp := calculateResponse{
		Date:         rec.Date.Format(models.DateLayout),
		Name:         rec.Name,
		Workout:      rec.HasExercises,
		Outdoor:      rec.Outdoor,
		Breakdown:    make(map[string]float64, len(models.Categories)),
		Total:        sess.Total(),
		ProjectGrade: sess.ProjectGrade,
		Sets:         []calculatedSet{},
	}
	for _, c := range models.Categories {
		resp.Breakdown[c.String()] = sess.Breakdown.Get(c)
	}
	for i, ex := range rec.Exercises {
		c, ok := ex.Category()
		if !ok || !ex.Counts() {
			continue
		}
		for j, set := range ex.Sets {
			resp.Sets = append(resp.Sets, calculatedSet{
				Exercise:     i,
				Category:     c.String(),
				Set:          j,
				Contribution: s.model.Contribution(c, set),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.model.Params())
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	s.cachedJSON(w, r, func() (any, error) {
		start, end, err := parseTimeRange(r)
		if err != nil {
			return nil, err
		}
		sessions, err := s.db.QuerySessions(r.Context(), start, end)
		if err != nil {
			return nil, err
		}
		if sessions == nil {
			sessions = []storage.SessionSummary{}
		}
		return sessions, nil
	})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	s.cachedJSON(w, r, func() (any, error) {
		start, end, err := parseTimeRange(r)
		if err != nil {
			return nil, err
		}
		sessions, err := s.db.QuerySessions(r.Context(), start, end)
		if err != nil {
			return nil, err
		}
		points := make([]progression.SessionPoint, len(sessions))
		for i, ss := range sessions {
			points[i] = ss.Point()
		}
		return progression.BuildTimeline(points), nil
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.cachedJSON(w, r, func() (any, error) {
		start, end, err := parseTimeRange(r)
		if err != nil {
			return nil, err
		}

		bucket := "1 week" // default
		switch agg := r.URL.Query().Get("agg"); agg {
		case "daily":
			bucket = "1 day"
		case "weekly", "":
			bucket = "1 week"
		case "monthly":
			bucket = "1 month"
		default:
			return nil, fmt.Errorf("%w: unknown agg %q", errBadRequest, agg)
		}

		periods, err := s.db.GetIntensitySummary(r.Context(), start, end, bucket)
		if err != nil {
			return nil, err
		}
		if periods == nil {
			periods = []storage.IntensityPeriod{}
		}
		return periods, nil
	})
}

func (s *Server) handleProgression(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	// view=points returns the aggregated points instead of the stacked chart.
	raw := r.URL.Query().Get("view") == "points"
	s.cachedJSON(w, r, func() (any, error) {
		start, end, err := parseTimeRange(r)
		if err != nil {
			return nil, err
		}

		switch kind {
		case "fingerboard":
			points, err := s.db.GetFingerboardProgression(r.Context(), start, end)
			if err != nil {
				return nil, err
			}
			if raw {
				return nonNil(points), nil
			}
			return progression.FingerboardChart(points), nil
		case "campus":
			moves, spread, err := s.db.GetCampusProgression(r.Context(), start, end)
			if err != nil {
				return nil, err
			}
			if raw {
				return map[string][]progression.Point{"moves": nonNil(moves), "spread": nonNil(spread)}, nil
			}
			movesChart, spreadChart := progression.CampusCharts(moves, spread)
			return map[string]progression.Chart{"moves": movesChart, "spread": spreadChart}, nil
		case "pullup":
			points, err := s.db.GetPullupProgression(r.Context(), start, end)
			if err != nil {
				return nil, err
			}
			if raw {
				return nonNil(points), nil
			}
			return progression.PullupChart(points), nil
		default:
			return nil, fmt.Errorf("%w: unknown progression %q (want fingerboard, campus or pullup)", errBadRequest, kind)
		}
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.cachedJSON(w, r, func() (any, error) {
		return s.db.GetDataStats(r.Context())
	})
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []storage.ImportLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// logImport records an ingest operation's result to the import_logs table.
func (s *Server) logImport(source, file string, result *ingest.Result, importErr error, durationMs int) {
	status := "success"
	var errMsg *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errMsg = &msg
	}

	entry := storage.ImportLog{
		Source:        source,
		Status:        status,
		FilesReceived: 1,
		DurationMs:    &durationMs,
		ErrorMessage:  errMsg,
	}
	if importErr != nil {
		entry.FilesErrored = 1
	}
	if result != nil {
		entry.SessionsInserted = result.SessionsInserted
		entry.SetsInserted = result.SetsInserted
	}
	meta := json.RawMessage(mustJSON(map[string]string{"file": file}))
	entry.Metadata = &meta

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, entry); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// nonNil keeps empty results encoding as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

// writeTooLarge answers 413 when err comes from an oversized request body.
func writeTooLarge(w http.ResponseWriter, err error) bool {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return false
	}
	writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
		"error": fmt.Sprintf("session file exceeds %d bytes", tooLarge.Limit),
		"kind":  "too_large",
	})
	return true
}

// writeJSON encodes v before writing the header, so an unencodable value is a 500
// rather than an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}

// parseTimeRange reads start and end as RFC3339 or YYYY-MM-DD. A date-only end is
// inclusive. Without start the range is the last 90 days.
func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if endStr == "" {
		end = time.Now()
	} else if end, err = parseTime(endStr); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid end: %v", errBadRequest, err)
	} else if len(endStr) == len(time.DateOnly) {
		end = end.AddDate(0, 0, 1)
	}

	if startStr == "" {
		return end.AddDate(0, 0, -90), end, nil
	}
	if start, err = parseTime(startStr); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid start: %v", errBadRequest, err)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start must be before end", errBadRequest)
	}
	return start, end, nil
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("want RFC3339 or YYYY-MM-DD, got " + strconv.Quote(v))
}
