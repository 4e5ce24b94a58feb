package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/crimpy/internal/ingest/logbook"
	"github.com/claude/crimpy/internal/intensity"
	"github.com/claude/crimpy/internal/models"
	"github.com/claude/crimpy/internal/progression"
	"github.com/claude/crimpy/internal/storage"
)

// defaultTimeRange returns start/end defaulting to the last days days. A date-only end
// covers that whole day.
func defaultTimeRange(startStr, endStr string, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if len(endStr) == len(time.DateOnly) {
			end = end.AddDate(0, 0, 1)
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetSessions = mcp.NewTool("get_sessions",
	mcp.WithDescription("List stored training sessions and outdoor climbing days with their per-category intensity (fingerboard, campusboard, pullup, project) and total."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetIntensityTimeline = mcp.NewTool("get_intensity_timeline",
	mcp.WithDescription("Stacked intensity timeline: one entry per workout with its day offset, breakdown and project grade, plus outdoor-day markers."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
)

var toolGetIntensitySummary = mcp.NewTool("get_intensity_summary",
	mcp.WithDescription("Training load per period: session count, outdoor days, summed intensity per category, total and average per workout."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 6 months ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to '1 week'."), mcp.Enum("1 day", "1 week", "1 month")),
)

var toolGetProgression = mcp.NewTool("get_progression",
	mcp.WithDescription("Exercise progression as a stacked chart by date: fingerboard effort per edge, campus moves and spread per edge, or pull-up repetitions per added weight."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Which progression"), mcp.Enum("fingerboard", "campus", "pullup")),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 180 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
)

var toolComparePeriods = mcp.NewTool("compare_periods",
	mcp.WithDescription("Compare summed training intensity per category between two time periods (e.g. this month vs last month)."),
	mcp.WithString("period_a_start", mcp.Required(), mcp.Description("Period A start date")),
	mcp.WithString("period_a_end", mcp.Required(), mcp.Description("Period A end date")),
	mcp.WithString("period_b_start", mcp.Required(), mcp.Description("Period B start date")),
	mcp.WithString("period_b_end", mcp.Required(), mcp.Description("Period B end date")),
)

var toolCalculateIntensity = mcp.NewTool("calculate_intensity",
	mcp.WithDescription("Score a session record (the JSON of one session file, date as DD-MM-YYYY) without storing it."),
	mcp.WithString("session", mcp.Required(), mcp.Description("Session record JSON")),
)

var toolGetDataStats = mcp.NewTool("get_data_stats",
	mcp.WithDescription("Overview of the stored data: session, workout, outdoor-day and set counts, and the covered date range."),
)

// --- Tool handlers ---

func (h *handlers) getSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 30)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	sessions, err := h.ds.QuerySessions(ctx, start, end)
	if err != nil {
		h.log.Error("mcp get_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sessions)
}

func (h *handlers) getIntensityTimeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 90)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	sessions, err := h.ds.QuerySessions(ctx, start, end)
	if err != nil {
		h.log.Error("mcp get_intensity_timeline", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	points := make([]progression.SessionPoint, len(sessions))
	for i, s := range sessions {
		points[i] = s.Point()
	}
	return jsonResult(progression.BuildTimeline(points))
}

func (h *handlers) getIntensitySummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	endStr := req.GetString("end", "")
	startStr := req.GetString("start", "")

	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return mcp.NewToolResultError("invalid end date: " + err.Error()), nil
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return mcp.NewToolResultError("invalid start date: " + err.Error()), nil
		}
	} else {
		start = end.AddDate(0, -6, 0)
	}

	bucket := req.GetString("bucket", "1 week")

	summary, err := h.ds.GetIntensitySummary(ctx, start, end, bucket)
	if err != nil {
		h.log.Error("mcp get_intensity_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(summary)
}

func (h *handlers) getProgression(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 180)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	switch exercise {
	case "fingerboard":
		points, err := h.ds.GetFingerboardProgression(ctx, start, end)
		if err != nil {
			h.log.Error("mcp get_progression", "exercise", exercise, "error", err)
			return mcp.NewToolResultError("query failed: " + err.Error()), nil
		}
		return jsonResult(progression.FingerboardChart(points))
	case "campus":
		moves, spread, err := h.ds.GetCampusProgression(ctx, start, end)
		if err != nil {
			h.log.Error("mcp get_progression", "exercise", exercise, "error", err)
			return mcp.NewToolResultError("query failed: " + err.Error()), nil
		}
		movesChart, spreadChart := progression.CampusCharts(moves, spread)
		return jsonResult(map[string]progression.Chart{"moves": movesChart, "spread": spreadChart})
	case "pullup":
		points, err := h.ds.GetPullupProgression(ctx, start, end)
		if err != nil {
			h.log.Error("mcp get_progression", "exercise", exercise, "error", err)
			return mcp.NewToolResultError("query failed: " + err.Error()), nil
		}
		return jsonResult(progression.PullupChart(points))
	default:
		return mcp.NewToolResultError("exercise must be fingerboard, campus or pullup"), nil
	}
}

// periodLoad is the summed intensity of one period.
type periodLoad struct {
	Start     string              `json:"start"`
	End       string              `json:"end"`
	Workouts  int                 `json:"workouts"`
	Outdoor   int                 `json:"outdoor_days"`
	Breakdown intensity.Breakdown `json:"breakdown"`
	Total     float64             `json:"total"`
}

func loadOf(sessions []storage.SessionSummary, start, end time.Time) periodLoad {
	p := periodLoad{Start: start.Format(time.DateOnly), End: end.Format(time.DateOnly)}
	for _, s := range sessions {
		if s.HasExercises {
			p.Workouts++
			p.Breakdown = p.Breakdown.Add(s.Breakdown)
		}
		if s.Outdoor {
			p.Outdoor++
		}
	}
	p.Total = p.Breakdown.Total()
	return p
}

func (h *handlers) comparePeriods(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var bounds [4]time.Time
	for i, name := range []string{"period_a_start", "period_a_end", "period_b_start", "period_b_end"} {
		v, err := req.RequireString(name)
		if err != nil {
			return mcp.NewToolResultError(name + " parameter is required"), nil
		}
		if bounds[i], err = parseFlexTime(v); err != nil {
			return mcp.NewToolResultError("invalid " + name + ": " + err.Error()), nil
		}
	}

	var loads [2]periodLoad
	for i := range loads {
		start, end := bounds[2*i], bounds[2*i+1]
		sessions, err := h.ds.QuerySessions(ctx, start, end)
		if err != nil {
			h.log.Error("mcp compare_periods", "error", err)
			return mcp.NewToolResultError("query failed: " + err.Error()), nil
		}
		loads[i] = loadOf(sessions, start, end)
	}

	a, b := loads[0].Breakdown, loads[1].Breakdown
	change := map[string]float64{"total": loads[1].Total - loads[0].Total}
	for _, c := range models.Categories {
		change[c.String()] = b.Get(c) - a.Get(c)
	}

	return jsonResult(map[string]any{
		"period_a": loads[0],
		"period_b": loads[1],
		"change":   change,
	})
}

func (h *handlers) calculateIntensity(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError("session parameter is required"), nil
	}

	rec, err := logbook.Parse(strings.NewReader(raw), "session")
	if err != nil {
		return mcp.NewToolResultError(logbook.Kind(err) + ": " + err.Error()), nil
	}

	s := h.model.Evaluate(rec)
	return jsonResult(map[string]any{
		"date":          rec.Date.Format(models.DateLayout),
		"workout":       rec.HasExercises,
		"outdoor":       rec.Outdoor,
		"breakdown":     s.Breakdown,
		"total":         s.Total(),
		"project_grade": s.ProjectGrade,
	})
}

func (h *handlers) getDataStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.ds.GetDataStats(ctx)
	if err != nil {
		h.log.Error("mcp get_data_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(stats)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
