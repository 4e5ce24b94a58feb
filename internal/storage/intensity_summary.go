package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/crimpy/internal/intensity"
)

// IntensityPeriod holds the summed intensity of all sessions within one period.
type IntensityPeriod struct {
	Period        string              `json:"period"`
	Sessions      int                 `json:"sessions"`
	OutdoorDays   int                 `json:"outdoor_days"`
	Breakdown     intensity.Breakdown `json:"breakdown"`
	Total         float64             `json:"total"`
	AvgPerWorkout float64             `json:"avg_per_workout"`
}

// GetIntensitySummary returns per-category intensity sums per period, newest first.
// bucket is "1 day", "1 week" or "1 month".
func (db *DB) GetIntensitySummary(ctx context.Context, start, end time.Time, bucket string) ([]IntensityPeriod, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, session_date)::date AS period,
		        COUNT(*) FILTER (WHERE has_exercises)::int,
		        COUNT(*) FILTER (WHERE outdoor)::int,
		        COALESCE(SUM(fingerboard), 0),
		        COALESCE(SUM(campusboard), 0),
		        COALESCE(SUM(pullup), 0),
		        COALESCE(SUM(project), 0),
		        COALESCE(SUM(total), 0)
		 FROM sessions
		 WHERE session_date >= $2 AND session_date < $3
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end)
	if err != nil {
		return nil, fmt.Errorf("querying intensity summary: %w", err)
	}
	defer rows.Close()

	var result []IntensityPeriod
	for rows.Next() {
		var periodTime time.Time
		var p IntensityPeriod
		if err := rows.Scan(&periodTime, &p.Sessions, &p.OutdoorDays,
			&p.Breakdown.Fingerboard, &p.Breakdown.Campusboard,
			&p.Breakdown.Pullup, &p.Breakdown.Project, &p.Total); err != nil {
			return nil, fmt.Errorf("scanning intensity period: %w", err)
		}
		p.Period = periodTime.Format("2006-01-02")
		if p.Sessions > 0 {
			p.AvgPerWorkout = p.Total / float64(p.Sessions)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// truncInterval maps a bucket to a date_trunc field.
func truncInterval(bucket string) string {
	switch bucket {
	case "1 day":
		return "day"
	case "1 week":
		return "week"
	case "1 month":
		return "month"
	default:
		return "month"
	}
}
