package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about all stored data.
type DataStats struct {
	TotalSessions  int64          `json:"total_sessions"`
	TotalWorkouts  int64          `json:"total_workouts"`
	OutdoorDays    int64          `json:"outdoor_days"`
	TotalSets      int64          `json:"total_sets"`
	EarliestData   *time.Time     `json:"earliest_data"`
	LatestData     *time.Time     `json:"latest_data"`
	SetsByCategory []CategoryStat `json:"sets_by_category"`
}

// CategoryStat holds the set count and summed intensity of one category.
type CategoryStat struct {
	Category  string  `json:"category"`
	Sets      int64   `json:"sets"`
	Intensity float64 `json:"intensity"`
}

// GetDataStats returns aggregate statistics for the stored sessions.
func (db *DB) GetDataStats(ctx context.Context) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE has_exercises),
		        COUNT(*) FILTER (WHERE outdoor),
		        MIN(session_date)::timestamptz,
		        MAX(session_date)::timestamptz
		 FROM sessions`,
	).Scan(&stats.TotalSessions, &stats.TotalWorkouts, &stats.OutdoorDays,
		&stats.EarliestData, &stats.LatestData)
	if err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}

	var fb, cb, pu int64
	var fbI, cbI, puI, projI float64
	err = db.Pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM fingerboard_sets),
		        (SELECT COUNT(*) FROM campus_sets),
		        (SELECT COUNT(*) FROM pullup_sets),
		        COALESCE(SUM(fingerboard), 0),
		        COALESCE(SUM(campusboard), 0),
		        COALESCE(SUM(pullup), 0),
		        COALESCE(SUM(project), 0)
		 FROM sessions`,
	).Scan(&fb, &cb, &pu, &fbI, &cbI, &puI, &projI)
	if err != nil {
		return nil, fmt.Errorf("counting sets: %w", err)
	}

	stats.TotalSets = fb + cb + pu
	stats.SetsByCategory = []CategoryStat{
		{Category: "fingerboard", Sets: fb, Intensity: fbI},
		{Category: "campusboard", Sets: cb, Intensity: cbI},
		{Category: "pullup", Sets: pu, Intensity: puI},
		{Category: "project", Intensity: projI},
	}
	return stats, nil
}
