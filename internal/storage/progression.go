package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/crimpy/internal/progression"
)

// GetFingerboardProgression returns summed hang effort per date and edge.
func (db *DB) GetFingerboardProgression(ctx context.Context, start, end time.Time) ([]progression.Point, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT session_date, edge, SUM(effort)
		 FROM fingerboard_sets
		 WHERE session_date >= $1 AND session_date < $2
		 GROUP BY session_date, edge
		 ORDER BY session_date ASC, edge ASC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying fingerboard progression: %w", err)
	}
	defer rows.Close()

	var result []progression.Point
	for rows.Next() {
		var p progression.Point
		if err := rows.Scan(&p.Date, &p.Edge, &p.Value); err != nil {
			return nil, fmt.Errorf("scanning fingerboard point: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// GetCampusProgression returns summed moves and spread per date and edge.
func (db *DB) GetCampusProgression(ctx context.Context, start, end time.Time) (moves, spread []progression.Point, err error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT session_date, edge, SUM(moves)::float8, SUM(spread)::float8
		 FROM campus_sets
		 WHERE session_date >= $1 AND session_date < $2
		 GROUP BY session_date, edge
		 ORDER BY session_date ASC, edge ASC`,
		start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("querying campus progression: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var date time.Time
		var edge string
		var m, s float64
		if err := rows.Scan(&date, &edge, &m, &s); err != nil {
			return nil, nil, fmt.Errorf("scanning campus point: %w", err)
		}
		moves = append(moves, progression.Point{Date: date, Edge: edge, Value: m})
		spread = append(spread, progression.Point{Date: date, Edge: edge, Value: s})
	}
	return moves, spread, rows.Err()
}

// GetPullupProgression returns summed repetitions per date and added weight. Sets
// without a logged weight are excluded.
func (db *DB) GetPullupProgression(ctx context.Context, start, end time.Time) ([]progression.WeightPoint, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT session_date, weight_kg, SUM(repetitions)::float8
		 FROM pullup_sets
		 WHERE session_date >= $1 AND session_date < $2 AND weight_kg IS NOT NULL
		 GROUP BY session_date, weight_kg
		 ORDER BY session_date ASC, weight_kg ASC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying pullup progression: %w", err)
	}
	defer rows.Close()

	var result []progression.WeightPoint
	for rows.Next() {
		var p progression.WeightPoint
		if err := rows.Scan(&p.Date, &p.WeightKg, &p.Value); err != nil {
			return nil, fmt.Errorf("scanning pullup point: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
