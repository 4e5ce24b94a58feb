package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/crimpy/internal/intensity"
	"github.com/claude/crimpy/internal/models"
	"github.com/claude/crimpy/internal/progression"
)

// SessionSummary is one stored session with its derived breakdown.
type SessionSummary struct {
	ID           uuid.UUID           `json:"id"`
	Date         time.Time           `json:"date"`
	Name         string              `json:"name"`
	SourceFile   string              `json:"source_file"`
	HasExercises bool                `json:"has_exercises"`
	Outdoor      bool                `json:"outdoor"`
	ProjectGrade *string             `json:"project_grade,omitempty"`
	Breakdown    intensity.Breakdown `json:"breakdown"`
	Total        float64             `json:"total"`
	ImportedAt   time.Time           `json:"imported_at"`
}

// Point returns the timeline view of a stored session.
func (s SessionSummary) Point() progression.SessionPoint {
	p := progression.SessionPoint{
		Date:      s.Date,
		Name:      s.Name,
		Workout:   s.HasExercises,
		Outdoor:   s.Outdoor,
		Breakdown: s.Breakdown,
	}
	if s.ProjectGrade != nil {
		p.ProjectGrade = *s.ProjectGrade
	}
	return p
}

// UpsertSession stores an evaluated session and replaces its set rows, so re-imports
// of the same file always reflect the latest evaluation. Returns the set rows inserted.
func (db *DB) UpsertSession(ctx context.Context, s *intensity.Session) (int64, error) {
	rec := s.Record
	id := models.SessionID(rec.SourceFile)

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var grade *string
	if s.ProjectGrade != "" {
		grade = &s.ProjectGrade
	}
	b := s.Breakdown
	_, err = tx.Exec(ctx,
		`INSERT INTO sessions (id, session_date, name, source_file, has_exercises, outdoor,
		 project_grade, fingerboard, campusboard, pullup, project, total, imported_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12, now())
		 ON CONFLICT (id) DO UPDATE SET
		 session_date = EXCLUDED.session_date, name = EXCLUDED.name,
		 has_exercises = EXCLUDED.has_exercises, outdoor = EXCLUDED.outdoor,
		 project_grade = EXCLUDED.project_grade, fingerboard = EXCLUDED.fingerboard,
		 campusboard = EXCLUDED.campusboard, pullup = EXCLUDED.pullup,
		 project = EXCLUDED.project, total = EXCLUDED.total, imported_at = now()`,
		id, rec.Date, rec.Name, rec.SourceFile, rec.HasExercises, rec.Outdoor,
		grade, b.Fingerboard, b.Campusboard, b.Pullup, b.Project, b.Total(),
	)
	if err != nil {
		return 0, fmt.Errorf("upserting session %s: %w", rec.SourceFile, err)
	}

	for _, table := range []string{"fingerboard_sets", "campus_sets", "pullup_sets"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE session_id = $1`, id); err != nil {
			return 0, fmt.Errorf("clearing %s for %s: %w", table, rec.SourceFile, err)
		}
	}

	var inserted int64

	fbRows := make([][]any, 0, len(s.Fingerboard))
	for i, fb := range s.Fingerboard {
		fbRows = append(fbRows, []any{id, i + 1, rec.Date, fb.Edge, edgeMM(fb.Edge),
			fb.Reps, fb.TimeOn, fb.TimeOff, fb.Rest, fb.Effort})
	}
	n, err := insertRows(ctx, tx, "fingerboard_sets",
		[]string{"session_id", "set_number", "session_date", "edge", "edge_mm",
			"reps", "time_on", "time_off", "rest", "effort"}, fbRows)
	if err != nil {
		return 0, err
	}
	inserted += n

	cbRows := make([][]any, 0, len(s.Campus))
	for i, cb := range s.Campus {
		cbRows = append(cbRows, []any{id, i + 1, rec.Date, cb.Edge, edgeMM(cb.Edge),
			cb.Steps, cb.Sides, cb.Moves, cb.Spread})
	}
	n, err = insertRows(ctx, tx, "campus_sets",
		[]string{"session_id", "set_number", "session_date", "edge", "edge_mm",
			"steps", "sides", "moves", "spread"}, cbRows)
	if err != nil {
		return 0, err
	}
	inserted += n

	puRows := make([][]any, 0, len(s.Pullups))
	for i, pu := range s.Pullups {
		puRows = append(puRows, []any{id, i + 1, rec.Date, pu.Repetitions, pu.WeightKg})
	}
	n, err = insertRows(ctx, tx, "pullup_sets",
		[]string{"session_id", "set_number", "session_date", "repetitions", "weight_kg"}, puRows)
	if err != nil {
		return 0, err
	}
	inserted += n

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing session %s: %w", rec.SourceFile, err)
	}
	return inserted, nil
}

// insertRows batch-inserts rows into table with a single multi-row VALUES statement.
func insertRows(ctx context.Context, tx pgx.Tx, table string, cols []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(rows)*len(cols))
	valueStrings := make([]string, 0, len(rows))
	for i, r := range rows {
		placeholders := make([]string, len(cols))
		for j := range cols {
			placeholders[j] = fmt.Sprintf("$%d", i*len(cols)+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		args = append(args, r...)
	}

	query := `INSERT INTO ` + table + ` (` + strings.Join(cols, ", ") + `) VALUES ` +
		strings.Join(valueStrings, ",")
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func edgeMM(edge string) *float64 {
	if v, ok := models.ExtractEdgeValue(edge); ok {
		return &v
	}
	return nil
}

// QuerySessions returns stored sessions in [start, end), oldest first.
func (db *DB) QuerySessions(ctx context.Context, start, end time.Time) ([]SessionSummary, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, session_date, name, source_file, has_exercises, outdoor, project_grade,
		 fingerboard, campusboard, pullup, project, total, imported_at
		 FROM sessions
		 WHERE session_date >= $1 AND session_date < $2
		 ORDER BY session_date ASC, source_file ASC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.ID, &s.Date, &s.Name, &s.SourceFile, &s.HasExercises, &s.Outdoor,
			&s.ProjectGrade, &s.Breakdown.Fingerboard, &s.Breakdown.Campusboard,
			&s.Breakdown.Pullup, &s.Breakdown.Project, &s.Total, &s.ImportedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// DeleteSession removes a stored session and its set rows. Returns false when no
// session was stored for sourceFile.
func (db *DB) DeleteSession(ctx context.Context, sourceFile string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM sessions WHERE source_file = $1`, sourceFile)
	if err != nil {
		return false, fmt.Errorf("deleting session %s: %w", sourceFile, err)
	}
	return tag.RowsAffected() > 0, nil
}
