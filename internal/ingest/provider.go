package ingest

import "github.com/claude/crimpy/internal/intensity"

// Result holds the outcome of an ingest operation.
type Result struct {
	SessionsReceived int   `json:"sessions_received"`
	SessionsInserted int   `json:"sessions_inserted"`
	SetsInserted     int64 `json:"sets_inserted"`

	Date      string              `json:"date,omitempty"`
	Workout   bool                `json:"workout"`
	Outdoor   bool                `json:"outdoor"`
	Breakdown intensity.Breakdown `json:"breakdown"`
	Total     float64             `json:"total"`

	Message string `json:"message,omitempty"`
}
