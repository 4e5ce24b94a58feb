package mcp

import (
	"context"
	"time"

	"github.com/claude/crimpy/internal/progression"
	"github.com/claude/crimpy/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	QuerySessions(ctx context.Context, start, end time.Time) ([]storage.SessionSummary, error)
	GetIntensitySummary(ctx context.Context, start, end time.Time, bucket string) ([]storage.IntensityPeriod, error)
	GetFingerboardProgression(ctx context.Context, start, end time.Time) ([]progression.Point, error)
	GetCampusProgression(ctx context.Context, start, end time.Time) (moves, spread []progression.Point, err error)
	GetPullupProgression(ctx context.Context, start, end time.Time) ([]progression.WeightPoint, error)
	GetDataStats(ctx context.Context) (*storage.DataStats, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
