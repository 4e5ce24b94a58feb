package logbook

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/crimpy/internal/ingest"
	"github.com/claude/crimpy/internal/intensity"
	"github.com/claude/crimpy/internal/metrics"
	"github.com/claude/crimpy/internal/models"
)

// SessionStore persists evaluated sessions. *storage.DB implements it.
type SessionStore interface {
	UpsertSession(ctx context.Context, s *intensity.Session) (int64, error)
}

// Provider ingests single session files posted to the server.
type Provider struct {
	store   SessionStore
	model   *intensity.Model
	metrics *metrics.Manager
	log     *slog.Logger
}

// NewProvider creates a new session file ingest provider.
func NewProvider(store SessionStore, model *intensity.Model, m *metrics.Manager, log *slog.Logger) *Provider {
	return &Provider{store: store, model: model, metrics: m, log: log}
}

// Ingest parses one session file, evaluates it and stores the result. Loader failures
// are returned wrapped, so callers can classify them with Kind.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, source string) (*ingest.Result, error) {
	rec, err := Parse(r, source)
	if err != nil {
		p.metrics.FileOutcome(Kind(err))
		return nil, err
	}

	result := &ingest.Result{
		SessionsReceived: 1,
		Date:             rec.Date.Format(models.DateLayout),
		Workout:          rec.HasExercises,
		Outdoor:          rec.Outdoor,
	}
	if !rec.HasExercises && !rec.Outdoor {
		p.metrics.FileOutcome("skipped")
		result.Message = "session has neither exercises nor climbs, nothing stored"
		return result, nil
	}

	s := p.model.Evaluate(rec)
	result.Breakdown = s.Breakdown
	result.Total = s.Total()

	inserted, err := p.store.UpsertSession(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("storing %s: %w", source, err)
	}
	result.SessionsInserted = 1
	result.SetsInserted = inserted

	p.metrics.FileOutcome("processed")
	p.metrics.ObserveSession(rec.HasExercises, rec.Outdoor, s.Breakdown)
	p.log.Info("session ingested",
		"source", source,
		"date", result.Date,
		"total", result.Total,
		"sets", inserted,
	)
	return result, nil
}
