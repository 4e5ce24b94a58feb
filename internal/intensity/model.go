package intensity

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/claude/crimpy/internal/models"
)

// Breakdown is the per-category intensity of one session. Every field is non-negative
// for well-formed input and 0 when the category has no qualifying exercise.
type Breakdown struct {
	Fingerboard float64 `json:"fingerboard"`
	Campusboard float64 `json:"campusboard"`
	Pullup      float64 `json:"pullup"`
	Project     float64 `json:"project"`
}

// Total is the session intensity: the sum of all four categories.
func (b Breakdown) Total() float64 {
	return b.Fingerboard + b.Campusboard + b.Pullup + b.Project
}

// Get returns the value of one category.
func (b Breakdown) Get(c models.Category) float64 {
	switch c {
	case models.Fingerboard:
		return b.Fingerboard
	case models.Campusboard:
		return b.Campusboard
	case models.Pullup:
		return b.Pullup
	case models.Project:
		return b.Project
	}
	return 0
}

// Add returns b with each category of o added to it.
func (b Breakdown) Add(o Breakdown) Breakdown {
	return Breakdown{
		Fingerboard: b.Fingerboard + o.Fingerboard,
		Campusboard: b.Campusboard + o.Campusboard,
		Pullup:      b.Pullup + o.Pullup,
		Project:     b.Project + o.Project,
	}
}

func (b *Breakdown) add(c models.Category, v float64) {
	switch c {
	case models.Fingerboard:
		b.Fingerboard += v
	case models.Campusboard:
		b.Campusboard += v
	case models.Pullup:
		b.Pullup += v
	case models.Project:
		b.Project += v
	}
}

// Model computes session intensities. It holds no mutable state and is safe for
// concurrent use.
type Model struct {
	params Params
	log    *slog.Logger
}

// New creates a model. A nil logger discards the per-set trace.
func New(params Params, log *slog.Logger) *Model {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Model{params: params, log: log}
}

// Params returns the constants the model was built with.
func (m *Model) Params() Params {
	return m.params
}

// Breakdown computes the per-category intensity of rec. Only executed exercises with a
// non-zero order and a recognised type contribute.
func (m *Model) Breakdown(rec *models.SessionRecord) Breakdown {
	var sums Breakdown
	if rec == nil {
		return sums
	}
	for _, ex := range rec.Exercises {
		if !ex.Counts() {
			continue
		}
		c, ok := ex.Category()
		if !ok {
			continue
		}
		for _, s := range ex.Sets {
			v, ok := m.setValue(c, s)
			if !ok {
				continue
			}
			sums.add(c, v)
		}
	}

	norm := m.params.Normalization
	return Breakdown{
		Fingerboard: m.params.Fingerboard.K * sums.Fingerboard / norm,
		Campusboard: m.params.Campusboard.K * sums.Campusboard / norm,
		Pullup:      m.params.Pullup.K * sums.Pullup / norm,
		Project:     m.params.Project.K * sums.Project / norm,
	}
}

// Total returns the summed intensity of rec.
func (m *Model) Total(rec *models.SessionRecord) float64 {
	return m.Breakdown(rec).Total()
}

// Contribution returns one set's share of its category in the breakdown, already scaled
// by the category constant and the normalization. Skipped sets contribute 0.
func (m *Model) Contribution(c models.Category, s models.Set) float64 {
	v, ok := m.setValue(c, s)
	if !ok {
		return 0
	}
	var k float64
	switch c {
	case models.Fingerboard:
		k = m.params.Fingerboard.K
	case models.Campusboard:
		k = m.params.Campusboard.K
	case models.Pullup:
		k = m.params.Pullup.K
	case models.Project:
		k = m.params.Project.K
	}
	return k * v / m.params.Normalization
}

// setValue is the rest-discounted per-set value before category scaling. ok is false
// when the set is skipped.
func (m *Model) setValue(c models.Category, s models.Set) (float64, bool) {
	switch c {
	case models.Fingerboard:
		return m.fingerboardSet(s), true
	case models.Campusboard:
		return m.campusSet(s)
	case models.Pullup:
		return m.pullupSet(s), true
	case models.Project:
		return m.projectSet(s), true
	}
	return 0, false
}

func (m *Model) fingerboardSet(s models.Set) float64 {
	p := m.params.Fingerboard

	edgeFactor := 1.0
	if v, ok := models.ExtractEdgeValue(s.Edge); ok && v != 0 {
		edgeFactor = math.Pow(p.RefEdge/v, p.EdgeExponent)
	}
	timeOn := models.ParseDuration(s.TimeOn)
	timeOff := models.ParseDuration(s.TimeOff)
	rest := models.ParseDuration(s.Rest)

	onTerm := (timeOn / p.RefTimeOn) * p.WeightTimeOn
	var offTerm float64
	if timeOff > 0 {
		offTerm = (p.RefTimeOff / timeOff) * p.WeightTimeOff
	}
	edgeTerm := (p.RefEdge * edgeFactor) * p.WeightEdge
	repsTerm := (float64(s.Reps) / p.RefReps) * p.WeightReps
	divisor := p.Rest.Divisor(rest)

	m.log.Debug("fingerboard set",
		"edge", s.Edge,
		"time_on_term", onTerm,
		"time_off_term", offTerm,
		"edge_term", edgeTerm,
		"reps_term", repsTerm,
		"divisor", divisor,
	)
	return (onTerm + offTerm + edgeTerm + repsTerm) / divisor
}

func (m *Model) campusSet(s models.Set) (float64, bool) {
	p := m.params.Campusboard

	steps, ok := parseSteps(s.Steps)
	if !ok {
		m.log.Debug("campus set skipped", "steps", s.Steps)
		return 0, false
	}
	lo, hi := steps[0], steps[0]
	for _, v := range steps[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	n := float64(len(steps))

	edgeFactor := 1 / p.RefEdge
	if v, ok := models.ExtractEdgeValue(s.Edge); ok && v != 0 {
		edgeFactor = 1 / v
	}
	timeOff := models.ParseDuration(s.TimeOff)

	spanTerm := (span / p.RefSpan) * p.WeightSpan
	stepTerm := ((span / n) / (p.RefSpan / p.RefSteps)) * p.WeightStep
	edgeTerm := (p.RefEdge * edgeFactor) * p.WeightEdge
	divisor := p.Rest.Divisor(timeOff)

	m.log.Debug("campus set",
		"edge", s.Edge,
		"steps", s.Steps,
		"span_term", spanTerm,
		"step_term", stepTerm,
		"edge_term", edgeTerm,
		"divisor", divisor,
	)
	return (spanTerm + stepTerm + edgeTerm) / divisor, true
}

func (m *Model) pullupSet(s models.Set) float64 {
	p := m.params.Pullup

	var kg float64
	if w := pullupWeightKg(s); w != nil {
		kg = *w
	}
	timeOff := models.ParseDuration(s.TimeOff)

	repsTerm := (float64(s.Repetitions) / p.RefReps) * p.WeightReps
	weightTerm := (kg / p.RefWeightKg) * p.WeightWeight
	divisor := p.Rest.Divisor(timeOff)

	m.log.Debug("pullup set",
		"weight_kg", kg,
		"reps_term", repsTerm,
		"weight_term", weightTerm,
		"divisor", divisor,
	)
	return (repsTerm + weightTerm) / divisor
}

func (m *Model) projectSet(s models.Set) float64 {
	p := m.params.Project
	divisor := p.Rest.Divisor(models.ParseDuration(s.TimeOff))
	m.log.Debug("project set", "attempts", s.Attempts, "divisor", divisor)
	return float64(s.Attempts) / divisor
}

// parseSteps reads a dash-separated rung sequence such as "1-2-4". Empty tokens are
// ignored; any non-numeric or non-finite token rejects the whole string.
func parseSteps(steps string) ([]float64, bool) {
	var out []float64
	for _, tok := range strings.Split(steps, "-") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		out = append(out, v)
	}
	return out, len(out) > 0
}

// pullupWeightKg prefers weight_kg and falls back to converted weight_lb.
func pullupWeightKg(s models.Set) *float64 {
	if s.WeightKg != nil {
		w := *s.WeightKg
		return &w
	}
	if s.WeightLb != nil {
		w := *s.WeightLb * models.PoundsToKg
		return &w
	}
	return nil
}
