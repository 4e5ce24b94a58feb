package intensity

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/claude/crimpy/internal/models"
)

// FingerboardSet is one logged hang set with its chart effort.
type FingerboardSet struct {
	Date    time.Time
	Edge    string
	Reps    int
	TimeOn  string
	TimeOff string
	Rest    string
	Effort  float64
}

// NewFingerboardSet builds the value object and computes its effort with p.
func NewFingerboardSet(date time.Time, s models.Set, p EffortParams) FingerboardSet {
	return FingerboardSet{
		Date:    date,
		Edge:    s.Edge,
		Reps:    s.Reps,
		TimeOn:  s.TimeOn,
		TimeOff: s.TimeOff,
		Rest:    s.Rest,
		Effort:  fingerboardEffort(s, p),
	}
}

func fingerboardEffort(s models.Set, p EffortParams) float64 {
	timeOn := models.ParseDuration(s.TimeOn)
	timeOff := models.ParseDuration(s.TimeOff)
	rest := models.ParseDuration(s.Rest)

	edgeFactor := 1.0
	if v, ok := models.ExtractEdgeValue(s.Edge); ok && v > 0 {
		edgeFactor = 1 / math.Sqrt(v)
	}

	effort := (timeOn / p.RefTimeOn) * p.WeightTimeOn
	if timeOff > 0 {
		effort += (p.RefTimeOff / timeOff) * p.WeightTimeOff
	}
	effort += (p.EdgeScale * edgeFactor) * p.WeightEdge
	effort += (float64(s.Reps) / p.RefReps) * p.WeightReps

	if rest > 0 {
		effort /= math.Log(math.E - 1 + rest/p.RestScale)
	}
	return effort
}

// CampusBoardSet is one logged ladder with its move count and rung spread.
type CampusBoardSet struct {
	Date    time.Time
	Edge    string
	Steps   string
	TimeOff string
	Sides   string
	Moves   int
	Spread  int
}

// NewCampusBoardSet builds the value object from a logged set.
func NewCampusBoardSet(date time.Time, s models.Set) CampusBoardSet {
	return CampusBoardSet{
		Date:    date,
		Edge:    s.Edge,
		Steps:   s.Steps,
		TimeOff: s.TimeOff,
		Sides:   s.Sides,
		Moves:   campusMoves(s.Steps),
		Spread:  campusSpread(s.Steps),
	}
}

// campusMoves counts dash-separated tokens; an empty string has no moves.
func campusMoves(steps string) int {
	if strings.TrimSpace(steps) == "" {
		return 0
	}
	return len(strings.Split(steps, "-"))
}

// campusSpread sums the absolute rung distance between consecutive steps, or returns 0
// when any token is not an integer.
func campusSpread(steps string) int {
	toks := strings.Split(steps, "-")
	rungs := make([]int, 0, len(toks))
	for _, tok := range toks {
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return 0
		}
		rungs = append(rungs, n)
	}
	spread := 0
	for i := 1; i < len(rungs); i++ {
		d := rungs[i] - rungs[i-1]
		if d < 0 {
			d = -d
		}
		spread += d
	}
	return spread
}

// PullupSet is one logged pull-up set with its weight normalized to kilograms.
type PullupSet struct {
	Date        time.Time
	Repetitions int
	TimeOff     string
	// WeightKg is nil when the set logged neither weight_kg nor weight_lb.
	WeightKg *float64
}

// NewPullupSet builds the value object from a logged set.
func NewPullupSet(date time.Time, s models.Set) PullupSet {
	return PullupSet{
		Date:        date,
		Repetitions: s.Repetitions,
		TimeOff:     s.TimeOff,
		WeightKg:    pullupWeightKg(s),
	}
}
