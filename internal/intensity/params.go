package intensity

import (
	"fmt"
	"math"
)

// Params holds every tunable constant of the intensity model, one struct per category.
// The zero value is not usable; start from DefaultParams.
type Params struct {
	// Normalization divides every category so a typical training day scores around 1.
	Normalization float64 `yaml:"normalization" json:"normalization"`

	Fingerboard FingerboardParams `yaml:"fingerboard" json:"fingerboard"`
	Campusboard CampusParams      `yaml:"campusboard" json:"campusboard"`
	Pullup      PullupParams      `yaml:"pullup" json:"pullup"`
	Project     ProjectParams     `yaml:"project" json:"project"`

	// Effort configures FingerboardSet.Effort, which is versioned separately from the
	// fingerboard intensity formula.
	Effort EffortParams `yaml:"effort" json:"effort"`
}

// RestDiscount is the logarithmic divisor applied to each set:
// Gain * ln(e - 1 + rest/Scale).
type RestDiscount struct {
	Scale float64 `yaml:"scale" json:"scale"`
	Gain  float64 `yaml:"gain" json:"gain"`
}

// Divisor returns the discount for rest seconds. Negative rest is clamped to 0, so the
// result is always at least Gain * ln(e - 1).
func (d RestDiscount) Divisor(rest float64) float64 {
	if rest < 0 {
		rest = 0
	}
	return d.Gain * math.Log(math.E-1+rest/d.Scale)
}

type FingerboardParams struct {
	K float64 `yaml:"k" json:"k"`

	RefTimeOn    float64 `yaml:"ref_time_on" json:"ref_time_on"`
	RefTimeOff   float64 `yaml:"ref_time_off" json:"ref_time_off"`
	RefEdge      float64 `yaml:"ref_edge" json:"ref_edge"`
	EdgeExponent float64 `yaml:"edge_exponent" json:"edge_exponent"`
	RefReps      float64 `yaml:"ref_reps" json:"ref_reps"`

	WeightTimeOn  float64 `yaml:"weight_time_on" json:"weight_time_on"`
	WeightTimeOff float64 `yaml:"weight_time_off" json:"weight_time_off"`
	WeightEdge    float64 `yaml:"weight_edge" json:"weight_edge"`
	WeightReps    float64 `yaml:"weight_reps" json:"weight_reps"`

	Rest RestDiscount `yaml:"rest" json:"rest"`
}

type CampusParams struct {
	K float64 `yaml:"k" json:"k"`

	RefSpan  float64 `yaml:"ref_span" json:"ref_span"`
	RefSteps float64 `yaml:"ref_steps" json:"ref_steps"`
	RefEdge  float64 `yaml:"ref_edge" json:"ref_edge"`

	WeightSpan float64 `yaml:"weight_span" json:"weight_span"`
	WeightStep float64 `yaml:"weight_step" json:"weight_step"`
	WeightEdge float64 `yaml:"weight_edge" json:"weight_edge"`

	Rest RestDiscount `yaml:"rest" json:"rest"`
}

type PullupParams struct {
	K float64 `yaml:"k" json:"k"`

	RefReps     float64 `yaml:"ref_reps" json:"ref_reps"`
	RefWeightKg float64 `yaml:"ref_weight_kg" json:"ref_weight_kg"`

	WeightReps   float64 `yaml:"weight_reps" json:"weight_reps"`
	WeightWeight float64 `yaml:"weight_weight" json:"weight_weight"`

	Rest RestDiscount `yaml:"rest" json:"rest"`
}

type ProjectParams struct {
	K    float64      `yaml:"k" json:"k"`
	Rest RestDiscount `yaml:"rest" json:"rest"`
}

// EffortParams configures the per-set fingerboard effort shown in progression charts.
// The edge factor is 1/sqrt(edge) and rest only discounts when it is positive.
type EffortParams struct {
	RefTimeOn  float64 `yaml:"ref_time_on" json:"ref_time_on"`
	RefTimeOff float64 `yaml:"ref_time_off" json:"ref_time_off"`
	EdgeScale  float64 `yaml:"edge_scale" json:"edge_scale"`
	RefReps    float64 `yaml:"ref_reps" json:"ref_reps"`

	WeightTimeOn  float64 `yaml:"weight_time_on" json:"weight_time_on"`
	WeightTimeOff float64 `yaml:"weight_time_off" json:"weight_time_off"`
	WeightEdge    float64 `yaml:"weight_edge" json:"weight_edge"`
	WeightReps    float64 `yaml:"weight_reps" json:"weight_reps"`

	RestScale float64 `yaml:"rest_scale" json:"rest_scale"`
}

// DefaultParams returns the calibrated constants.
func DefaultParams() Params {
	return Params{
		Normalization: 10,
		Fingerboard: FingerboardParams{
			K:             0.03,
			RefTimeOn:     7,
			RefTimeOff:    3,
			RefEdge:       35,
			EdgeExponent:  1.5,
			RefReps:       6,
			WeightTimeOn:  0.2,
			WeightTimeOff: 0.1,
			WeightEdge:    0.4,
			WeightReps:    0.3,
			Rest:          RestDiscount{Scale: 1800, Gain: 1},
		},
		Campusboard: CampusParams{
			K:          0.25,
			RefSpan:    3,
			RefSteps:   6,
			RefEdge:    35,
			WeightSpan: 0.25,
			WeightStep: 0.35,
			WeightEdge: 0.40,
			Rest:       RestDiscount{Scale: 1200, Gain: 1 / 0.6},
		},
		Pullup: PullupParams{
			K:            0.9,
			RefReps:      8,
			RefWeightKg:  10,
			WeightReps:   0.5,
			WeightWeight: 0.5,
			Rest:         RestDiscount{Scale: 180, Gain: 1},
		},
		Project: ProjectParams{
			K:    0.45,
			Rest: RestDiscount{Scale: 300, Gain: 1},
		},
		Effort: EffortParams{
			RefTimeOn:     7,
			RefTimeOff:    3,
			EdgeScale:     35,
			RefReps:       6,
			WeightTimeOn:  0.2,
			WeightTimeOff: 0.1,
			WeightEdge:    0.4,
			WeightReps:    0.3,
			RestScale:     60,
		},
	}
}

// Validate rejects parameter sets that would make a divisor zero or negative or flip the
// sign of a category.
func (p Params) Validate() error {
	if p.Normalization <= 0 {
		return fmt.Errorf("intensity.normalization must be positive")
	}

	positive := map[string]float64{
		"fingerboard.ref_time_on": p.Fingerboard.RefTimeOn,
		"fingerboard.ref_edge":    p.Fingerboard.RefEdge,
		"fingerboard.ref_reps":    p.Fingerboard.RefReps,
		"campusboard.ref_span":    p.Campusboard.RefSpan,
		"campusboard.ref_steps":   p.Campusboard.RefSteps,
		"campusboard.ref_edge":    p.Campusboard.RefEdge,
		"pullup.ref_reps":         p.Pullup.RefReps,
		"pullup.ref_weight_kg":    p.Pullup.RefWeightKg,
		"effort.ref_time_on":      p.Effort.RefTimeOn,
		"effort.ref_reps":         p.Effort.RefReps,
		"effort.rest_scale":       p.Effort.RestScale,
		"fingerboard.rest.scale":  p.Fingerboard.Rest.Scale,
		"fingerboard.rest.gain":   p.Fingerboard.Rest.Gain,
		"campusboard.rest.scale":  p.Campusboard.Rest.Scale,
		"campusboard.rest.gain":   p.Campusboard.Rest.Gain,
		"pullup.rest.scale":       p.Pullup.Rest.Scale,
		"pullup.rest.gain":        p.Pullup.Rest.Gain,
		"project.rest.scale":      p.Project.Rest.Scale,
		"project.rest.gain":       p.Project.Rest.Gain,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("intensity.%s must be positive, got %v", name, v)
		}
	}

	nonNegative := map[string]float64{
		"fingerboard.k": p.Fingerboard.K,
		"campusboard.k": p.Campusboard.K,
		"pullup.k":      p.Pullup.K,
		"project.k":     p.Project.K,
	}
	for name, v := range nonNegative {
		if v < 0 {
			return fmt.Errorf("intensity.%s must not be negative, got %v", name, v)
		}
	}
	return nil
}
