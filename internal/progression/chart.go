package progression

import (
	"fmt"
	"sort"
	"time"

	"github.com/claude/crimpy/internal/models"
)

// Series is one stacked layer of a chart. Values line up with Chart.Labels.
type Series struct {
	Label string `json:"label"`
	// Shade is the colour-map position in [0.2, 1.0]; nil for non-numeric edges, which
	// render in a neutral colour.
	Shade  *float64  `json:"shade"`
	Values []float64 `json:"values"`
}

// Chart is a stacked bar chart keyed by date.
type Chart struct {
	Title  string   `json:"title"`
	YLabel string   `json:"y_label"`
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// Point is one aggregated value for a date and an edge label.
type Point struct {
	Date  time.Time `json:"date"`
	Edge  string    `json:"edge"`
	Value float64   `json:"value"`
}

// WeightPoint is one aggregated value for a date and an added weight.
type WeightPoint struct {
	Date     time.Time `json:"date"`
	WeightKg float64   `json:"weight_kg"`
	Value    float64   `json:"value"`
}

const (
	minShade   = 0.2
	shadeRange = 0.8
)

// StackByEdge builds a chart with one series per edge. Smaller edges get darker shades.
// Points sharing a date and edge are summed.
func StackByEdge(title, yLabel string, points []Point) Chart {
	days, labels := dateAxis(len(points), func(i int) time.Time { return points[i].Date })

	sums := make(map[string][]float64)
	for _, p := range points {
		if sums[p.Edge] == nil {
			sums[p.Edge] = make([]float64, len(labels))
		}
		sums[p.Edge][days[dayKey(p.Date)]] += p.Value
	}

	edges := make([]string, 0, len(sums))
	for e := range sums {
		edges = append(edges, e)
	}
	sortEdges(edges)

	lo, hi, _ := edgeRange(edges)
	chart := Chart{Title: title, YLabel: yLabel, Labels: labels, Series: []Series{}}
	for _, e := range edges {
		s := Series{Label: e, Values: sums[e]}
		if v, ok := models.ExtractEdgeValue(e); ok {
			shade := minShade + shadeRange*(1-norm(v, lo, hi))
			s.Shade = &shade
		}
		chart.Series = append(chart.Series, s)
	}
	return chart
}

// StackByWeight builds a chart with one series per added weight. Heavier weights get
// darker shades.
func StackByWeight(title, yLabel string, points []WeightPoint) Chart {
	days, labels := dateAxis(len(points), func(i int) time.Time { return points[i].Date })

	sums := make(map[float64][]float64)
	for _, p := range points {
		if sums[p.WeightKg] == nil {
			sums[p.WeightKg] = make([]float64, len(labels))
		}
		sums[p.WeightKg][days[dayKey(p.Date)]] += p.Value
	}

	weights := make([]float64, 0, len(sums))
	for w := range sums {
		weights = append(weights, w)
	}
	sort.Float64s(weights)

	chart := Chart{Title: title, YLabel: yLabel, Labels: labels, Series: []Series{}}
	if len(weights) == 0 {
		return chart
	}
	lo, hi := weights[0], weights[len(weights)-1]
	for _, w := range weights {
		shade := minShade + shadeRange*norm(w, lo, hi)
		chart.Series = append(chart.Series, Series{
			Label:  fmt.Sprintf("Additional weight: %.1f kg", w),
			Shade:  &shade,
			Values: sums[w],
		})
	}
	return chart
}

// dateAxis returns the sorted distinct calendar days of n points and each day's index.
func dateAxis(n int, date func(int) time.Time) (map[string]int, []string) {
	seen := make(map[string]time.Time)
	for i := 0; i < n; i++ {
		d := date(i)
		seen[dayKey(d)] = d
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	index := make(map[string]int, len(keys))
	labels := make([]string, len(keys))
	for i, k := range keys {
		index[k] = i
		labels[i] = seen[k].Format(models.DateLayout)
	}
	return index, labels
}

// dayKey sorts lexically in calendar order.
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// sortEdges orders numeric edges ascending, then qualitative edges alphabetically.
func sortEdges(edges []string) {
	sort.Slice(edges, func(i, j int) bool {
		vi, oki := models.ExtractEdgeValue(edges[i])
		vj, okj := models.ExtractEdgeValue(edges[j])
		switch {
		case oki && okj && vi != vj:
			return vi < vj
		case oki != okj:
			return oki
		default:
			return edges[i] < edges[j]
		}
	})
}

func edgeRange(edges []string) (lo, hi float64, found bool) {
	for _, e := range edges {
		v, ok := models.ExtractEdgeValue(e)
		if !ok {
			continue
		}
		if !found || v < lo {
			lo = v
		}
		if !found || v > hi {
			hi = v
		}
		found = true
	}
	return lo, hi, found
}

// norm maps v into [0, 1] over [lo, hi]; a degenerate range maps to 0.
func norm(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}
