package domain

import (
	"fmt"
	"math"
	"sort"
)

// Range is a closed normalization interval.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Bounds maps each bounds-normalized parameter to its range.
type Bounds map[Parameter]Range

// DefaultBounds returns the input-slider ranges: intensity 0–100 mm/h,
// duration 0–72 h, accumulation 0–500 mm, humidity and slope 0–100 %.
func DefaultBounds() Bounds {
	return Bounds{
		ParamIntensity:    {Min: 0, Max: 100},
		ParamDuration:     {Min: 0, Max: 72},
		ParamAccumulation: {Min: 0, Max: 500},
		ParamHumidity:     {Min: 0, Max: 100},
		ParamSlope:        {Min: 0, Max: 100},
	}
}

// WeightSet maps every parameter to a non-negative weight. Weights need not
// sum to 1; aggregation renormalizes them.
type WeightSet map[Parameter]float64

// DefaultWeights returns the stock weighting.
func DefaultWeights() WeightSet {
	return WeightSet{
		ParamIntensity:    0.3,
		ParamDuration:     0.2,
		ParamAccumulation: 0.15,
		ParamHumidity:     0.15,
		ParamSlope:        0.1,
		ParamLandUse:      0.1,
	}
}

// Sum returns the total of all weights.
func (w WeightSet) Sum() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}

// Scale returns a copy of w with every weight multiplied by k.
func (w WeightSet) Scale(k float64) WeightSet {
	out := make(WeightSet, len(w))
	for p, v := range w {
		out[p] = v * k
	}
	return out
}

// Normalized returns a copy of w whose weights sum to 1.
func (w WeightSet) Normalized() (WeightSet, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	total := w.Sum()
	out := make(WeightSet, len(w))
	for p, v := range w {
		out[p] = v / total
	}
	return out, nil
}

// Validate checks that w has exactly the six parameters, no negative or
// non-finite weight, and at least one positive weight.
func (w WeightSet) Validate() error {
	if err := checkKeys("weights", w); err != nil {
		return err
	}
	for _, p := range Parameters {
		v := w[p]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &InvalidConfigurationError{Reason: fmt.Sprintf("weight %s must be a finite non-negative number, got %g", p, v)}
		}
	}
	if w.Sum() <= 0 {
		return &InvalidConfigurationError{Reason: "weights sum to zero"}
	}
	return nil
}

// LandUseFactors maps each land-use category to a susceptibility in [0,1].
type LandUseFactors map[LandUse]float64

// DefaultLandUseFactors returns the stock susceptibility table.
func DefaultLandUseFactors() LandUseFactors {
	return LandUseFactors{
		LandUseUrbanDense:     1.0,
		LandUseUrbanDispersed: 0.8,
		LandUseAgricultural:   0.6,
		LandUseSavanna:        0.4,
		LandUseForest:         0.2,
		LandUseWetland:        0.9,
	}
}

// Model bundles the read-only configuration an assessment runs against.
type Model struct {
	Bounds  Bounds
	Weights WeightSet
	LandUse LandUseFactors
}

// DefaultModel returns the stock bounds, weights and land-use factors.
func DefaultModel() Model {
	return Model{
		Bounds:  DefaultBounds(),
		Weights: DefaultWeights(),
		LandUse: DefaultLandUseFactors(),
	}
}

// WithWeights returns a copy of m using w.
func (m Model) WithWeights(w WeightSet) Model {
	m.Weights = w
	return m
}

// Validate checks the whole model before it is shared across assessments.
func (m Model) Validate() error {
	for _, p := range Parameters {
		if p == ParamLandUse {
			continue
		}
		if _, ok := m.Bounds[p]; !ok {
			return &MissingParameterError{Map: "bounds", Missing: []Parameter{p}}
		}
	}
	for p, r := range m.Bounds {
		if !finite(r.Min) || !finite(r.Max) {
			return &InvalidConfigurationError{Reason: fmt.Sprintf("bounds %s must be finite, got [%g, %g]", p, r.Min, r.Max)}
		}
		if r.Max < r.Min {
			return &InvalidConfigurationError{Reason: fmt.Sprintf("bounds %s: max %g below min %g", p, r.Max, r.Min)}
		}
	}
	if err := m.Weights.Validate(); err != nil {
		return err
	}
	for _, l := range LandUses {
		f, ok := m.LandUse[l]
		if !ok {
			return &InvalidConfigurationError{Reason: fmt.Sprintf("no susceptibility factor for land use %q", l)}
		}
		if !finite(f) || f < 0 || f > 1 {
			return &InvalidConfigurationError{Reason: fmt.Sprintf("land use %q factor %g outside [0, 1]", l, f)}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// checkKeys verifies m has exactly the six recognized parameters.
func checkKeys[V any](name string, m map[Parameter]V) error {
	var missing []Parameter
	for _, p := range Parameters {
		if _, ok := m[p]; !ok {
			missing = append(missing, p)
		}
	}
	var unexpected []string
	for p := range m {
		if !p.Known() {
			unexpected = append(unexpected, string(p))
		}
	}
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	sort.Strings(unexpected)
	return &MissingParameterError{Map: name, Missing: missing, Unexpected: unexpected}
}

// ParseWeights converts a name-keyed weight map, e.g. from a request body or
// model file, and validates it.
func ParseWeights(raw map[string]float64) (WeightSet, error) {
	w := make(WeightSet, len(raw))
	var unexpected []string
	for name, v := range raw {
		p, ok := ParseParameter(name)
		if !ok {
			unexpected = append(unexpected, name)
			continue
		}
		w[p] = v
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		err := &MissingParameterError{Map: "weights", Unexpected: unexpected}
		for _, p := range Parameters {
			if _, ok := w[p]; !ok {
				err.Missing = append(err.Missing, p)
			}
		}
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}
