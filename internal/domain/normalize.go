package domain

import "fmt"

// Params holds the six normalized parameter values keyed by parameter.
type Params map[Parameter]float64

// Normalize scales value into [0,1] relative to [lo, hi]. Values outside the
// range are not clamped and yield results outside [0,1]. A degenerate range
// (lo == hi) yields 0.
func Normalize(value, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return (value - lo) / (hi - lo)
}

// NormalizeInputs maps every field of in onto the common scale: numeric fields
// through bounds, land use through the susceptibility table.
func NormalizeInputs(in RiskInputs, bounds Bounds, landUse LandUseFactors) (Params, error) {
	out := make(Params, len(Parameters))
	var missing []Parameter
	for _, p := range Parameters {
		v, ok := in.Value(p)
		if !ok {
			continue
		}
		r, ok := bounds[p]
		if !ok {
			missing = append(missing, p)
			continue
		}
		out[p] = Normalize(v, r.Min, r.Max)
	}
	if len(missing) > 0 {
		return nil, &MissingParameterError{Map: "bounds", Missing: missing}
	}

	factor, ok := landUse[in.LandUse]
	if !ok {
		return nil, &InvalidConfigurationError{Reason: fmt.Sprintf("no susceptibility factor for land use %q", in.LandUse)}
	}
	out[ParamLandUse] = factor
	return out, nil
}
