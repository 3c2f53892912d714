package domain

import (
	"fmt"
	"math"
	"strings"
)

// Parameter names one of the six inputs to the risk index.
type Parameter string

const (
	ParamIntensity    Parameter = "intensity"
	ParamDuration     Parameter = "duration"
	ParamAccumulation Parameter = "accumulation"
	ParamHumidity     Parameter = "humidity"
	ParamSlope        Parameter = "slope"
	ParamLandUse      Parameter = "land_use"
)

// Parameters lists every recognized parameter in a stable order.
var Parameters = []Parameter{
	ParamIntensity,
	ParamDuration,
	ParamAccumulation,
	ParamHumidity,
	ParamSlope,
	ParamLandUse,
}

// Known reports whether p is one of the six recognized parameters.
func (p Parameter) Known() bool {
	for _, known := range Parameters {
		if p == known {
			return true
		}
	}
	return false
}

// ParseParameter resolves a parameter name, ignoring case and surrounding space.
func ParseParameter(s string) (Parameter, bool) {
	p := Parameter(strings.ToLower(strings.TrimSpace(s)))
	if !p.Known() {
		return "", false
	}
	return p, true
}

// LandUse is a recognized land-cover category.
type LandUse string

const (
	LandUseUrbanDense     LandUse = "Urban dense"
	LandUseUrbanDispersed LandUse = "Urban dispersed"
	LandUseForest         LandUse = "Forest"
	LandUseSavanna        LandUse = "Savanna"
	LandUseAgricultural   LandUse = "Agricultural zone"
	LandUseWetland        LandUse = "Wetland"
)

// LandUses lists the six categories in display order.
var LandUses = []LandUse{
	LandUseUrbanDense,
	LandUseUrbanDispersed,
	LandUseForest,
	LandUseSavanna,
	LandUseAgricultural,
	LandUseWetland,
}

// Valid reports whether l is one of the six recognized categories.
func (l LandUse) Valid() bool {
	for _, known := range LandUses {
		if l == known {
			return true
		}
	}
	return false
}

// ParseLandUse accepts a category label ("Urban dense") or its slug
// ("urban_dense", "urban-dense"), case-insensitively.
func ParseLandUse(s string) (LandUse, error) {
	key := landUseKey(s)
	for _, known := range LandUses {
		if landUseKey(string(known)) == key {
			return known, nil
		}
	}
	return "", &OutOfRangeError{Field: string(ParamLandUse), Reason: fmt.Sprintf("unknown land use %q", s)}
}

func landUseKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Geo is a WGS-84 latitude/longitude pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DefaultLocation is Douala, Cameroon.
var DefaultLocation = Geo{Lat: 4.05, Lon: 9.7}

// Terrain holds the caller-supplied site characteristics.
type Terrain struct {
	LandUse  LandUse `json:"land_use"`
	Humidity float64 `json:"humidity"` // soil humidity, percent
	Slope    float64 `json:"slope"`    // percent
}

// RiskInputs is the canonical parameter set every source is harmonized into.
type RiskInputs struct {
	Intensity    float64 `json:"intensity"`    // mm/h
	Duration     float64 `json:"duration"`     // hours
	Accumulation float64 `json:"accumulation"` // mm
	Humidity     float64 `json:"humidity"`     // percent
	Slope        float64 `json:"slope"`        // percent
	LandUse      LandUse `json:"land_use"`
}

// Value returns the raw numeric value of a bounds-normalized parameter.
// ParamLandUse has no numeric value and reports false.
func (in RiskInputs) Value(p Parameter) (float64, bool) {
	switch p {
	case ParamIntensity:
		return in.Intensity, true
	case ParamDuration:
		return in.Duration, true
	case ParamAccumulation:
		return in.Accumulation, true
	case ParamHumidity:
		return in.Humidity, true
	case ParamSlope:
		return in.Slope, true
	default:
		return 0, false
	}
}

// Validate checks the record invariant: every numeric field finite and
// non-negative, and a recognized land use.
func (in RiskInputs) Validate() error {
	for _, p := range Parameters {
		v, ok := in.Value(p)
		if !ok {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &OutOfRangeError{Field: string(p), Value: v, Reason: "not finite"}
		}
		if v < 0 {
			return &OutOfRangeError{Field: string(p), Value: v, Reason: "negative"}
		}
	}
	if !in.LandUse.Valid() {
		return &OutOfRangeError{Field: string(ParamLandUse), Reason: fmt.Sprintf("unknown land use %q", in.LandUse)}
	}
	return nil
}

// CheckBounds reports the first numeric field lying outside its bounds. Only
// the fields listed in fields are checked; pass nil to check all of them.
func (in RiskInputs) CheckBounds(bounds Bounds, fields ...Parameter) error {
	if len(fields) == 0 {
		fields = Parameters
	}
	for _, p := range fields {
		v, ok := in.Value(p)
		if !ok {
			continue
		}
		r, ok := bounds[p]
		if !ok {
			continue
		}
		if v < r.Min || v > r.Max {
			return &OutOfRangeError{
				Field:  string(p),
				Value:  v,
				Reason: fmt.Sprintf("outside [%g, %g]", r.Min, r.Max),
			}
		}
	}
	return nil
}
