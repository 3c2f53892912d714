package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"time"
)

// MarkerRadiusMeters is the radius of the risk circle drawn around a point.
const MarkerRadiusMeters = 2000

// RiskAssessment is the result of one assessment. It is built once by
// Assemble and not modified afterwards.
type RiskAssessment struct {
	ID             string     `json:"id"`
	Location       Geo        `json:"location"`
	Source         SourceKind `json:"source"`
	Inputs         RiskInputs `json:"inputs"`
	Normalized     Params     `json:"normalized"`
	Weights        WeightSet  `json:"weights"`
	Contributions  Params     `json:"contributions"`
	IRI            float64    `json:"iri"`
	Tier           Tier       `json:"tier"`
	Label          string     `json:"label"`
	Recommendation string     `json:"recommendation"`
	AssessedAt     time.Time  `json:"assessed_at"`
}

// Assess runs normalization, aggregation and classification over harmonized
// inputs and assembles the result.
func Assess(loc Geo, source SourceKind, in RiskInputs, m Model) (RiskAssessment, error) {
	normalized, err := NormalizeInputs(in, m.Bounds, m.LandUse)
	if err != nil {
		return RiskAssessment{}, err
	}
	iri, err := Aggregate(normalized, m.Weights)
	if err != nil {
		return RiskAssessment{}, err
	}
	return Assemble(loc, source, in, normalized, m.Weights, iri)
}

// Assemble bundles the stage outputs into a RiskAssessment. The maps are
// copied so later changes by the caller do not leak into the result.
func Assemble(loc Geo, source SourceKind, in RiskInputs, normalized Params, weights WeightSet, iri float64) (RiskAssessment, error) {
	contrib, err := Contributions(normalized, weights)
	if err != nil {
		return RiskAssessment{}, err
	}
	tier, label := Classify(iri)
	return RiskAssessment{
		ID:             assessmentID(loc, source, in, weights),
		Location:       loc,
		Source:         source,
		Inputs:         in,
		Normalized:     maps.Clone(normalized),
		Weights:        maps.Clone(weights),
		Contributions:  contrib,
		IRI:            iri,
		Tier:           tier,
		Label:          label,
		Recommendation: tier.Recommendation(),
	}, nil
}

// assessmentID hashes the inputs that determine the result, so identical
// requests produce identical IDs.
func assessmentID(loc Geo, source SourceKind, in RiskInputs, weights WeightSet) string {
	input := fmt.Sprintf("%s|%.4f|%.4f|%g|%g|%g|%g|%g|%s", source, loc.Lat, loc.Lon,
		in.Intensity, in.Duration, in.Accumulation, in.Humidity, in.Slope, in.LandUse)
	for _, p := range Parameters {
		input += fmt.Sprintf("|%g", weights[p])
	}
	hash := sha256.Sum256([]byte(input))
	return string(source) + "-" + hex.EncodeToString(hash[:8])
}

// MapMarker is what a map renderer needs to draw one assessment.
type MapMarker struct {
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	Tier         Tier     `json:"tier"`
	Color        string   `json:"color"`
	RadiusMeters float64  `json:"radius_meters"`
	Popup        []string `json:"popup"`
}

// MapMarker returns the marker view of a.
func (a RiskAssessment) MapMarker() MapMarker {
	popup := []string{
		"Flood risk assessment",
		fmt.Sprintf("Location: %.4f, %.4f", a.Location.Lat, a.Location.Lon),
		fmt.Sprintf("IRI: %.2f", a.IRI),
		"Level: " + a.Label,
	}
	if !a.AssessedAt.IsZero() {
		popup = append(popup, "Updated: "+a.AssessedAt.UTC().Format("2006-01-02 15:04"))
	}
	return MapMarker{
		Lat:          a.Location.Lat,
		Lon:          a.Location.Lon,
		Tier:         a.Tier,
		Color:        a.Tier.Color(),
		RadiusMeters: MarkerRadiusMeters,
		Popup:        popup,
	}
}

// Report is what a report formatter needs to render one assessment.
type Report struct {
	Location       Geo        `json:"location"`
	Source         SourceKind `json:"source"`
	Inputs         RiskInputs `json:"inputs"`
	IRI            float64    `json:"iri"`
	Tier           Tier       `json:"tier"`
	Label          string     `json:"label"`
	Recommendation string     `json:"recommendation"`
	AssessedAt     time.Time  `json:"assessed_at"`
}

// Report returns the report view of a.
func (a RiskAssessment) Report() Report {
	return Report{
		Location:       a.Location,
		Source:         a.Source,
		Inputs:         a.Inputs,
		IRI:            a.IRI,
		Tier:           a.Tier,
		Label:          a.Label,
		Recommendation: a.Recommendation,
		AssessedAt:     a.AssessedAt,
	}
}
