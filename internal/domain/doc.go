// Package domain scores flood risk at a geographic point.
//
// # Pipeline
//
// Every assessment runs the same stages, each a pure function of its inputs:
//
//	Harmonize  source + terrain        → RiskInputs
//	Normalize  RiskInputs + Bounds     → Params (six values, nominally [0,1])
//	Aggregate  Params + WeightSet      → IRI
//	Classify   IRI                     → Tier + label
//	Assemble   all of the above        → RiskAssessment
//
// Configuration (bounds, weights, land-use factors) travels in a [Model] value
// passed into each call. Nothing in this package holds mutable package state,
// so a single Model may be shared across concurrent assessments.
//
// # Precipitation sources
//
// Three modalities feed the same canonical record:
//
//	Manual:   intensity (mm/h), duration (h) and accumulation (mm) as entered.
//	Grid:     accumulation = mean of a named gridded variable (NaN skipped),
//	          duration fixed to 24 h, intensity = accumulation / duration.
//	Forecast: the first 8 three-hour periods (~24 h). accumulation = sum of
//	          rainfall, duration = periods × 3, intensity = max period rainfall.
//	          A period without a rainfall entry counts as 0 mm.
//
// Terrain (land use, soil humidity, slope) is always caller supplied and is
// merged into the record regardless of the precipitation source.
//
// # Normalization
//
// Values are scaled with (v - min) / (max - min) and are NOT clamped: a value
// outside its bounds yields a normalized value outside [0,1]. Bounds tables are
// expected to be generous. A degenerate range (min == max) normalizes to 0.
// Land use is not scaled; it maps through a susceptibility table:
//
//	Urban dense 1.0 | Wetland 0.9 | Urban dispersed 0.8
//	Agricultural zone 0.6 | Savanna 0.4 | Forest 0.2
//
// # Classification
//
// Closed lower bounds, highest matching tier wins:
//
//	IRI ≥ 0.7 high (Very High Risk) | ≥ 0.4 medium (High Risk)
//	    ≥ 0.2 low (Moderate Risk)   | otherwise none (Low Risk)
package domain
