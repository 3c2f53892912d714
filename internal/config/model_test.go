package config

import (
	"testing"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModel_Empty(t *testing.T) {
	m, err := ParseModel([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultModel(), m)
}

func TestParseModel_Overrides(t *testing.T) {
	doc := `
bounds:
  accumulation: {min: 0, max: 800}
weights:
  intensity: 3
  duration: 2
  accumulation: 2
  humidity: 1
  slope: 1
  land_use: 1
land_use:
  forest: 0.1
  Urban dense: 0.95
`
	m, err := ParseModel([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, domain.Range{Min: 0, Max: 800}, m.Bounds[domain.ParamAccumulation])
	assert.Equal(t, domain.Range{Min: 0, Max: 72}, m.Bounds[domain.ParamDuration])
	assert.Equal(t, 3.0, m.Weights[domain.ParamIntensity])
	assert.Equal(t, 0.1, m.LandUse[domain.LandUseForest])
	assert.Equal(t, 0.95, m.LandUse[domain.LandUseUrbanDense])
	assert.Equal(t, 0.9, m.LandUse[domain.LandUseWetland])
}

func TestParseModel_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind string
	}{
		{"unknown bound", "bounds:\n  rainfall: {min: 0, max: 1}\n", domain.KindMissingParameter},
		{"land use bound", "bounds:\n  land_use: {min: 0, max: 1}\n", domain.KindMissingParameter},
		{"partial weights", "weights:\n  intensity: 1\n", domain.KindMissingParameter},
		{"zero weights", "weights: {intensity: 0, duration: 0, accumulation: 0, humidity: 0, slope: 0, land_use: 0}\n", domain.KindInvalidConfiguration},
		{"unknown land use", "land_use:\n  tundra: 0.3\n", domain.KindInvalidConfiguration},
		{"inverted bound", "bounds:\n  slope: {min: 50, max: 10}\n", domain.KindInvalidConfiguration},
		{"NaN bound", "bounds:\n  intensity: {min: 0, max: .nan}\n", domain.KindInvalidConfiguration},
		{"infinite bound", "bounds:\n  accumulation: {min: -.inf, max: 500}\n", domain.KindInvalidConfiguration},
		{"NaN land use factor", "land_use:\n  wetland: .nan\n", domain.KindInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModel([]byte(tt.doc))
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.ErrorKind(err))
		})
	}
}

func TestParseModel_BadYAML(t *testing.T) {
	_, err := ParseModel([]byte("bounds: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse model file")
}
