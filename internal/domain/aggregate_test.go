package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioParams() Params {
	return Params{
		ParamIntensity:    0.3,
		ParamDuration:     6.0 / 72.0,
		ParamAccumulation: 0.18,
		ParamHumidity:     0.5,
		ParamSlope:        0.1,
		ParamLandUse:      1.0,
	}
}

func TestAggregate(t *testing.T) {
	iri, err := Aggregate(scenarioParams(), DefaultWeights())
	require.NoError(t, err)

	expected := 0.3*0.3 + 0.2*(6.0/72.0) + 0.15*0.18 + 0.15*0.5 + 0.1*0.1 + 0.1*1.0
	assert.InDelta(t, expected, iri, 1e-9)
}

func TestAggregate_RenormalizesWeights(t *testing.T) {
	params := scenarioParams()
	base, err := Aggregate(params, DefaultWeights())
	require.NoError(t, err)

	for _, k := range []float64{0.001, 0.5, 2, 10, 1234.5} {
		scaled, err := Aggregate(params, DefaultWeights().Scale(k))
		require.NoError(t, err)
		assert.InDelta(t, base, scaled, 1e-9, "k=%g", k)
	}
}

func TestAggregate_SingleWeight(t *testing.T) {
	w := WeightSet{
		ParamIntensity:    0,
		ParamDuration:     0,
		ParamAccumulation: 0,
		ParamHumidity:     3,
		ParamSlope:        0,
		ParamLandUse:      0,
	}
	iri, err := Aggregate(scenarioParams(), w)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, iri, 1e-12)
}

func TestAggregate_ZeroSumWeights(t *testing.T) {
	w := DefaultWeights().Scale(0)

	_, err := Aggregate(scenarioParams(), w)

	var cfgErr *InvalidConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "sum to zero")
}

func TestAggregate_NegativeWeight(t *testing.T) {
	w := DefaultWeights()
	w[ParamSlope] = -0.1

	_, err := Aggregate(scenarioParams(), w)

	var cfgErr *InvalidConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestAggregate_MissingParam(t *testing.T) {
	params := scenarioParams()
	delete(params, ParamHumidity)

	_, err := Aggregate(params, DefaultWeights())

	var missing *MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "params", missing.Map)
	assert.Equal(t, []Parameter{ParamHumidity}, missing.Missing)
}

func TestAggregate_MissingWeight(t *testing.T) {
	w := DefaultWeights()
	delete(w, ParamLandUse)

	_, err := Aggregate(scenarioParams(), w)

	var missing *MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "weights", missing.Map)
	assert.Equal(t, []Parameter{ParamLandUse}, missing.Missing)
}

func TestAggregate_UnexpectedKey(t *testing.T) {
	params := scenarioParams()
	params["temperature"] = 0.4

	_, err := Aggregate(params, DefaultWeights())

	var missing *MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Empty(t, missing.Missing)
	assert.Equal(t, []string{"temperature"}, missing.Unexpected)
	assert.Contains(t, err.Error(), "unexpected temperature")
}

func TestContributions_SumToIRI(t *testing.T) {
	params := scenarioParams()
	weights := DefaultWeights().Scale(7)

	contrib, err := Contributions(params, weights)
	require.NoError(t, err)
	iri, err := Aggregate(params, weights)
	require.NoError(t, err)

	var sum float64
	for _, v := range contrib {
		sum += v
	}
	assert.InDelta(t, iri, sum, 1e-12)
	assert.InDelta(t, 0.1, contrib[ParamLandUse], 1e-12)
}
