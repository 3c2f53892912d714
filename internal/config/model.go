package config

import (
	"fmt"
	"maps"
	"os"
	"sort"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// modelFile is the YAML layout of MODEL_FILE. Every section is optional;
// bounds and land_use entries override the defaults key by key, while a
// weights section replaces the default weights and must name all six
// parameters.
type modelFile struct {
	Bounds  map[string]domain.Range `yaml:"bounds"`
	Weights map[string]float64      `yaml:"weights"`
	LandUse map[string]float64      `yaml:"land_use"`
}

// LoadModel reads and validates a risk model file.
func LoadModel(path string) (domain.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Model{}, fmt.Errorf("read model file: %w", err)
	}
	return ParseModel(data)
}

// ParseModel decodes a YAML model document on top of the default model.
func ParseModel(data []byte) (domain.Model, error) {
	var f modelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Model{}, fmt.Errorf("parse model file: %w", err)
	}

	m := domain.DefaultModel()

	var unexpected []string
	for name, r := range f.Bounds {
		p, ok := domain.ParseParameter(name)
		if !ok || p == domain.ParamLandUse {
			unexpected = append(unexpected, name)
			continue
		}
		m.Bounds[p] = r
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return domain.Model{}, &domain.MissingParameterError{Map: "bounds", Unexpected: unexpected}
	}

	if len(f.Weights) > 0 {
		w, err := domain.ParseWeights(f.Weights)
		if err != nil {
			return domain.Model{}, err
		}
		m.Weights = w
	}

	factors := maps.Clone(m.LandUse)
	for name, v := range f.LandUse {
		lu, err := domain.ParseLandUse(name)
		if err != nil {
			return domain.Model{}, &domain.InvalidConfigurationError{Reason: err.Error()}
		}
		factors[lu] = v
	}
	m.LandUse = factors

	if err := m.Validate(); err != nil {
		return domain.Model{}, err
	}
	return m, nil
}
