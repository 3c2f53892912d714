package domain

import (
	"encoding/json"
	"fmt"
)

// Tier is an ordered risk category: TierNone < TierLow < TierMedium < TierHigh.
type Tier int

const (
	TierNone Tier = iota
	TierLow
	TierMedium
	TierHigh
)

// Lower bounds of each tier. A boundary value belongs to the higher tier.
const (
	ThresholdLow    = 0.2
	ThresholdMedium = 0.4
	ThresholdHigh   = 0.7
)

var tierNames = [...]string{"none", "low", "medium", "high"}

var tierLabels = [...]string{"Low Risk", "Moderate Risk", "High Risk", "Very High Risk"}

var tierRecommendations = [...]string{"no action", "stay informed", "prepare to evacuate", "evacuate"}

// Classify maps an index value to its tier and label. Values outside [0,1]
// classify by the same thresholds.
func Classify(iri float64) (Tier, string) {
	var t Tier
	switch {
	case iri >= ThresholdHigh:
		t = TierHigh
	case iri >= ThresholdMedium:
		t = TierMedium
	case iri >= ThresholdLow:
		t = TierLow
	default:
		t = TierNone
	}
	return t, t.Label()
}

// ParseTier resolves a tier name ("none", "low", "medium", "high").
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if name == s {
			return Tier(i), nil
		}
	}
	return TierNone, fmt.Errorf("unknown risk tier %q", s)
}

func (t Tier) valid() bool { return t >= TierNone && t <= TierHigh }

func (t Tier) String() string {
	if !t.valid() {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// Label returns the human-readable label, e.g. "Very High Risk".
func (t Tier) Label() string {
	if !t.valid() {
		return ""
	}
	return tierLabels[t]
}

// Recommendation returns the recommended action for the tier.
func (t Tier) Recommendation() string {
	if !t.valid() {
		return ""
	}
	return tierRecommendations[t]
}

// Color returns the map marker colour for the tier.
func (t Tier) Color() string {
	switch t {
	case TierHigh:
		return "red"
	case TierMedium:
		return "orange"
	case TierLow:
		return "yellow"
	default:
		return "green"
	}
}

func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
