package domain

// Aggregate computes the Inundation Risk Index: the dot product of the
// renormalized weights and the normalized parameters. Both maps must carry
// exactly the six recognized parameters.
func Aggregate(params Params, weights WeightSet) (float64, error) {
	contrib, err := Contributions(params, weights)
	if err != nil {
		return 0, err
	}
	var iri float64
	for _, p := range Parameters {
		iri += contrib[p]
	}
	return iri, nil
}

// Contributions returns each parameter's share of the index
// (renormalized weight × normalized value). The shares sum to the IRI.
func Contributions(params Params, weights WeightSet) (Params, error) {
	if err := checkKeys("params", params); err != nil {
		return nil, err
	}
	norm, err := weights.Normalized()
	if err != nil {
		return nil, err
	}
	out := make(Params, len(Parameters))
	for _, p := range Parameters {
		out[p] = norm[p] * params[p]
	}
	return out, nil
}
