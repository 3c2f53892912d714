package domain

// AssessmentRequest is the wire form of an assessment request, accepted over
// HTTP and from the request topic.
type AssessmentRequest struct {
	RequestID string             `json:"request_id,omitempty"`
	Source    SourceKind         `json:"source" validate:"required,oneof=manual grid forecast"`
	Lat       *float64           `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lon       *float64           `json:"lon,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Manual    *ManualSource      `json:"manual,omitempty" validate:"required_if=Source manual"`
	Grid      *GridReference     `json:"grid,omitempty" validate:"required_if=Source grid"`
	Terrain   TerrainRequest     `json:"terrain"`
	Weights   map[string]float64 `json:"weights,omitempty"`
}

// GridReference names a gridded file readable by the service and the
// precipitation variable to average.
type GridReference struct {
	Path     string `json:"path" validate:"required"`
	Variable string `json:"variable" validate:"required"`
}

// TerrainRequest is the wire form of Terrain.
type TerrainRequest struct {
	LandUse  string  `json:"land_use" validate:"required"`
	Humidity float64 `json:"humidity" validate:"gte=0,lte=100"`
	Slope    float64 `json:"slope" validate:"gte=0,lte=100"`
}

// Location returns the requested point, defaulting each missing coordinate to
// DefaultLocation.
func (r AssessmentRequest) Location() Geo {
	loc := DefaultLocation
	if r.Lat != nil {
		loc.Lat = *r.Lat
	}
	if r.Lon != nil {
		loc.Lon = *r.Lon
	}
	return loc
}

// ParseTerrain resolves the land-use category of a terrain request.
func (t TerrainRequest) ParseTerrain() (Terrain, error) {
	lu, err := ParseLandUse(t.LandUse)
	if err != nil {
		return Terrain{}, err
	}
	return Terrain{LandUse: lu, Humidity: t.Humidity, Slope: t.Slope}, nil
}
