package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// SourceKind identifies which precipitation modality produced an assessment.
type SourceKind string

const (
	SourceManual   SourceKind = "manual"
	SourceGrid     SourceKind = "grid"
	SourceForecast SourceKind = "forecast"
)

const (
	// GridWindowHours is the analysis window assumed for gridded precipitation.
	GridWindowHours = 24
	// ForecastPeriods is the number of 3-hour forecast periods read (~24 h).
	ForecastPeriods = 8
	// ForecastPeriodHours is the length of one forecast period.
	ForecastPeriodHours = 3
)

// Source is a precipitation input. The concrete types are ManualSource,
// GridSource and ForecastSource.
type Source interface {
	Kind() SourceKind
	precipitation() (precipitation, error)
}

type precipitation struct {
	intensity    float64
	duration     float64
	accumulation float64
}

// ManualSource carries values already in canonical units.
type ManualSource struct {
	Intensity    float64 `json:"intensity" validate:"gte=0"`    // mm/h
	Duration     float64 `json:"duration" validate:"gte=0"`     // hours
	Accumulation float64 `json:"accumulation" validate:"gte=0"` // mm
}

func (ManualSource) Kind() SourceKind { return SourceManual }

func (s ManualSource) precipitation() (precipitation, error) {
	return precipitation{
		intensity:    s.Intensity,
		duration:     s.Duration,
		accumulation: s.Accumulation,
	}, nil
}

// GridDataset is an opened gridded file exposing named numeric variables.
type GridDataset interface {
	// Variables lists the dataset's declared variable names.
	Variables() []string
	// Values returns the variable's values flattened, with missing cells as NaN.
	Values(name string) ([]float64, error)
}

// GridFile is a GridDataset backed by an open file.
type GridFile interface {
	GridDataset
	Close() error
}

// GridOpener opens a gridded file. Failures are DataFormatErrors.
type GridOpener interface {
	Open(path string) (GridFile, error)
}

// GridSource selects one precipitation variable of a gridded dataset.
type GridSource struct {
	Dataset  GridDataset
	Variable string
}

func (GridSource) Kind() SourceKind { return SourceGrid }

func (s GridSource) precipitation() (precipitation, error) {
	if s.Dataset == nil {
		return precipitation{}, &DataFormatError{Variable: s.Variable, Err: errors.New("no dataset")}
	}
	if !slices.Contains(s.Dataset.Variables(), s.Variable) {
		return precipitation{}, &DataFormatError{Variable: s.Variable, Err: ErrVariableNotFound}
	}
	values, err := s.Dataset.Values(s.Variable)
	if err != nil {
		var dfe *DataFormatError
		if errors.As(err, &dfe) {
			return precipitation{}, err
		}
		return precipitation{}, &DataFormatError{Variable: s.Variable, Err: err}
	}
	mean, ok := nanMean(values)
	if !ok {
		return precipitation{}, &DataFormatError{Variable: s.Variable, Err: errors.New("no valid values")}
	}
	if mean < 0 {
		return precipitation{}, &DataFormatError{Variable: s.Variable, Err: fmt.Errorf("negative mean precipitation %g", mean)}
	}
	return precipitation{
		intensity:    mean / GridWindowHours,
		duration:     GridWindowHours,
		accumulation: mean,
	}, nil
}

// nanMean averages the finite values, skipping NaN and ±Inf.
func nanMean(values []float64) (float64, bool) {
	var sum float64
	var n int
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// ForecastPeriod is one 3-hour forecast entry. Rain3h is nil when the
// provider reported no rainfall for the period.
type ForecastPeriod struct {
	Time   time.Time `json:"time"`
	Rain3h *float64  `json:"rain_3h,omitempty"`
}

// ForecastPayload is an ordered sequence of forecast periods.
type ForecastPayload struct {
	Periods []ForecastPeriod `json:"periods"`
}

// ForecastProvider fetches a forecast for a point. Failures are RemoteFetchErrors.
type ForecastProvider interface {
	Forecast(ctx context.Context, lat, lon float64) (ForecastPayload, error)
}

// ForecastSource carries an already fetched forecast payload.
type ForecastSource struct {
	Payload ForecastPayload
}

func (ForecastSource) Kind() SourceKind { return SourceForecast }

func (s ForecastSource) precipitation() (precipitation, error) {
	periods := s.Payload.Periods
	if len(periods) > ForecastPeriods {
		periods = periods[:ForecastPeriods]
	}
	var p precipitation
	for _, period := range periods {
		var rain float64
		if period.Rain3h != nil {
			rain = *period.Rain3h
		}
		p.accumulation += rain
		p.intensity = max(p.intensity, rain)
	}
	p.duration = float64(len(periods) * ForecastPeriodHours)
	return p, nil
}

// Harmonize builds the canonical record from one precipitation source and the
// caller's terrain. The result satisfies RiskInputs.Validate.
func Harmonize(src Source, terrain Terrain) (RiskInputs, error) {
	if src == nil {
		return RiskInputs{}, &InvalidRequestError{Err: errors.New("no precipitation source")}
	}
	p, err := src.precipitation()
	if err != nil {
		return RiskInputs{}, err
	}
	in := RiskInputs{
		Intensity:    p.intensity,
		Duration:     p.duration,
		Accumulation: p.accumulation,
		Humidity:     terrain.Humidity,
		Slope:        terrain.Slope,
		LandUse:      terrain.LandUse,
	}
	if err := in.Validate(); err != nil {
		return RiskInputs{}, err
	}
	return in, nil
}
