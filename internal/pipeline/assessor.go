package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
)

// ErrForecastDisabled is returned for forecast requests when no forecast
// provider is configured.
var ErrForecastDisabled = errors.New("forecast source is not configured")

// Assessor runs assessments against a fixed model. It is safe for concurrent use.
type Assessor struct {
	model        domain.Model
	forecast     domain.ForecastProvider
	grids        domain.GridOpener
	strictBounds bool
	validate     *validator.Validate
	clock        clockwork.Clock
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// AssessorOption configures an Assessor.
type AssessorOption func(*Assessor)

// WithForecastProvider enables forecast assessments.
func WithForecastProvider(p domain.ForecastProvider) AssessorOption {
	return func(a *Assessor) { a.forecast = p }
}

// WithGridOpener enables grid assessments that reference a file path.
func WithGridOpener(o domain.GridOpener) AssessorOption {
	return func(a *Assessor) { a.grids = o }
}

// WithStrictBounds rejects inputs outside the model bounds instead of
// letting them normalize outside [0,1].
func WithStrictBounds(strict bool) AssessorOption {
	return func(a *Assessor) { a.strictBounds = strict }
}

// WithClock sets the clock used to stamp AssessedAt.
func WithClock(c clockwork.Clock) AssessorOption {
	return func(a *Assessor) { a.clock = c }
}

// NewAssessor validates the model and creates an Assessor.
func NewAssessor(model domain.Model, metrics *observability.Metrics, logger *slog.Logger, opts ...AssessorOption) (*Assessor, error) {
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("risk model: %w", err)
	}
	a := &Assessor{
		model:    model,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		clock:    clockwork.NewRealClock(),
		metrics:  metrics,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Model returns the model assessments run against.
func (a *Assessor) Model() domain.Model {
	return a.model
}

// Assess validates req, fetches or opens its precipitation source and
// returns the assessment.
func (a *Assessor) Assess(ctx context.Context, req domain.AssessmentRequest) (domain.RiskAssessment, error) {
	result, err := a.assess(ctx, req)
	a.record(req.Source, result, err)
	return result, err
}

// AssessGrid assesses an already opened grid dataset, e.g. an uploaded file.
func (a *Assessor) AssessGrid(ds domain.GridDataset, variable string, loc domain.Geo, terrain domain.TerrainRequest, weights map[string]float64) (domain.RiskAssessment, error) {
	result, err := a.assessGrid(ds, variable, loc, terrain, weights)
	a.record(domain.SourceGrid, result, err)
	return result, err
}

func (a *Assessor) assessGrid(ds domain.GridDataset, variable string, loc domain.Geo, tr domain.TerrainRequest, weights map[string]float64) (domain.RiskAssessment, error) {
	if err := a.validate.Struct(tr); err != nil {
		return domain.RiskAssessment{}, &domain.InvalidRequestError{Err: err}
	}
	if variable == "" {
		return domain.RiskAssessment{}, &domain.InvalidRequestError{Err: errors.New("variable is required")}
	}
	model, err := a.modelFor(weights)
	if err != nil {
		return domain.RiskAssessment{}, err
	}
	terrain, err := tr.ParseTerrain()
	if err != nil {
		return domain.RiskAssessment{}, err
	}
	return a.run(loc, domain.GridSource{Dataset: ds, Variable: variable}, terrain, model)
}

func (a *Assessor) assess(ctx context.Context, req domain.AssessmentRequest) (domain.RiskAssessment, error) {
	if err := a.validate.Struct(req); err != nil {
		return domain.RiskAssessment{}, &domain.InvalidRequestError{Err: err}
	}
	model, err := a.modelFor(req.Weights)
	if err != nil {
		return domain.RiskAssessment{}, err
	}
	terrain, err := req.Terrain.ParseTerrain()
	if err != nil {
		return domain.RiskAssessment{}, err
	}
	loc := req.Location()

	switch req.Source {
	case domain.SourceManual:
		return a.run(loc, *req.Manual, terrain, model)

	case domain.SourceGrid:
		if a.grids == nil {
			return domain.RiskAssessment{}, &domain.InvalidRequestError{Err: errors.New("grid files are not readable by this service")}
		}
		ds, err := a.grids.Open(req.Grid.Path)
		if err != nil {
			return domain.RiskAssessment{}, err
		}
		defer func() {
			if cerr := ds.Close(); cerr != nil {
				a.logger.Warn("close grid file failed", "path", req.Grid.Path, "error", cerr)
			}
		}()
		return a.run(loc, domain.GridSource{Dataset: ds, Variable: req.Grid.Variable}, terrain, model)

	case domain.SourceForecast:
		if a.forecast == nil {
			return domain.RiskAssessment{}, &domain.InvalidRequestError{Err: ErrForecastDisabled}
		}
		payload, err := a.forecast.Forecast(ctx, loc.Lat, loc.Lon)
		if err != nil {
			return domain.RiskAssessment{}, err
		}
		return a.run(loc, domain.ForecastSource{Payload: payload}, terrain, model)

	default:
		return domain.RiskAssessment{}, &domain.InvalidRequestError{Err: fmt.Errorf("unknown source %q", req.Source)}
	}
}

// modelFor applies a per-request weight override. Overrides must name all
// six parameters.
func (a *Assessor) modelFor(weights map[string]float64) (domain.Model, error) {
	if len(weights) == 0 {
		return a.model, nil
	}
	w, err := domain.ParseWeights(weights)
	if err != nil {
		return domain.Model{}, err
	}
	return a.model.WithWeights(w), nil
}

func (a *Assessor) run(loc domain.Geo, src domain.Source, terrain domain.Terrain, model domain.Model) (domain.RiskAssessment, error) {
	in, err := domain.Harmonize(src, terrain)
	if err != nil {
		return domain.RiskAssessment{}, err
	}
	if a.strictBounds {
		if err := in.CheckBounds(model.Bounds, boundedFields(src.Kind())...); err != nil {
			return domain.RiskAssessment{}, err
		}
	}
	result, err := domain.Assess(loc, src.Kind(), in, model)
	if err != nil {
		return domain.RiskAssessment{}, err
	}
	result.AssessedAt = a.clock.Now().UTC()
	return result, nil
}

// boundedFields lists the inputs checked against the model bounds. Grid and
// forecast precipitation is never bounds-checked.
func boundedFields(kind domain.SourceKind) []domain.Parameter {
	if kind == domain.SourceManual {
		return []domain.Parameter{
			domain.ParamIntensity, domain.ParamDuration, domain.ParamAccumulation,
			domain.ParamHumidity, domain.ParamSlope,
		}
	}
	return []domain.Parameter{domain.ParamHumidity, domain.ParamSlope}
}

func (a *Assessor) record(source domain.SourceKind, result domain.RiskAssessment, err error) {
	if err != nil {
		kind := domain.ErrorKind(err)
		a.metrics.AssessmentErrors.WithLabelValues(sourceLabel(source), kind).Inc()
		a.logger.Warn("assessment failed", "source", source, "kind", kind, "error", err)
		return
	}
	a.metrics.Assessments.WithLabelValues(string(result.Source), result.Tier.String()).Inc()
	a.metrics.IRI.Observe(result.IRI)
	a.logger.Debug("assessment completed",
		"id", result.ID,
		"source", result.Source,
		"iri", result.IRI,
		"tier", result.Tier,
	)
}

// sourceLabel bounds metric label cardinality for unvalidated input.
func sourceLabel(s domain.SourceKind) string {
	switch s {
	case domain.SourceManual, domain.SourceGrid, domain.SourceForecast:
		return string(s)
	default:
		return "unknown"
	}
}
