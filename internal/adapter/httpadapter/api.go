package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

const maxRequestBody = 1 << 20

// Assessor runs assessments. *pipeline.Assessor implements it.
type Assessor interface {
	Assess(ctx context.Context, req domain.AssessmentRequest) (domain.RiskAssessment, error)
	AssessGrid(ds domain.GridDataset, variable string, loc domain.Geo, terrain domain.TerrainRequest, weights map[string]float64) (domain.RiskAssessment, error)
}

// API serves the /v1 assessment routes.
type API struct {
	assessor  Assessor
	grids     domain.GridOpener
	maxUpload int64
	logger    *slog.Logger
}

// NewAPI creates the assessment handlers. grids opens uploaded files.
func NewAPI(assessor Assessor, grids domain.GridOpener, maxUpload int64, logger *slog.Logger) *API {
	return &API{
		assessor:  assessor,
		grids:     grids,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type variablesResponse struct {
	Variables []string `json:"variables"`
}

// handleAssess serves POST /v1/assessments.
func (a *API) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req domain.AssessmentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		a.writeError(w, r, &domain.InvalidRequestError{Err: fmt.Errorf("decode body: %w", err)})
		return
	}

	result, err := a.assessor.Assess(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeAssessment(w, r, result)
}

// handleAssessGridUpload serves POST /v1/assessments/grid.
func (a *API) handleAssessGridUpload(w http.ResponseWriter, r *http.Request) {
	form, err := a.parseGridForm(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	ds, cleanup, err := a.openUpload(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	defer cleanup()

	result, err := a.assessor.AssessGrid(ds, form.variable, form.location, form.terrain, form.weights)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeAssessment(w, r, result)
}

// handleGridVariables serves POST /v1/grids/variables.
func (a *API) handleGridVariables(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		a.writeError(w, r, &domain.InvalidRequestError{Err: fmt.Errorf("parse upload: %w", err)})
		return
	}

	ds, cleanup, err := a.openUpload(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	defer cleanup()

	vars := ds.Variables()
	slices.Sort(vars)
	writeJSON(w, http.StatusOK, variablesResponse{Variables: vars})
}

type gridForm struct {
	variable string
	location domain.Geo
	terrain  domain.TerrainRequest
	weights  map[string]float64
}

func (a *API) parseGridForm(w http.ResponseWriter, r *http.Request) (gridForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		return gridForm{}, &domain.InvalidRequestError{Err: fmt.Errorf("parse upload: %w", err)}
	}

	form := gridForm{
		variable: r.FormValue("variable"),
		location: domain.DefaultLocation,
		terrain:  domain.TerrainRequest{LandUse: r.FormValue("land_use")},
	}
	fields := []struct {
		name string
		dst  *float64
	}{
		{"lat", &form.location.Lat},
		{"lon", &form.location.Lon},
		{"humidity", &form.terrain.Humidity},
		{"slope", &form.terrain.Slope},
	}
	for _, f := range fields {
		raw := r.FormValue(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return gridForm{}, &domain.InvalidRequestError{Err: fmt.Errorf("field %s: %w", f.name, err)}
		}
		*f.dst = v
	}
	if form.location.Lat < -90 || form.location.Lat > 90 || form.location.Lon < -180 || form.location.Lon > 180 {
		return gridForm{}, &domain.InvalidRequestError{Err: errors.New("lat/lon outside WGS-84 range")}
	}
	if raw := r.FormValue("weights"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &form.weights); err != nil {
			return gridForm{}, &domain.InvalidRequestError{Err: fmt.Errorf("field weights: %w", err)}
		}
	}
	return form, nil
}

// openUpload spools the multipart "file" part to disk and opens it. The
// returned cleanup closes the dataset and removes the temporary file.
func (a *API) openUpload(r *http.Request) (domain.GridFile, func(), error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, &domain.InvalidRequestError{Err: fmt.Errorf("field file: %w", err)}
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "grid-*.nc")
	if err != nil {
		return nil, nil, fmt.Errorf("spool upload: %w", err)
	}
	remove := func() {
		if err := os.Remove(tmp.Name()); err != nil {
			a.logger.Warn("remove spooled upload failed", "path", tmp.Name(), "error", err)
		}
	}
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		remove()
		return nil, nil, fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		remove()
		return nil, nil, fmt.Errorf("spool upload: %w", err)
	}

	ds, err := a.grids.Open(tmp.Name())
	if err != nil {
		remove()
		var dfe *domain.DataFormatError
		if errors.As(err, &dfe) {
			dfe.Path = header.Filename
		}
		return nil, nil, err
	}
	a.logger.Debug("grid upload opened", "filename", header.Filename, "size", header.Size)
	return ds, func() {
		if err := ds.Close(); err != nil {
			a.logger.Warn("close grid upload failed", "filename", header.Filename, "error", err)
		}
		remove()
	}, nil
}

// writeAssessment renders the assessment, or its marker or report view when
// the view query parameter asks for one.
func (a *API) writeAssessment(w http.ResponseWriter, r *http.Request, result domain.RiskAssessment) {
	switch view := r.URL.Query().Get("view"); view {
	case "", "full":
		writeJSON(w, http.StatusOK, result)
	case "marker":
		writeJSON(w, http.StatusOK, result.MapMarker())
	case "report":
		writeJSON(w, http.StatusOK, result.Report())
	default:
		a.writeError(w, r, &domain.InvalidRequestError{Err: fmt.Errorf("unknown view %q", view)})
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.ErrorKind(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "path", r.URL.Path, "kind", kind, "error", err)
	} else {
		a.logger.Debug("request rejected", "path", r.URL.Path, "kind", kind, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind string) int {
	switch kind {
	case domain.KindInvalidRequest, domain.KindInvalidConfiguration, domain.KindMissingParameter:
		return http.StatusBadRequest
	case domain.KindDataFormat, domain.KindOutOfRange:
		return http.StatusUnprocessableEntity
	case domain.KindRemoteFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
