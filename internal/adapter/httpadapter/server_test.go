package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/httpadapter"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 14, 15, 30, 0, 0, time.UTC)

// --- fakes ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type fakeForecast struct {
	err error
}

func (f *fakeForecast) Forecast(_ context.Context, _, _ float64) (domain.ForecastPayload, error) {
	return domain.ForecastPayload{}, f.err
}

// fakeGrid serves variables from memory for any uploaded file whose content
// starts with "CDF".
type fakeGrid struct {
	vars map[string][]float64
}

func (g *fakeGrid) Variables() []string {
	names := make([]string, 0, len(g.vars))
	for name := range g.vars {
		names = append(names, name)
	}
	return names
}

func (g *fakeGrid) Values(name string) ([]float64, error) { return g.vars[name], nil }

func (g *fakeGrid) Close() error { return nil }

type fakeOpener struct {
	grid   *fakeGrid
	opened string
}

func (o *fakeOpener) Open(path string) (domain.GridFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.DataFormatError{Path: path, Err: err}
	}
	if !bytes.HasPrefix(data, []byte("CDF")) {
		return nil, &domain.DataFormatError{Path: path, Err: errors.New("not a netcdf file")}
	}
	o.opened = path
	return o.grid, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, readyErr error, opener *fakeOpener) *httpadapter.Server {
	t.Helper()
	assessor, err := pipeline.NewAssessor(domain.DefaultModel(), observability.NewMetricsForTesting(), discardLogger(),
		pipeline.WithClock(clockwork.NewFakeClockAt(testNow)),
		pipeline.WithStrictBounds(true),
		pipeline.WithForecastProvider(&fakeForecast{err: &domain.RemoteFetchError{Provider: "openweather", StatusCode: 401, Err: errors.New("Invalid API key")}}),
	)
	require.NoError(t, err)
	if opener == nil {
		opener = &fakeOpener{grid: &fakeGrid{vars: map[string][]float64{"precip": {24, 72}, "lat": {4}}}}
	}
	api := httpadapter.NewAPI(assessor, opener, 1<<20, discardLogger())
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, api, discardLogger())
}

func postJSON(t *testing.T, srv http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(rec, req)
	return rec
}

func postUpload(t *testing.T, srv http.Handler, path string, fileContent []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileContent != nil {
		fw, err := mw.CreateFormFile("file", "chirps.nc")
		require.NoError(t, err)
		_, err = fw.Write(fileContent)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const manualBody = `{
	"source": "manual",
	"manual": {"intensity": 30, "duration": 6, "accumulation": 90},
	"terrain": {"land_use": "Urban dense", "humidity": 50, "slope": 10}
}`

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(t, fmt.Errorf("pipeline has not reached the request topic yet"), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "pipeline has not reached the request topic yet", body["error"])
}

func TestAlwaysReady(t *testing.T) {
	assert.NoError(t, httpadapter.AlwaysReady{}.CheckReadiness(context.Background()))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- assessments ---

func TestAssess_Manual(t *testing.T) {
	rec := postJSON(t, newTestServer(t, nil, nil), "/v1/assessments", manualBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got domain.RiskAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 0.3187, got.IRI, 1e-4)
	assert.Equal(t, domain.TierLow, got.Tier)
	assert.Equal(t, "Moderate Risk", got.Label)
	assert.Equal(t, domain.DefaultLocation, got.Location)
	assert.Equal(t, testNow, got.AssessedAt)
	assert.Len(t, got.Normalized, len(domain.Parameters))
}

func TestAssess_Views(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := postJSON(t, srv, "/v1/assessments?view=marker", manualBody)
	require.Equal(t, http.StatusOK, rec.Code)
	var marker domain.MapMarker
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &marker))
	assert.Equal(t, "yellow", marker.Color)
	assert.Equal(t, float64(domain.MarkerRadiusMeters), marker.RadiusMeters)
	assert.Contains(t, marker.Popup, "Level: Moderate Risk")

	rec = postJSON(t, srv, "/v1/assessments?view=report", manualBody)
	require.Equal(t, http.StatusOK, rec.Code)
	var report domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "stay informed", report.Recommendation)
	assert.Equal(t, domain.LandUseUrbanDense, report.Inputs.LandUse)

	rec = postJSON(t, srv, "/v1/assessments?view=pdf", manualBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssess_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{
			name:   "malformed json",
			body:   `{"source":`,
			status: http.StatusBadRequest,
			kind:   domain.KindInvalidRequest,
		},
		{
			name:   "missing manual values",
			body:   `{"source":"manual","terrain":{"land_use":"Forest"}}`,
			status: http.StatusBadRequest,
			kind:   domain.KindInvalidRequest,
		},
		{
			name:   "unknown land use",
			body:   `{"source":"manual","manual":{"intensity":1,"duration":1,"accumulation":1},"terrain":{"land_use":"Desert"}}`,
			status: http.StatusUnprocessableEntity,
			kind:   domain.KindOutOfRange,
		},
		{
			name:   "intensity above bounds",
			body:   `{"source":"manual","manual":{"intensity":250,"duration":1,"accumulation":1},"terrain":{"land_use":"Forest"}}`,
			status: http.StatusUnprocessableEntity,
			kind:   domain.KindOutOfRange,
		},
		{
			name:   "incomplete weights",
			body:   `{"source":"manual","manual":{"intensity":1,"duration":1,"accumulation":1},"terrain":{"land_use":"Forest"},"weights":{"intensity":1}}`,
			status: http.StatusBadRequest,
			kind:   domain.KindMissingParameter,
		},
		{
			name:   "forecast provider failure",
			body:   `{"source":"forecast","terrain":{"land_use":"Forest"}}`,
			status: http.StatusBadGateway,
			kind:   domain.KindRemoteFetch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, newTestServer(t, nil, nil), "/v1/assessments", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.kind, body["kind"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAssess_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/assessments", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// --- grid uploads ---

func TestAssessGridUpload(t *testing.T) {
	opener := &fakeOpener{grid: &fakeGrid{vars: map[string][]float64{"precip": {24, 72}}}}
	srv := newTestServer(t, nil, opener)

	rec := postUpload(t, srv, "/v1/assessments/grid", []byte("CDF\x01"), map[string]string{
		"variable": "precip",
		"lat":      "3.87",
		"lon":      "11.52",
		"land_use": "wetland",
		"humidity": "60",
		"slope":    "4",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got domain.RiskAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.SourceGrid, got.Source)
	assert.Equal(t, 48.0, got.Inputs.Accumulation)
	assert.Equal(t, 2.0, got.Inputs.Intensity)
	assert.Equal(t, domain.Geo{Lat: 3.87, Lon: 11.52}, got.Location)

	_, err := os.Stat(opener.opened)
	assert.True(t, os.IsNotExist(err), "spooled upload is removed")
}

func TestAssessGridUpload_Errors(t *testing.T) {
	tests := []struct {
		name   string
		file   []byte
		fields map[string]string
		status int
		kind   string
	}{
		{
			name:   "not netcdf",
			file:   []byte("hello"),
			fields: map[string]string{"variable": "precip", "land_use": "Forest"},
			status: http.StatusUnprocessableEntity,
			kind:   domain.KindDataFormat,
		},
		{
			name:   "unknown variable",
			file:   []byte("CDF\x01"),
			fields: map[string]string{"variable": "tp", "land_use": "Forest"},
			status: http.StatusUnprocessableEntity,
			kind:   domain.KindDataFormat,
		},
		{
			name:   "missing file",
			fields: map[string]string{"variable": "precip", "land_use": "Forest"},
			status: http.StatusBadRequest,
			kind:   domain.KindInvalidRequest,
		},
		{
			name:   "bad number",
			file:   []byte("CDF\x01"),
			fields: map[string]string{"variable": "precip", "land_use": "Forest", "humidity": "wet"},
			status: http.StatusBadRequest,
			kind:   domain.KindInvalidRequest,
		},
		{
			name:   "latitude out of range",
			file:   []byte("CDF\x01"),
			fields: map[string]string{"variable": "precip", "land_use": "Forest", "lat": "123"},
			status: http.StatusBadRequest,
			kind:   domain.KindInvalidRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postUpload(t, newTestServer(t, nil, nil), "/v1/assessments/grid", tt.file, tt.fields)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.kind, decodeError(t, rec)["kind"])
		})
	}
}

func TestGridVariables(t *testing.T) {
	rec := postUpload(t, newTestServer(t, nil, nil), "/v1/grids/variables", []byte("CDF\x01"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Variables []string `json:"variables"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"lat", "precip"}, body.Variables)
}

func TestGridVariables_NotNetCDF(t *testing.T) {
	rec := postUpload(t, newTestServer(t, nil, nil), "/v1/grids/variables", []byte("PK\x03\x04"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, domain.KindDataFormat, body["kind"])
	assert.Contains(t, body["error"], "chirps.nc")
}
