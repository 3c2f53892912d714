package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"golang.org/x/time/rate"
)

const providerName = "openweather"

// Client implements domain.ForecastProvider using the OpenWeatherMap
// 5 day / 3 hour forecast API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a forecast client allowing at most perMinute requests per minute.
func NewClient(apiKey, baseURL string, timeout time.Duration, perMinute int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		limiter: rate.NewLimiter(limit, 1),
		metrics: metrics,
		logger:  logger,
	}
}

// Forecast fetches the 3-hourly forecast for a point.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (domain.ForecastPayload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.ForecastPayload{}, &domain.RemoteFetchError{Provider: providerName, Err: fmt.Errorf("rate limit: %w", err)}
	}

	params := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', 4, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', 4, 64)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	fullURL := c.baseURL + "/forecast?" + params.Encode()

	start := time.Now()
	payload, err := c.doRequest(ctx, fullURL)
	c.metrics.ForecastAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		c.logger.Warn("forecast request failed", "lat", lat, "lon", lon, "error", err)
		return domain.ForecastPayload{}, err
	}
	c.metrics.ForecastRequests.WithLabelValues("success").Inc()
	c.logger.Debug("forecast fetched", "lat", lat, "lon", lon, "periods", len(payload.Periods))
	return payload, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.ForecastPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.ForecastPayload{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ForecastPayload{}, &domain.RemoteFetchError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.ForecastPayload{}, &domain.RemoteFetchError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Err:        errors.New(apiMessage(body)),
		}
	}

	var owmResp response
	if err := json.NewDecoder(resp.Body).Decode(&owmResp); err != nil {
		return domain.ForecastPayload{}, &domain.RemoteFetchError{Provider: providerName, Err: fmt.Errorf("decode response: %w", err)}
	}

	return owmResp.payload(), nil
}

// apiMessage extracts the "message" field of an error body, falling back to
// the raw body.
func apiMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return string(body)
}

// OpenWeatherMap API response types.

type response struct {
	List []entry `json:"list"`
}

type entry struct {
	Dt   int64              `json:"dt"`
	Rain map[string]float64 `json:"rain"` // {"3h": mm}
}

func (r response) payload() domain.ForecastPayload {
	periods := make([]domain.ForecastPeriod, 0, len(r.List))
	for _, e := range r.List {
		p := domain.ForecastPeriod{Time: time.Unix(e.Dt, 0).UTC()}
		if v, ok := e.Rain["3h"]; ok {
			p.Rain3h = &v
		}
		periods = append(periods, p)
	}
	return domain.ForecastPayload{Periods: periods}
}
