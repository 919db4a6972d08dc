package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"climate-odds/internal/models"
	"climate-odds/pkg/logging"
	"climate-odds/pkg/metrics"
)

// DefaultBaseURL is the NASA POWER daily point API.
const DefaultBaseURL = "https://power.larc.nasa.gov"

const dateLayout = "20060102"

// UpstreamError means a remote fetch exhausted its retries. The wrapped
// cause is the last attempt's failure.
type UpstreamError struct {
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream fetch failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) IsTransient() bool {
	return true
}

// RetryPolicy holds per-call retry parameters. There is deliberately no
// process-wide retry state: each client call gets its own attempt counter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy mirrors the upstream archive's documented tolerances:
// three attempts with a 1.6x exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  1.6,
	}
}

// Delay returns the wait after the given 1-based attempt number:
// BaseDelay * Multiplier^attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt)))
}

// Client fetches daily variables from the POWER archive. One outbound call
// per attempt, no caching, no circuit breaker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryPolicy
	clock      clockwork.Clock
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewClient creates an upstream client. A nil clock means the real clock;
// tests inject their own to observe backoff waits.
func NewClient(baseURL string, timeout time.Duration, retry RetryPolicy, clock clockwork.Clock, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
		clock:      clock,
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// FetchDayRange fetches one contiguous day range of the given variables and
// decodes it into one row per date. Retries transport errors and non-2xx
// responses per the retry policy; the final failure is an *UpstreamError.
func (c *Client) FetchDayRange(ctx context.Context, lat, lon float64, start, end time.Time, vars []models.Variable) ([]models.DailyObservation, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("no upstream variables requested")
	}

	reqURL := c.buildURL(lat, lon, start, end, vars)

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		rows, err := c.fetchOnce(ctx, reqURL, vars)
		if err == nil {
			c.metrics.RecordUpstreamRequest("ok")
			return rows, nil
		}
		lastErr = err

		c.metrics.RecordUpstreamRequest("error")
		c.logger.Warn(ctx, "[UPSTREAM_RETRY] Upstream fetch attempt failed", logging.Fields{
			"attempt":      attempt,
			"max_attempts": c.retry.MaxAttempts,
			"url":          reqURL,
			"error":        err.Error(),
		})

		if attempt < c.retry.MaxAttempts {
			c.metrics.UpstreamRetriesTotal.Inc()
			select {
			case <-ctx.Done():
				return nil, &UpstreamError{Attempts: attempt, Err: ctx.Err()}
			case <-c.clock.After(c.retry.Delay(attempt)):
			}
		}
	}

	return nil, &UpstreamError{Attempts: c.retry.MaxAttempts, Err: lastErr}
}

func (c *Client) buildURL(lat, lon float64, start, end time.Time, vars []models.Variable) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = string(v)
	}

	params := url.Values{
		"parameters": {strings.Join(names, ",")},
		"community":  {"RE"},
		"latitude":   {fmt.Sprintf("%g", lat)},
		"longitude":  {fmt.Sprintf("%g", lon)},
		"start":      {start.Format(dateLayout)},
		"end":        {end.Format(dateLayout)},
		"format":     {"JSON"},
	}

	return c.baseURL + "/api/temporal/daily/point?" + params.Encode()
}

func (c *Client) fetchOnce(ctx context.Context, reqURL string, vars []models.Variable) ([]models.DailyObservation, error) {
	started := time.Now()
	defer func() {
		c.metrics.UpstreamRequestDuration.Observe(time.Since(started).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload powerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}

	return decodeRows(payload, vars)
}

// powerResponse is the upstream wire shape:
// properties.parameter.<VARIABLE>.<YYYYMMDD> -> number|null.
type powerResponse struct {
	Properties struct {
		Parameter map[string]map[string]*float64 `json:"parameter"`
	} `json:"properties"`
}

// decodeRows flattens the nested payload into one row per date key present
// under the first requested variable. A variable missing a date yields a nil
// cell, not a dropped row; variables outside the requested set are ignored.
// Trusting the first variable's date keys for all variables is inherited
// upstream behavior and kept for compatibility.
func decodeRows(payload powerResponse, vars []models.Variable) ([]models.DailyObservation, error) {
	series := payload.Properties.Parameter

	index, ok := series[string(vars[0])]
	if !ok {
		return nil, nil
	}

	dateKeys := make([]string, 0, len(index))
	for k := range index {
		dateKeys = append(dateKeys, k)
	}
	sort.Strings(dateKeys)

	rows := make([]models.DailyObservation, 0, len(dateKeys))
	for _, key := range dateKeys {
		date, err := time.Parse(dateLayout, key)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream date key %q: %w", key, err)
		}

		values := make(map[models.Variable]*float64, len(vars))
		for _, v := range vars {
			if s, ok := series[string(v)]; ok {
				values[v] = s[key]
			} else {
				values[v] = nil
			}
		}

		rows = append(rows, models.DailyObservation{
			Date:   date,
			Year:   date.Year(),
			Values: values,
		})
	}

	return rows, nil
}
