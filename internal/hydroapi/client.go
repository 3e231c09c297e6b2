// Package hydroapi is the resilient data access layer. Every operation
// attempts the analysis backend once under a per-call timeout and, on any
// failure, substitutes a local approximation. Operations never return an
// error: the returned models.Outcome always carries a usable value and
// records which tier produced it.
package hydroapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/hydrowatch/internal/fallback"
	"github.com/rewired-gh/hydrowatch/internal/genai"
	"github.com/rewired-gh/hydrowatch/internal/logger"
	"github.com/rewired-gh/hydrowatch/internal/metrics"
	"github.com/rewired-gh/hydrowatch/internal/models"
)

// Operation names used in logs and metrics.
const (
	OpSatellite = "satellite"
	OpForecast  = "forecast"
	OpAnomaly   = "anomaly"
	OpReport    = "report"
	OpFeedback  = "feedback"
	OpMetrics   = "metrics"
)

// maxResponseBytes bounds how much of a backend response is read.
const maxResponseBytes = 1 << 20

// Timeouts configures the per-operation deadline of each remote attempt.
type Timeouts struct {
	Satellite time.Duration
	Forecast  time.Duration
	Anomaly   time.Duration
	Report    time.Duration
	Generate  time.Duration
	Feedback  time.Duration
	Metrics   time.Duration
}

// DefaultTimeouts returns the deadlines observed in the dashboard.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Satellite: 3 * time.Second,
		Forecast:  3 * time.Second,
		Anomaly:   3 * time.Second,
		Report:    5 * time.Second,
		Generate:  10 * time.Second,
		Feedback:  5 * time.Second,
		Metrics:   3 * time.Second,
	}
}

// withDefaults fills zero timeouts from DefaultTimeouts.
func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Satellite <= 0 {
		t.Satellite = d.Satellite
	}
	if t.Forecast <= 0 {
		t.Forecast = d.Forecast
	}
	if t.Anomaly <= 0 {
		t.Anomaly = d.Anomaly
	}
	if t.Report <= 0 {
		t.Report = d.Report
	}
	if t.Generate <= 0 {
		t.Generate = d.Generate
	}
	if t.Feedback <= 0 {
		t.Feedback = d.Feedback
	}
	if t.Metrics <= 0 {
		t.Metrics = d.Metrics
	}
	return t
}

// Options configures a Client. Zero values select defaults.
type Options struct {
	Timeouts   Timeouts
	Params     *fallback.Params
	Seed       uint64          // Simulator seed; 0 seeds from the clock
	Generator  genai.Generator // Optional generative tier for reports
	HTTPClient *http.Client
	Now        func() time.Time
}

// Client provides resilient access to the hydrology analysis backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeouts   Timeouts
	params     fallback.Params
	simulator  *fallback.Simulator
	generator  genai.Generator
	now        func() time.Time
	pending    sync.WaitGroup
}

// NewClient creates a new access-layer client. An empty baseURL runs the
// client in offline mode, where every remote tier fails immediately.
func NewClient(baseURL string, opts Options) *Client {
	params := fallback.DefaultParams()
	if opts.Params != nil {
		params = *opts.Params
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		// Deadlines come from per-call contexts
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		timeouts:   opts.Timeouts.withDefaults(),
		params:     params,
		simulator:  fallback.NewSimulator(params, opts.Seed),
		generator:  opts.Generator,
		now:        now,
	}
}

// doJSON performs one request under timeout and decodes a JSON response into
// out. out may be nil when the response body is ignored.
func (c *Client) doJSON(ctx context.Context, op, method, path string, query map[string]string, body, out interface{}, timeout time.Duration) error {
	if c.baseURL == "" {
		return &RemoteError{Op: op, Kind: models.FailureNetwork, Err: errNoEndpoint}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return malformed(op, fmt.Errorf("failed to encode request: %w", err))
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &RemoteError{Op: op, Kind: models.FailureNetwork, Err: err}
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveRemote(op, time.Since(start))
	if err != nil {
		return wrapTransport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return &RemoteError{
			Op:         op,
			Kind:       models.FailureStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return wrapTransport(op, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return malformed(op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// attempt runs one tier, converting a panic into a failure of that tier.
func attempt[T any](op string, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RemoteError{Op: op, Kind: models.FailureNetwork, Err: fmt.Errorf("recovered panic: %v", r)}
		}
	}()
	return fn()
}

// settle builds the outcome of an operation and records it.
func settle[T any](op string, value T, source models.Source, cause error, start time.Time) models.Outcome[T] {
	out := models.Outcome[T]{
		Value:   value,
		Source:  source,
		Latency: time.Since(start),
	}
	if cause != nil {
		out.Err = cause
		out.Failure = Classify(cause)
	}

	metrics.ObserveOutcome(op, string(source))
	if source == models.SourceRemote {
		logger.Debug("%s: served by backend in %v", op, out.Latency)
	} else {
		logger.Warn("%s: degraded to %s tier (%s): %v", op, source, out.Failure, cause)
	}
	return out
}

// recordFailure counts an abandoned tier.
func recordFailure(op string, err error) {
	metrics.ObserveFailure(op, string(Classify(err)))
}
