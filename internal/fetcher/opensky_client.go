package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"opensky-ingest/internal/apperr"
	"opensky-ingest/internal/auth"
	"opensky-ingest/internal/metrics"
	"opensky-ingest/internal/model"
	"opensky-ingest/pkg/logger"
)

// DefaultBaseURL is the public OpenSky REST API root.
const DefaultBaseURL = "https://opensky-network.org/api"

// FetchResult is the outcome of one states request. Err is set when the
// request itself failed; States is empty in that case.
type FetchResult struct {
	States  []model.StateVector
	Skipped int
	Err     error
}

// Empty reports whether the fetch produced no usable states.
func (r FetchResult) Empty() bool { return len(r.States) == 0 }

// OpenSkyClient is a client for fetching data from OpenSky Network API
type OpenSkyClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// NewOpenSkyClient creates a new OpenSky API client
func NewOpenSkyClient(baseURL string, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *OpenSkyClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OpenSkyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "opensky-ingest/1.0",
		logger:    log.WithComponent("fetcher"),
		metrics:   m,
	}
}

// FetchStates fetches all current state vectors. It never returns a hard
// error: request failures are logged and reported through FetchResult.Err.
func (c *OpenSkyClient) FetchStates(ctx context.Context, authz auth.Authorization) FetchResult {
	resp, err := c.fetchAll(ctx, authz)
	if err != nil {
		c.logger.Error("Failed to fetch states from OpenSky", logger.ErrorFields(err))
		return FetchResult{Err: err}
	}

	states, skipped := c.decodeStates(resp)
	if c.metrics != nil {
		c.metrics.AddStatesFetched(len(states))
	}
	c.logger.Info("Retrieved state vectors from OpenSky", logger.Fields("count", len(states), "skipped", skipped))

	return FetchResult{States: states, Skipped: skipped}
}

func (c *OpenSkyClient) fetchAll(ctx context.Context, authz auth.Authorization) (*model.OpenSkyResponse, error) {
	startTime := time.Now()
	url := fmt.Sprintf("%s/states/all", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.FetchError("create request", err)
	}
	authz.Apply(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.incrementRequests()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.incrementErrors()
		return nil, apperr.FetchError("states request failed", err)
	}
	defer resp.Body.Close()

	latency := time.Since(startTime).Milliseconds()
	if c.metrics != nil {
		c.metrics.RecordAPILatency(latency)
	}

	if resp.StatusCode != http.StatusOK {
		c.incrementErrors()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, apperr.FetchError(fmt.Sprintf("API returned status %d", resp.StatusCode), nil).
			WithDetail("status", resp.StatusCode)
	}

	// UseNumber keeps epoch seconds and sensor ids exact.
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var body model.OpenSkyResponse
	if err := dec.Decode(&body); err != nil {
		c.incrementErrors()
		return nil, apperr.FetchError("parse states response", err)
	}

	c.logger.Debug("Fetched states response", logger.Fields("rows", len(body.States), logger.FieldDuration, latency))
	return &body, nil
}

// decodeStates decodes every row independently; a malformed row is logged
// and skipped without affecting its siblings.
func (c *OpenSkyClient) decodeStates(resp *model.OpenSkyResponse) ([]model.StateVector, int) {
	if resp == nil || len(resp.States) == 0 {
		return nil, 0
	}

	states := make([]model.StateVector, 0, len(resp.States))
	skipped := 0
	for i, row := range resp.States {
		sv, err := DecodeStateVector(row)
		if err != nil {
			skipped++
			if c.metrics != nil {
				c.metrics.IncrementDecodeFailures()
			}
			c.logger.Warn("Skipping malformed state vector", logger.Fields("row", i, logger.FieldError, err.Error()))
			continue
		}
		states = append(states, sv)
	}
	return states, skipped
}

func (c *OpenSkyClient) incrementRequests() {
	if c.metrics != nil {
		c.metrics.IncrementAPIRequests()
	}
}

func (c *OpenSkyClient) incrementErrors() {
	if c.metrics != nil {
		c.metrics.IncrementAPIErrors()
	}
}
