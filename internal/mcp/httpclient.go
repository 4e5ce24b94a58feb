package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/crimpy/internal/progression"
	"github.com/claude/crimpy/internal/storage"
)

// HTTPClient implements DataSource by calling the crimpy REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// bucketToAgg maps MCP bucket values to REST API agg parameter values.
func bucketToAgg(bucket string) string {
	switch bucket {
	case "1 day":
		return "daily"
	case "1 month":
		return "monthly"
	default:
		return "weekly"
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

// getJSON fetches path and decodes the response into out.
func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values, what string, out any) error {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", what, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) QuerySessions(ctx context.Context, start, end time.Time) ([]storage.SessionSummary, error) {
	var sessions []storage.SessionSummary
	if err := c.getJSON(ctx, "/api/v1/sessions", timeParams(start, end), "sessions", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *HTTPClient) GetIntensitySummary(ctx context.Context, start, end time.Time, bucket string) ([]storage.IntensityPeriod, error) {
	params := timeParams(start, end)
	params.Set("agg", bucketToAgg(bucket))

	var periods []storage.IntensityPeriod
	if err := c.getJSON(ctx, "/api/v1/intensity/summary", params, "intensity summary", &periods); err != nil {
		return nil, err
	}
	return periods, nil
}

func pointsParams(start, end time.Time) url.Values {
	params := timeParams(start, end)
	params.Set("view", "points")
	return params
}

func (c *HTTPClient) GetFingerboardProgression(ctx context.Context, start, end time.Time) ([]progression.Point, error) {
	var points []progression.Point
	if err := c.getJSON(ctx, "/api/v1/progression/fingerboard", pointsParams(start, end), "fingerboard progression", &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *HTTPClient) GetCampusProgression(ctx context.Context, start, end time.Time) (moves, spread []progression.Point, err error) {
	var resp struct {
		Moves  []progression.Point `json:"moves"`
		Spread []progression.Point `json:"spread"`
	}
	if err := c.getJSON(ctx, "/api/v1/progression/campus", pointsParams(start, end), "campus progression", &resp); err != nil {
		return nil, nil, err
	}
	return resp.Moves, resp.Spread, nil
}

func (c *HTTPClient) GetPullupProgression(ctx context.Context, start, end time.Time) ([]progression.WeightPoint, error) {
	var points []progression.WeightPoint
	if err := c.getJSON(ctx, "/api/v1/progression/pullup", pointsParams(start, end), "pullup progression", &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *HTTPClient) GetDataStats(ctx context.Context) (*storage.DataStats, error) {
	var stats storage.DataStats
	if err := c.getJSON(ctx, "/api/v1/stats", nil, "stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
