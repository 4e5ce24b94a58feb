package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/crimpy/internal/ingest"
)

// RejectedError is returned when the server refuses a session file as invalid.
// Retrying the same bytes cannot succeed.
type RejectedError struct {
	Kind    string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected (%s): %s", e.Kind, e.Message)
}

// Client sends session files to a crimpy server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the crimpy server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// SendSession POSTs one session file to the server's ingest endpoint under the given
// source name. Network errors and 5xx responses are retried up to 3 times with
// exponential backoff; rejections and auth failures are not.
func (c *Client) SendSession(ctx context.Context, source string, body []byte) (*ingest.Result, error) {
	u := c.serverURL + "/api/v1/ingest?" + url.Values{"source": {source}}.Encode()

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var result ingest.Result
			if err := json.Unmarshal(respBody, &result); err != nil {
				return nil, fmt.Errorf("decoding ingest result: %w", err)
			}
			return &result, nil
		case resp.StatusCode == http.StatusBadRequest:
			var e struct {
				Error string `json:"error"`
				Kind  string `json:"kind"`
			}
			_ = json.Unmarshal(respBody, &e)
			if e.Kind == "" {
				e.Kind = "invalid"
			}
			return nil, &RejectedError{Kind: e.Kind, Message: e.Error}
		case resp.StatusCode < 500:
			return nil, fmt.Errorf("ingest failed (status %d): %s", resp.StatusCode, respBody)
		}
		lastErr = fmt.Errorf("ingest failed (status %d): %s", resp.StatusCode, respBody)
	}

	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}
