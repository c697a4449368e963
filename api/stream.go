package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// OpenJobEvents opens the live event stream for a job. The streaming protocol
// can't carry custom headers, so the API key travels as a query parameter.
// The caller owns the returned body and must close it exactly once.
func (c *Client) OpenJobEvents(ctx context.Context, jobID string) (io.ReadCloser, error) {
	streamURL := fmt.Sprintf("%s/jobs/%s/events", c.baseURL, url.PathEscape(jobID))
	if c.apiKey != "" {
		streamURL += "?api_key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The standard client shares the transport with the retryable client but
	// bypasses its retry loop: a long-lived stream must not be re-issued.
	resp, err := c.httpClient.HTTPClient.Do(req)
	if err != nil {
		return nil, &ConnectionError{Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func(body io.ReadCloser) {
			if err := body.Close(); err != nil {
				c.logger.Printf(err.Error())
			}
		}(resp.Body)
		return nil, decodeError(resp)
	}

	return resp.Body, nil
}
