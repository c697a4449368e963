package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
)

type authMode int

const (
	// authNone is for anonymous endpoints (register, login).
	authNone authMode = iota
	// authAPIKey sends the API key in the X-API-Key header.
	authAPIKey
	// authBearer sends the session token for account-management endpoints.
	authBearer
)

// Config ...
type Config struct {
	BaseURL      string
	APIKey       string
	SessionToken string
	// HTTPClient can be provided to control the retry policy. When nil, a
	// client with retries disabled is used: retrying belongs to callers, not
	// to this layer.
	HTTPClient *retryablehttp.Client
	Logger     log.Logger
}

// Client talks to the Poofpop API. It injects credentials, decodes the JSON
// error envelope of non-2xx responses and separates connection-level failures
// from server-reported ones. It never retries on its own.
type Client struct {
	httpClient   *retryablehttp.Client
	baseURL      string
	apiKey       string
	sessionToken string
	logger       log.Logger
}

// NewClient ...
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("API base URL is empty")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewLogger()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = retryhttp.NewClient(logger)
		httpClient.RetryMax = 0
		// Never classify a response as retryable: a 5xx must come back as a
		// response so its error envelope can be decoded, not as a gave-up error.
		httpClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
			return false, err
		}
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		sessionToken: cfg.SessionToken,
		logger:       logger,
	}, nil
}

// errorEnvelope is the structured error body the server sends with non-2xx
// responses. Bodies that don't parse into it are reported by status code only.
type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"error_code"`
}

func (c *Client) do(ctx context.Context, method, path string, requestBody interface{}, auth authMode, out interface{}) error {
	var payload []byte
	if requestBody != nil {
		var err error
		payload, err = json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req.Request, auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Cause: err}
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Printf(err.Error())
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) setAuth(req *http.Request, auth authMode) {
	switch auth {
	case authAPIKey:
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}
	case authBearer:
		if c.sessionToken != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.sessionToken))
		}
	}
}

func decodeError(resp *http.Response) error {
	apiErr := APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(resp.Body)
	if err == nil {
		var envelope errorEnvelope
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Error != "" {
			apiErr.Message = envelope.Error
			apiErr.Code = envelope.Code
		}
	}

	if resp.StatusCode == http.StatusPaymentRequired || apiErr.Code == ErrorCodeInsufficientCredits {
		return &InsufficientCreditsError{APIError: apiErr}
	}
	return &apiErr
}
