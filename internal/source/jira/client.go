package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/jira-metrics/internal/source"
)

// unauthorizedMarker is how some Jira Server proxies report a failed login
// in an HTML page served with status 200.
const unauthorizedMarker = "<title>Unauthorized (401)</title>"

// APIError is a non-2xx response that carried a Jira error body.
type APIError struct {
	StatusCode int
	Messages   []string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	parts := append([]string(nil), e.Messages...)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	msg := strings.Join(parts, "; ")
	return fmt.Sprintf("jira API error (%d): %s", e.StatusCode, msg)
}

// Client is a thin HTTP client for the Jira REST API. It authenticates
// each request with the credentials it is handed, decodes JSON, and
// retries with exponential backoff on HTTP 429 and 503.
type Client struct {
	httpClient *http.Client
	maxRetries int
	log        zerolog.Logger
}

// NewClient creates a Jira HTTP client with the given request timeout.
func NewClient(timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: 3,
		log:        log,
	}
}

// Get performs an HTTP GET on an absolute URL and unmarshals the JSON
// response into result.
func (c *Client) Get(
	ctx context.Context,
	url string,
	creds source.Credentials,
	result interface{},
) error {
	return c.do(ctx, http.MethodGet, url, creds, result)
}

// do builds the request, authenticates it, handles rate limiting and
// decodes the response.
func (c *Client) do(
	ctx context.Context,
	method string,
	url string,
	creds source.Credentials,
	result interface{},
) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		authorize(req, creds)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, url, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode == http.StatusServiceUnavailable {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf(
				"throttled (%d) on %s %s", resp.StatusCode, method, url,
			)
			c.log.Debug().
				Int("status", resp.StatusCode).
				Dur("wait", waitDuration).
				Int("attempt", attempt+1).
				Msg("jira throttled request, backing off")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized ||
			bytes.Contains(respBody, []byte(unauthorizedMarker)) {
			return &source.AuthError{
				SourceType: source.SourceTypeJira,
				Message:    "authentication failed (401): check your username, password or token",
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var jiraErr ErrorResponse
			if json.Unmarshal(respBody, &jiraErr) == nil &&
				(len(jiraErr.ErrorMessages) > 0 || len(jiraErr.Errors) > 0) {
				return &APIError{
					StatusCode: resp.StatusCode,
					Messages:   jiraErr.ErrorMessages,
					Fields:     jiraErr.Errors,
				}
			}
			return fmt.Errorf(
				"unexpected status %d on %s %s: %s",
				resp.StatusCode, method, url, strings.TrimSpace(string(respBody)),
			)
		}

		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, url, err)
		}

		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// authorize sets a Bearer header for tokens, Basic auth otherwise.
func authorize(req *http.Request, creds source.Credentials) {
	switch {
	case creds.Token != "":
		req.Header.Set("Authorization", "Bearer "+creds.Token)
	case creds.Username != "" && creds.Password != "":
		req.SetBasicAuth(creds.Username, creds.Password)
	}
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
