// Package makermatrix is the REST client for the MakerMatrix backend.
// It covers the import-workflow surface: supplier capability listings,
// file preview, filename metadata extraction, import submission, and
// task status polling.
//
// All parsing, detection, and enrichment work happens server-side; this
// client only marshals requests and unwraps the backend's response
// envelope into the shared core types.
package makermatrix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mm_importer/core"
)

// ErrTaskNotFound is returned by GetTask when the backend answers 404.
// Callers polling a freshly created task treat this as transient noise.
var ErrTaskNotFound = errors.New("task not found")

// Client is the MakerMatrix API client. Safe for concurrent use.
type Client struct {
	// BaseURL is the backend root, without trailing slash
	BaseURL string
	// APIKey is sent as a bearer token on every request
	APIKey string
	// HTTP is the client for listing and status calls
	HTTP *http.Client
	// UploadHTTP is the client for multipart submissions, configured with
	// a longer timeout so a slow backend cannot hang a submit forever
	UploadHTTP *http.Client

	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a Client with explicit connection settings. Both
// HTTP clients come from core.GetHTTPClient so the TLS policy is applied
// in one place.
func NewClient(serverURL, apiKey string, allowSelfSigned bool) *Client {
	tlsCfg := &core.Config{AllowSelfSignedCerts: allowSelfSigned}

	return &Client{
		BaseURL:    strings.TrimRight(serverURL, "/"),
		APIKey:     apiKey,
		HTTP:       core.GetHTTPClient(tlsCfg, 30*time.Second),
		UploadHTTP: core.GetHTTPClient(tlsCfg, 120*time.Second),
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// NewClientFromConfig creates a Client from the loaded configuration.
func NewClientFromConfig(cfg *core.Config) *Client {
	c := NewClient(cfg.ServerURL, cfg.APIKey, cfg.AllowSelfSignedCerts)
	c.HTTP.Timeout = cfg.RequestTimeout
	c.UploadHTTP.Timeout = cfg.SubmitTimeout
	c.maxRetries = cfg.MaxRetries
	c.retryDelay = cfg.RetryDelay
	return c
}

// apiResponse is the backend's standard response envelope.
type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// getJSON performs an authenticated GET with retry on retryable statuses
// and returns the unwrapped data payload.
func (c *Client) getJSON(ctx context.Context, path string, params map[string]string) (json.RawMessage, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %s: %w", path, err)
	}
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)

		resp, err := c.HTTP.Do(req)
		if err != nil {
			lastErr = err
			if !c.backoff(ctx, attempt) {
				break
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if !c.backoff(ctx, attempt) {
				break
			}
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", path, ErrTaskNotFound)
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, core.ErrAuthFailed(fmt.Sprintf("status %d from %s", resp.StatusCode, path))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < c.maxRetries {
				lastErr = fmt.Errorf("backend status %d", resp.StatusCode)
				if !c.backoff(ctx, attempt) {
					break
				}
				continue
			}
			return nil, fmt.Errorf("backend error: status=%d body=%s", resp.StatusCode, truncate(body, 512))
		}

		return unwrapEnvelope(body)
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return nil, fmt.Errorf("GET %s: %w", path, lastErr)
}

// postJSON performs an authenticated JSON POST without retry (POSTs are
// not assumed idempotent) and returns the unwrapped data payload.
func (c *Client) postJSON(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	return c.send(c.HTTP, req, path)
}

// postMultipart performs an authenticated multipart POST using the
// upload client and returns the unwrapped data payload.
func (c *Client) postMultipart(ctx context.Context, path string, body *bytes.Buffer, contentType string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	return c.send(c.UploadHTTP, req, path)
}

func (c *Client) send(httpClient *http.Client, req *http.Request, path string) (json.RawMessage, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("POST %s: reading response: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, core.ErrAuthFailed(fmt.Sprintf("status %d from %s", resp.StatusCode, path))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("backend error: status=%d body=%s", resp.StatusCode, truncate(body, 512))
	}

	return unwrapEnvelope(body)
}

// unwrapEnvelope decodes the standard envelope and distinguishes domain
// failure from transport success: HTTP 200 with status "error" is still
// an error, carrying the embedded message.
func unwrapEnvelope(body []byte) (json.RawMessage, error) {
	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("malformed response envelope: %w", err)
	}
	if strings.EqualFold(envelope.Status, "error") {
		msg := envelope.Message
		if msg == "" {
			msg = "backend reported an error without a message"
		}
		return nil, core.ErrImportRejected(msg)
	}
	if envelope.Data == nil {
		// Some endpoints answer with a bare payload instead of the envelope
		return body, nil
	}
	return envelope.Data, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
}

// backoff sleeps with exponential backoff plus jitter. Returns false when
// the context was cancelled during the wait.
func (c *Client) backoff(ctx context.Context, attempt int) bool {
	delay := c.retryDelay*time.Duration(1<<(attempt-1)) + time.Duration(rand.Intn(100))*time.Millisecond
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
