package api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUnauthorized is returned when the monitoring API rejects the bearer
	// token. The credentials have already been revoked when it is returned.
	ErrUnauthorized       = errors.New("monitoring api rejected credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoCredentials      = errors.New("client has no credentials")
)

// StatusError is a non-2xx answer other than an authorization failure.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("monitoring api %s %s returned status: %d", e.Method, e.Path, e.StatusCode)
}

// Credentials supplies the bearer token for every call. Token is called once
// per request, so a credential change is picked up by the next call. Revoke
// is called when the API answers 401 or 403.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	Revoke(ctx context.Context)
}

// Client for the monitoring REST API. All authenticated traffic of the
// dashboard goes through Client.do.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	creds      Credentials
}

// NewClient creates a monitoring API client without credentials. A zero
// timeout keeps the transport default.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithCredentials returns a client sharing the transport that authenticates
// with creds.
func (c *Client) WithCredentials(creds Credentials) *Client {
	clone := *c
	clone.creds = creds
	return &clone
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if c.creds == nil {
		return ErrNoCredentials
	}

	token, err := c.creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to make request to monitoring api", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to make request to monitoring api: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.Warn("Monitoring api rejected credentials, revoking", zap.String("path", path), zap.Int("status", resp.StatusCode))
		c.creds.Revoke(ctx)
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("Monitoring api returned non-OK status", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if decoder, ok := out.(responseDecoder); ok {
		return decoder.decodeResponse(resp.Body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("Failed to decode monitoring api response", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to decode monitoring api response: %w", err)
	}
	return nil
}

// responseDecoder lets a result type read the body itself.
type responseDecoder interface {
	decodeResponse(r io.Reader) error
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json", out)
}

// IsUnauthorized reports whether err means the session was rejected and
// revoked.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
