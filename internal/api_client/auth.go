package api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"dashboard/internal/models"
)

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful POST /login.
type LoginResponse struct {
	Token    string      `json:"token"`
	Login    string      `json:"login"`
	UserRole models.Role `json:"user_role"`
}

// Login exchanges credentials for a bearer token. Any non-2xx answer is
// reported as ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, login, password string) (*LoginResponse, error) {
	payload, err := json.Marshal(LoginRequest{Login: login, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/login", bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to make login request", zap.Error(err))
		return nil, fmt.Errorf("failed to make login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Info("Login rejected", zap.String("login", login), zap.Int("status", resp.StatusCode))
		return nil, ErrInvalidCredentials
	}

	var out LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Error("Failed to decode login response", zap.Error(err))
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	return &out, nil
}

// AccountCredentials authenticates a background worker with a fixed
// account. The token is obtained on first use and dropped on revocation.
type AccountCredentials struct {
	client   *Client
	login    string
	password string

	mu    sync.Mutex
	token string
}

func NewAccountCredentials(client *Client, login, password string) *AccountCredentials {
	return &AccountCredentials{client: client, login: login, password: password}
}

func (a *AccountCredentials) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" {
		return a.token, nil
	}

	resp, err := a.client.Login(ctx, a.login, a.password)
	if err != nil {
		return "", err
	}
	a.token = resp.Token
	return a.token, nil
}

func (a *AccountCredentials) Revoke(_ context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
}
