package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goliatone/go-print"
)

var _ API = &Client{}

// Client is the platform REST client used by the session manager.
type Client struct {
	baseURL    string
	endpoints  Endpoints
	httpClient *http.Client
	logger     Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger overrides the client logger.
func WithClientLogger(logger Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the underlying http.Client. Its Transport should be the
// session Transport or requests will not be authorized.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for cfg that sends requests through rt.
func NewClient(cfg Config, rt http.RoundTripper, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   cfg.GetBaseURL(),
		endpoints: cfg.GetEndpoints(),
		httpClient: &http.Client{
			Timeout:   cfg.GetRequestTimeout(),
			Transport: rt,
		},
		logger: defLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Do sends an arbitrary request through the pipeline. Feature areas (chat, documents,
// images) use it so their requests carry the session credentials.
func (c *Client) Do(ctx context.Context, method, path string, body, target any) error {
	return c.do(ctx, method, path, "", body, target)
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(WithoutCredentials(ctx), http.MethodPost, c.endpoints.Login, "", req, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, ErrMalformedResponse
	}
	return &resp, nil
}

// Register creates an account. The payload is returned as sent by the server.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (map[string]any, error) {
	payload := map[string]any{}
	if err := c.do(WithoutCredentials(ctx), http.MethodPost, c.endpoints.Register, "", req, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// VerifyEmail confirms an email verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) (map[string]any, error) {
	payload := map[string]any{}
	body := map[string]string{"token": token}
	if err := c.do(WithoutCredentials(ctx), http.MethodPost, c.endpoints.VerifyEmail, "", body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ResendVerification asks the backend to send a new verification email.
func (c *Client) ResendVerification(ctx context.Context, email string) (map[string]any, error) {
	payload := map[string]any{}
	body := map[string]string{"email": email}
	if err := c.do(WithoutCredentials(ctx), http.MethodPost, c.endpoints.ResendVerification, "", body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// CurrentUser fetches the user the current session belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	return c.CurrentUserWithToken(ctx, "")
}

// CurrentUserWithToken fetches the user for an explicit access token, bypassing the
// token held by the session.
func (c *Client) CurrentUserWithToken(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, c.endpoints.CurrentUser, accessToken, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, ErrMalformedResponse
	}
	return &user, nil
}

// OAuthLoginURL returns the absolute URL that starts the provider flow.
func (c *Client) OAuthLoginURL(provider string) string {
	return c.baseURL + c.endpoints.OAuthLoginPath(provider)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, target any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(HeaderAuthorization, "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, data)
		c.logger.Debug("request rejected",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"kind", apiErr.Kind,
			"code", apiErr.Code,
		)
		return apiErr
	}

	if target == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		c.logger.Warn("failed to decode response", "path", path, "error", err)
		return ErrMalformedResponse
	}

	if payload, ok := target.(*map[string]any); ok {
		c.logger.Debug("request completed", "method", method, "path", path, "payload", print.MaybePrettyJSON(redact(*payload)))
	} else {
		c.logger.Debug("request completed", "method", method, "path", path)
	}
	return nil
}

func redact(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if strings.Contains(strings.ToLower(k), "token") || strings.Contains(strings.ToLower(k), "password") {
			out[k] = "[redacted]"
			continue
		}
		out[k] = v
	}
	return out
}
