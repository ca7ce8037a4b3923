package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/janwilmake/flaredream.dash/internal/domain"
)

// Client is the API client for the dashboard service
type Client struct {
	baseURL    string
	httpClient *http.Client
	viewer     *domain.Viewer
}

// Option configures a Client
type Option func(*Client)

// WithViewer sends requests on behalf of login, authenticated with token
func WithViewer(login, token string) Option {
	return func(c *Client) {
		if login != "" {
			c.viewer = &domain.Viewer{Login: login, Credential: token}
		}
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the service
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error: %d %s - %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("API error: %d - %s", e.Status, e.Message)
}

// IsNotGenerated reports whether err says the dashboard needs a refresh first
func IsNotGenerated(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == "NOT_GENERATED"
}

// Dashboard is a served dashboard page
type Dashboard struct {
	Tier    domain.Tier
	Format  domain.Format
	Content string
}

// RefreshResult is the outcome of a refresh
type RefreshResult struct {
	RefreshID    string    `json:"refresh_id"`
	Username     string    `json:"username"`
	Tier         string    `json:"tier"`
	GeneratedAt  time.Time `json:"generated_at"`
	PublicCount  int       `json:"public_count"`
	PrivateCount int       `json:"private_count"`
	Deployable   int       `json:"deployable"`
	Keys         []string  `json:"keys"`
}

// GetDashboard retrieves the cached dashboard of username
func (c *Client) GetDashboard(ctx context.Context, username string, format domain.Format) (*Dashboard, error) {
	params := url.Values{}
	params.Set("format", string(format))

	resp, err := c.do(ctx, http.MethodGet, "/dashboard/"+url.PathEscape(username), params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Tier:    domain.Tier(resp.Header.Get("X-Dashboard-Tier")),
		Format:  format,
		Content: string(body),
	}, nil
}

// Refresh regenerates the dashboards of username
func (c *Client) Refresh(ctx context.Context, username string) (*RefreshResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/dashboard/"+url.PathEscape(username)+"/refresh", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var response struct {
		Data *RefreshResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var response struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

// do sends a request and returns the response when it is 2xx
func (c *Client) do(ctx context.Context, method, path string, params url.Values) (*http.Response, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.viewer != nil {
		req.Header.Set("X-Viewer-Login", c.viewer.Login)
		if c.viewer.Credential != "" {
			req.Header.Set("Authorization", "Bearer "+c.viewer.Credential)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, decodeError(resp.StatusCode, body)
	}
	return resp, nil
}

func decodeError(status int, body []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
		return &APIError{Status: status, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}
	return &APIError{Status: status, Message: strings.TrimSpace(string(body))}
}
