// Package sdk is a Go client for the rehabilitation platform JSON API.
package sdk

import (
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the default API endpoint.
	DefaultBaseURL = "http://localhost:8080"
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second
)

// Client is the API client.
//
// Sign in with Auth.Login, or pass an existing session token:
//
//	client := sdk.NewClient(sdk.WithToken(token))
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client

	// Services
	Auth      *AuthService
	Account   *AccountService
	Billing   *BillingService
	Exercises *ExercisesService
	Admin     *AdminService
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithToken sets the session token sent as a Bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Auth = &AuthService{client: c}
	c.Account = &AccountService{client: c}
	c.Billing = &BillingService{client: c}
	c.Exercises = &ExercisesService{client: c}
	c.Admin = &AdminService{client: c}

	return c
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the session token in use, if any.
func (c *Client) Token() string {
	return c.token
}
