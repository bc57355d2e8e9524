// Package api is the REST client for the Next Generation Tracker backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ngtracker/ngt-desktop/common"
)

// Credentials is the login request body.
type Credentials struct {
	Login      string `json:"login"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// Registration is the register request body.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// envelope is the {success, data|message} wrapper used by the auth routes.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Client talks to the backend. No timeout is applied unless the caller's
// context carries one.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.http = c
	}
}

// NewClient creates a client for baseURL. Requests are traced through
// otelhttp, which is a no-op unless a tracer provider was installed.
func NewClient(baseURL string, opts ...Option) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL, always ending in a slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	var env envelope
	if err := c.do(ctx, http.MethodPost, common.RouteLogin, "", creds, &env); err != nil {
		return "", err
	}
	if !env.Success {
		return "", common.NewError(common.KindServerBusiness, env.Message, nil)
	}

	var token string
	if err := json.Unmarshal(env.Data, &token); err != nil || token == "" {
		return "", common.NewError(common.KindUnknownTransport, "login response carried no token", err)
	}
	return token, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	var env envelope
	if err := c.do(ctx, http.MethodPost, common.RouteRegister, "", reg, &env); err != nil {
		return err
	}
	if !env.Success {
		return common.NewError(common.KindServerBusiness, env.Message, nil)
	}
	return nil
}

// Self fetches the profile of the account that owns token.
func (c *Client) Self(ctx context.Context, token string) (*common.UserProfile, error) {
	var profile common.UserProfile
	if err := c.do(ctx, http.MethodGet, common.RouteSelf, token, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SubmitJob reports a delivered or cancelled job.
func (c *Client) SubmitJob(ctx context.Context, token string, report common.JobReport) error {
	return c.do(ctx, http.MethodPost, common.RouteJobs, token, report, nil)
}

func (c *Client) do(ctx context.Context, method, route, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", route, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", route, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(route, resp.Status, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return common.NewError(common.KindUnknownTransport,
			fmt.Sprintf("decode %s response", route), err)
	}
	return nil
}

// statusError turns a non-2xx response into an error. Auth routes answer
// failures with an envelope whose message is shown verbatim.
func statusError(route, status string, body []byte) error {
	cause := fmt.Errorf("%s returned %s", route, status)
	if route == common.RouteSelf {
		cause = fmt.Errorf("%w: %v", common.ErrNoProfile, cause)
	}

	message := status
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Message != "" {
		message = env.Message
	}
	return common.NewError(common.KindServerBusiness, message, cause)
}

// classify maps a transport failure to an error kind.
func classify(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return common.NewError(common.KindConnectionRefused, common.MsgConnectionRefused, err)
	}
	return common.NewError(common.KindUnknownTransport, common.MsgUnknownError, err)
}
