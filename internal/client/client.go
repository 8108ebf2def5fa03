// Package client talks to the Thing Counter server: REST calls over fasthttp
// and live counter listeners over a websocket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	authmodel "thing-counter/internal/auth/domain/model"
	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/platform/firebase"
	apperrors "thing-counter/internal/shared/errors"

	"github.com/valyala/fasthttp"
)

const (
	defaultTimeout = 15 * time.Second
	apiPrefix      = "/api/v1"
	defaultWSPath  = "/ws/v1/listen"
)

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Type    string
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// IsUnauthorized reports whether err is a 401 from the server
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// AuthResponse is returned by the sign-in endpoints
type AuthResponse struct {
	User        *authmodel.User `json:"user"`
	AccessToken string          `json:"accessToken"`
	ExpiresAt   time.Time       `json:"expiresAt"`
}

// Client is safe for concurrent use
type Client struct {
	baseURL string
	wsPath  string
	timeout time.Duration
	http    *fasthttp.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client
type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithWebSocketPath overrides the listener path, /ws/v1/listen by default
func WithWebSocketPath(path string) Option {
	return func(c *Client) { c.wsPath = path }
}

// New creates a client for the server at baseURL, e.g. http://localhost:3000
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		wsPath:  defaultWSPath,
		timeout: defaultTimeout,
		http: &fasthttp.Client{
			Name:                "thing-counter-cli",
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken replaces the session token sent with every request
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SignInWithGoogle exchanges a Firebase ID token for a session and keeps its token
func (c *Client) SignInWithGoogle(ctx context.Context, idToken string) (*AuthResponse, error) {
	return c.signIn(ctx, "/auth/google", map[string]string{"idToken": idToken})
}

func (c *Client) Register(ctx context.Context, email, password, displayName string) (*AuthResponse, error) {
	return c.signIn(ctx, "/auth/register", map[string]string{
		"email":       email,
		"password":    password,
		"displayName": displayName,
	})
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	return c.signIn(ctx, "/auth/login", map[string]string{"email": email, "password": password})
}

// Logout ends the server session and forgets the token
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, fasthttp.MethodPost, apiPrefix+"/auth/logout", nil, nil)
	c.SetToken("")
	return err
}

func (c *Client) Me(ctx context.Context) (*authmodel.User, error) {
	var user authmodel.User
	if err := c.do(ctx, fasthttp.MethodGet, apiPrefix+"/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// WebConfig fetches the public Firebase web config
func (c *Client) WebConfig(ctx context.Context) (*firebase.WebConfig, error) {
	var cfg firebase.WebConfig
	if err := c.do(ctx, fasthttp.MethodGet, apiPrefix+"/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) ListCounters(ctx context.Context, uid string) ([]model.Counter, error) {
	var body struct {
		Counters []model.Counter `json:"counters"`
	}
	if err := c.do(ctx, fasthttp.MethodGet, countersPath(uid), nil, &body); err != nil {
		return nil, err
	}
	return body.Counters, nil
}

func (c *Client) GetCounter(ctx context.Context, uid, id string) (*model.Counter, error) {
	var counter model.Counter
	if err := c.do(ctx, fasthttp.MethodGet, counterPath(uid, id), nil, &counter); err != nil {
		return nil, err
	}
	return &counter, nil
}

func (c *Client) CreateCounter(ctx context.Context, uid, name string) (*model.Counter, error) {
	var counter model.Counter
	if err := c.do(ctx, fasthttp.MethodPost, countersPath(uid), map[string]string{"name": name}, &counter); err != nil {
		return nil, err
	}
	return &counter, nil
}

// Increase adds delta to the counter's value
func (c *Client) Increase(ctx context.Context, uid, id string, delta int64) (*model.Counter, error) {
	var counter model.Counter
	body := map[string]int64{"delta": delta}
	if err := c.do(ctx, fasthttp.MethodPost, counterPath(uid, id)+"/increment", body, &counter); err != nil {
		return nil, err
	}
	return &counter, nil
}

func (c *Client) RenameCounter(ctx context.Context, uid, id, name string) (*model.Counter, error) {
	var counter model.Counter
	if err := c.do(ctx, fasthttp.MethodPatch, counterPath(uid, id), map[string]string{"name": name}, &counter); err != nil {
		return nil, err
	}
	return &counter, nil
}

func (c *Client) DeleteCounter(ctx context.Context, uid, id string) error {
	return c.do(ctx, fasthttp.MethodDelete, counterPath(uid, id), nil, nil)
}

func (c *Client) signIn(ctx context.Context, path string, body interface{}) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, fasthttp.MethodPost, apiPrefix+path, body, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

// do sends one JSON request. out may be nil when the body is not needed.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
	}
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(raw)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	if status >= 300 {
		apiErr := &APIError{Status: status}
		var body apperrors.Response
		if json.Unmarshal(resp.Body(), &body) == nil {
			apiErr.Type, apiErr.Message, apiErr.Code = body.Error, body.Message, body.Code
		}
		return apiErr
	}
	if out == nil || status == fasthttp.StatusNoContent || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func countersPath(uid string) string {
	return apiPrefix + "/users/" + url.PathEscape(uid) + "/counters"
}

func counterPath(uid, id string) string {
	return countersPath(uid) + "/" + url.PathEscape(id)
}
