package openreview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/JasonGross/openreview-exploration/observe"
	"github.com/JasonGross/openreview-exploration/resilience"
)

// DefaultBaseURL is the OpenReview API v2 endpoint.
const DefaultBaseURL = "https://api2.openreview.net"

const maxErrorBody = 64 << 10

// Config configures the HTTP layer of a Client.
type Config struct {
	BaseURL string

	// Timeout bounds a single HTTP request including transport-level retries.
	Timeout time.Duration

	// HTTPRetries is the number of transport-level retries for connection
	// errors, 429 and 5xx responses.
	HTTPRetries  int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	UserAgent string
	Logger    observe.Logger
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		Timeout:      30 * time.Second,
		HTTPRetries:  3,
		RetryWaitMin: 1 * time.Second,
		RetryWaitMax: 10 * time.Second,
		UserAgent:    "openreview-exploration",
	}
}

// NewHTTPClient returns an *http.Client backed by go-retryablehttp.
//
// It retries connection errors, 5xx responses (except 501) and 429
// responses, honouring Retry-After. When retries are exhausted the last
// response is returned unchanged so the caller can decode the API error.
func NewHTTPClient(cfg Config) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.HTTPRetries
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.Logger != nil {
		rc.Logger = retryablehttp.LeveledLogger(leveledLogger{cfg.Logger})
	} else {
		rc.Logger = nil
	}

	client := rc.StandardClient()
	client.Timeout = cfg.Timeout
	return client
}

// Client talks to the OpenReview API.
//
// A Client is safe for concurrent use once constructed.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Executor   *resilience.Executor
	UserAgent  string

	mu     sync.RWMutex
	token  string
	expiry time.Time
	now    func() time.Time
}

// NewClient creates a Client using NewHTTPClient. executor may be nil.
func NewClient(cfg Config, executor *resilience.Executor) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(base, "/"),
		HTTPClient: NewHTTPClient(cfg),
		Executor:   executor,
		UserAgent:  cfg.UserAgent,
		now:        time.Now,
	}
}

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token used by later requests.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "/login", nil, loginRequest{ID: username, Password: password}, &out, false); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return c.SetToken(out.Token)
}

// SetToken installs a bearer token. The exp claim is read without
// verifying the signature; tokens that are not JWTs are accepted with an
// unknown expiry.
func (c *Client) SetToken(token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	var expiry time.Time
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			expiry = exp.Time
		}
	}

	c.mu.Lock()
	c.token = token
	c.expiry = expiry
	c.mu.Unlock()
	return nil
}

// Authenticated reports whether a token is installed.
func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// TokenExpiry returns the token's exp claim. ok is false when no token is
// installed or the token carries no expiry.
func (c *Client) TokenExpiry() (expiry time.Time, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiry, c.token != "" && !c.expiry.IsZero()
}

// GetNotes performs one GET /notes request.
func (c *Client) GetNotes(ctx context.Context, q NotesQuery) ([]Note, error) {
	var out notesResponse
	if err := c.do(ctx, http.MethodGet, "/notes", q.Values(), nil, &out, true); err != nil {
		return nil, fmt.Errorf("get %s: %w", q, err)
	}
	return out.Notes, nil
}

func (c *Client) currentToken() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return "", nil
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	if !c.expiry.IsZero() && !now().Before(c.expiry) {
		return "", fmt.Errorf("%w at %s", ErrTokenExpired, c.expiry.Format(time.RFC3339))
	}
	return c.token, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, auth bool) error {
	var token string
	if auth {
		var err error
		if token, err = c.currentToken(); err != nil {
			return err
		}
	}

	// Each attempt reads its own body; only the body of the attempt the
	// executor reports as successful is decoded into out.
	var payload []byte
	call := func(ctx context.Context) error {
		data, err := c.roundTrip(ctx, method, path, query, body, token)
		if err != nil && !IsRetryable(err) {
			return resilience.Permanent(err)
		}
		payload = data
		return err
	}

	var err error
	if c.Executor == nil {
		err = call(ctx)
	} else {
		err = c.Executor.Execute(ctx, call)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

// roundTrip sends one request and returns the body of a 2xx response once
// it is known to be complete JSON.
func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body any, token string) ([]byte, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Name = eb.Name
			apiErr.Message = eb.Message
		}
		return nil, apiErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: truncated or invalid JSON body", ErrMalformedResponse)
	}
	return data, nil
}

// leveledLogger adapts observe.Logger to retryablehttp. Errors are logged
// as warnings because the request may still succeed on a later attempt.
type leveledLogger struct {
	l observe.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.l.Warn(context.Background(), msg, kvFields(keysAndValues)...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.l.Warn(context.Background(), msg, kvFields(keysAndValues)...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.l.Info(context.Background(), msg, kvFields(keysAndValues)...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.l.Debug(context.Background(), msg, kvFields(keysAndValues)...)
}

func kvFields(kv []interface{}) []observe.Field {
	fields := make([]observe.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, observe.F(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
