// Package dropbox is a typed client for the Dropbox HTTP API v2.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	apiBase        = "https://api.dropboxapi.com/2"
	contentBase    = "https://content.dropboxapi.com/2"
	notifyBase     = "https://notify.dropboxapi.com/2"
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second

	defaultMaxRetries = 5
)

// Header names used by the content and RPC endpoints.
const (
	headerAPIArg     = "Dropbox-API-Arg"
	headerAPIResult  = "Dropbox-API-Result"
	headerPathRoot   = "Dropbox-API-Path-Root"
	headerSelectUser = "Dropbox-API-Select-User"
)

// Client is a Dropbox API client.
type Client struct {
	token      string
	tokens     oauth2.TokenSource
	http       *http.Client
	logger     zerolog.Logger
	apiURL     string
	contentURL string
	notifyURL  string
	maxRetries int
	backoff    time.Duration
	pathRoot   *PathRoot
	selectUser string
	cache      *metadataCache
	limiter    *rate.Limiter
	maxUpload  int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource authorizes requests with tokens from ts instead of a fixed token.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithBaseURLs points the client at other API, content and notify hosts.
func WithBaseURLs(api, content, notify string) Option {
	return func(c *Client) {
		c.apiURL = strings.TrimRight(api, "/")
		c.contentURL = strings.TrimRight(content, "/")
		c.notifyURL = strings.TrimRight(notify, "/")
	}
}

// WithMaxRetries bounds retries on rate limiting and server errors.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithInitialBackoff sets the first wait used when the server gives no Retry-After.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithPathRoot sends a Dropbox-API-Path-Root header with every request.
func WithPathRoot(root PathRoot) Option {
	return func(c *Client) { c.pathRoot = &root }
}

// WithSelectUser acts as the given team member (team tokens only).
func WithSelectUser(teamMemberID string) Option {
	return func(c *Client) { c.selectUser = teamMemberID }
}

// WithMetadataCache caches get_metadata results for ttl.
func WithMetadataCache(ttl time.Duration) Option {
	return func(c *Client) { c.cache = newMetadataCache(ttl) }
}

// WithRateLimit spaces out requests to at most perSecond, allowing bursts of
// burst. Attempts made after a back-off count too.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1)) }
}

// NewClient creates a new Dropbox API client.
func NewClient(token string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		token:      token,
		http:       &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		apiURL:     apiBase,
		contentURL: contentBase,
		notifyURL:  notifyBase,
		maxRetries: defaultMaxRetries,
		backoff:    initialBackoff,
		maxUpload:  UploadMaxSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type routeStyle int

const (
	styleRPC routeStyle = iota
	styleUpload
	styleDownload
	styleNotify
)

type request struct {
	route  string
	style  routeStyle
	arg    any
	body   []byte
	ranges string
}

// errorDecoder turns a non-retryable failure into a typed error.
type errorDecoder func(route string, status int, body []byte) error

// decodeError maps a failed response onto the error types of a route whose
// 409 reason is E.
func decodeError[E any](route string, status int, body []byte) error {
	switch status {
	case http.StatusBadRequest:
		return &BadInputError{Route: route, Message: strings.TrimSpace(string(body))}
	case http.StatusUnauthorized:
		return decodeRouteError[AuthError](route, status, body)
	case http.StatusForbidden:
		return decodeRouteError[AccessError](route, status, body)
	case http.StatusConflict:
		return decodeRouteError[E](route, status, body)
	default:
		return &APIError{Route: route, StatusCode: status, Summary: strings.TrimSpace(string(body))}
	}
}

// rpcCall runs an RPC route and decodes its JSON result into R.
func rpcCall[E, R any](ctx context.Context, c *Client, route string, arg any) (R, error) {
	var out R

	resp, err := c.send(ctx, &request{route: route, style: styleRPC, arg: arg}, decodeError[E])
	if err != nil {
		return out, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := decodeBody(resp.Body, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s response: %w", route, err)
	}
	return out, nil
}

// decodeBody decodes JSON from r into v. An empty or null body leaves v alone.
func decodeBody(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	return json.Unmarshal(data, v)
}

// send performs a request, retrying on rate limiting and transient server
// errors. On success the caller owns the response body.
func (c *Client) send(ctx context.Context, r *request, onError errorDecoder) (*http.Response, error) {
	payload := []byte("null")
	if r.arg != nil {
		var err error
		payload, err = json.Marshal(r.arg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode argument for %s: %w", r.route, err)
		}
	}

	backoff := c.backoff
	hc := c.httpFor(r.style)

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := c.newRequest(ctx, r, payload)
		if err != nil {
			return nil, err
		}

		resp, err := hc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request to %s failed: %w", r.route, err)
		}

		c.logger.Debug().
			Str("route", r.route).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Msg("Dropbox API call")

		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent {
			return resp, nil
		}

		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		wait, final := c.retryPolicy(r.route, resp, body, backoff)
		if final == nil {
			return nil, onError(r.route, resp.StatusCode, body)
		}
		if attempt >= c.maxRetries {
			return nil, final
		}

		c.logger.Warn().
			Str("route", r.route).
			Int("status", resp.StatusCode).
			Dur("wait", wait).
			Msg("Dropbox asked us to back off, waiting")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}

		backoff = min(backoff*2, maxBackoff)
	}
}

// retryPolicy decides whether a failed response is retried. It returns the
// wait before the next attempt and the error to report once retries run out,
// or a nil error when the response must not be retried.
func (c *Client) retryPolicy(route string, resp *http.Response, body []byte, backoff time.Duration) (time.Duration, error) {
	wait := backoff
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil {
			wait = time.Duration(secs) * time.Second
		}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		var env struct {
			Error struct {
				Reason     Tagged `json:"reason"`
				RetryAfter int    `json:"retry_after"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &env)
		if resp.Header.Get("Retry-After") == "" && env.Error.RetryAfter > 0 {
			wait = time.Duration(env.Error.RetryAfter) * time.Second
		}
		return wait, &RateLimitError{Route: route, Reason: env.Error.Reason, RetryAfter: wait}

	case resp.StatusCode >= http.StatusInternalServerError:
		return wait, &ServerError{Route: route, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}

	default:
		return 0, nil
	}
}

func (c *Client) newRequest(ctx context.Context, r *request, payload []byte) (*http.Request, error) {
	var (
		url  string
		body io.Reader
	)

	switch r.style {
	case styleRPC:
		url = c.apiURL + "/" + r.route
		body = bytes.NewReader(payload)
	case styleUpload:
		url = c.contentURL + "/" + r.route
		body = bytes.NewReader(r.body)
	case styleDownload:
		url = c.contentURL + "/" + r.route
	case styleNotify:
		url = c.notifyURL + "/" + r.route
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", r.route, err)
	}

	switch r.style {
	case styleRPC, styleNotify:
		req.Header.Set("Content-Type", "application/json")
	case styleUpload:
		req.Header.Set("Content-Type", "application/octet-stream")
		req.Header.Set(headerAPIArg, headerSafeJSON(payload))
	case styleDownload:
		req.Header.Set(headerAPIArg, headerSafeJSON(payload))
		if r.ranges != "" {
			req.Header.Set("Range", r.ranges)
		}
	}

	// Longpoll is the one route that must not carry credentials.
	if r.style == styleNotify {
		return req, nil
	}

	auth, err := c.authorization()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)

	if c.pathRoot != nil {
		root, err := json.Marshal(c.pathRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to encode path root: %w", err)
		}
		req.Header.Set(headerPathRoot, headerSafeJSON(root))
	}
	if c.selectUser != "" {
		req.Header.Set(headerSelectUser, c.selectUser)
	}

	return req, nil
}

// httpFor returns the HTTP client for a route style. Content transfers and
// longpolls outlive the overall timeout of the default client, so they get a
// copy without it and rely on ctx instead.
func (c *Client) httpFor(style routeStyle) *http.Client {
	if style == styleRPC || c.http.Timeout == 0 {
		return c.http
	}
	hc := *c.http
	hc.Timeout = 0
	return &hc
}

func (c *Client) authorization() (string, error) {
	if c.tokens == nil {
		return "Bearer " + c.token, nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return "", fmt.Errorf("obtaining access token: %w", err)
	}
	return "Bearer " + tok.AccessToken, nil
}

// headerSafeJSON escapes every non-ASCII code point of a JSON document so it
// can travel in an HTTP header.
func headerSafeJSON(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, r := range string(b) {
		if r < 0x7f {
			sb.WriteRune(r)
			continue
		}
		if r > 0xffff {
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&sb, `\u%04x\u%04x`, hi, lo)
			continue
		}
		fmt.Fprintf(&sb, `\u%04x`, r)
	}
	return sb.String()
}
