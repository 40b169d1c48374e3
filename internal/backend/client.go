package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"nightlife-storefront/internal/logger"
	"nightlife-storefront/internal/metrics"
)

const (
	headerClientID  = "X-Client-Id"
	headerRequestID = "X-Request-Id"
)

// Config configures the backend API client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Credentials carry one browser session's identity to the backend: the
// backend's auth cookies and the per-tab client id used as a rate-limit bucket.
type Credentials struct {
	Jar      http.CookieJar
	ClientID string
}

// NewCredentials returns credentials with an empty cookie jar.
func NewCredentials(clientID string) *Credentials {
	jar, _ := cookiejar.New(nil)
	return &Credentials{Jar: jar, ClientID: clientID}
}

// Client talks JSON over HTTP to the external storefront API. All calls send
// the session's cookies, like a browser fetch with credentials included.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	streaming *http.Client
	creds     *Credentials
	metrics   *metrics.Metrics
}

// NewClient creates a client for the API at cfg.BaseURL.
func NewClient(cfg Config, m *metrics.Metrics) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q: scheme and host are required", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: timeout},
		streaming: &http.Client{},
		metrics:   m,
	}, nil
}

// WithCredentials returns a copy of the client bound to one session.
func (c *Client) WithCredentials(creds *Credentials) *Client {
	cp := *c
	cp.creds = creds
	return &cp
}

// endpoint joins the base url with an already escaped path.
func (c *Client) endpoint(path string, query url.Values) *url.URL {
	u := *c.baseURL
	u.RawPath = c.baseURL.EscapedPath() + path
	if unescaped, err := url.PathUnescape(u.RawPath); err == nil {
		u.Path = unescaped
	} else {
		u.Path = u.RawPath
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return &u
}

// do sends one request. route is the path template used for metrics; path is
// the concrete path. Non-2xx responses are returned as *APIError.
func (c *Client) do(ctx context.Context, hc *http.Client, method, route, path string, query url.Values, body any, accept string) (*http.Response, error) {
	u := c.endpoint(path, query)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s request: %w", method, route, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s %s request: %w", method, route, err)
	}
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(headerRequestID, id)
	}
	if c.creds != nil {
		if c.creds.ClientID != "" {
			req.Header.Set(headerClientID, c.creds.ClientID)
		}
		if c.creds.Jar != nil {
			for _, ck := range c.creds.Jar.Cookies(u) {
				req.AddCookie(ck)
			}
		}
	}

	log := zerolog.Ctx(ctx).With().
		Str(logger.KeyTag, "backend.Client.do").
		Str("method", method).
		Str("route", route).
		Logger()

	start := time.Now()
	resp, err := hc.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveBackend(method, route, "error", elapsed.Seconds())
		log.Warn().Err(err).Dur(logger.KeyDuration, elapsed).Msg("backend request failed")
		return nil, fmt.Errorf("%s %s: %w", method, route, err)
	}
	c.metrics.ObserveBackend(method, route, strconv.Itoa(resp.StatusCode), elapsed.Seconds())

	if c.creds != nil && c.creds.Jar != nil {
		if cookies := resp.Cookies(); len(cookies) > 0 {
			c.creds.Jar.SetCookies(u, cookies)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		apiErr := parseAPIError(resp)
		log.Debug().
			Int(logger.KeyStatus, resp.StatusCode).
			Dur(logger.KeyDuration, elapsed).
			Str("error", apiErr.Message).
			Msg("backend returned error status")
		return nil, apiErr
	}

	log.Trace().Int(logger.KeyStatus, resp.StatusCode).Dur(logger.KeyDuration, elapsed).Msg("backend request done")
	return resp, nil
}

// call performs a JSON request and decodes the loosely-typed response body.
// A response without content decodes to nil.
func (c *Client) call(ctx context.Context, method, route, path string, query url.Values, body any) (any, error) {
	resp, err := c.do(ctx, c.http, method, route, path, query, body, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode %s %s response: %w", method, route, err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, route, path string, query url.Values) (any, error) {
	return c.call(ctx, http.MethodGet, route, path, query, nil)
}

func escape(id string) string {
	return url.PathEscape(id)
}
