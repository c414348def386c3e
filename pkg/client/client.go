// Package client talks to the file browser REST API: directory listings,
// login and logout. The session lives in a cookie jar.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/fruitsalade/filebrowser/internal/logging"
	"github.com/fruitsalade/filebrowser/internal/metrics"
	"github.com/fruitsalade/filebrowser/pkg/models"
	"github.com/fruitsalade/filebrowser/pkg/protocol"
	"github.com/fruitsalade/filebrowser/pkg/retry"
)

// Endpoint labels used in logs and metrics.
const (
	endpointList   = "list"
	endpointLogin  = "login"
	endpointLogout = "logout"
	endpointHealth = "health"
)

// Client is an API client with retry and a cookie-based session.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	jar         http.CookieJar
	retryConfig retry.Config
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
	// Jar holds the session cookie. A public-suffix aware jar is created
	// when nil.
	Jar http.CookieJar
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}
	jar := cfg.Jar
	if jar == nil {
		jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		jar:         jar,
		retryConfig: cfg.RetryConfig,
	}, nil
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Cookies returns the session cookies currently held for the server.
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.baseURL)
}

// SetCookies restores previously saved session cookies.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.jar.SetCookies(c.baseURL, cookies)
}

func (c *Client) endpoint(p string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + p
	u.RawPath = ""
	return u.String()
}

// filesURL escapes each segment so names containing '?', '#' or '%' reach
// the server intact.
func (c *Client) filesURL(segments []string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			escaped = append(escaped, url.PathEscape(s))
		}
	}
	return strings.TrimRight(c.baseURL.String(), "/") + protocol.FilesPrefix + strings.Join(escaped, "/")
}

func (c *Client) newRequest(ctx context.Context, method, target string, body []byte) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
	}
	if err != nil {
		return nil, err
	}
	reqID := logging.GetRequestID(ctx)
	if reqID == "" {
		reqID = logging.NewRequestID()
	}
	req.Header.Set(logging.RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsUnauthorized(err):
		return "unauthorized"
	case IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

func (c *Client) observe(ctx context.Context, endpoint string, start time.Time, err error) {
	metrics.RecordAPIRequest(endpoint, outcome(err), time.Since(start))
	logging.WithContext(ctx).Debug("api call",
		zap.String("endpoint", endpoint),
		zap.String("outcome", outcome(err)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
}

// ListDirectory fetches the entries of the directory at segments. The empty
// slice is the root. Server errors and transport failures are retried.
//
// A 401 yields an error matching ErrUnauthorized. A 404, or a path that
// names a file, yields an error matching ErrNotFound.
func (c *Client) ListDirectory(ctx context.Context, segments []string) (_ []models.DirectoryEntry, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, endpointList, start, err) }()

	cfg := c.retryConfig
	cfg.OnRetry = func(attempt int, err error) {
		metrics.RecordAPIRetry(endpointList)
		logging.WithContext(ctx).Debug("retrying listing",
			zap.Int("attempt", attempt), zap.Error(err))
	}

	target := c.filesURL(segments)
	info, err := retry.DoWithResult(ctx, cfg, func() (*protocol.FileInfo, error) {
		req, err := c.newRequest(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, retry.Retryable(fmt.Errorf("list directory: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			se := newStatusError("list directory", resp)
			if resp.StatusCode >= 500 {
				return nil, retry.Retryable(se)
			}
			return nil, se
		}

		var fi protocol.FileInfo
		if err := json.NewDecoder(resp.Body).Decode(&fi); err != nil {
			return nil, fmt.Errorf("decode listing: %w", err)
		}
		return &fi, nil
	})
	if err != nil {
		return nil, err
	}

	// A body without a type is a bare {contents: [...]} listing.
	if info.Type == models.KindFile {
		return nil, fmt.Errorf("list directory: %q is not a directory: %w", strings.Join(segments, "/"), ErrNotFound)
	}
	entries := make([]models.DirectoryEntry, 0, len(info.Contents))
	for _, e := range info.Contents {
		if !e.Kind.Valid() {
			logging.WithContext(ctx).Debug("skipping entry with unknown type",
				zap.String("name", e.Name), zap.String("type", string(e.Kind)))
			continue
		}
		if e.Kind == models.KindDirectory {
			e.Size = 0
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Login submits credentials. On success the server's session cookie is
// stored in the jar. Rejected credentials yield an error matching
// ErrUnauthorized.
func (c *Client) Login(ctx context.Context, username, password string) (err error) {
	start := time.Now()
	defer func() { c.observe(ctx, endpointLogin, start, err) }()

	body, err := json.Marshal(protocol.LoginRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint(protocol.LoginPath), body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError("login", resp)
	}
	return nil
}

// Logout ends the session on the server.
func (c *Client) Logout(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.observe(ctx, endpointLogout, start, err) }()

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint(protocol.LogoutPath), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError("logout", resp)
	}
	return nil
}

// Ping checks if the server is reachable. Server errors and transport
// failures are retried.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.observe(ctx, endpointHealth, start, err) }()

	target := c.endpoint(protocol.HealthPath)
	return retry.Do(ctx, c.retryConfig, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.Retryable(fmt.Errorf("health check: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			se := newStatusError("health", resp)
			if resp.StatusCode >= 500 {
				return retry.Retryable(se)
			}
			return se
		}
		return nil
	})
}
