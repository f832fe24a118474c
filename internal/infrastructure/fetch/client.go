// Package fetch provides the rate-limited, timeout-bounded HTTP transport shared by source scanners.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"PolicyDigest/internal/logging"
)

const (
	// DefaultTimeout bounds every request, including reading the body.
	DefaultTimeout = 15 * time.Second

	// DefaultDelay is the fixed pause enforced between consecutive requests.
	DefaultDelay = time.Second

	// DefaultUserAgent identifies requests as a regular desktop browser.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	maxBodyBytes = 10 << 20
)

// Config tunes pacing and identification of outgoing requests.
type Config struct {
	Timeout   time.Duration
	Delay     time.Duration
	UserAgent string
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %s", e.URL, e.Status)
}

// Request describes a single outgoing call.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Client performs paced HTTP calls. Pacing is per Client, so each scanner holds its own.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *slog.Logger
}

// New builds a Client; a nil httpClient gets one bounded by cfg.Timeout.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	} else if httpClient.Timeout == 0 {
		clone := *httpClient
		clone.Timeout = timeout
		httpClient = &clone
	}

	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	if logger == nil {
		logger = logging.Discard()
	}

	return &Client{
		http:      httpClient,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: userAgent,
		logger:    logger,
	}
}

// Do waits for the pacing slot, executes req and returns the response body.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, http.Header, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read body %s: %w", req.URL, err)
	}
	return body, resp.Header, nil
}

// Document fetches an HTML page and parses it, decoding legacy charsets when declared.
func (c *Client) Document(ctx context.Context, pageURL string, query url.Values) (*goquery.Document, error) {
	resp, err := c.send(ctx, Request{Method: http.MethodGet, URL: pageURL, Query: query})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode charset %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", pageURL, err)
	}
	return doc, nil
}

// JSON performs a GET and decodes the JSON response into v.
func (c *Client) JSON(ctx context.Context, endpoint string, query url.Values, header http.Header, v any) error {
	body, _, err := c.Do(ctx, Request{Method: http.MethodGet, URL: endpoint, Query: query, Header: header})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode json %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, req Request) (*http.Response, error) {
	target, err := withQuery(req.URL, req.Query)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for request slot: %w", err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("http request", "method", method, "url", target)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return resp, nil
}

func withQuery(rawURL string, query url.Values) (string, error) {
	if len(query) == 0 {
		return rawURL, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %s: %w", rawURL, err)
	}

	merged := parsed.Query()
	for key, values := range query {
		merged[key] = values
	}
	parsed.RawQuery = merged.Encode()
	return parsed.String(), nil
}
