package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/grachmannico95/bankline/internal/cache"
	"github.com/grachmannico95/bankline/pkg/logger"
	"github.com/grachmannico95/bankline/pkg/metrics"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	CacheMaxAge time.Duration
	// Transport replaces the default round tripper, mostly for tests.
	Transport http.RoundTripper
}

// Client owns the transport, the response cache and the loading counter.
// Create one per signed-in session and Reset it on logout.
type Client struct {
	baseURL string
	http    *resty.Client
	cache   *cache.ResponseCache
	loading *LoadingCounter
	logger  *logger.Logger
}

func New(opts Options, log *logger.Logger) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, errors.New("api base URL is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid api base URL %q", base)
	}
	if log == nil {
		log = logger.NewNop()
	}

	hc := resty.New().SetLogger(log.Resty())
	if opts.Timeout > 0 {
		hc.SetTimeout(opts.Timeout)
	}
	if opts.Transport != nil {
		hc.SetTransport(opts.Transport)
	}

	var cacheOpts []cache.Option
	if opts.CacheMaxAge > 0 {
		cacheOpts = append(cacheOpts, cache.WithMaxAge(opts.CacheMaxAge))
	}

	c := &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    hc,
		cache:   cache.New(cacheOpts...),
		loading: NewLoadingCounter(),
		logger:  log,
	}
	c.loading.Subscribe(func(n int) {
		metrics.InFlight.Set(float64(n))
	})

	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Cache() *cache.ResponseCache { return c.cache }

func (c *Client) Loading() *LoadingCounter { return c.loading }

// Invalidate drops cached responses under the given domains.
func (c *Client) Invalidate(ctx context.Context, domains ...cache.Domain) {
	removed := c.cache.InvalidateDomains(domains...)
	metrics.CacheInvalidations.Add(float64(removed))
	c.logger.Debug(ctx, "Cache invalidated",
		"domains", domains,
		"removed", removed,
	)
}

// Reset clears session-scoped state: cached responses and the loading counter.
func (c *Client) Reset() {
	c.cache.Reset()
	c.loading.Reset()
}

func (c *Client) Close() error {
	return c.http.Close()
}

// Do performs req. It never retries; every failure is returned as
// *HTTPError, *NetworkError or *ParseError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	path := cache.NormalizePath(req.Path)
	query := compactQuery(req.Query)

	key := cache.Key(method, path, query)
	cacheable := method == http.MethodGet && !req.NoCache

	if method == http.MethodGet {
		if !cacheable {
			metrics.CacheLookups.WithLabelValues("bypass").Inc()
		} else if entry, ok := c.cache.Get(key); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			c.logger.Debug(ctx, "Cache hit", "key", key)
			return &Response{
				Status:    http.StatusOK,
				Header:    http.Header{"Content-Type": []string{"application/json"}},
				Body:      entry.Payload,
				FromCache: true,
			}, nil
		} else {
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	if !req.Untracked {
		c.loading.Inc()
		defer c.loading.Dec()
	}

	r := c.http.R().SetContext(ctx)
	if req.Token != "" {
		r.SetAuthToken(req.Token)
	}
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(req.Body)
	}

	var intent *Intent
	if req.Idempotent || req.Intent != nil {
		intent = intentFor(req.Intent)
		r.SetHeader(HeaderIdempotencyKey, intent.Key())
		ctx = logger.WithIdempotencyKey(ctx, intent.Key())
		intent.markSent()
	}

	target := BuildURL(c.baseURL, path, query)
	start := time.Now()

	resp, err := r.Execute(method, target)
	if err != nil {
		netErr := &NetworkError{Method: method, URL: target, Err: err}
		metrics.ClientRequests.WithLabelValues(method, "network").Inc()
		c.logger.Warn(ctx, "Request failed without response",
			"method", method,
			"path", path,
			"error", err,
		)
		if intent != nil {
			intent.settle(netErr)
		}
		return nil, netErr
	}

	status := resp.StatusCode()
	body := resp.Bytes()
	contentType := resp.Header().Get("Content-Type")

	c.logger.Debug(ctx, "Request completed",
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if status < 200 || status >= 300 {
		httpErr := newHTTPError(status, contentType, body)
		metrics.ClientRequests.WithLabelValues(method, outcomeFor(status)).Inc()
		if intent != nil {
			intent.settle(httpErr)
		}
		return nil, httpErr
	}

	if len(body) > 0 && isJSON(contentType) && !json.Valid(body) {
		parseErr := &ParseError{Status: status, Body: body, Err: errors.New("malformed JSON body")}
		metrics.ClientRequests.WithLabelValues(method, "parse").Inc()
		if intent != nil {
			intent.settle(parseErr)
		}
		return nil, parseErr
	}

	metrics.ClientRequests.WithLabelValues(method, outcomeFor(status)).Inc()
	if intent != nil {
		intent.settle(nil)
	}

	if cacheable {
		c.cache.Set(key, path, body)
	}

	out := &Response{
		Status: status,
		Header: resp.Header(),
		Body:   body,
	}
	if intent != nil {
		out.IdempotencyKey = intent.Key()
	}
	return out, nil
}

// DoJSON performs req and decodes a successful body into dest (when non-nil).
func (c *Client) DoJSON(ctx context.Context, req Request, dest any) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if dest == nil || len(resp.Body) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return nil, &ParseError{Status: resp.Status, Body: resp.Body, Err: err}
	}
	return resp, nil
}

// Get issues a cached GET. Pass NoCache through req for listings that must stay fresh.
func (c *Client) Get(ctx context.Context, req Request, dest any) error {
	req.Method = http.MethodGet
	_, err := c.DoJSON(ctx, req, dest)
	return err
}

func (c *Client) Post(ctx context.Context, req Request, dest any) error {
	req.Method = http.MethodPost
	_, err := c.DoJSON(ctx, req, dest)
	return err
}

func (c *Client) Put(ctx context.Context, req Request, dest any) error {
	req.Method = http.MethodPut
	_, err := c.DoJSON(ctx, req, dest)
	return err
}

func (c *Client) Delete(ctx context.Context, req Request, dest any) error {
	req.Method = http.MethodDelete
	_, err := c.DoJSON(ctx, req, dest)
	return err
}

func outcomeFor(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
