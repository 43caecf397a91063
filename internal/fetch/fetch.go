// Package fetch wraps the HTTP client used for every call to the publishing platform.
// One call is one request: there are no retries at this layer, and a non-2xx status is
// returned to the caller to judge rather than turned into an error.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds a single request end to end.
const DefaultTimeout = 30 * time.Second

const defaultUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"

// Observer receives one notification per request. The metrics collector implements it.
type Observer interface {
	ObserveResponse(method string, status int, elapsed time.Duration)
	ObserveError(method string)
}

// Options configures New.
type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
	// UserAgent overrides the browser UA; the SUBSTACK_UA env var wins over both.
	UserAgent string
	Observer  Observer
}

// Client issues single, timed requests with a fixed header set.
type Client struct {
	http    *resty.Client
	headers map[string]string
	obs     Observer
}

// Request describes one call. Headers are merged over the client's base set.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is the fully read reply. FinalURL is the URL after redirects were followed.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	FinalURL   *url.URL
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// NetworkError is a timeout or connection failure: no HTTP status was received.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was the request deadline.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// New builds a client with per-scheme proxies and a hard timeout.
func New(opts Options) (*Client, error) {
	proxies := map[string]*url.URL{}
	for scheme, raw := range map[string]string{"http": opts.ProxyHTTP, "https": opts.ProxyHTTPS} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s proxy %q: %w", scheme, raw, err)
		}
		proxies[scheme] = u
	}
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if p, ok := proxies[req.URL.Scheme]; ok {
				return p, nil
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	rc := resty.New().
		SetTransport(transport).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetCookieJar(nil)

	ua := os.Getenv("SUBSTACK_UA")
	if ua == "" {
		ua = opts.UserAgent
	}
	if ua == "" {
		ua = defaultUA
	}
	return &Client{
		http: rc,
		headers: map[string]string{
			"User-Agent":      ua,
			"Accept":          "application/json, text/html;q=0.9, */*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		obs: opts.Observer,
	}, nil
}

// BaseHeaders returns a copy of the fixed header set.
func (c *Client) BaseHeaders() map[string]string {
	out := make(map[string]string, len(c.headers))
	for k, v := range c.headers {
		out[k] = v
	}
	return out
}

// Do performs exactly one request.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	req := c.http.R().SetContext(ctx).SetHeaders(c.headers)
	if len(r.Headers) > 0 {
		req.SetHeaders(r.Headers)
	}
	if r.Body != nil {
		req.SetBody(r.Body)
	}

	start := time.Now()
	resp, err := req.Execute(r.Method, r.URL)
	if err != nil {
		if c.obs != nil {
			c.obs.ObserveError(r.Method)
		}
		return nil, &NetworkError{Method: r.Method, URL: r.URL, Err: err}
	}
	if c.obs != nil {
		c.obs.ObserveResponse(r.Method, resp.StatusCode(), time.Since(start))
	}

	out := &Response{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}
	if raw := resp.RawResponse; raw != nil && raw.Request != nil {
		out.FinalURL = raw.Request.URL
	}
	if out.FinalURL == nil {
		out.FinalURL, _ = url.Parse(r.URL)
	}
	return out, nil
}

// Get issues a GET with optional extra headers.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: rawURL, Headers: headers})
}

// Post issues a POST with the given body and extra headers.
func (c *Client) Post(ctx context.Context, rawURL string, headers map[string]string, body []byte) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, URL: rawURL, Headers: headers, Body: body})
}
