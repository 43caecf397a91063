// Package substack is a client for the platform's unofficial JSON API: newsletter
// archives, posts, author profiles and categories.
//
// Every component issues its requests one at a time and waits PageDelay after each
// page of a paginated listing. Nothing here retries; a failed call fails the whole
// operation, except for the best-effort lookups (recommendations, handle redirects).
package substack

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"go-substack-watch/internal/auth"
	"go-substack-watch/internal/fetch"
)

const (
	// DefaultPlatformURL hosts the platform-wide endpoints (users, categories, search).
	DefaultPlatformURL = "https://substack.com"
	// DefaultPageDelay is awaited after every page fetch.
	DefaultPageDelay = 2 * time.Second
	// DefaultMaxCategoryPages caps a category crawl. The endpoint has not been seen to
	// serve more pages than this.
	DefaultMaxCategoryPages = 21
	// DefaultPageSize is the archive page size.
	DefaultPageSize = 15

	// NoDelay disables the inter-page delay.
	NoDelay time.Duration = -1
)

// Options is shared by every component. The zero value is usable.
type Options struct {
	Client *fetch.Client
	// Auth is borrowed, never modified.
	Auth             *auth.Context
	PlatformURL      string
	PageDelay        time.Duration
	MaxCategoryPages int
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		// New only fails on malformed proxy URLs, and none are given here.
		o.Client, _ = fetch.New(fetch.Options{})
	}
	if o.PlatformURL == "" {
		o.PlatformURL = DefaultPlatformURL
	}
	o.PlatformURL = strings.TrimRight(o.PlatformURL, "/")
	if o.PageDelay == 0 {
		o.PageDelay = DefaultPageDelay
	}
	if o.MaxCategoryPages <= 0 {
		o.MaxCategoryPages = DefaultMaxCategoryPages
	}
	return o
}

// get routes through the Auth Context when it holds cookies.
func (o Options) get(ctx context.Context, rawURL string) (*fetch.Response, error) {
	return o.getWith(ctx, rawURL, nil)
}

func (o Options) getWith(ctx context.Context, rawURL string, headers map[string]string) (*fetch.Response, error) {
	if o.Auth.Authenticated() {
		return o.Auth.GetWith(ctx, rawURL, headers)
	}
	return o.Client.Get(ctx, rawURL, headers)
}

// getJSON fetches rawURL and decodes a 2xx body into v.
func (o Options) getJSON(ctx context.Context, rawURL, subject string, v any) error {
	resp, err := o.get(ctx, rawURL)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fetchError(resp, rawURL, subject)
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &ParseError{URL: rawURL, Err: err}
	}
	return nil
}

// pause waits PageDelay, or less if ctx ends first.
func (o Options) pause(ctx context.Context) error {
	if o.PageDelay <= 0 {
		return nil
	}
	t := time.NewTimer(o.PageDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// normalizeURL adds https:// when no scheme is present and drops a trailing slash.
func normalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, &url.Error{Op: "parse", URL: raw, Err: errNoHost}
	}
	return u, nil
}

var errNoHost = errors.New("missing host")

// domainURL turns a publication's custom domain or subdomain into a site URL.
func domainURL(customDomain, subdomain string) string {
	if customDomain != "" {
		return "https://" + customDomain
	}
	if subdomain != "" {
		return "https://" + subdomain + ".substack.com"
	}
	return ""
}
