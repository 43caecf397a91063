// Package auth replays a pre-obtained set of platform cookies on API calls.
// A Context is read-only once built and may be shared by any number of sources.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go-substack-watch/internal/fetch"
	"go-substack-watch/internal/logx"
)

// Cookie is one exported browser cookie. Only Name and Value are sent.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
	Secure bool   `json:"secure,omitempty"`
}

// Context holds the loaded cookies. A nil or empty Context is inert.
type Context struct {
	cl      *fetch.Client
	cookies []Cookie
}

// FromCookies builds a Context over an already parsed cookie list.
func FromCookies(cl *fetch.Client, cookies []Cookie) *Context {
	kept := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		kept = append(kept, c)
	}
	return &Context{cl: cl, cookies: kept}
}

// FromReader parses a JSON cookie list. On failure it logs and returns an inert Context.
func FromReader(cl *fetch.Client, r io.Reader) *Context {
	var cookies []Cookie
	if err := json.NewDecoder(r).Decode(&cookies); err != nil {
		logx.Warnf("cookies: parse failed, continuing unauthenticated: %v", err)
		return &Context{cl: cl}
	}
	return FromCookies(cl, cookies)
}

// FromFile is FromReader over a file. A missing or unreadable file yields an inert Context.
func FromFile(cl *fetch.Client, path string) *Context {
	if path == "" {
		return &Context{cl: cl}
	}
	f, err := os.Open(path)
	if err != nil {
		logx.Warnf("cookies: open %s failed, continuing unauthenticated: %v", path, err)
		return &Context{cl: cl}
	}
	defer f.Close()
	a := FromReader(cl, f)
	if a.Authenticated() {
		logx.Debugf("cookies: loaded %d from %s", len(a.cookies), path)
	}
	return a
}

// Authenticated reports whether any cookie is present.
func (a *Context) Authenticated() bool {
	return a != nil && a.cl != nil && len(a.cookies) > 0
}

// Headers merges the transport's base headers with JSON and Cookie headers.
// Cookies keep their load order.
func (a *Context) Headers() map[string]string {
	h := map[string]string{}
	if a == nil {
		return h
	}
	if a.cl != nil {
		h = a.cl.BaseHeaders()
	}
	h["Accept"] = "application/json"
	h["Content-Type"] = "application/json"
	if len(a.cookies) > 0 {
		pairs := make([]string, 0, len(a.cookies))
		for _, c := range a.cookies {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
		h["Cookie"] = strings.Join(pairs, "; ")
	}
	return h
}

// Get performs an authenticated GET.
func (a *Context) Get(ctx context.Context, rawURL string) (*fetch.Response, error) {
	return a.GetWith(ctx, rawURL, nil)
}

// GetWith is Get with extra headers layered over the authenticated set.
// Cookie always comes from the loaded cookies.
func (a *Context) GetWith(ctx context.Context, rawURL string, extra map[string]string) (*fetch.Response, error) {
	if a == nil || a.cl == nil {
		return nil, fmt.Errorf("auth context has no transport")
	}
	h := a.Headers()
	for k, v := range extra {
		if k != "Cookie" {
			h[k] = v
		}
	}
	return a.cl.Get(ctx, rawURL, h)
}

// Post JSON-encodes body and performs an authenticated POST.
func (a *Context) Post(ctx context.Context, rawURL string, body any) (*fetch.Response, error) {
	if a == nil || a.cl == nil {
		return nil, fmt.Errorf("auth context has no transport")
	}
	var b []byte
	if body != nil {
		var err error
		if b, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode body for %s: %w", rawURL, err)
		}
	}
	return a.cl.Post(ctx, rawURL, a.Headers(), b)
}
