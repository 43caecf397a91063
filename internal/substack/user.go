package substack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"go-substack-watch/internal/fetch"
	"go-substack-watch/internal/logx"
)

// UserProfile is the public profile served for a handle.
type UserProfile struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	Handle        string             `json:"handle"`
	PreviousName  string             `json:"previous_name,omitempty"`
	PhotoURL      string             `json:"photo_url"`
	Bio           string             `json:"bio"`
	ProfileSetUp  string             `json:"profile_set_up_at"`
	Subscriptions []subscriptionItem `json:"subscriptions"`
}

type subscriptionItem struct {
	MembershipState string            `json:"membership_state"`
	Publication     PublicationRecord `json:"publication"`
}

// Subscription is a flattened subscription entry.
type Subscription struct {
	PublicationID   int64
	Name            string
	Domain          string
	MembershipState string
}

// redirectState tracks the one-shot handle redirect. A probe may only start from
// redirectInitial; the other states are reached at most once.
type redirectState int

const (
	redirectInitial   redirectState = iota // no probe made
	redirectAttempted                      // probe made, retry pending
	redirectResolved                       // retry under the new handle succeeded
	redirectFailed                         // no new handle, or the retry failed
)

func (s redirectState) String() string {
	switch s {
	case redirectInitial:
		return "initial"
	case redirectAttempted:
		return "attempted"
	case redirectResolved:
		return "resolved"
	case redirectFailed:
		return "failed"
	default:
		return fmt.Sprintf("redirectState(%d)", int(s))
	}
}

// advance applies a transition, rejecting any that is not in the machine.
func (s *redirectState) advance(to redirectState) error {
	ok := false
	switch *s {
	case redirectInitial:
		ok = to == redirectAttempted
	case redirectAttempted:
		ok = to == redirectResolved || to == redirectFailed
	}
	if !ok {
		return fmt.Errorf("illegal redirect transition %s -> %s", *s, to)
	}
	*s = to
	return nil
}

// User resolves a profile by handle, following a renamed handle at most once.
type User struct {
	handle          string
	originalHandle  string
	followRedirects bool
	opts            Options

	redirect redirectState
	profile  *UserProfile
	// err is the last HTTP failure, replayed until a forced refresh.
	err error
}

// NewUser creates a resolver for handle (a leading "@" is dropped).
func NewUser(handle string, followRedirects bool, opts Options) *User {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	return &User{
		handle:          handle,
		originalHandle:  handle,
		followRedirects: followRedirects,
		opts:            opts.withDefaults(),
	}
}

func (u *User) Handle() string         { return u.handle }
func (u *User) OriginalHandle() string { return u.originalHandle }

// WasRedirected reports that the profile was found under a different handle.
func (u *User) WasRedirected() bool { return u.redirect == redirectResolved }

func (u *User) endpoint() string {
	return u.opts.PlatformURL + "/api/v1/user/" + url.PathEscape(u.handle) + "/public_profile"
}

// Profile returns the cached profile unless force is set. On a 404 it probes the
// profile page once for a renamed handle and retries under it.
func (u *User) Profile(ctx context.Context, force bool) (*UserProfile, error) {
	if !force {
		if u.profile != nil {
			return u.profile, nil
		}
		if u.err != nil {
			return nil, u.err
		}
	}

	prof, resp, err := u.load(ctx)
	if err != nil {
		return nil, err
	}
	if prof != nil {
		return u.store(prof), nil
	}

	if resp.StatusCode != http.StatusNotFound || !u.followRedirects || u.redirect != redirectInitial {
		return nil, u.fail(fetchError(resp, u.endpoint(), "user "+u.handle))
	}

	if err := u.redirect.advance(redirectAttempted); err != nil {
		return nil, err
	}
	newHandle, found := u.probeRedirect(ctx)
	if !found {
		_ = u.redirect.advance(redirectFailed)
		return nil, u.fail(fetchError(resp, u.endpoint(), "user "+u.handle))
	}
	logx.Infof("user %s: handle renamed to %s", u.originalHandle, newHandle)
	u.handle = newHandle

	prof, resp, err = u.load(ctx)
	if err != nil {
		_ = u.redirect.advance(redirectFailed)
		return nil, err
	}
	if prof == nil {
		_ = u.redirect.advance(redirectFailed)
		return nil, u.fail(fetchError(resp, u.endpoint(), "user "+newHandle+" (renamed from "+u.originalHandle+")"))
	}
	_ = u.redirect.advance(redirectResolved)
	return u.store(prof), nil
}

// load returns the decoded profile on 2xx, or the response for the caller to judge.
func (u *User) load(ctx context.Context) (*UserProfile, *fetch.Response, error) {
	endpoint := u.endpoint()
	resp, err := u.opts.get(ctx, endpoint)
	if err != nil {
		return nil, nil, err
	}
	if !resp.OK() {
		return nil, resp, nil
	}
	var p UserProfile
	if err := json.Unmarshal(resp.Body, &p); err != nil {
		return nil, nil, &ParseError{URL: endpoint, Err: err}
	}
	return &p, resp, nil
}

func (u *User) store(p *UserProfile) *UserProfile {
	u.profile = p
	u.err = nil
	return p
}

func (u *User) fail(err error) error {
	u.profile = nil
	u.err = err
	return err
}

// probeRedirect loads the public profile page, following redirects, and reads the new
// handle from the final path. When the path carries none, the page's canonical link is
// used. Any failure means no redirect.
func (u *User) probeRedirect(ctx context.Context) (string, bool) {
	pageURL := u.opts.PlatformURL + "/@" + url.PathEscape(u.originalHandle)
	resp, err := u.opts.Client.Get(ctx, pageURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		logx.Debugf("user %s: redirect probe failed: %v", u.originalHandle, err)
		return "", false
	}
	if h := handleFromPath(resp.FinalURL); h != "" && !strings.EqualFold(h, u.originalHandle) {
		return h, true
	}
	if !resp.OK() {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return "", false
	}
	for _, sel := range []string{`link[rel="canonical"]`, `meta[property="og:url"]`} {
		s := doc.Find(sel).First()
		ref := s.AttrOr("href", s.AttrOr("content", ""))
		if ref == "" {
			continue
		}
		cu, err := url.Parse(ref)
		if err != nil {
			continue
		}
		if h := handleFromPath(cu); h != "" && !strings.EqualFold(h, u.originalHandle) {
			return h, true
		}
	}
	return "", false
}

// handleFromPath returns the first "@handle" path segment, if any.
func handleFromPath(u *url.URL) string {
	if u == nil {
		return ""
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if len(seg) > 1 && seg[0] == '@' {
			return seg[1:]
		}
	}
	return ""
}

// ID is the numeric user id from the profile.
func (u *User) ID(ctx context.Context) (int64, error) {
	p, err := u.Profile(ctx, false)
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

// Name is the display name from the profile.
func (u *User) Name(ctx context.Context) (string, error) {
	p, err := u.Profile(ctx, false)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

// Subscriptions flattens the profile's subscriptions.
func (u *User) Subscriptions(ctx context.Context) ([]Subscription, error) {
	p, err := u.Profile(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]Subscription, 0, len(p.Subscriptions))
	for _, s := range p.Subscriptions {
		domain := strings.TrimPrefix(domainURL(s.Publication.CustomDomain, s.Publication.Subdomain), "https://")
		out = append(out, Subscription{
			PublicationID:   s.Publication.ID,
			Name:            s.Publication.Name,
			Domain:          domain,
			MembershipState: s.MembershipState,
		})
	}
	return out, nil
}
