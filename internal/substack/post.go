package substack

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go-substack-watch/internal/logx"
)

// Audience is a post's access tier.
type Audience string

const (
	AudienceEveryone Audience = "everyone"
	AudienceOnlyPaid Audience = "only_paid"
	AudienceFounding Audience = "founding"
	AudienceOnlyFree Audience = "only_free"
)

// Byline is one credited author of a post.
type Byline struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

// PostMetadata is the post object served by the archive and post endpoints.
// BodyHTML is nil when the server withheld the body, which is normal for
// only_paid posts fetched without cookies.
type PostMetadata struct {
	ID            int64    `json:"id"`
	PublicationID int64    `json:"publication_id"`
	Title         string   `json:"title"`
	Subtitle      *string  `json:"subtitle"`
	Slug          string   `json:"slug"`
	PostDate      string   `json:"post_date"`
	Audience      Audience `json:"audience"`
	CanonicalURL  string   `json:"canonical_url"`
	Type          string   `json:"type"`
	BodyHTML      *string  `json:"body_html"`
	TruncatedBody *string  `json:"truncated_body_text"`
	Wordcount     *int     `json:"wordcount"`
	Bylines       []Byline `json:"publishedBylines"`
	CommentCount  *int     `json:"comment_count"`
}

// Post is a single article addressed by URL. Metadata is fetched on first use and
// kept until a forced refresh.
type Post struct {
	url     string
	baseURL string
	slug    string
	opts    Options

	meta *PostMetadata
}

// NewPost parses rawURL; it performs no network I/O.
func NewPost(rawURL string, opts Options) (*Post, error) {
	u, err := normalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse post url %q: %w", rawURL, err)
	}
	slug := lastSegment(u.Path)
	if slug == "" {
		return nil, fmt.Errorf("post url %q has no slug", rawURL)
	}
	return &Post{
		url:     u.String(),
		baseURL: u.Scheme + "://" + u.Host,
		slug:    slug,
		opts:    opts.withDefaults(),
	}, nil
}

func lastSegment(p string) string {
	parts := strings.Split(p, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}

func (p *Post) URL() string     { return p.url }
func (p *Post) BaseURL() string { return p.baseURL }
func (p *Post) Slug() string    { return p.slug }

func (p *Post) endpoint() string {
	return p.baseURL + "/api/v1/posts/" + url.PathEscape(p.slug)
}

// Metadata returns the cached metadata, fetching it when empty or when force is set.
func (p *Post) Metadata(ctx context.Context, force bool) (*PostMetadata, error) {
	if p.meta != nil && !force {
		return p.meta, nil
	}
	var m PostMetadata
	if err := p.opts.getJSON(ctx, p.endpoint(), "post "+p.slug, &m); err != nil {
		return nil, err
	}
	p.meta = &m
	return p.meta, nil
}

// HTMLContent returns the raw body. ok is false when the server sent none.
func (p *Post) HTMLContent(ctx context.Context, force bool) (html string, ok bool, err error) {
	m, err := p.Metadata(ctx, force)
	if err != nil {
		return "", false, err
	}
	if m.BodyHTML == nil {
		if m.Audience == AudienceOnlyPaid && !p.opts.Auth.Authenticated() {
			logx.Warnf("post %s is paywalled and no cookies were supplied; body unavailable", p.url)
		}
		return "", false, nil
	}
	return *m.BodyHTML, true, nil
}

// TextContent returns the normalized text of the body, recomputed on every call.
func (p *Post) TextContent(ctx context.Context, force bool) (string, bool, error) {
	html, ok, err := p.HTMLContent(ctx, force)
	if err != nil || !ok {
		return "", false, err
	}
	return NormalizeHTML(html), true, nil
}

// IsPaywalled reports an only_paid audience.
func (p *Post) IsPaywalled(ctx context.Context) (bool, error) {
	m, err := p.Metadata(ctx, false)
	if err != nil {
		return false, err
	}
	return m.Audience == AudienceOnlyPaid, nil
}
