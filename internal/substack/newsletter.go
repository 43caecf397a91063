package substack

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ArchiveQuery holds the archive filters that stay fixed across pages.
type ArchiveQuery struct {
	Sort   string // new | top
	Search string
	Type   string // e.g. podcast
}

func (q ArchiveQuery) values() url.Values {
	v := url.Values{}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	return v
}

// Author is an entry of the publication's ranked author list.
type Author struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	PhotoURL string `json:"photo_url"`
	Bio      string `json:"bio"`
	Role     string `json:"role"`
}

// Newsletter is one publication. It keeps no cache: every listing starts at offset 0.
type Newsletter struct {
	url  string
	host string
	opts Options
}

// NewNewsletter normalizes rawURL (https when no scheme is given).
func NewNewsletter(rawURL string, opts Options) (*Newsletter, error) {
	u, err := normalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse newsletter url %q: %w", rawURL, err)
	}
	return &Newsletter{
		url:  u.Scheme + "://" + u.Host,
		host: strings.ToLower(u.Hostname()),
		opts: opts.withDefaults(),
	}, nil
}

func (n *Newsletter) URL() string  { return n.url }
func (n *Newsletter) Host() string { return n.host }

// FetchPaginated walks the archive pageSize items at a time. It stops on an empty
// page, on a page shorter than pageSize, or once limit items are collected (limit <= 0
// means no limit); the result is cut to limit. PageDelay is awaited after every page.
// Any failed page fails the whole call and nothing collected so far is returned.
func (n *Newsletter) FetchPaginated(ctx context.Context, q ArchiveQuery, limit, pageSize int) ([]PostMetadata, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	params := q.values()
	params.Set("limit", strconv.Itoa(pageSize))

	var out []PostMetadata
	for offset := 0; ; offset += pageSize {
		params.Set("offset", strconv.Itoa(offset))
		endpoint := n.url + "/api/v1/archive?" + params.Encode()

		var page []PostMetadata
		if err := n.opts.getJSON(ctx, endpoint, "archive of "+n.host, &page); err != nil {
			return nil, err
		}
		if err := n.opts.pause(ctx); err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		out = append(out, page...)
		if limit > 0 && len(out) >= limit {
			out = out[:limit]
			break
		}
		if len(page) < pageSize {
			break
		}
	}
	return out, nil
}

func checkSort(sort string) error {
	switch sort {
	case "new", "top":
		return nil
	default:
		return fmt.Errorf("invalid sort %q: want new or top", sort)
	}
}

// PostsMetadata lists archive entries ordered by sort.
func (n *Newsletter) PostsMetadata(ctx context.Context, sort string, limit int) ([]PostMetadata, error) {
	if err := checkSort(sort); err != nil {
		return nil, err
	}
	return n.FetchPaginated(ctx, ArchiveQuery{Sort: sort}, limit, DefaultPageSize)
}

// Posts is PostsMetadata wrapped into Posts sharing this newsletter's options.
func (n *Newsletter) Posts(ctx context.Context, sort string, limit int) ([]*Post, error) {
	metas, err := n.PostsMetadata(ctx, sort, limit)
	if err != nil {
		return nil, err
	}
	return n.wrap(metas)
}

// SearchPosts lists archive entries matching query.
func (n *Newsletter) SearchPosts(ctx context.Context, query string, limit int) ([]*Post, error) {
	metas, err := n.FetchPaginated(ctx, ArchiveQuery{Sort: "new", Search: query}, limit, DefaultPageSize)
	if err != nil {
		return nil, err
	}
	return n.wrap(metas)
}

// Podcasts lists podcast episodes.
func (n *Newsletter) Podcasts(ctx context.Context, limit int) ([]*Post, error) {
	metas, err := n.FetchPaginated(ctx, ArchiveQuery{Sort: "new", Type: "podcast"}, limit, DefaultPageSize)
	if err != nil {
		return nil, err
	}
	return n.wrap(metas)
}

func (n *Newsletter) wrap(metas []PostMetadata) ([]*Post, error) {
	posts := make([]*Post, 0, len(metas))
	for _, m := range metas {
		link := m.CanonicalURL
		if link == "" {
			link = n.url + "/p/" + m.Slug
		}
		p, err := NewPost(link, n.opts)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Authors lists the publication's public, ranked authors.
func (n *Newsletter) Authors(ctx context.Context) ([]Author, error) {
	endpoint := n.url + "/api/v1/publication/users/ranked?public=true"
	var authors []Author
	if err := n.opts.getJSON(ctx, endpoint, "authors of "+n.host, &authors); err != nil {
		return nil, err
	}
	return authors, nil
}
