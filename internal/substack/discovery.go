package substack

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"go-substack-watch/internal/logx"
)

// PublicationRecord is the publication object used by search, category and
// recommendation listings.
type PublicationRecord struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	CustomDomain string `json:"custom_domain"`
	AuthorID     int64  `json:"author_id,omitempty"`
	Description  string `json:"hero_text,omitempty"`
}

// SiteURL is the publication's home, preferring the custom domain.
func (p PublicationRecord) SiteURL() string {
	return domainURL(p.CustomDomain, p.Subdomain)
}

type searchResult struct {
	Publications []PublicationRecord `json:"publications"`
	More         bool                `json:"more"`
}

type recommendation struct {
	Publication PublicationRecord `json:"recommendedPublication"`
}

// SearchPublications runs the platform-wide discovery search (one page).
func SearchPublications(ctx context.Context, query string, page, limit int, opts Options) ([]PublicationRecord, error) {
	opts = opts.withDefaults()
	v := url.Values{}
	v.Set("query", query)
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	v.Set("skipExplanation", "true")
	v.Set("sort", "relevance")
	endpoint := opts.PlatformURL + "/api/v1/publication/search?" + v.Encode()

	var res searchResult
	if err := opts.getJSON(ctx, endpoint, "publication search", &res); err != nil {
		return nil, err
	}
	return res.Publications, nil
}

// hostToken is the label search is keyed on: the subdomain for platform hosts,
// otherwise the first label of the custom domain.
func (n *Newsletter) hostToken() string {
	h := strings.TrimPrefix(n.host, "www.")
	if i := strings.IndexByte(h, '.'); i > 0 {
		return h[:i]
	}
	return h
}

// PublicationID resolves the numeric id: first by discovery search on the host, then
// from the newest post. ok is false when both fail.
func (n *Newsletter) PublicationID(ctx context.Context) (int64, bool) {
	if id, ok := n.discoverID(ctx); ok {
		return id, true
	}
	metas, err := n.PostsMetadata(ctx, "new", 1)
	if err != nil {
		logx.Warnf("publication id for %s: archive fallback failed: %v", n.host, err)
		return 0, false
	}
	if len(metas) == 0 || metas[0].PublicationID == 0 {
		return 0, false
	}
	return metas[0].PublicationID, true
}

func (n *Newsletter) discoverID(ctx context.Context) (int64, bool) {
	token := n.hostToken()
	pubs, err := SearchPublications(ctx, token, 0, 100, n.opts)
	if err != nil {
		logx.Debugf("publication id for %s: discovery search failed: %v", n.host, err)
		return 0, false
	}
	for _, p := range pubs {
		if strings.EqualFold(p.CustomDomain, n.host) ||
			(p.Subdomain != "" && strings.EqualFold(p.Subdomain+".substack.com", n.host)) {
			return p.ID, true
		}
	}
	for _, p := range pubs {
		if p.Subdomain != "" && strings.EqualFold(p.Subdomain, token) {
			return p.ID, true
		}
	}
	return 0, false
}

// Recommendations lists the newsletters this one recommends. Failures are logged and
// yield an empty list.
func (n *Newsletter) Recommendations(ctx context.Context) []*Newsletter {
	id, ok := n.PublicationID(ctx)
	if !ok {
		logx.Warnf("recommendations for %s: publication id not found", n.host)
		return nil
	}
	endpoint := n.url + "/api/v1/recommendations/from/" + strconv.FormatInt(id, 10)
	var recs []recommendation
	if err := n.opts.getJSON(ctx, endpoint, "recommendations of "+n.host, &recs); err != nil {
		logx.Warnf("recommendations for %s: %v", n.host, err)
		return nil
	}
	out := make([]*Newsletter, 0, len(recs))
	for _, r := range recs {
		site := r.Publication.SiteURL()
		if site == "" {
			continue
		}
		nl, err := NewNewsletter(site, n.opts)
		if err != nil {
			logx.Debugf("recommendations for %s: skip %q: %v", n.host, site, err)
			continue
		}
		out = append(out, nl)
	}
	return out
}
