package substack

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedItem is one entry of a newsletter's RSS feed.
type FeedItem struct {
	Title     string
	Link      string
	GUID      string
	Author    string
	Published time.Time
}

// Feed reads {base}/feed and returns at most max entries (max <= 0: all).
// The feed is a cheaper, unpaginated view of the most recent posts.
func (n *Newsletter) Feed(ctx context.Context, max int) ([]FeedItem, error) {
	endpoint := n.url + "/feed"
	resp, err := n.opts.getWith(ctx, endpoint, map[string]string{
		"Accept": "application/rss+xml, application/xml;q=0.9, */*;q=0.8",
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fetchError(resp, endpoint, "feed of "+n.host)
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &ParseError{URL: endpoint, Err: err}
	}
	items := make([]FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		items = append(items, FeedItem{
			Title:     strings.TrimSpace(it.Title),
			Link:      strings.TrimSpace(it.Link),
			GUID:      it.GUID,
			Author:    feedAuthor(it),
			Published: pickTime(it.PublishedParsed, it.UpdatedParsed),
		})
		if max > 0 && len(items) >= max {
			break
		}
	}
	return items, nil
}

func pickTime(a, b *time.Time) time.Time {
	if a != nil {
		return *a
	}
	if b != nil {
		return *b
	}
	return time.Time{}
}

func feedAuthor(it *gofeed.Item) string {
	if it.Author != nil && it.Author.Name != "" {
		return it.Author.Name
	}
	for _, a := range it.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	if it.DublinCoreExt != nil && len(it.DublinCoreExt.Creator) > 0 {
		return it.DublinCoreExt.Creator[0]
	}
	return ""
}
