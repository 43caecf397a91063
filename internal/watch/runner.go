// Package watch drives a collection run over the configured newsletters:
// - list the newest posts of every newsletter, a few newsletters at a time
// - skip posts already seen, fetch the text of the rest
// - store them, or buffer them in simple mode
package watch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-substack-watch/internal/config"
	"go-substack-watch/internal/logx"
	"go-substack-watch/internal/model"
	"go-substack-watch/internal/substack"
)

// Store is the persistence a Runner needs. *store.SQLite satisfies it.
type Store interface {
	Exists(ctx context.Context, url string) (bool, error)
	Save(ctx context.Context, p model.Post) error
}

// Recorder receives run totals. *metrics.Collector satisfies it.
type Recorder interface {
	RecordRun(sourceErrors, postsSaved int)
}

// Runner holds the config, the platform options and the post sink.
type Runner struct {
	cfg   *config.Config
	opts  substack.Options
	store Store
	// simple mode: collect in memory only
	buf *SimpleBuffer
	rec Recorder

	mu    sync.Mutex
	stats model.Stats
}

// New creates a Runner. In simple mode s may be nil.
func New(cfg *config.Config, opts substack.Options, s Store) *Runner {
	r := &Runner{cfg: cfg, opts: opts, store: s}
	if cfg.SimpleMode || s == nil {
		r.buf = NewSimpleBuffer()
	}
	return r
}

// WithRecorder attaches a metrics recorder.
func (r *Runner) WithRecorder(rec Recorder) *Runner {
	r.rec = rec
	return r
}

// Run performs one pass. A failing newsletter is logged and counted; it never stops
// the others. The returned error is only ever the context's.
func (r *Runner) Run(ctx context.Context) (model.Stats, error) {
	runID := uuid.NewString()
	started := time.Now()
	sources := dedup(r.cfg.Newsletters)
	logx.Infof("run %s: %d newsletters, simple mode=%v", runID, len(sources), r.buf != nil)

	r.mu.Lock()
	r.stats = model.Stats{Newsletters: len(sources)}
	r.mu.Unlock()

	sem := make(chan struct{}, max(1, r.cfg.Concurrency.Fetch))
	var wg sync.WaitGroup
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		src := src
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			r.processNewsletter(ctx, runID, src)
		}()
	}
	wg.Wait()

	r.mu.Lock()
	st := r.stats
	r.mu.Unlock()
	st.UpdatedAt = time.Now()
	if r.rec != nil {
		r.rec.RecordRun(st.NewslettersError, st.PostsNew)
	}
	logx.Infof("run %s: done in %s, new posts=%d, failed newsletters=%d",
		runID, time.Since(started).Round(time.Millisecond), st.PostsNew, st.NewslettersError)
	return st, ctx.Err()
}

// processNewsletter lists one newsletter and collects its unseen posts in order.
func (r *Runner) processNewsletter(ctx context.Context, runID string, src config.NewsletterSource) {
	n, err := substack.NewNewsletter(src.URL, r.opts)
	if err != nil {
		r.sourceFailed(src.URL, err)
		return
	}
	posts, err := n.Posts(ctx, "new", r.cfg.LimitFor(src))
	if err != nil {
		r.sourceFailed(n.Host(), err)
		return
	}
	logx.Debugf("[%s] listed %d posts", n.Host(), len(posts))

	saved := 0
	for _, p := range posts {
		if ctx.Err() != nil {
			return
		}
		seen, err := r.seen(ctx, p.URL())
		if err != nil {
			logx.Warnf("[%s] lookup %s failed: %v", n.Host(), p.URL(), err)
			continue
		}
		r.count(func(s *model.Stats) { s.PostsTotal++ })
		if seen {
			continue
		}
		rec, err := r.collect(ctx, n, p, runID)
		if err != nil {
			logx.Warnf("[%s] fetch %s failed: %v", n.Host(), p.URL(), err)
			continue
		}
		if r.buf != nil {
			r.buf.Add(rec)
		} else if err := r.store.Save(ctx, rec); err != nil {
			logx.Warnf("[%s] save %s failed: %v", n.Host(), p.URL(), err)
			continue
		}
		saved++
	}
	r.count(func(s *model.Stats) { s.PostsNew += saved })
	logx.Infof("[%s] %d new posts", n.Host(), saved)
}

func (r *Runner) seen(ctx context.Context, url string) (bool, error) {
	if r.buf != nil {
		return r.buf.Exists(url), nil
	}
	return r.store.Exists(ctx, url)
}

// collect fetches one post and turns it into a record.
func (r *Runner) collect(ctx context.Context, n *substack.Newsletter, p *substack.Post, runID string) (model.Post, error) {
	text, _, err := p.TextContent(ctx, false)
	if err != nil {
		return model.Post{}, err
	}
	m, err := p.Metadata(ctx, false)
	if err != nil {
		return model.Post{}, err
	}
	rec := model.Post{
		URL:         p.URL(),
		Newsletter:  n.Host(),
		Title:       m.Title,
		Audience:    string(m.Audience),
		PublishedAt: parsePostDate(m.PostDate),
		Text:        text,
		Paywalled:   m.Audience == substack.AudienceOnlyPaid,
		FetchedAt:   time.Now(),
		RunID:       runID,
	}
	if m.Subtitle != nil {
		rec.Subtitle = *m.Subtitle
	}
	if len(m.Bylines) > 0 {
		rec.Author = m.Bylines[0].Name
	}
	return rec, nil
}

func (r *Runner) sourceFailed(name string, err error) {
	logx.Warnf("[%s] listing failed: %v", name, err)
	r.count(func(s *model.Stats) { s.NewslettersError++ })
}

func (r *Runner) count(fn func(*model.Stats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}

// BufferData returns the posts collected in simple mode.
func (r *Runner) BufferData() []model.Post {
	if r == nil || r.buf == nil {
		return nil
	}
	return r.buf.Snapshot()
}

// dedup drops repeated urls, keeping the first entry.
func dedup(in []config.NewsletterSource) []config.NewsletterSource {
	seen := map[string]bool{}
	out := make([]config.NewsletterSource, 0, len(in))
	for _, s := range in {
		key := strings.TrimRight(strings.ToLower(strings.TrimSpace(s.URL)), "/")
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func parsePostDate(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
