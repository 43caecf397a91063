package watch

import (
	"sort"
	"sync"

	"go-substack-watch/internal/model"
)

// SimpleBuffer collects posts in memory when no database is used.
type SimpleBuffer struct {
	mu    sync.Mutex
	posts map[string]model.Post // key: url
}

func NewSimpleBuffer() *SimpleBuffer {
	return &SimpleBuffer{posts: make(map[string]model.Post)}
}

func (b *SimpleBuffer) Exists(url string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.posts[url]
	return ok
}

func (b *SimpleBuffer) Add(p model.Post) {
	if p.URL == "" {
		return
	}
	b.mu.Lock()
	b.posts[p.URL] = p
	b.mu.Unlock()
}

// Snapshot returns a copy, newest first.
func (b *SimpleBuffer) Snapshot() []model.Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps := make([]model.Post, 0, len(b.posts))
	for _, v := range b.posts {
		ps = append(ps, v)
	}
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].PublishedAt.Equal(ps[j].PublishedAt) {
			return ps[i].PublishedAt.After(ps[j].PublishedAt)
		}
		return ps[i].URL < ps[j].URL
	})
	return ps
}
