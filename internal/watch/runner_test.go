package watch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-substack-watch/internal/config"
	"go-substack-watch/internal/fetch"
	"go-substack-watch/internal/model"
	"go-substack-watch/internal/store"
	"go-substack-watch/internal/substack"
)

// fakeNewsletter serves a two-post archive; postCalls counts post-endpoint hits.
func fakeNewsletter(t *testing.T, postCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/archive", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("offset") != "0" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"slug":"free-one","title":"Free"},{"id":2,"slug":"paid-two","title":"Paid"}]`))
	})
	mux.HandleFunc("/api/v1/posts/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(postCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/free-one") {
			_, _ = w.Write([]byte(`{"id":1,"slug":"free-one","title":"Free","subtitle":"sub","audience":"everyone",
				"post_date":"2024-06-01T10:00:00.000Z","body_html":"<p>Hello &amp; welcome</p>",
				"publishedBylines":[{"id":9,"name":"Ann","handle":"ann"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":2,"slug":"paid-two","title":"Paid","audience":"only_paid","post_date":"2024-06-02T10:00:00Z","body_html":null}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testOptions(t *testing.T) substack.Options {
	t.Helper()
	cl, err := fetch.New(fetch.Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	return substack.Options{Client: cl, PageDelay: substack.NoDelay}
}

type runRecorder struct{ runs, errs, saved int }

func (r *runRecorder) RecordRun(sourceErrors, postsSaved int) {
	r.runs++
	r.errs += sourceErrors
	r.saved += postsSaved
}

func TestRunner_StoresNewPostsOnce(t *testing.T) {
	var postCalls int32
	srv := fakeNewsletter(t, &postCalls)
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "w.db"))
	require.NoError(t, err)
	defer s.Close()

	cfg := &config.Config{
		Newsletters: []config.NewsletterSource{{URL: srv.URL}, {URL: srv.URL + "/"}},
		MaxPostsNum: 10,
		Concurrency: config.Concurrency{Fetch: 2},
	}
	rec := &runRecorder{}
	r := New(cfg, testOptions(t), s).WithRecorder(rec)
	ctx := context.Background()

	st, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Newsletters, "duplicate source collapsed")
	assert.Equal(t, 2, st.PostsNew)
	assert.Equal(t, 2, st.PostsTotal)
	assert.Equal(t, int32(2), atomic.LoadInt32(&postCalls))

	posts, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	paid, free := posts[0], posts[1]
	assert.Equal(t, "Paid", paid.Title)
	assert.True(t, paid.Paywalled)
	assert.Empty(t, paid.Text)
	assert.Equal(t, "Hello & welcome", free.Text)
	assert.Equal(t, "Ann", free.Author)
	assert.Equal(t, "sub", free.Subtitle)
	assert.Equal(t, 2024, free.PublishedAt.Year())
	assert.NotEmpty(t, free.RunID)
	assert.Equal(t, srv.URL+"/p/free-one", free.URL)

	st, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.PostsNew)
	assert.Equal(t, int32(2), atomic.LoadInt32(&postCalls), "seen posts are not refetched")
	assert.Equal(t, 2, rec.runs)
	assert.Equal(t, 2, rec.saved)
}

func TestRunner_SimpleModeAndFailingSource(t *testing.T) {
	var postCalls int32
	good := fakeNewsletter(t, &postCalls)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer bad.Close()

	cfg := &config.Config{
		Newsletters: []config.NewsletterSource{{URL: bad.URL}, {URL: good.URL, Limit: 1}},
		MaxPostsNum: 10,
		SimpleMode:  true,
	}
	rec := &runRecorder{}
	r := New(cfg, testOptions(t), nil).WithRecorder(rec)

	st, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Newsletters)
	assert.Equal(t, 1, st.NewslettersError)
	assert.Equal(t, 1, st.PostsNew)
	assert.Equal(t, 1, rec.errs)

	data := r.BufferData()
	require.Len(t, data, 1)
	assert.Equal(t, "Free", data[0].Title)
}

func TestRunner_CancelledContext(t *testing.T) {
	var postCalls int32
	srv := fakeNewsletter(t, &postCalls)
	cfg := &config.Config{Newsletters: []config.NewsletterSource{{URL: srv.URL}}, MaxPostsNum: 5}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st, err := New(cfg, testOptions(t), nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, st.PostsNew)
	assert.Zero(t, atomic.LoadInt32(&postCalls))
}

func TestSimpleBuffer_Snapshot(t *testing.T) {
	b := NewSimpleBuffer()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.Add(model.Post{URL: "b", PublishedAt: t0})
	b.Add(model.Post{URL: "a", PublishedAt: t0})
	b.Add(model.Post{URL: "c", PublishedAt: t0.Add(time.Hour)})
	b.Add(model.Post{})

	assert.True(t, b.Exists("a"))
	assert.False(t, b.Exists(""))
	var urls []string
	for _, p := range b.Snapshot() {
		urls = append(urls, p.URL)
	}
	assert.Equal(t, []string{"c", "a", "b"}, urls)
}

func TestParsePostDate(t *testing.T) {
	assert.Equal(t, 2024, parsePostDate("2024-06-01T10:00:00.000Z").Year())
	assert.Equal(t, time.June, parsePostDate("2024-06-01").Month())
	assert.True(t, parsePostDate("yesterday").IsZero())
}
