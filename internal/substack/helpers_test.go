package substack

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-substack-watch/internal/fetch"
	"go-substack-watch/internal/logx"
)

// newTestServer starts a fake platform; PlatformURL and every site URL point at it.
func newTestServer(t *testing.T, h http.Handler) (*httptest.Server, Options) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cl, err := fetch.New(fetch.Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	return srv, Options{Client: cl, PlatformURL: srv.URL, PageDelay: NoDelay}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// captureLogs routes the global logger into a buffer for the test's duration.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logx.InitWriter(&buf, "debug", "pretty", "never")
	t.Cleanup(func() { logx.Init("info", "pretty", "never") })
	return &buf
}

func strPtr(s string) *string { return &s }
