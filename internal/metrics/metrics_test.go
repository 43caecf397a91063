package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Requests(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveResponse("GET", 200, 10*time.Millisecond)
	c.ObserveResponse("GET", 200, 20*time.Millisecond)
	c.ObserveResponse("GET", 404, 5*time.Millisecond)
	c.ObserveError("GET")

	if got := testutil.ToFloat64(c.requests.WithLabelValues("GET", "200")); got != 2 {
		t.Errorf("GET 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.requests.WithLabelValues("GET", "404")); got != 1 {
		t.Errorf("GET 404 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.networkErrors.WithLabelValues("GET")); got != 1 {
		t.Errorf("network errors = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(c.latency); n != 1 {
		t.Errorf("latency series = %d", n)
	}
}

func TestCollector_RecordRun(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.RecordRun(1, 4)
	c.RecordRun(0, 2)

	if got := testutil.ToFloat64(c.runs); got != 2 {
		t.Errorf("runs = %v", got)
	}
	if got := testutil.ToFloat64(c.sourceErrors); got != 1 {
		t.Errorf("source errors = %v", got)
	}
	if got := testutil.ToFloat64(c.postsSaved); got != 6 {
		t.Errorf("posts saved = %v", got)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveResponse("GET", 200, time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `substack_requests_total{method="GET",status_code="200"} 1`) {
		t.Errorf("requests counter missing from:\n%s", body)
	}
}
