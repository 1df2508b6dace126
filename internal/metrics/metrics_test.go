package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.EntriesFetched("astro", 12)
	m.EntriesFetched("astro", 3)
	m.PapersMatched("astro", 2)
	m.AreaFailed("gr", "transport")
	m.Delivered("astro", "ok")
	m.Retried("astro")
	m.CycleDone(time.Now().Add(-time.Second), true)

	if got := testutil.ToFloat64(m.entriesFetched.WithLabelValues("astro")); got != 15 {
		t.Fatalf("entries fetched = %v, want 15", got)
	}
	if got := testutil.ToFloat64(m.areaFailures.WithLabelValues("gr", "transport")); got != 1 {
		t.Fatalf("area failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lastSuccess); got == 0 {
		t.Fatalf("last success not stamped")
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	t.Parallel()

	m := New()
	m.Delivered("email", "failed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `paperposter_deliveries_total{result="failed",target="email"} 1`) {
		t.Fatalf("metric missing from output:\n%s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.EntriesFetched("astro", 1)
	m.CycleDone(time.Now(), false)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("nil metrics handler should 404, got %d", rec.Code)
	}
}
