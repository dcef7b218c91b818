package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	pkgmetrics "oidcconfig/pkg/metrics"
)

func TestMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := pkgmetrics.NewWithRegistry(registry)

	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/oidc/configuration", "/oidc/configuration", "/missing"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/oidc/configuration", "200")); got != 2 {
		t.Errorf("requests 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/missing", "404")); got != 1 {
		t.Errorf("requests 404 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ActiveRequests.WithLabelValues("GET", "/missing")); got != 0 {
		t.Errorf("active requests = %v, want 0", got)
	}
}

func TestHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := pkgmetrics.NewWithRegistry(registry)
	m.SelectionsTotal.WithLabelValues("tenantA", pkgmetrics.OutcomeCookie).Inc()

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `oidcconfig_selections_total{hint="tenantA",outcome="cookie"} 1`) {
		t.Errorf("metrics output missing selection counter:\n%s", body)
	}
}
