package management

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"oidcconfig/internal/client"
	"oidcconfig/internal/instance"
	"oidcconfig/internal/property"
	"oidcconfig/internal/registry"
	"oidcconfig/internal/selector"
	"oidcconfig/internal/session"
	"oidcconfig/internal/session/memory"
	"oidcconfig/internal/telemetry"
)

func newConfiguration(hint string, values map[string]any) *client.Configuration {
	return client.New(hint, "test", property.NewSettings(values).WithEnv(nil), client.Deps{
		Identity: instance.New("instance-1"),
	})
}

func newTestAPI(t *testing.T, withDefault bool) (*API, *registry.Memory) {
	t.Helper()

	reg := registry.NewMemory(nil)
	if withDefault {
		reg.SetDefault(newConfiguration(client.DefaultHint, map[string]any{
			"oidc.clientid": "wiki",
			"oidc.secret":   "s3cret",
		}))
	}
	reg.Put(newConfiguration("tenantA", map[string]any{
		"oidc.clientid":      "tenant-a",
		"oidc.xwikiprovider": "https://idp.example.com/oidc",
	}))

	store := memory.NewStore(session.DefaultConfig())
	t.Cleanup(func() { store.Close() })
	manager := session.NewManager(store, nil, session.ManagerConfig{Backend: "memory"}, nil, nil)
	sel := selector.New(reg, nil)

	api := NewAPI(reg, instance.New("instance-1"), nil,
		WithVersion("1.2.3"),
		WithSelection(manager.Middleware, sel.Middleware),
	)
	return api, reg
}

func TestConfigurationEndpoint(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		cookie       *http.Cookie
		withDefault  bool
		wantCode     int
		wantHint     string
		wantClientID string
		wantSecret   string
	}{
		{
			name:         "default configuration",
			target:       PathConfiguration,
			withDefault:  true,
			wantCode:     http.StatusOK,
			wantHint:     client.DefaultHint,
			wantClientID: "wiki",
			wantSecret:   client.Redacted,
		},
		{
			name:         "selected by cookie",
			target:       PathConfiguration,
			cookie:       &http.Cookie{Name: selector.DefaultCookieName, Value: "tenantA"},
			withDefault:  true,
			wantCode:     http.StatusOK,
			wantHint:     "tenantA",
			wantClientID: "tenant-a",
		},
		{
			name:         "request parameter wins",
			target:       PathConfiguration + "?oidc.clientid=override",
			cookie:       &http.Cookie{Name: selector.DefaultCookieName, Value: "tenantA"},
			withDefault:  true,
			wantCode:     http.StatusOK,
			wantHint:     "tenantA",
			wantClientID: "override",
		},
		{
			name:        "unknown cookie without default",
			target:      PathConfiguration,
			cookie:      &http.Cookie{Name: selector.DefaultCookieName, Value: "missing"},
			withDefault: false,
			wantCode:    http.StatusInternalServerError,
		},
		{
			name:        "coercion failure",
			target:      PathConfiguration + "?oidc.skipped=maybe",
			withDefault: true,
			wantCode:    http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, _ := newTestAPI(t, tt.withDefault)

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()
			api.Handler().ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				var resp map[string]string
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatal(err)
				}
				if resp["error"] == "" {
					t.Error("expected an error message")
				}
				return
			}

			var snapshot client.Snapshot
			if err := json.NewDecoder(w.Body).Decode(&snapshot); err != nil {
				t.Fatal(err)
			}
			if snapshot.Hint != tt.wantHint {
				t.Errorf("expected hint %q, got %q", tt.wantHint, snapshot.Hint)
			}
			if snapshot.ClientID != tt.wantClientID {
				t.Errorf("expected client id %q, got %q", tt.wantClientID, snapshot.ClientID)
			}
			if snapshot.Secret != tt.wantSecret {
				t.Errorf("expected secret %q, got %q", tt.wantSecret, snapshot.Secret)
			}
		})
	}
}

func TestConfigurationEndpointWithoutSelection(t *testing.T) {
	reg := registry.NewMemory(nil)
	api := NewAPI(reg, nil, nil)

	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, PathConfiguration, nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

func TestConfigurationsEndpoint(t *testing.T) {
	api, reg := newTestAPI(t, true)
	reg.Put(newConfiguration("tenantB", nil))

	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, PathConfigurations, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp ConfigurationsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	want := ConfigurationsResponse{Default: client.DefaultHint, Hints: []string{"tenantA", "tenantB"}}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("configurations mismatch (-want +got):\n%s", diff)
	}
}

func TestInfoEndpoint(t *testing.T) {
	api, _ := newTestAPI(t, true)

	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, PathInfo, nil))

	var resp InfoResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.InstanceID != "instance-1" {
		t.Errorf("expected instance id instance-1, got %q", resp.InstanceID)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", resp.Version)
	}
	if resp.GoVersion == "" {
		t.Error("expected go version")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api, _ := newTestAPI(t, true)

	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, PathInfo, nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestConfigurationErrorRecordedOnSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tel, err := telemetry.New(telemetry.Config{
		Enabled: true,
		Service: "test",
		Tracing: telemetry.TracingConfig{Enabled: true, Exporter: telemetry.ExporterNone},
	}, telemetry.WithSpanProcessor(recorder))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	api, _ := newTestAPI(t, true)
	w := httptest.NewRecorder()
	tel.Middleware(api.Handler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, PathConfiguration+"?oidc.skipped=maybe", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if len(spans[0].Events()) != 1 || spans[0].Events()[0].Name != "exception" {
		t.Errorf("span events = %+v, want the resolution error", spans[0].Events())
	}
}
