package profile

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"oidcconfig/internal/client"
	"oidcconfig/internal/registry"
	"oidcconfig/pkg/metrics"
)

// staticSource serves a fixed batch
type staticSource struct {
	name  string
	batch *Batch
	err   error
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Load(context.Context) (*Batch, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.batch, nil
}

func doc(ref, author, hint string) *Document {
	return &Document{Ref: ref, Author: author, Fields: map[string]any{FieldConfigurationName: hint}}
}

func TestSyncerSync(t *testing.T) {
	reg := registry.NewMemory(nil)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	recorder := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()

	src := &staticSource{name: "directory", batch: &Batch{
		Documents: []*Document{
			doc("a.yaml", "admin", "tenantA"),
			doc("b.yaml", "guest", "tenantB"),
			doc("c.yaml", "admin", "tenantA"),
			doc("d.yaml", "admin", "tenantD"),
		},
		Invalid: map[string]error{"e.yaml": fmt.Errorf("malformed")},
	}}

	s := NewSyncer(reg, NewBuilder(NewTrustedAuthors("admin"), client.Deps{}), []Source{src}, nil,
		WithSyncMetrics(m),
		WithSyncTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")),
		WithSyncMeter(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")),
	)

	result, err := s.Sync(context.Background(), src)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	want := Result{Registered: 2, Added: 2, Removed: 0, Rejected: 3}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("Sync() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"tenantA", "tenantD"}, reg.Hints()); diff != "" {
		t.Errorf("registered hints mismatch (-want +got):\n%s", diff)
	}
	if c, _ := reg.Get("tenantA"); c.Source() != "directory" {
		t.Errorf("tenantA source = %s", c.Source())
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"registered", testutil.ToFloat64(m.ProfilesRegistered.WithLabelValues("directory")), 2},
		{"sync success", testutil.ToFloat64(m.ProfileSyncTotal.WithLabelValues("directory", "success")), 1},
		{"rejected forbidden", testutil.ToFloat64(m.ProfileRejected.WithLabelValues("directory", "forbidden")), 1},
		{"rejected duplicate", testutil.ToFloat64(m.ProfileRejected.WithLabelValues("directory", ReasonDuplicate)), 1},
		{"rejected invalid", testutil.ToFloat64(m.ProfileRejected.WithLabelValues("directory", ReasonInvalid)), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "profile.sync" {
		t.Errorf("spans = %v", spans)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	if len(rm.ScopeMetrics) != 1 || rm.ScopeMetrics[0].Metrics[0].Name != "oidcconfig.profile.sync.duration" {
		t.Errorf("sync duration not recorded: %+v", rm.ScopeMetrics)
	}
}

func TestSyncerReplacesProfiles(t *testing.T) {
	reg := registry.NewMemory(nil)
	src := &staticSource{name: "directory", batch: &Batch{Documents: []*Document{
		doc("a.yaml", "admin", "tenantA"),
		doc("b.yaml", "admin", "tenantB"),
	}}}
	s := NewSyncer(reg, NewBuilder(NewTrustedAuthors("admin"), client.Deps{}), []Source{src}, nil)

	if _, err := s.Sync(context.Background(), src); err != nil {
		t.Fatal(err)
	}

	src.batch = &Batch{Documents: []*Document{doc("b.yaml", "admin", "tenantB")}}
	result, err := s.Sync(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if result.Removed != 1 || result.Added != 0 {
		t.Errorf("Sync() = %+v, want tenantA removed", result)
	}
	if ok, _ := reg.Has("tenantA"); ok {
		t.Error("tenantA should be unregistered")
	}
}

func TestSyncerLoadFailureKeepsProfiles(t *testing.T) {
	reg := registry.NewMemory(nil)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	good := &staticSource{name: "directory", batch: &Batch{Documents: []*Document{doc("a.yaml", "admin", "tenantA")}}}
	s := NewSyncer(reg, NewBuilder(NewTrustedAuthors("admin"), client.Deps{}), []Source{good}, nil, WithSyncMetrics(m))

	if err := s.SyncAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	good.err = fmt.Errorf("directory vanished")
	if err := s.SyncAll(context.Background()); err == nil {
		t.Fatal("SyncAll() should report the failing source")
	}
	if ok, _ := reg.Has("tenantA"); !ok {
		t.Error("a failed load should keep the previous profiles")
	}
	if got := testutil.ToFloat64(m.ProfileSyncTotal.WithLabelValues("directory", "error")); got != 1 {
		t.Errorf("sync errors = %v, want 1", got)
	}
}

func TestSyncerErr(t *testing.T) {
	reg := registry.NewMemory(nil)
	src := &staticSource{name: "directory", err: fmt.Errorf("permission denied")}
	s := NewSyncer(reg, NewBuilder(NewTrustedAuthors("admin"), client.Deps{}), []Source{src}, nil)

	if err := s.Err(); err != nil {
		t.Fatalf("Err() before any sync = %v", err)
	}

	_ = s.SyncAll(context.Background())
	err := s.Err()
	if err == nil || !strings.Contains(err.Error(), "directory") {
		t.Fatalf("Err() = %v, want the failing source", err)
	}

	src.err = nil
	src.batch = &Batch{Documents: []*Document{doc("a.yaml", "admin", "tenantA")}}
	_ = s.SyncAll(context.Background())
	if err := s.Err(); err != nil {
		t.Errorf("Err() after a successful sync = %v", err)
	}
}

func TestSyncerWatchStopsWithContext(t *testing.T) {
	reg := registry.NewMemory(nil)
	src := &staticSource{name: "static", batch: &Batch{Documents: []*Document{doc("a.yaml", "admin", "tenantA")}}}
	s := NewSyncer(reg, NewBuilder(NewTrustedAuthors("admin"), client.Deps{}), []Source{src}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Watch(ctx)

	if reg.Len() != 0 {
		t.Errorf("Watch() should not sync unwatchable sources, registered = %d", reg.Len())
	}
}
