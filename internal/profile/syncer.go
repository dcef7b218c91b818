package profile

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"oidcconfig/internal/client"
	"oidcconfig/pkg/errors"
	"oidcconfig/pkg/metrics"
)

// Rejection reasons
const (
	ReasonInvalid   = "invalid"
	ReasonDuplicate = "duplicate"
)

// Target receives the configurations of a source. registry.Memory implements it.
type Target interface {
	ReplaceSource(source string, configs []*client.Configuration) (added, removed int)
}

// Result summarizes one synchronization of a source
type Result struct {
	Registered int
	Added      int
	Removed    int
	Rejected   int
}

// Syncer replaces the profiles of each source in the registry with the
// documents the source currently holds.
type Syncer struct {
	target   Target
	builder  *Builder
	sources  []Source
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	duration metric.Float64Histogram
	logger   *slog.Logger

	// one sync at a time, watchers of several sources may fire together
	mu sync.Mutex

	failuresMu sync.RWMutex
	failures   map[string]error
}

// SyncerOption configures a Syncer
type SyncerOption func(*Syncer)

// WithSyncMetrics records sync outcomes
func WithSyncMetrics(m *metrics.Metrics) SyncerOption {
	return func(s *Syncer) { s.metrics = m }
}

// WithSyncTracer overrides the global tracer
func WithSyncTracer(t trace.Tracer) SyncerOption {
	return func(s *Syncer) { s.tracer = t }
}

// WithSyncMeter overrides the global meter
func WithSyncMeter(m metric.Meter) SyncerOption {
	return func(s *Syncer) { s.duration = newDurationHistogram(m) }
}

// NewSyncer creates a syncer feeding target from sources
func NewSyncer(target Target, builder *Builder, sources []Source, logger *slog.Logger, opts ...SyncerOption) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Syncer{
		target:  target,
		builder: builder,
		sources: sources,
		tracer:   otel.Tracer("oidcconfig/profile"),
		logger:   logger.With("component", "profile-sync"),
		failures: make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.duration == nil {
		s.duration = newDurationHistogram(otel.Meter("oidcconfig/profile"))
	}
	return s
}

func newDurationHistogram(m metric.Meter) metric.Float64Histogram {
	h, err := m.Float64Histogram(
		"oidcconfig.profile.sync.duration",
		metric.WithDescription("Duration of profile synchronizations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return noop.Float64Histogram{}
	}
	return h
}

// Sources returns the synchronized sources
func (s *Syncer) Sources() []Source {
	return s.sources
}

// SyncAll synchronizes every source. A failing source keeps its previous
// profiles and does not stop the others; the first error is returned.
func (s *Syncer) SyncAll(ctx context.Context) error {
	var first error
	for _, src := range s.sources {
		if _, err := s.Sync(ctx, src); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Sync loads src and replaces its profiles in the registry
func (s *Syncer) Sync(ctx context.Context, src Source) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := src.Name()
	ctx, span := s.tracer.Start(ctx, "profile.sync", trace.WithAttributes(attribute.String("profile.source", name)))
	defer span.End()

	start := time.Now()
	result, err := s.sync(ctx, src)
	s.recordFailure(name, err)
	s.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("source", name),
		attribute.Bool("success", err == nil),
	))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.countSync(name, "error")
		s.logger.Error("Profile sync failed", "source", name, "error", err)
		return result, err
	}

	span.SetAttributes(
		attribute.Int("profile.registered", result.Registered),
		attribute.Int("profile.rejected", result.Rejected),
	)
	s.countSync(name, "success")
	if s.metrics != nil {
		s.metrics.ProfilesRegistered.WithLabelValues(name).Set(float64(result.Registered))
	}
	s.logger.Info("Profiles synchronized",
		"source", name,
		"registered", result.Registered,
		"added", result.Added,
		"removed", result.Removed,
		"rejected", result.Rejected)
	return result, nil
}

func (s *Syncer) sync(ctx context.Context, src Source) (Result, error) {
	var result Result
	name := src.Name()

	batch, err := src.Load(ctx)
	if err != nil {
		return result, err
	}

	for ref, err := range batch.Invalid {
		s.reject(name, ReasonInvalid)
		result.Rejected++
		s.logger.Error("Invalid profile document", "source", name, "ref", ref, "error", err)
	}

	seen := make(map[string]string, len(batch.Documents))
	configs := make([]*client.Configuration, 0, len(batch.Documents))
	for _, doc := range batch.Documents {
		c, err := s.builder.Build(name, doc)
		if err != nil {
			s.reject(name, rejectReason(err))
			result.Rejected++
			s.logger.Warn("Profile rejected", "source", name, "ref", doc.Ref, "error", err)
			continue
		}
		if other, ok := seen[c.Hint()]; ok {
			s.reject(name, ReasonDuplicate)
			result.Rejected++
			s.logger.Warn("Duplicate profile ignored", "source", name, "hint", c.Hint(), "ref", doc.Ref, "kept", other)
			continue
		}
		seen[c.Hint()] = doc.Ref
		configs = append(configs, c)
	}

	result.Registered = len(configs)
	result.Added, result.Removed = s.target.ReplaceSource(name, configs)
	return result, nil
}

// Err reports the sources whose latest load failed, nil when every source
// loaded. Their previously registered profiles are still served.
func (s *Syncer) Err() error {
	s.failuresMu.RLock()
	defer s.failuresMu.RUnlock()

	names := make([]string, 0, len(s.failures))
	for name := range s.failures {
		names = append(names, name)
	}
	slices.Sort(names)

	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("profile source %s: %w", name, s.failures[name]))
	}
	return stderrors.Join(errs...)
}

func (s *Syncer) recordFailure(source string, err error) {
	s.failuresMu.Lock()
	defer s.failuresMu.Unlock()
	if err != nil {
		s.failures[source] = err
	} else {
		delete(s.failures, source)
	}
}

// Watch resynchronizes watchable sources on change until ctx is done
func (s *Syncer) Watch(ctx context.Context) {
	var wg sync.WaitGroup
	for _, src := range s.sources {
		w, ok := src.(WatchableSource)
		if !ok {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := w.Watch(ctx, func() {
				_, _ = s.Sync(ctx, w)
			})
			if err != nil {
				s.logger.Error("Profile watcher failed", "source", w.Name(), "error", err)
			}
		}()
	}
	wg.Wait()
}

func (s *Syncer) countSync(source, status string) {
	if s.metrics != nil {
		s.metrics.ProfileSyncTotal.WithLabelValues(source, status).Inc()
	}
}

func (s *Syncer) reject(source, reason string) {
	if s.metrics != nil {
		s.metrics.ProfileRejected.WithLabelValues(source, reason).Inc()
	}
}

func rejectReason(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return string(e.Type)
	}
	return string(errors.ErrorTypeInternal)
}
