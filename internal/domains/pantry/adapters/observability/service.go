package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	pantrytypes "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application/types"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
)

const tracerName = "github.com/Apurer/pantry-partner-api/internal/domains/pantry/adapters/observability/service"

const (
	pathFresh    = "fresh"
	pathSnapshot = "snapshot"
)

// Service decorates the pantry application port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// Fetch serves a pantry page with instrumentation.
func (s *Service) Fetch(ctx context.Context, input pantrytypes.FetchInput) (*pantrytypes.Page, error) {
	path := pathFresh
	if input.SnapshotID != "" {
		path = pathSnapshot
	}
	ctx, span := s.startSpan(ctx, "Service.Fetch",
		attribute.String("partner.id", input.PartnerID),
		attribute.String("pantry.fetch.path", path),
		attribute.Int("pantry.page", input.Page),
		attribute.Int("pantry.page_size", input.PageSize),
	)
	defer span.End()

	attrs := []slog.Attr{slog.String("partner.id", input.PartnerID), slog.String("path", path)}
	if input.SnapshotID != "" {
		attrs = append(attrs, slog.String("snapshot.id", input.SnapshotID))
	}
	s.logInfo(ctx, "fetching pantry page", attrs...)
	result, err := s.inner.Fetch(ctx, input)
	if err != nil {
		s.metrics.recordFailure(ctx, path)
		return nil, s.handleError(ctx, span, err, "failed to fetch pantry page", attrs...)
	}
	s.metrics.recordFetch(ctx, path)
	span.SetAttributes(
		attribute.Int("pantry.result.count", len(result.Items)),
		attribute.Bool("pantry.total_is_estimate", result.Pagination.TotalIsEstimate),
		attribute.String("snapshot.id", result.Pagination.SnapshotID),
	)
	s.logInfo(ctx, "pantry page served", append(attrs,
		slog.Int("count", len(result.Items)),
		slog.Int("totalItems", result.Pagination.TotalItems),
		slog.String("snapshot.status", result.Pagination.SnapshotStatus),
	)...)
	return result, nil
}

// DeleteSnapshot removes a partner's snapshot with instrumentation.
func (s *Service) DeleteSnapshot(ctx context.Context, input pantrytypes.SnapshotIdentifier) error {
	ctx, span := s.startSpan(ctx, "Service.DeleteSnapshot",
		attribute.String("partner.id", input.PartnerID),
		attribute.String("snapshot.id", input.SnapshotID),
	)
	defer span.End()

	attrs := []slog.Attr{slog.String("partner.id", input.PartnerID), slog.String("snapshot.id", input.SnapshotID)}
	s.logInfo(ctx, "deleting snapshot", attrs...)
	if err := s.inner.DeleteSnapshot(ctx, input); err != nil {
		return s.handleError(ctx, span, err, "failed to delete snapshot", attrs...)
	}
	s.metrics.recordDeleted(ctx)
	s.logInfo(ctx, "snapshot deleted", attrs...)
	return nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.LogAttrs(ctx, slog.LevelError, msg, append(attrs, slog.String("error", err.Error()))...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	fetches          metric.Int64Counter
	fetchFailures    metric.Int64Counter
	snapshotsDeleted metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	fetches, _ := m.Int64Counter("pantry.service.fetches", metric.WithDescription("Pantry pages served"))
	fetchFailures, _ := m.Int64Counter("pantry.service.fetch_failures", metric.WithDescription("Pantry fetches that returned an error"))
	snapshotsDeleted, _ := m.Int64Counter("pantry.service.snapshots_deleted", metric.WithDescription("Snapshots deleted by partners"))
	return serviceMetrics{fetches: fetches, fetchFailures: fetchFailures, snapshotsDeleted: snapshotsDeleted}
}

func (m serviceMetrics) recordFetch(ctx context.Context, path string) {
	addCounter(ctx, m.fetches, 1, attribute.String("path", path))
}

func (m serviceMetrics) recordFailure(ctx context.Context, path string) {
	addCounter(ctx, m.fetchFailures, 1, attribute.String("path", path))
}

func (m serviceMetrics) recordDeleted(ctx context.Context) {
	addCounter(ctx, m.snapshotsDeleted, 1)
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
