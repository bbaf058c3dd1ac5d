package application

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
)

const drainTracerName = "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application/drain"

// Drainer materializes the full upstream result of a fresh fetch into a snapshot. Pages are written
// in upstream order as soon as they are priced, so readers only ever observe a prefix.
type Drainer struct {
	store   ports.SnapshotStore
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics drainMetrics
}

// DrainerOption configures optional Drainer collaborators.
type DrainerOption func(*Drainer)

// WithDrainLogger injects the logger that records drain progress and failures.
func WithDrainLogger(logger *slog.Logger) DrainerOption {
	return func(d *Drainer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDrainTracer injects a tracer implementation.
func WithDrainTracer(tr trace.Tracer) DrainerOption {
	return func(d *Drainer) {
		if tr != nil {
			d.tracer = tr
		}
	}
}

// WithDrainMeter injects the meter used to create drain instruments.
func WithDrainMeter(m metric.Meter) DrainerOption {
	return func(d *Drainer) {
		d.metrics = newDrainMetrics(m)
	}
}

// NewDrainer wires a drainer writing into store.
func NewDrainer(store ports.SnapshotStore, opts ...DrainerOption) *Drainer {
	d := &Drainer{
		store:   store,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  nooptrace.NewTracerProvider().Tracer(drainTracerName),
		metrics: newDrainMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Drain writes the snapshot state, the already priced first page, and then every remaining upstream
// page. The first failure stops the drain and leaves the snapshot partial; nothing is retried.
func (d *Drainer) Drain(ctx context.Context, req ports.DrainRequest) error {
	ctx, span := d.tracer.Start(ctx, "Drainer.Drain", trace.WithAttributes(
		attribute.String("snapshot.id", req.SnapshotID),
		attribute.String("partner.id", req.PartnerID),
	))
	defer span.End()

	state := ports.SnapshotState{
		ID:        req.SnapshotID,
		PartnerID: req.PartnerID,
		CreatedAt: req.CreatedAt,
		Filters:   req.Filters,
		Status:    ports.SnapshotDraining,
	}
	if err := d.store.WriteState(ctx, state); err != nil {
		return d.fail(ctx, span, req, 0, &StoreError{Op: "write_state", Err: err}, false)
	}

	pageNumber := req.PagesConsumed
	if pageNumber < 1 {
		pageNumber = 1
	}
	if err := d.store.AppendItems(ctx, req.SnapshotID, req.FirstPage); err != nil {
		return d.fail(ctx, span, req, pageNumber, &StoreError{Op: "append_items", Err: err}, true)
	}
	d.metrics.recordPage(ctx, len(req.FirstPage))
	written := len(req.FirstPage)

	if req.Remaining != nil {
		for {
			pageNumber++
			page, err := req.Remaining.Next(ctx)
			if errors.Is(err, ports.ErrSequenceExhausted) {
				break
			}
			if err != nil {
				return d.fail(ctx, span, req, pageNumber, &UpstreamError{Page: pageNumber, Err: err}, true)
			}
			if page.Number > 0 {
				pageNumber = page.Number
			}
			items := domain.PriceItems(page.Items, req.Markups)
			if err := d.store.AppendItems(ctx, req.SnapshotID, items); err != nil {
				return d.fail(ctx, span, req, pageNumber, &StoreError{Op: "append_items", Err: err}, true)
			}
			d.metrics.recordPage(ctx, len(items))
			written += len(items)
			if !page.HasNext {
				break
			}
		}
	}

	if err := d.store.Finish(ctx, req.SnapshotID, ports.SnapshotComplete); err != nil {
		return d.fail(ctx, span, req, pageNumber, &StoreError{Op: "finish", Err: err}, false)
	}
	span.SetAttributes(attribute.Int("snapshot.items", written), attribute.Int("snapshot.pages", pageNumber))
	d.logger.LogAttrs(ctx, slog.LevelInfo, "snapshot drain completed",
		slog.String("snapshot.id", req.SnapshotID),
		slog.Int("pages", pageNumber),
		slog.Int("items", written),
	)
	return nil
}

func (d *Drainer) fail(ctx context.Context, span trace.Span, req ports.DrainRequest, page int, err error, markPartial bool) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	d.metrics.recordFailure(ctx)
	d.logger.LogAttrs(ctx, slog.LevelError, "snapshot drain stopped",
		slog.String("snapshot.id", req.SnapshotID),
		slog.Int("page", page),
		slog.String("error", err.Error()),
	)
	if markPartial {
		if finishErr := d.store.Finish(ctx, req.SnapshotID, ports.SnapshotPartial); finishErr != nil {
			d.logger.LogAttrs(ctx, slog.LevelError, "failed to mark snapshot partial",
				slog.String("snapshot.id", req.SnapshotID),
				slog.String("error", finishErr.Error()),
			)
		}
	}
	return err
}

type drainMetrics struct {
	pagesWritten metric.Int64Counter
	itemsWritten metric.Int64Counter
	failures     metric.Int64Counter
}

func newDrainMetrics(m metric.Meter) drainMetrics {
	if m == nil {
		return drainMetrics{}
	}
	pagesWritten, _ := m.Int64Counter("pantry.drain.pages_written", metric.WithDescription("Snapshot pages persisted by background drains"))
	itemsWritten, _ := m.Int64Counter("pantry.drain.items_written", metric.WithDescription("Snapshot items persisted by background drains"))
	failures, _ := m.Int64Counter("pantry.drain.failures", metric.WithDescription("Background drains stopped by an error"))
	return drainMetrics{pagesWritten: pagesWritten, itemsWritten: itemsWritten, failures: failures}
}

func (m drainMetrics) recordPage(ctx context.Context, items int) {
	if m.pagesWritten != nil {
		m.pagesWritten.Add(ctx, 1)
	}
	if m.itemsWritten != nil {
		m.itemsWritten.Add(ctx, int64(items))
	}
}

func (m drainMetrics) recordFailure(ctx context.Context) {
	if m.failures != nil {
		m.failures.Add(ctx, 1)
	}
}
