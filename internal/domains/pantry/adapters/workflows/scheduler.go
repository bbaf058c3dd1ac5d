package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	pantrytypes "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application/types"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
	pantryworkflows "github.com/Apurer/pantry-partner-api/internal/durable/temporal/workflows/pantry"
	"github.com/Apurer/pantry-partner-api/internal/platform/jobs"
)

var (
	_ ports.DrainScheduler = (*QueueDrainScheduler)(nil)
	_ ports.DrainScheduler = (*TemporalDrainScheduler)(nil)
	_ ports.DrainScheduler = (*InlineDrainScheduler)(nil)
)

// DrainRunner executes a drain to completion.
type DrainRunner interface {
	Drain(ctx context.Context, req ports.DrainRequest) error
}

// QueueDrainScheduler runs drains on the in-process single worker queue.
type QueueDrainScheduler struct {
	queue  *jobs.Queue
	runner DrainRunner
}

// NewQueueDrainScheduler wires a queue and the drain runner it executes.
func NewQueueDrainScheduler(queue *jobs.Queue, runner DrainRunner) *QueueDrainScheduler {
	return &QueueDrainScheduler{queue: queue, runner: runner}
}

// Schedule enqueues the drain and returns immediately. The job keeps the caller's trace but not its
// cancellation.
func (s *QueueDrainScheduler) Schedule(ctx context.Context, req ports.DrainRequest) error {
	if s == nil || s.queue == nil || s.runner == nil {
		return errors.New("queue drain scheduler not configured")
	}
	spanCtx := oteltrace.SpanContextFromContext(ctx)
	return s.queue.Enqueue("snapshot-drain-"+req.SnapshotID, func(jobCtx context.Context) {
		if spanCtx.IsValid() {
			jobCtx = oteltrace.ContextWithSpanContext(jobCtx, spanCtx)
		}
		// Failures are logged and recorded by the runner; the snapshot stays partial.
		_ = s.runner.Drain(jobCtx, req)
	})
}

// TemporalDrainScheduler starts a durable drain workflow and does not wait for its result.
type TemporalDrainScheduler struct {
	client    client.Client
	taskQueue string
}

// NewTemporalDrainScheduler wires a Temporal client into the scheduler.
func NewTemporalDrainScheduler(c client.Client) *TemporalDrainScheduler {
	return &TemporalDrainScheduler{client: c, taskQueue: pantryworkflows.SnapshotDrainTaskQueue}
}

// Schedule starts the snapshot drain workflow. The remaining upstream sequence is not serializable, so
// the worker reopens it from the filters. A drain already running for the snapshot counts as scheduled.
func (s *TemporalDrainScheduler) Schedule(ctx context.Context, req ports.DrainRequest) error {
	if s == nil || s.client == nil {
		return errors.New("temporal drain scheduler not configured")
	}
	options := client.StartWorkflowOptions{
		ID:        SnapshotDrainWorkflowID(req.SnapshotID),
		TaskQueue: s.taskQueue,
	}
	_, err := s.client.ExecuteWorkflow(ctx, options, pantryworkflows.SnapshotDrainWorkflow, pantryworkflows.SnapshotDrainWorkflowInput{
		Command: ToCommand(req, workflowTraceID(ctx)),
	})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil
		}
		return fmt.Errorf("start snapshot drain workflow: %w", err)
	}
	return nil
}

// InlineDrainScheduler runs the drain synchronously. It backs tests and setups without a worker.
type InlineDrainScheduler struct {
	runner  DrainRunner
	timeout time.Duration
}

// NewInlineDrainScheduler wraps runner for synchronous execution, bounded by timeout when positive.
func NewInlineDrainScheduler(runner DrainRunner, timeout time.Duration) *InlineDrainScheduler {
	return &InlineDrainScheduler{runner: runner, timeout: timeout}
}

// Schedule drains before returning. Drain failures are not reported to the caller; the snapshot
// records them as a partial status.
func (s *InlineDrainScheduler) Schedule(ctx context.Context, req ports.DrainRequest) error {
	if s == nil || s.runner == nil {
		return errors.New("inline drain scheduler not configured")
	}
	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	_ = s.runner.Drain(ctx, req)
	return nil
}

// SnapshotDrainWorkflowID derives a deterministic workflow id so a snapshot is drained at most once.
func SnapshotDrainWorkflowID(snapshotID string) string {
	return "snapshot-drain-" + snapshotID
}

// ToCommand converts a drain request into its serializable form.
func ToCommand(req ports.DrainRequest, traceID string) pantrytypes.DrainCommand {
	return pantrytypes.DrainCommand{
		SnapshotID:    req.SnapshotID,
		PartnerID:     req.PartnerID,
		CreatedAt:     req.CreatedAt,
		Filters:       req.Filters,
		Markups:       req.Markups,
		FirstPage:     req.FirstPage,
		PagesConsumed: req.PagesConsumed,
		HasMore:       req.Remaining != nil,
		TraceID:       traceID,
	}
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
