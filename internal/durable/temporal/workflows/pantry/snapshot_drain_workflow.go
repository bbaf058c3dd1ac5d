package pantry

import (
	"go.temporal.io/sdk/workflow"

	pantrytypes "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application/types"
	"github.com/Apurer/pantry-partner-api/internal/durable/temporal/sequences"
)

const (
	// SnapshotDrainWorkflowName is the public identifier for registering the workflow.
	SnapshotDrainWorkflowName = "pantry.workflows.SnapshotDrain"
	// SnapshotDrainTaskQueue is the queue consumed by the worker materializing snapshots.
	SnapshotDrainTaskQueue = "PANTRY_SNAPSHOT_DRAIN"
)

// SnapshotDrainWorkflowInput carries the drain command started by the API.
type SnapshotDrainWorkflowInput struct {
	Command pantrytypes.DrainCommand
}

// SnapshotDrainWorkflow materializes a snapshot by running the drain sequence once.
func SnapshotDrainWorkflow(ctx workflow.Context, input SnapshotDrainWorkflowInput) error {
	logger := workflow.GetLogger(ctx)
	snapshotID := input.Command.SnapshotID
	logger.Info("SnapshotDrainWorkflow started", withTraceID(input.Command.TraceID, "snapshotId", snapshotID)...)
	if err := sequences.RunSnapshotDrainSequence(ctx, input.Command); err != nil {
		logger.Error("SnapshotDrainWorkflow failed", withTraceID(input.Command.TraceID, "snapshotId", snapshotID, "error", err)...)
		return err
	}
	logger.Info("SnapshotDrainWorkflow completed", withTraceID(input.Command.TraceID, "snapshotId", snapshotID)...)
	return nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
