package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	pantrytypes "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application/types"
	pantryactivities "github.com/Apurer/pantry-partner-api/internal/platform/temporal/activities/pantry"
)

// SnapshotDrainTimeout bounds a single drain attempt.
const SnapshotDrainTimeout = 30 * time.Minute

// RunSnapshotDrainSequence executes the drain activity exactly once. A failed drain leaves the
// snapshot partial and is never retried.
func RunSnapshotDrainSequence(ctx workflow.Context, command pantrytypes.DrainCommand) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("snapshot drain sequence started", "snapshotId", command.SnapshotID)
	options := workflow.ActivityOptions{
		StartToCloseTimeout: SnapshotDrainTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, options), pantryactivities.DrainSnapshotActivityName, command).Get(ctx, nil)
	if err != nil {
		logger.Error("snapshot drain sequence failed", "snapshotId", command.SnapshotID, "error", err)
		return err
	}
	logger.Info("snapshot drain sequence finished", "snapshotId", command.SnapshotID)
	return nil
}
