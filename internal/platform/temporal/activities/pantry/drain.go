package pantry

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.temporal.io/sdk/activity"

	pantrytypes "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application/types"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	pantryports "github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
)

// DrainSnapshotActivityName materializes a snapshot from a drain command.
const DrainSnapshotActivityName = "pantry.activities.DrainSnapshot"

// ErrSequenceDiverged reports that the reopened upstream sequence no longer starts with the items the
// API already served, so continuing would duplicate or skip items.
var ErrSequenceDiverged = errors.New("reopened catalog sequence diverged from the consumed pages")

// DrainRunner executes a drain to completion.
type DrainRunner interface {
	Drain(ctx context.Context, req pantryports.DrainRequest) error
}

// Activities groups activities that operate on the pantry bounded context.
type Activities struct {
	runner  DrainRunner
	catalog pantryports.CatalogSource
}

// NewActivities wires the drain runner and the catalog used to reopen upstream sequences.
func NewActivities(runner DrainRunner, catalog pantryports.CatalogSource) *Activities {
	return &Activities{runner: runner, catalog: catalog}
}

// DrainSnapshot reopens the upstream sequence past the pages the API already consumed and drains it.
func (a *Activities) DrainSnapshot(ctx context.Context, command pantrytypes.DrainCommand) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.runner == nil || a.catalog == nil {
		logger.Error("snapshot drain activity not initialized", "snapshotId", command.SnapshotID)
		return errors.New("snapshot drain activity not initialized")
	}
	logger.Info("DrainSnapshot activity started", "snapshotId", command.SnapshotID, "pagesConsumed", command.PagesConsumed)
	req := pantryports.DrainRequest{
		SnapshotID:    command.SnapshotID,
		PartnerID:     command.PartnerID,
		CreatedAt:     command.CreatedAt,
		Filters:       command.Filters,
		Markups:       command.Markups,
		FirstPage:     command.FirstPage,
		PagesConsumed: command.PagesConsumed,
	}
	if command.HasMore {
		sequence, err := a.catalog.Pages(ctx, command.Filters)
		if err != nil {
			logger.Error("DrainSnapshot failed to reopen catalog", "snapshotId", command.SnapshotID, "error", err)
			return err
		}
		req.Remaining = SkipPages(sequence, command.PagesConsumed, itemIDs(command.FirstPage))
	}
	if err := a.runner.Drain(ctx, req); err != nil {
		logger.Error("DrainSnapshot activity failed", "snapshotId", command.SnapshotID, "error", err)
		return err
	}
	logger.Info("DrainSnapshot activity completed", "snapshotId", command.SnapshotID)
	return nil
}

// SkipPages returns an iterator that discards the first n pages of inner after checking that they hold
// exactly consumedIDs in order. A mismatch yields ErrSequenceDiverged. If inner runs out while skipping,
// the returned iterator is exhausted.
func SkipPages(inner pantryports.PageIterator, n int, consumedIDs []string) pantryports.PageIterator {
	return &skippingIterator{inner: inner, skip: n, expected: consumedIDs}
}

type skippingIterator struct {
	inner     pantryports.PageIterator
	skip      int
	expected  []string
	skipped   []string
	verified  bool
	exhausted bool
}

func (it *skippingIterator) Next(ctx context.Context) (*pantryports.CatalogPage, error) {
	for it.skip > 0 && !it.exhausted {
		page, err := it.inner.Next(ctx)
		if errors.Is(err, pantryports.ErrSequenceExhausted) {
			it.exhausted = true
			break
		}
		if err != nil {
			return nil, err
		}
		it.skip--
		for _, item := range page.Items {
			it.skipped = append(it.skipped, item.ID)
		}
		if !page.HasNext {
			it.exhausted = true
		}
	}
	if !it.verified {
		if !slices.Equal(it.skipped, it.expected) {
			return nil, fmt.Errorf("%w: expected %d consumed items, reopened sequence held %d", ErrSequenceDiverged, len(it.expected), len(it.skipped))
		}
		it.verified = true
	}
	if it.exhausted {
		return nil, pantryports.ErrSequenceExhausted
	}
	return it.inner.Next(ctx)
}

func itemIDs(items []domain.PantryItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
