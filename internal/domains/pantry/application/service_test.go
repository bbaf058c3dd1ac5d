package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	pantrymemory "github.com/Apurer/pantry-partner-api/internal/domains/pantry/adapters/memory"
	pantrytypes "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application/types"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
)

const (
	partnerID  = "partner-1"
	snapshotID = "3f1c2a4e-7a9b-4c1d-8e2f-0a1b2c3d4e5f"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func catalogItems(n int) []domain.RawPantryItem {
	out := make([]domain.RawPantryItem, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.RawPantryItem{
			ID:           fmt.Sprintf("sku-%02d", i),
			Name:         fmt.Sprintf("Item %d", i),
			Availability: []domain.AvailabilityWindow{{Window: domain.Between(day("2025-01-01"), day("2025-05-30"))}},
			Costs: []domain.BaseCostWindow{
				{Window: domain.Between(day("2025-01-01"), day("2025-03-30")), BaseCost: decimal.RequireFromString("10.00")},
			},
		})
	}
	return out
}

func partnerMarkups() []domain.PartnerMarkupWindow {
	return []domain.PartnerMarkupWindow{
		{Window: domain.Between(day("2025-01-01"), day("2025-10-30")), MarkupPercent: decimal.RequireFromString("5")},
	}
}

// recordingScheduler captures drain requests; when drainer is set it runs them inline.
type recordingScheduler struct {
	requests []ports.DrainRequest
	drainer  *Drainer
	err      error
}

func (r *recordingScheduler) Schedule(ctx context.Context, req ports.DrainRequest) error {
	if r.err != nil {
		return r.err
	}
	r.requests = append(r.requests, req)
	if r.drainer != nil {
		_ = r.drainer.Drain(ctx, req)
	}
	return nil
}

type fixture struct {
	catalog   *pantrymemory.CatalogSource
	snapshots *pantrymemory.SnapshotStore
	markups   *pantrymemory.MarkupProvider
	scheduler *recordingScheduler
	svc       *Service
}

func newFixture(upstreamPageSize, itemCount int) *fixture {
	f := &fixture{
		catalog:   pantrymemory.NewCatalogSource(upstreamPageSize, catalogItems(itemCount)...),
		snapshots: pantrymemory.NewSnapshotStore(),
		markups:   pantrymemory.NewMarkupProvider(),
	}
	f.scheduler = &recordingScheduler{drainer: NewDrainer(f.snapshots)}
	f.markups.Set(partnerID, partnerMarkups())
	f.svc = NewService(f.catalog, f.snapshots, f.markups, f.scheduler,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return snapshotID }),
	)
	return f
}

func TestFetch_FreshReturnsPricedFirstPageAndSchedulesDrain(t *testing.T) {
	f := newFixture(4, 10)
	f.scheduler.drainer = nil

	page, err := f.svc.Fetch(context.Background(), pantrytypes.FetchInput{
		PartnerID: partnerID,
		PageSize:  3,
		BaseURL:   "/v1/pantry/items",
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.Equal(t, "sku-01", page.Items[0].ID)
	require.Len(t, page.Items[0].Prices, 1)
	require.Equal(t, "10.50", page.Items[0].Prices[0].EffectiveCost.StringFixed(2))

	require.Equal(t, 1, page.Pagination.CurrentPage)
	require.Equal(t, 40, page.Pagination.TotalItems)
	require.True(t, page.Pagination.TotalIsEstimate)
	require.Equal(t, snapshotID, page.Pagination.SnapshotID)
	require.Equal(t, string(ports.SnapshotDraining), page.Pagination.SnapshotStatus)
	require.Contains(t, page.Links.Next, "snapshotId="+snapshotID)
	require.Contains(t, page.Links.Next, "page=2")

	require.Len(t, f.scheduler.requests, 1)
	req := f.scheduler.requests[0]
	require.Equal(t, snapshotID, req.SnapshotID)
	require.Equal(t, partnerID, req.PartnerID)
	require.Equal(t, fixedNow, req.CreatedAt)
	require.Len(t, req.FirstPage, 4)
	require.Equal(t, 1, req.PagesConsumed)
	require.NotNil(t, req.Remaining)

	stored, err := f.snapshots.ReadPage(context.Background(), snapshotID, partnerID, ports.Cursor{Page: 1, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, ports.SnapshotDraining, stored.State.Status)
	require.Empty(t, stored.Items, "items are written by the drain only")
}

func TestFetch_NextLinkResolvesBeforeDrainRuns(t *testing.T) {
	f := newFixture(4, 10)
	f.scheduler.drainer = nil
	ctx := context.Background()

	fresh, err := f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, PageSize: 2})
	require.NoError(t, err)
	require.Contains(t, fresh.Links.Next, "snapshotId="+snapshotID)

	next, err := f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, SnapshotID: snapshotID, Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Empty(t, next.Items)
	require.Equal(t, string(ports.SnapshotDraining), next.Pagination.SnapshotStatus)
	require.True(t, next.Pagination.TotalIsEstimate)

	require.NoError(t, NewDrainer(f.snapshots).Drain(ctx, f.scheduler.requests[0]))
	drained, err := f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, SnapshotID: snapshotID, Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"sku-03", "sku-04"}, itemIDs(drained.Items))
	require.Equal(t, string(ports.SnapshotComplete), drained.Pagination.SnapshotStatus)
}

func TestFetch_FreshSinglePageReportsExactTotal(t *testing.T) {
	f := newFixture(50, 7)
	f.scheduler.drainer = nil

	page, err := f.svc.Fetch(context.Background(), pantrytypes.FetchInput{PartnerID: partnerID, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, page.Items, 7)
	require.Equal(t, 7, page.Pagination.TotalItems)
	require.False(t, page.Pagination.TotalIsEstimate)
	require.Equal(t, 1, page.Pagination.TotalPages)
	require.Empty(t, page.Links.Next)
	require.Nil(t, f.scheduler.requests[0].Remaining)
}

func TestFetch_FreshIgnoresRequestedPage(t *testing.T) {
	f := newFixture(10, 25)
	f.scheduler.drainer = nil

	page, err := f.svc.Fetch(context.Background(), pantrytypes.FetchInput{PartnerID: partnerID, Page: 3, PageSize: 5})
	require.NoError(t, err)
	require.Equal(t, 1, page.Pagination.CurrentPage)
	require.Equal(t, "sku-01", page.Items[0].ID)
}

func TestFetch_DrainMaterializesFullSnapshot(t *testing.T) {
	f := newFixture(4, 10)
	ctx := context.Background()

	fresh, err := f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, PageSize: 3})
	require.NoError(t, err)

	second, err := f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, SnapshotID: fresh.Pagination.SnapshotID, Page: 2, PageSize: 3})
	require.NoError(t, err)
	require.Equal(t, []string{"sku-04", "sku-05", "sku-06"}, itemIDs(second.Items))
	require.Equal(t, 10, second.Pagination.TotalItems)
	require.Equal(t, 4, second.Pagination.TotalPages)
	require.False(t, second.Pagination.TotalIsEstimate)
	require.Equal(t, string(ports.SnapshotComplete), second.Pagination.SnapshotStatus)
	require.Equal(t, "10.50", second.Items[0].Prices[0].EffectiveCost.StringFixed(2))

	last, err := f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, SnapshotID: snapshotID, Page: 4, PageSize: 3})
	require.NoError(t, err)
	require.Equal(t, []string{"sku-10"}, itemIDs(last.Items))
	require.Empty(t, last.Links.Next)
	require.NotEmpty(t, last.Links.Prev)
}

func TestFetch_SnapshotReadDoesNotReprice(t *testing.T) {
	f := newFixture(4, 4)
	ctx := context.Background()
	_, err := f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, PageSize: 10})
	require.NoError(t, err)

	f.markups.Set(partnerID, []domain.PartnerMarkupWindow{{MarkupPercent: decimal.RequireFromString("50")}})
	page, err := f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, SnapshotID: snapshotID, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, "10.50", page.Items[0].Prices[0].EffectiveCost.StringFixed(2))
}

func TestFetch_SnapshotUnknownForPartner(t *testing.T) {
	f := newFixture(4, 4)
	ctx := context.Background()
	_, err := f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, PageSize: 10})
	require.NoError(t, err)

	_, err = f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: "someone-else", SnapshotID: snapshotID, PageSize: 10})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, SnapshotID: "not-a-uuid", PageSize: 10})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_SnapshotReadsArePrefixesDuringDrain(t *testing.T) {
	f := newFixture(3, 9)
	f.scheduler.drainer = nil
	ctx := context.Background()

	_, err := f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, PageSize: 3})
	require.NoError(t, err)
	req := f.scheduler.requests[0]

	// Drive the drain by hand so reads can interleave with page writes.
	require.NoError(t, f.snapshots.WriteState(ctx, ports.SnapshotState{ID: req.SnapshotID, PartnerID: req.PartnerID, CreatedAt: req.CreatedAt}))
	require.NoError(t, f.snapshots.AppendItems(ctx, req.SnapshotID, req.FirstPage))
	read := func() []string {
		page, err := f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, SnapshotID: snapshotID, PageSize: 100})
		require.NoError(t, err)
		return itemIDs(page.Items)
	}
	earlier := read()

	next, err := req.Remaining.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, f.snapshots.AppendItems(ctx, req.SnapshotID, domain.PriceItems(next.Items, req.Markups)))
	later := read()

	require.Len(t, earlier, 3)
	require.Len(t, later, 6)
	require.Equal(t, earlier, later[:len(earlier)])
}

func TestFetch_Validation(t *testing.T) {
	f := newFixture(4, 4)
	ctx := context.Background()

	_, err := f.svc.Fetch(ctx, pantrytypes.FetchInput{PageSize: 10})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, PageSize: 0})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, Page: -1, PageSize: 10})
	require.ErrorIs(t, err, ErrInvalidInput)

	from, to := day("2025-05-01"), day("2025-01-01")
	_, err = f.svc.Fetch(ctx, pantrytypes.FetchInput{
		PartnerID: partnerID,
		PageSize:  10,
		Filters:   domain.CatalogFilters{AvailableFrom: &from, AvailableTo: &to},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrInvalidAvailabilityRange)

	f.markups.Set(partnerID, []domain.PartnerMarkupWindow{{MarkupPercent: decimal.RequireFromString("-120")}})
	_, err = f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, PageSize: 10})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrMarkupBelowFloor)
	require.Empty(t, f.scheduler.requests)
}

type failingCatalog struct{ err error }

func (c failingCatalog) Pages(context.Context, ports.CatalogFilters) (ports.PageIterator, error) {
	return nil, c.err
}

func TestFetch_UpstreamFailureOnFirstPagePropagates(t *testing.T) {
	f := newFixture(4, 4)
	boom := errors.New("catalog down")
	svc := NewService(failingCatalog{err: boom}, f.snapshots, f.markups, f.scheduler)

	_, err := svc.Fetch(context.Background(), pantrytypes.FetchInput{PartnerID: partnerID, PageSize: 10})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, 1, upstream.Page)
	require.ErrorIs(t, err, boom)
	require.Empty(t, f.scheduler.requests)
}

func TestFetch_SchedulingFailureStillResponds(t *testing.T) {
	f := newFixture(4, 10)
	f.scheduler.err = errors.New("queue full")

	page, err := f.svc.Fetch(context.Background(), pantrytypes.FetchInput{PartnerID: partnerID, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Empty(t, page.Pagination.SnapshotID)
	require.NotContains(t, page.Links.Next, "snapshotId")

	_, err = f.snapshots.ReadPage(context.Background(), snapshotID, partnerID, ports.Cursor{Page: 1, PageSize: 1})
	require.ErrorIs(t, err, ports.ErrSnapshotNotFound, "an unscheduled snapshot is removed")
}

type failingStateStore struct {
	*pantrymemory.SnapshotStore
	err error
}

func (s failingStateStore) WriteState(context.Context, ports.SnapshotState) error {
	return s.err
}

func TestFetch_StateWriteFailurePropagates(t *testing.T) {
	f := newFixture(4, 10)
	boom := errors.New("connection reset")
	store := failingStateStore{SnapshotStore: f.snapshots, err: boom}
	svc := NewService(f.catalog, store, f.markups, f.scheduler, WithIDGenerator(func() string { return snapshotID }))

	_, err := svc.Fetch(context.Background(), pantrytypes.FetchInput{PartnerID: partnerID, PageSize: 2})
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, "write_state", storeErr.Op)
	require.ErrorIs(t, err, boom)
	require.Empty(t, f.scheduler.requests, "no drain is scheduled without a state record")
}

func TestDeleteSnapshot(t *testing.T) {
	f := newFixture(4, 4)
	ctx := context.Background()
	_, err := f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, PageSize: 10})
	require.NoError(t, err)

	err = f.svc.DeleteSnapshot(ctx, pantrytypes.SnapshotIdentifier{PartnerID: "someone-else", SnapshotID: snapshotID})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.DeleteSnapshot(ctx, pantrytypes.SnapshotIdentifier{PartnerID: partnerID, SnapshotID: snapshotID}))
	_, err = f.svc.Fetch(ctx, pantrytypes.FetchInput{PartnerID: partnerID, SnapshotID: snapshotID, PageSize: 10})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEstimateTotal(t *testing.T) {
	require.Equal(t, 7, EstimateTotal(7, false, 10))
	require.Equal(t, 70, EstimateTotal(7, true, 10))
	require.Equal(t, 7, EstimateTotal(7, true, 0))
}

func itemIDs(items []domain.PantryItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
