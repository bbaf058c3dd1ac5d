//go:build integration
// +build integration

// To enable gopls support for this file, add the following to your VSCode settings.json:
// "gopls": {
//   "buildFlags": ["-tags=integration"]
// }

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
	"github.com/Apurer/pantry-partner-api/internal/platform/migrations"
)

func setupPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("pantry_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}
	return db, cleanup
}

func pricedItems(prefix string, n int) []domain.PantryItem {
	items := make([]domain.PantryItem, 0, n)
	for i := 0; i < n; i++ {
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		items = append(items, domain.PantryItem{
			ID:   fmt.Sprintf("%s-%d", prefix, i),
			Name: "Item",
			Prices: []domain.PricedSegment{{
				Window:        domain.TimeWindow{Start: &start},
				EffectiveCost: decimal.RequireFromString("10.55"),
			}},
		})
	}
	return items
}

func TestSnapshotStore_AppendAndReadInOrder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	store := NewSnapshotStore(db)
	ctx := context.Background()
	id := uuid.NewString()
	brand := "Gallo"

	require.NoError(t, store.WriteState(ctx, ports.SnapshotState{
		ID:        id,
		PartnerID: "partner-1",
		CreatedAt: time.Now().UTC(),
		Filters:   domain.CatalogFilters{Brand: brand},
	}))
	require.NoError(t, store.AppendItems(ctx, id, pricedItems("a", 3)))
	require.NoError(t, store.AppendItems(ctx, id, pricedItems("b", 2)))

	page, err := store.ReadPage(ctx, id, "partner-1", ports.Cursor{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalKnown)
	assert.Equal(t, ports.SnapshotDraining, page.State.Status)
	assert.Equal(t, brand, page.State.Filters.Brand)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "a-2", page.Items[0].ID)
	assert.Equal(t, "b-0", page.Items[1].ID)
	assert.Equal(t, "10.55", page.Items[0].Prices[0].EffectiveCost.StringFixed(2))

	beyond, err := store.ReadPage(ctx, id, "partner-1", ports.Cursor{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)

	require.NoError(t, store.Finish(ctx, id, ports.SnapshotComplete))
	page, err = store.ReadPage(ctx, id, "partner-1", ports.Cursor{Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, ports.SnapshotComplete, page.State.Status)
	assert.NotNil(t, page.State.FinishedAt)
}

func TestSnapshotStore_OwnershipAndDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	store := NewSnapshotStore(db)
	ctx := context.Background()
	id := uuid.NewString()
	require.NoError(t, store.WriteState(ctx, ports.SnapshotState{ID: id, PartnerID: "partner-1", CreatedAt: time.Now()}))
	require.NoError(t, store.AppendItems(ctx, id, pricedItems("a", 1)))

	_, err := store.ReadPage(ctx, id, "partner-2", ports.Cursor{Page: 1, PageSize: 10})
	assert.ErrorIs(t, err, ports.ErrSnapshotNotFound)

	assert.ErrorIs(t, store.AppendItems(ctx, uuid.NewString(), pricedItems("x", 1)), ports.ErrSnapshotNotFound)

	require.NoError(t, store.Delete(ctx, id))
	assert.ErrorIs(t, store.Delete(ctx, id), ports.ErrSnapshotNotFound)
	_, err = store.ReadPage(ctx, id, "partner-1", ports.Cursor{Page: 1, PageSize: 10})
	assert.ErrorIs(t, err, ports.ErrSnapshotNotFound)
}

func TestSnapshotStore_PurgeOlderThan(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	store := NewSnapshotStore(db)
	ctx := context.Background()
	now := time.Now().UTC()
	stale, fresh := uuid.NewString(), uuid.NewString()
	require.NoError(t, store.WriteState(ctx, ports.SnapshotState{ID: stale, PartnerID: "p", CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.AppendItems(ctx, stale, pricedItems("s", 2)))
	require.NoError(t, store.WriteState(ctx, ports.SnapshotState{ID: fresh, PartnerID: "p", CreatedAt: now}))

	purged, err := store.PurgeOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = store.ReadPage(ctx, stale, "p", ports.Cursor{Page: 1, PageSize: 1})
	assert.ErrorIs(t, err, ports.ErrSnapshotNotFound)
	_, err = store.ReadPage(ctx, fresh, "p", ports.Cursor{Page: 1, PageSize: 1})
	assert.NoError(t, err)
}

func TestMarkupProvider_KeepsOrder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	provider := NewMarkupProvider(db)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	markups := []domain.PartnerMarkupWindow{
		{Window: domain.TimeWindow{Start: &start}, MarkupPercent: decimal.RequireFromString("5.5")},
		{MarkupPercent: decimal.RequireFromString("5")},
	}
	require.NoError(t, provider.Replace(ctx, "partner-1", markups))

	got, err := provider.GetMarkups(ctx, "partner-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].MarkupPercent.Equal(decimal.RequireFromString("5.5")))
	assert.True(t, got[0].Window.Start.Equal(start))
	assert.Nil(t, got[1].Window.Start)

	err = provider.Replace(ctx, "partner-1", []domain.PartnerMarkupWindow{{MarkupPercent: decimal.RequireFromString("-101")}})
	assert.ErrorIs(t, err, domain.ErrMarkupBelowFloor)

	empty, err := provider.GetMarkups(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
