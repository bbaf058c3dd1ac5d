package ports

import (
	"context"
	"time"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
)

// DrainRequest carries everything a background drain needs to materialize a snapshot.
type DrainRequest struct {
	SnapshotID string
	PartnerID  string
	CreatedAt  time.Time
	Filters    CatalogFilters
	Markups    []domain.PartnerMarkupWindow
	FirstPage  []domain.PantryItem
	// PagesConsumed is the number of upstream pages already pulled from Remaining.
	PagesConsumed int
	// Remaining continues the upstream sequence after the first page. It is nil when the
	// first page was the last one.
	Remaining PageIterator
}

// DrainScheduler hands drain requests to background execution without waiting for them.
type DrainScheduler interface {
	Schedule(ctx context.Context, req DrainRequest) error
}
